package household

import (
	"errors"
	"fmt"
	"net/http"
)

// Failure classes. Match them with errors.Is.
var (
	// ErrNetwork covers requests that never reached the server and responses
	// that could not be decoded.
	ErrNetwork = errors.New("network failure")
	// ErrValidation covers 4xx responses: the server rejected the payload.
	ErrValidation = errors.New("validation failure")
	// ErrServer covers 5xx responses.
	ErrServer = errors.New("server failure")
)

// NetworkError wraps transport and decoding failures.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Is matches ErrNetwork.
func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// StatusError is a non-2xx response.
type StatusError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api %s %s returned status %d", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("api %s %s returned status %d: %s", e.Method, e.Path, e.Status, e.Message)
}

// Is matches ErrValidation for 4xx and ErrServer for 5xx.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Status >= 400 && e.Status < 500
	case ErrServer:
		return e.Status >= 500
	}
	return false
}

// NotFound reports whether err is a 404 response.
func NotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == http.StatusNotFound
}

// UserMessage returns the text worth showing to a person for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var se *StatusError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	switch {
	case errors.Is(err, ErrInvalidInput):
		return err.Error()
	case errors.Is(err, ErrNetwork):
		return "server unreachable"
	case errors.Is(err, ErrServer):
		return "server error"
	}
	return err.Error()
}
