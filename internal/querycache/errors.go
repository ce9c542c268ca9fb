package querycache

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by Fetch after Close.
var ErrClosed = errors.New("query cache closed")

// StaleReadError reports a failed refetch of an entry that still holds its
// previous value. The value stays readable.
type StaleReadError struct {
	Key Key
	Err error
}

func (e *StaleReadError) Error() string {
	return fmt.Sprintf("refetch %s: %v (showing last known value)", e.Key, e.Err)
}

func (e *StaleReadError) Unwrap() error { return e.Err }

// IsStale reports whether err is a StaleReadError.
func IsStale(err error) bool {
	var se *StaleReadError
	return errors.As(err, &se)
}
