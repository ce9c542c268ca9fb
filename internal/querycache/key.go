package querycache

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

// Key identifies a cache entry: the endpoint name plus its serialized
// arguments. Two reads with equal arguments share one entry.
type Key struct {
	Endpoint string
	Args     string
}

// NewKey serializes args deterministically. Nil args produce an empty Args.
func NewKey(endpoint string, args any) Key {
	if args == nil {
		return Key{Endpoint: endpoint}
	}
	raw, err := json.Marshal(args)
	if err != nil {
		// Arguments are ids and small structs; fall back to fmt rather than
		// refusing the read.
		return Key{Endpoint: endpoint, Args: fmt.Sprintf("%v", args)}
	}
	return Key{Endpoint: endpoint, Args: string(raw)}
}

func (k Key) String() string {
	if k.Args == "" {
		return k.Endpoint
	}
	return k.Endpoint + "(" + k.Args + ")"
}

// Status is the fetch lifecycle of an entry.
type Status int

const (
	StatusUninitialized Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "uninitialized"
	}
}

// Snapshot is a copy of an entry's observable state. Value is shared with the
// cache and must be treated as read-only; use Value[T] to get a typed copy.
type Snapshot struct {
	Key           Key
	Value         any
	Status        Status
	Err           error
	LastFetchedAt time.Time
	Subscribers   int
	Fetching      bool
	Stale         bool
	Pending       int
}

// HasValue reports whether a value has ever been fetched or written.
func (s Snapshot) HasValue() bool {
	return s.Value != nil
}
