package querycache

import (
	"fmt"
	"reflect"

	json "github.com/goccy/go-json"
)

// Cloner lets a value supply its own deep copy.
type Cloner interface {
	CloneValue() any
}

// clone returns a structural copy of v so patches never write into a value a
// reader may already hold. Values round-trip through JSON unless they
// implement Cloner.
func clone(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if c, ok := v.(Cloner); ok {
		return c.CloneValue(), nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("clone %T: %w", v, err)
	}
	typ := reflect.TypeOf(v)
	ptr := reflect.New(typ)
	if err := json.Unmarshal(raw, ptr.Interface()); err != nil {
		return nil, fmt.Errorf("clone %T: %w", v, err)
	}
	return ptr.Elem().Interface(), nil
}
