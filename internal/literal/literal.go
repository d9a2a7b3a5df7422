// Package literal reads and writes the value format used by the firmware's
// persisted variables.
//
// The firmware stores structured variables as Python literals
// ({'index': 0, 'status': 'ready'}), while tools writing the same keys
// often use JSON. Decode accepts both. Encode always writes the Python form
// so values round-trip through SAVE_VARIABLE unchanged.
//
// Decoded values use these Go types:
//
//	dict           -> Dict (key order preserved)
//	list, tuple    -> []any
//	str            -> string
//	int            -> int64
//	float          -> float64
//	True/False     -> bool
//	None           -> nil
package literal

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrSyntax is returned when the input is not a valid literal.
var ErrSyntax = errors.New("literal: syntax error")

// ErrUnsupported is returned when Encode meets a Go type it cannot write.
var ErrUnsupported = errors.New("literal: unsupported type")

// Item is one key/value pair of a Dict.
type Item struct {
	Key   string
	Value any
}

// Dict is an insertion-ordered mapping, matching Python dict semantics.
type Dict []Item

// Get returns the value stored under key.
func (d Dict) Get(key string) (any, bool) {
	for _, it := range d {
		if it.Key == key {
			return it.Value, true
		}
	}
	return nil, false
}

// Set replaces the value under key, or appends it when absent.
func (d *Dict) Set(key string, value any) {
	for i := range *d {
		if (*d)[i].Key == key {
			(*d)[i].Value = value
			return
		}
	}
	*d = append(*d, Item{Key: key, Value: value})
}

// Has reports whether key is present.
func (d Dict) Has(key string) bool {
	_, ok := d.Get(key)
	return ok
}

// MarshalJSON writes the dict as a JSON object in key order.
func (d Dict) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, it := range d {
		if i > 0 {
			b.WriteByte(',')
		}
		k, err := json.Marshal(it.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(it.Value)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", it.Key, err)
		}
		b.Write(k)
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// syntaxError builds an ErrSyntax-wrapped error carrying the byte offset.
func syntaxError(offset int, format string, args ...any) error {
	return fmt.Errorf("%w at offset %d: %s", ErrSyntax, offset, fmt.Sprintf(format, args...))
}
