package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrInvalidOptions is returned by Options.Validate.
var ErrInvalidOptions = errors.New("invalid column options")

// Options is an opaque bag of per-column presentation settings, for example
// select choices. Values are primitives (string, number, bool, nil) or lists
// of primitives. The server stores them and never interprets them.
type Options map[string]any

// Validate checks that every value is a primitive or a list of primitives.
func (o Options) Validate() error {
	for k, v := range o {
		if !utf8.ValidString(k) {
			return fmt.Errorf("%w: key %q is not valid utf-8", ErrInvalidOptions, k)
		}
		if list, ok := v.([]any); ok {
			for i, item := range list {
				if !isPrimitive(item) {
					return fmt.Errorf("%w: %s[%d] has unsupported type %T", ErrInvalidOptions, k, i, item)
				}
			}
			continue
		}
		if _, ok := v.([]string); ok {
			continue
		}
		if !isPrimitive(v) {
			return fmt.Errorf("%w: %s has unsupported type %T", ErrInvalidOptions, k, v)
		}
	}
	return nil
}

// Clone returns a shallow copy of o with list values copied.
func (o Options) Clone() Options {
	if o == nil {
		return nil
	}
	out := make(Options, len(o))
	for k, v := range o {
		switch list := v.(type) {
		case []any:
			out[k] = append([]any(nil), list...)
		case []string:
			out[k] = append([]string(nil), list...)
		default:
			out[k] = v
		}
	}
	return out
}

func isPrimitive(v any) bool {
	switch v.(type) {
	case nil, string, bool, json.Number,
		float64, float32,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return true
	default:
		return false
	}
}
