// Package codec defines how documents are encoded at rest and on the wire.
//
// The codec name is recorded in every journal header. Opening a journal
// written with another codec fails instead of silently misreading documents.
package codec

import (
	"fmt"
	"io"
)

// Codec encodes and decodes documents.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// Default is the codec used when none is configured.
var Default Codec = GoJSON{}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "go-json":
		return GoJSON{}, true
	default:
		return nil, false
	}
}

// OrDefault returns c, or Default when c is nil.
func OrDefault(c Codec) Codec {
	if c == nil {
		return Default
	}
	return c
}

// Decode reads r to EOF and unmarshals it into v. At most limit bytes are
// read when limit > 0.
func Decode(c Codec, r io.Reader, limit int64, v any) error {
	c = OrDefault(c)
	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if limit > 0 && int64(len(data)) > limit {
		return fmt.Errorf("codec %s: payload exceeds %d bytes", c.Name(), limit)
	}
	return c.Unmarshal(data, v)
}

// MustMarshal panics on error. Tests only.
func MustMarshal(c Codec, v any) []byte {
	c = OrDefault(c)
	b, err := c.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("codec %s marshal failed: %w", c.Name(), err))
	}
	return b
}
