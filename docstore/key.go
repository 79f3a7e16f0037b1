package docstore

import (
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
	"strings"
)

// Tuple component tags. The tag orders components of different kinds.
const (
	tagNil    byte = 0x01
	tagFalse  byte = 0x02
	tagTrue   byte = 0x03
	tagInt    byte = 0x04
	tagFloat  byte = 0x05
	tagString byte = 0x06
)

// encodeTuple encodes the components of an index key so that the byte order
// of the encodings matches the component-wise order of the tuples, and the
// encoding of a tuple prefix is a byte prefix of the full key.
func encodeTuple(parts []any) (string, error) {
	var b strings.Builder
	for i, p := range parts {
		if err := appendComponent(&b, p); err != nil {
			return "", fmt.Errorf("key component %d: %w", i, err)
		}
	}
	return b.String(), nil
}

// firstComponent returns the encoding of the first component of an encoded
// key. It is the partition used for scan conflict detection.
func firstComponent(key string) string {
	if key == "" {
		return ""
	}
	switch key[0] {
	case tagNil, tagFalse, tagTrue:
		return key[:1]
	case tagInt, tagFloat:
		if len(key) < 9 {
			return key
		}
		return key[:9]
	case tagString:
		for i := 1; i+1 < len(key); i++ {
			if key[i] != 0x00 {
				continue
			}
			if key[i+1] == 0x01 {
				return key[:i+2]
			}
			i++ // escaped 0x00
		}
		return key
	default:
		return key
	}
}

func appendComponent(b *strings.Builder, v any) error {
	switch x := v.(type) {
	case nil:
		b.WriteByte(tagNil)
	case bool:
		if x {
			b.WriteByte(tagTrue)
		} else {
			b.WriteByte(tagFalse)
		}
	case string:
		appendString(b, x)
	case *string:
		if x == nil {
			b.WriteByte(tagNil)
		} else {
			appendString(b, *x)
		}
	case int:
		appendInt(b, int64(x))
	case int32:
		appendInt(b, int64(x))
	case int64:
		appendInt(b, x)
	case uint32:
		appendInt(b, int64(x))
	case float64:
		appendFloat(b, x)
	default:
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.String:
			appendString(b, rv.String())
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			appendInt(b, rv.Int())
		case reflect.Bool:
			return appendComponent(b, rv.Bool())
		default:
			return fmt.Errorf("unsupported index key type %T", v)
		}
	}
	return nil
}

func appendString(b *strings.Builder, s string) {
	b.WriteByte(tagString)
	for i := 0; i < len(s); i++ {
		c := s[i]
		b.WriteByte(c)
		if c == 0x00 {
			b.WriteByte(0xFF)
		}
	}
	b.WriteByte(0x00)
	b.WriteByte(0x01)
}

func appendInt(b *strings.Builder, v int64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v)^(1<<63))
	b.WriteByte(tagInt)
	b.Write(buf[:])
}

func appendFloat(b *strings.Builder, f float64) {
	bits := math.Float64bits(f)
	if f < 0 || (f == 0 && math.Signbit(f)) {
		bits = ^bits
	} else {
		bits ^= 1 << 63
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], bits)
	b.WriteByte(tagFloat)
	b.Write(buf[:])
}
