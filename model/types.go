package model

import (
	"errors"
	"fmt"
	"strings"
)

// ColumnType is the declared data type of a column.
type ColumnType string

const (
	TypeText    ColumnType = "text"
	TypeNumber  ColumnType = "number"
	TypeBoolean ColumnType = "boolean"
)

// allowedColumnTypes is the closed set of persisted column types, in
// declaration order. Select and date columns are presentation concepts and
// are stored as text.
var allowedColumnTypes = []ColumnType{TypeText, TypeNumber, TypeBoolean}

// ErrInvalidType is returned when a column type is outside the registry.
var ErrInvalidType = errors.New("invalid column type")

// InvalidTypeError reports the rejected type name.
//
// It matches ErrInvalidType with errors.Is.
type InvalidTypeError struct {
	Type string
}

func (e *InvalidTypeError) Error() string {
	names := make([]string, len(allowedColumnTypes))
	for i, t := range allowedColumnTypes {
		names[i] = string(t)
	}
	return fmt.Sprintf("invalid column type: %q (allowed: %s)", e.Type, strings.Join(names, ", "))
}

func (e *InvalidTypeError) Is(target error) bool { return target == ErrInvalidType }

// AllowedColumnTypes returns the registered column types.
func AllowedColumnTypes() []ColumnType {
	out := make([]ColumnType, len(allowedColumnTypes))
	copy(out, allowedColumnTypes)
	return out
}

// ValidateColumnType checks s against the registry and returns it as a
// ColumnType. Unknown names fail with an *InvalidTypeError.
func ValidateColumnType(s string) (ColumnType, error) {
	for _, t := range allowedColumnTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", &InvalidTypeError{Type: s}
}

// Valid reports whether t is a registered column type.
func (t ColumnType) Valid() bool {
	_, err := ValidateColumnType(string(t))
	return err == nil
}

// DefaultValueForType returns the initial cell value for a column of type t.
// The boolean is false for types outside the registry, in which case the
// cell is materialized without a value.
func DefaultValueForType(t ColumnType) (string, bool) {
	switch t {
	case TypeText:
		return "", true
	case TypeNumber:
		return "0", true
	case TypeBoolean:
		return "false", true
	default:
		return "", false
	}
}

// DefaultCellValue is DefaultValueForType in the optional form stored on a Cell.
func DefaultCellValue(t ColumnType) *string {
	v, ok := DefaultValueForType(t)
	if !ok {
		return nil
	}
	return &v
}
