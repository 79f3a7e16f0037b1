package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateColumnType(t *testing.T) {
	for _, name := range []string{"text", "number", "boolean"} {
		ct, err := ValidateColumnType(name)
		require.NoError(t, err)
		assert.Equal(t, ColumnType(name), ct)
		assert.True(t, ct.Valid())
	}

	for _, name := range []string{"select", "date", "", "Text"} {
		_, err := ValidateColumnType(name)
		require.Error(t, err, name)
		assert.ErrorIs(t, err, ErrInvalidType)

		var ite *InvalidTypeError
		require.ErrorAs(t, err, &ite)
		assert.Equal(t, name, ite.Type)
		assert.Contains(t, err.Error(), "text, number, boolean")
	}
}

func TestDefaultValueForType(t *testing.T) {
	tests := []struct {
		typ  ColumnType
		want string
		ok   bool
	}{
		{TypeText, "", true},
		{TypeNumber, "0", true},
		{TypeBoolean, "false", true},
		{ColumnType("date"), "", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			v, ok := DefaultValueForType(tt.typ)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, v)

			p := DefaultCellValue(tt.typ)
			if tt.ok {
				require.NotNil(t, p)
				assert.Equal(t, tt.want, *p)
			} else {
				assert.Nil(t, p)
			}
		})
	}
}

func TestAllowedColumnTypesIsACopy(t *testing.T) {
	types := AllowedColumnTypes()
	types[0] = "mutated"
	assert.Equal(t, TypeText, AllowedColumnTypes()[0])
}

func TestOptionsValidate(t *testing.T) {
	ok := Options{
		"choices":  []any{"a", "b", 1.5, true, nil},
		"tags":     []string{"x"},
		"format":   "YYYY-MM-DD",
		"width":    120,
		"wrap":     false,
		"unset":    nil,
		"decimals": 2.0,
	}
	require.NoError(t, ok.Validate())
	require.NoError(t, Options(nil).Validate())

	bad := []Options{
		{"nested": map[string]any{"a": 1}},
		{"list": []any{[]any{1}}},
		{"fn": func() {}},
	}
	for _, o := range bad {
		assert.ErrorIs(t, o.Validate(), ErrInvalidOptions)
	}
}

func TestOptionsClone(t *testing.T) {
	o := Options{"choices": []any{"a"}}
	c := o.Clone()
	c["choices"].([]any)[0] = "b"
	assert.Equal(t, "a", o["choices"].([]any)[0])
	assert.Nil(t, Options(nil).Clone())
}

func TestNewIDsAreUniqueAndSorted(t *testing.T) {
	a := NewRowID()
	b := NewRowID()
	assert.NotEqual(t, a, b)
	assert.Less(t, string(a), string(b))
	assert.Len(t, string(NewTableID()), 26)
}
