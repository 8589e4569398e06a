package store

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/nestq/internal/ir"
)

func TestToSQL(t *testing.T) {
	tests := []struct {
		name   string
		v      ir.Value
		asJSON bool
		want   any
	}{
		{"null", ir.Null{}, false, nil},
		{"null as json", ir.Null{}, true, nil},
		{"string", ir.String("a"), false, "a"},
		{"string as json", ir.String("a"), true, `"a"`},
		{"long", ir.Long(7), false, int64(7)},
		{"double", ir.Double(1.5), false, 1.5},
		{"bool", ir.Bool(true), false, int64(1)},
		{"array", ir.Array{ir.Long(1), ir.Null{}}, false, "[1,null]"},
		{"object", ir.Object{"b": ir.Long(1), "a": ir.String("x")}, false, `{"a":"x","b":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToSQL(tt.v, tt.asJSON))
		})
	}
}

func TestFromSQL(t *testing.T) {
	tests := []struct {
		name   string
		v      any
		isJSON bool
		want   ir.Value
	}{
		{"nil", nil, true, ir.Null{}},
		{"int", int64(3), false, ir.Long(3)},
		{"float", 2.5, false, ir.Double(2.5)},
		{"text", "hello", false, ir.String("hello")},
		{"json text", `{"a":[1]}`, true, ir.Object{"a": ir.Array{ir.Long(1)}}},
		{"json string", `"1"`, true, ir.String("1")},
		{"invalid json stays text", "hello", true, ir.String("hello")},
		{"json flag off keeps text", `[1]`, false, ir.String("[1]")},
		{"bytes", []byte(`[1]`), true, ir.Array{ir.Long(1)}},
		{"nil bytes are null", []byte(nil), false, ir.Null{}},
		{"nil bytes are null as json", []byte(nil), true, ir.Null{}},
		{"empty bytes are empty text", []byte{}, false, ir.String("")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromSQL(tt.v, tt.isJSON))
		})
	}
}

func TestIsJSONType(t *testing.T) {
	assert.True(t, IsJSONType(ir.ObjectType))
	assert.True(t, IsJSONType(ir.StringArrayType))
	assert.False(t, IsJSONType(ir.LongType))
	assert.False(t, IsJSONType(ir.StringType))
}
