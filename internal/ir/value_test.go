package ir

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueSealed(t *testing.T) {
	// Verify all types implement Value (compile-time check via assignment)
	var _ Value = Null{}
	var _ Value = String("test")
	var _ Value = Long(42)
	var _ Value = Double(2.02)
	var _ Value = Bool(true)
	var _ Value = Array{String("a"), Long(1)}
	var _ Value = Object{"key": String("value")}
}

func TestObjectSortedKeys(t *testing.T) {
	obj := Object{
		"zebra":  String("z"),
		"apple":  String("a"),
		"banana": String("b"),
	}

	assert.Equal(t, []string{"apple", "banana", "zebra"}, obj.SortedKeys())
}

func TestObjectSortedKeysRFC8785Order(t *testing.T) {
	obj := Object{
		"a":  Long(1),
		"A":  Long(2),
		"aa": Long(3),
		"aA": Long(4),
		"Aa": Long(5),
		"AA": Long(6),
	}

	// 'A' = 65, 'a' = 97
	assert.Equal(t, []string{"A", "AA", "Aa", "a", "aA", "aa"}, obj.SortedKeys())
}

func TestFormatDouble(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected string
	}{
		{"fraction", 2.02, "2.02"},
		{"whole", 1.0, "1.0"},
		{"zero", 0, "0.0"},
		{"negative", -3.5, "-3.5"},
		{"small fraction", 1.1, "1.1"},
		{"large", 1e20, "1.0E20"},
		{"large fraction", 1.5e10, "1.5E10"},
		{"tiny", 1e-5, "1.0E-5"},
		{"nan", math.NaN(), "NaN"},
		{"inf", math.Inf(1), "Infinity"},
		{"neg inf", math.Inf(-1), "-Infinity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatDouble(tt.input))
		})
	}
}

func TestMarshalValueCompact(t *testing.T) {
	tests := []struct {
		name     string
		input    Value
		expected string
	}{
		{"null", Null{}, "null"},
		{"nil", nil, "null"},
		{"string", String("hello"), `"hello"`},
		{"angle brackets unescaped", String("ARRAY<LONG> & more"), `"ARRAY<LONG> & more"`},
		{"escaped quote", String(`a"b`), `"a\"b"`},
		{"long", Long(100), "100"},
		{"double", Double(2.02), "2.02"},
		{"whole double", Double(1), "1.0"},
		{"bool", Bool(true), "true"},
		{"array", Array{String("a"), String("b")}, `["a","b"]`},
		{"object sorted", Object{"x": String("hello"), "a": Long(1)}, `{"a":1,"x":"hello"}`},
		{"object key with brackets", Object{"<k>": Long(1)}, `{"<k>":1}`},
		{"nested", Object{"array": Array{String("a")}, "n": Object{"x": Long(1)}}, `{"array":["a"],"n":{"x":1}}`},
		{"nan double", Double(math.NaN()), "null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := MarshalValue(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(b))
			assert.Equal(t, tt.expected, JSONText(tt.input))
		})
	}
}

func TestParseJSONNumbers(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Value
	}{
		{"integer", "100", Long(100)},
		{"negative integer", "-4", Long(-4)},
		{"fraction", "2.02", Double(2.02)},
		{"whole with point", "1.0", Double(1)},
		{"exponent", "1e3", Double(1000)},
		{"overflow falls back to double", "92233720368547758070", Double(92233720368547758070)},
		{"string", `"300"`, String("300")},
		{"bool", "true", Bool(true)},
		{"null", "null", Null{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ParseJSON([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, v)
		})
	}
}

func TestParseJSONDocument(t *testing.T) {
	v, err := ParseJSON([]byte(`{"x":100,"y":2.02,"z":"300","mixed":1,"mixed2":"1","arr":[1,null]}`))
	require.NoError(t, err)

	obj, ok := v.(Object)
	require.True(t, ok)
	assert.Equal(t, Long(100), obj["x"])
	assert.Equal(t, Double(2.02), obj["y"])
	assert.Equal(t, String("300"), obj["z"])
	assert.Equal(t, Array{Long(1), Null{}}, obj["arr"])
}

func TestParseJSONRejectsTrailingData(t *testing.T) {
	_, err := ParseJSON([]byte(`{"a":1} {"b":2}`))
	assert.Error(t, err)

	_, err = ParseJSON([]byte(`{"a":`))
	assert.Error(t, err)
}

func TestFromGo(t *testing.T) {
	v, err := FromGo(map[string]any{
		"i":   7,
		"f":   1.5,
		"s":   "x",
		"b":   false,
		"n":   nil,
		"arr": []any{int64(1), "two"},
		"num": json.Number("3"),
		"m":   map[any]any{"k": "v"},
	})
	require.NoError(t, err)

	assert.Equal(t, Object{
		"i":   Long(7),
		"f":   Double(1.5),
		"s":   String("x"),
		"b":   Bool(false),
		"n":   Null{},
		"arr": Array{Long(1), String("two")},
		"num": Long(3),
		"m":   Object{"k": String("v")},
	}, v)

	_, err = FromGo(struct{}{})
	assert.Error(t, err)

	_, err = FromGo(map[any]any{1: "x"})
	assert.Error(t, err)
}

func TestToGoRoundTrip(t *testing.T) {
	v := Object{"a": Array{Long(1), Double(2.5), Null{}}, "b": Bool(true), "c": String("s")}
	back, err := FromGo(ToGo(v))
	require.NoError(t, err)
	assert.True(t, Equal(v, back))
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(Null{}, nil))
	assert.True(t, Equal(Long(1), Long(1)))
	assert.False(t, Equal(Long(1), Double(1)))
	assert.False(t, Equal(String("1"), Long(1)))
	assert.True(t, Equal(Array{Long(1)}, Array{Long(1)}))
	assert.False(t, Equal(Array{Long(1)}, Array{Long(1), Long(2)}))
	assert.True(t, Equal(Object{"a": Null{}}, Object{"a": Null{}}))
	assert.False(t, Equal(Object{"a": Null{}}, Object{"b": Null{}}))
}

func TestIsNull(t *testing.T) {
	assert.True(t, IsNull(nil))
	assert.True(t, IsNull(Null{}))
	assert.False(t, IsNull(String("")))
	assert.False(t, IsNull(Array{}))
}
