package extract

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/nestq/internal/ir"
	"github.com/roach88/nestq/internal/jsonpath"
)

var allTypes = []ir.ExtractionType{
	ir.Unknown, ir.LongType, ir.DoubleType, ir.StringType,
	ir.LongArrayType, ir.DoubleArrayType, ir.StringArrayType, ir.ObjectType,
}

func nestDoc() ir.Value {
	return ir.Object{
		"x":      ir.Long(100),
		"y":      ir.Double(2.02),
		"z":      ir.String("300"),
		"mixed":  ir.Long(1),
		"mixed2": ir.String("1"),
		"array":  ir.Array{ir.String("a"), ir.String("b")},
		"n":      ir.Object{"x": ir.String("hello")},
		"flag":   ir.Bool(true),
	}
}

func TestCoerceScalars(t *testing.T) {
	testCases := []struct {
		name   string
		input  ir.Value
		target ir.ExtractionType
		want   ir.Value
	}{
		{"long to string", ir.Long(100), ir.StringType, ir.String("100")},
		{"double to string", ir.Double(2.02), ir.StringType, ir.String("2.02")},
		{"whole double to string", ir.Double(1), ir.StringType, ir.String("1.0")},
		{"bool to string", ir.Bool(false), ir.StringType, ir.String("false")},
		{"string to string", ir.String("abc"), ir.StringType, ir.String("abc")},
		{"double to long truncates", ir.Double(1.1), ir.LongType, ir.Long(1)},
		{"negative double to long truncates toward zero", ir.Double(-2.9), ir.LongType, ir.Long(-2)},
		{"nan to long", ir.Double(math.NaN()), ir.LongType, ir.Null{}},
		{"inf to long", ir.Double(math.Inf(1)), ir.LongType, ir.Null{}},
		{"huge double to long", ir.Double(1e30), ir.LongType, ir.Null{}},
		{"string int to long", ir.String("300"), ir.LongType, ir.Long(300)},
		{"string float to long", ir.String("2.5"), ir.LongType, ir.Long(2)},
		{"unparsable string to long", ir.String("abcdef"), ir.LongType, ir.Null{}},
		{"inf spelling to long", ir.String("Infinity"), ir.LongType, ir.Null{}},
		{"bool to long", ir.Bool(true), ir.LongType, ir.Long(1)},
		{"long to double", ir.Long(100), ir.DoubleType, ir.Double(100)},
		{"string to double", ir.String("2.02"), ir.DoubleType, ir.Double(2.02)},
		{"padded string to double", ir.String(" 3 "), ir.DoubleType, ir.Double(3)},
		{"bad string to double", ir.String("x"), ir.DoubleType, ir.Null{}},
		{"nan spelling to double", ir.String("NaN"), ir.DoubleType, ir.Null{}},
		{"bool to double", ir.Bool(false), ir.DoubleType, ir.Double(0)},
		{"object to string", ir.Object{"x": ir.Long(1)}, ir.StringType, ir.Null{}},
		{"array to long", ir.Array{ir.Long(1)}, ir.LongType, ir.Null{}},
		{"array to double", ir.Array{ir.Long(1)}, ir.DoubleType, ir.Null{}},
		{"null to string", ir.Null{}, ir.StringType, ir.Null{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Coerce(tc.input, tc.target))
			assert.Equal(t, tc.want, Cast(tc.input, tc.target))
		})
	}
}

func TestCoerceArrays(t *testing.T) {
	testCases := []struct {
		name   string
		input  ir.Value
		target ir.ExtractionType
		want   ir.Value
	}{
		{"strings to long array", ir.Array{ir.String("1"), ir.String("x")}, ir.LongArrayType, ir.Array{ir.Long(1), ir.Null{}}},
		{"longs to string array", ir.Array{ir.Long(1), ir.Double(2.5)}, ir.StringArrayType, ir.Array{ir.String("1"), ir.String("2.5")}},
		{"nested elements become null", ir.Array{ir.Object{}, ir.Array{}}, ir.DoubleArrayType, ir.Array{ir.Null{}, ir.Null{}}},
		{"scalar wraps", ir.Long(7), ir.LongArrayType, ir.Array{ir.Long(7)}},
		{"object is null", ir.Object{"a": ir.Long(1)}, ir.StringArrayType, ir.Null{}},
		{"empty array stays empty", ir.Array{}, ir.LongArrayType, ir.Array{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Coerce(tc.input, tc.target))
		})
	}
}

func TestCoerceObject(t *testing.T) {
	obj := ir.Object{"x": ir.Long(1)}
	assert.Equal(t, obj, Coerce(obj, ir.ObjectType))
	assert.Equal(t, ir.String("b"), Coerce(ir.String("b"), ir.ObjectType))

	assert.Equal(t, ir.Array{obj}, CoerceArrayOfObjects(obj))
	assert.Equal(t, ir.Array{obj}, CoerceArrayOfObjects(ir.Array{obj}))
	assert.Equal(t, ir.Null{}, CoerceArrayOfObjects(ir.Null{}))
}

func TestExtractAbsenceIsNull(t *testing.T) {
	doc := nestDoc()
	absent := []string{"$.missing", "$.x.y", "$.array[2]", "$.array[-3]", "$.n.missing", "$.n[0]", "$[0]", "$.array.a"}

	for _, path := range absent {
		for _, typ := range allTypes {
			t.Run(path+"/"+typ.String(), func(t *testing.T) {
				p := jsonpath.MustParse(path)
				assert.Equal(t, ir.Null{}, Extract(doc, p, typ))
				assert.Equal(t, ir.Null{}, ExtractRaw([]byte(ir.JSONText(doc)), p, typ, false))
			})
		}
	}

	assert.Equal(t, ir.Null{}, ExtractArrayOfObjects(doc, jsonpath.MustParse("$.missing")))
}

func TestExtractTypes(t *testing.T) {
	doc := nestDoc()
	testCases := []struct {
		path   string
		target ir.ExtractionType
		want   ir.Value
	}{
		{"$.x", ir.StringType, ir.String("100")},
		{"$.x", ir.LongType, ir.Long(100)},
		{"$.x", ir.DoubleType, ir.Double(100)},
		{"$.y", ir.StringType, ir.String("2.02")},
		{"$.y", ir.LongType, ir.Long(2)},
		{"$.z", ir.LongType, ir.Long(300)},
		{"$.mixed2", ir.LongType, ir.Long(1)},
		{"$.flag", ir.LongType, ir.Long(1)},
		{"$.n", ir.StringType, ir.Null{}},
		{"$.n", ir.ObjectType, ir.Object{"x": ir.String("hello")}},
		{"$.n.x", ir.StringType, ir.String("hello")},
		{"$.array", ir.StringType, ir.Null{}},
		{"$.array", ir.StringArrayType, ir.Array{ir.String("a"), ir.String("b")}},
		{"$.array[1]", ir.StringType, ir.String("b")},
		{"$.array[-1]", ir.StringType, ir.String("b")},
		{"$.array[-1]", ir.ObjectType, ir.String("b")},
		{"$.array[-2]", ir.StringType, ir.String("a")},
		{"$", ir.StringType, ir.Null{}},
	}

	for _, tc := range testCases {
		t.Run(tc.path+"/"+tc.target.String(), func(t *testing.T) {
			p := jsonpath.MustParse(tc.path)
			assert.Equal(t, tc.want, Extract(doc, p, tc.target))
		})
	}
}

func TestVariantOverMatch(t *testing.T) {
	// A LONG operator over a path storing "1", 1 and 1.1 reads 1 for all three,
	// so an equality filter against 1 matches every row.
	stored := []ir.Value{ir.String("1"), ir.Long(1), ir.Double(1.1)}
	p := jsonpath.MustParse("$.mixed2")
	for _, v := range stored {
		doc := ir.Object{"mixed2": v}
		assert.Equal(t, ir.Long(1), Extract(doc, p, ir.LongType))
	}
}
