package native

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/nestq/internal/ir"
	"github.com/roach88/nestq/internal/jsonpath"
)

func TestStringRendering(t *testing.T) {
	nester := ColumnRef{Name: "nester", Kind: ir.ObjectType}
	v0 := VirtualRef{Name: "v0", Output: ir.StringType}

	testCases := []struct {
		name string
		expr Expr
		want string
		typ  ir.ExtractionType
	}{
		{"keys", Keys{Input: nester, Path: jsonpath.Root()}, `json_keys("nester",'$')`, ir.StringArrayType},
		{"paths", Paths{Input: nester}, `json_paths("nester")`, ir.StringArrayType},
		{"value", FieldAccess{Input: nester, Path: jsonpath.MustParse("$.n.x"), Output: ir.LongType}, `json_value("nester",'$.n.x','LONG')`, ir.LongType},
		{"query", FieldAccess{Input: nester, Path: jsonpath.MustParse("$.n"), Output: ir.ObjectType}, `json_query("nester",'$.n')`, ir.ObjectType},
		{"query array", FieldAccess{Input: nester, Path: jsonpath.MustParse("$.a"), Output: ir.ObjectType, ArrayOfObjects: true}, `json_query_array("nester",'$.a')`, ir.ObjectType},
		{"object", ObjectCtor{Keys: []string{"x", "y"}, Values: []Expr{v0, Literal{Value: ir.Long(1)}}}, `json_object('x',"v0",'y',1)`, ir.ObjectType},
		{"cast", CastExpr{Input: v0, Output: ir.DoubleType}, `cast("v0",'DOUBLE')`, ir.DoubleType},
		{"coalesce", CoalesceExpr{Args: []Expr{v0, Literal{Value: ir.String("d")}, Literal{Value: ir.Null{}}}}, `nvl("v0",nvl('d',null))`, ir.StringType},
		{"mv", MVExpr{Input: ColumnRef{Name: "arrayLong", Kind: ir.LongArrayType}}, `array_to_mv("arrayLong")`, ir.LongType},
		{"escaped", Literal{Value: ir.String(`it's`)}, `'it\'s'`, ir.StringType},
		{"double", Literal{Value: ir.Double(1)}, `1.0`, ir.DoubleType},
		{"unnest", UnnestRef{Output: ir.LongType}, `"__unnest"`, ir.LongType},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.expr.String())
			assert.Equal(t, tc.typ, tc.expr.Type())
		})
	}
}

func TestEquivalentPathsRenderIdentically(t *testing.T) {
	a := FieldAccess{Input: ColumnRef{Name: "nest"}, Path: jsonpath.MustParse("$['x']"), Output: ir.StringType}
	b := FieldAccess{Input: ColumnRef{Name: "nest"}, Path: jsonpath.MustParse("$.x"), Output: ir.StringType}
	assert.Equal(t, a.String(), b.String())
}

func TestVectorizable(t *testing.T) {
	neg := FieldAccess{Input: ColumnRef{Name: "nester"}, Path: jsonpath.MustParse("$.array[-1]"), Output: ir.StringType}
	pos := FieldAccess{Input: ColumnRef{Name: "nester"}, Path: jsonpath.MustParse("$.array[1]"), Output: ir.StringType}

	assert.False(t, Vectorizable(neg))
	assert.True(t, Vectorizable(pos))
	assert.False(t, Vectorizable(CastExpr{Input: neg, Output: ir.LongType}))
	assert.True(t, Vectorizable(ObjectCtor{Keys: []string{"a"}, Values: []Expr{pos}}))
}

func TestInputs(t *testing.T) {
	e := ObjectCtor{
		Keys: []string{"a", "b", "c"},
		Values: []Expr{
			VirtualRef{Name: "v0"},
			ColumnRef{Name: "long"},
			CastExpr{Input: VirtualRef{Name: "v0"}, Output: ir.StringType},
		},
	}
	assert.Equal(t, []string{"v0", "long"}, Inputs(e))
}
