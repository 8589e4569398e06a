// Package native models the expressions evaluated by expression virtual
// columns.
//
// Every node renders a canonical String used verbatim inside operator dedup
// keys: two structurally equal expressions always render identically, and
// the rendering names every input it reads ("nest", "v0").
package native

import (
	"strconv"
	"strings"

	"github.com/roach88/nestq/internal/ir"
	"github.com/roach88/nestq/internal/jsonpath"
)

// Expr is a sealed native expression.
type Expr interface {
	nativeExpr()
	// Type is the expression's output type.
	Type() ir.ExtractionType
	// String is the canonical rendering.
	String() string
}

// ColumnRef reads a physical column.
type ColumnRef struct {
	Name string
	Kind ir.ExtractionType
}

func (ColumnRef) nativeExpr()               {}
func (c ColumnRef) Type() ir.ExtractionType { return c.Kind }
func (c ColumnRef) String() string          { return quoteIdent(c.Name) }

// VirtualRef reads another virtual column of the same plan.
type VirtualRef struct {
	Name   string
	Output ir.ExtractionType
}

func (VirtualRef) nativeExpr()               {}
func (v VirtualRef) Type() ir.ExtractionType { return v.Output }
func (v VirtualRef) String() string          { return quoteIdent(v.Name) }

// UnnestRef reads the current UNNEST element.
type UnnestRef struct {
	Output ir.ExtractionType
}

func (UnnestRef) nativeExpr()               {}
func (u UnnestRef) Type() ir.ExtractionType { return u.Output }
func (UnnestRef) String() string            { return `"__unnest"` }

// Literal is a constant.
type Literal struct {
	Value ir.Value
}

func (Literal) nativeExpr() {}

func (l Literal) Type() ir.ExtractionType {
	return ir.TypeOf(l.Value)
}

func (l Literal) String() string {
	switch v := l.Value.(type) {
	case nil, ir.Null:
		return "null"
	case ir.String:
		return quoteString(string(v))
	case ir.Long:
		return strconv.FormatInt(int64(v), 10)
	case ir.Double:
		return ir.FormatDouble(float64(v))
	case ir.Bool:
		if v {
			return "1"
		}
		return "0"
	}
	return quoteString(ir.JSONText(l.Value))
}

// FieldAccess extracts Path from Input as Output. With Output == COMPLEX<json>
// it renders as json_query, with ArrayOfObjects as json_query_array, and as
// json_value otherwise.
type FieldAccess struct {
	Input          Expr
	Path           jsonpath.Path
	Output         ir.ExtractionType
	ArrayOfObjects bool
}

func (FieldAccess) nativeExpr()               {}
func (f FieldAccess) Type() ir.ExtractionType { return f.Output }

func (f FieldAccess) String() string {
	path := quoteString(f.Path.String())
	switch {
	case f.ArrayOfObjects:
		return "json_query_array(" + f.Input.String() + "," + path + ")"
	case f.Output == ir.ObjectType:
		return "json_query(" + f.Input.String() + "," + path + ")"
	}
	return "json_value(" + f.Input.String() + "," + path + ",'" + f.Output.String() + "')"
}

// Keys is json_keys(input, path).
type Keys struct {
	Input Expr
	Path  jsonpath.Path
}

func (Keys) nativeExpr()             {}
func (Keys) Type() ir.ExtractionType { return ir.StringArrayType }
func (k Keys) String() string {
	return "json_keys(" + k.Input.String() + "," + quoteString(k.Path.String()) + ")"
}

// Paths is json_paths(input).
type Paths struct {
	Input Expr
}

func (Paths) nativeExpr()             {}
func (Paths) Type() ir.ExtractionType { return ir.StringArrayType }
func (p Paths) String() string        { return "json_paths(" + p.Input.String() + ")" }

// ObjectCtor is json_object(k1, v1, k2, v2, ...).
type ObjectCtor struct {
	Keys   []string
	Values []Expr
}

func (ObjectCtor) nativeExpr()             {}
func (ObjectCtor) Type() ir.ExtractionType { return ir.ObjectType }

func (o ObjectCtor) String() string {
	parts := make([]string, 0, 2*len(o.Keys))
	for i, k := range o.Keys {
		parts = append(parts, quoteString(k), o.Values[i].String())
	}
	return "json_object(" + strings.Join(parts, ",") + ")"
}

// CastExpr is cast(input, type).
type CastExpr struct {
	Input  Expr
	Output ir.ExtractionType
}

func (CastExpr) nativeExpr()               {}
func (c CastExpr) Type() ir.ExtractionType { return c.Output }
func (c CastExpr) String() string {
	return "cast(" + c.Input.String() + ",'" + c.Output.String() + "')"
}

// CoalesceExpr is nvl(a, nvl(b, ...)).
type CoalesceExpr struct {
	Args []Expr
}

func (CoalesceExpr) nativeExpr() {}

func (c CoalesceExpr) Type() ir.ExtractionType {
	out := ir.Unknown
	for _, a := range c.Args {
		out = ir.Join(out, a.Type())
	}
	return out
}

func (c CoalesceExpr) String() string {
	if len(c.Args) == 1 {
		return c.Args[0].String()
	}
	return "nvl(" + c.Args[0].String() + "," + CoalesceExpr{Args: c.Args[1:]}.String() + ")"
}

// MVExpr is array_to_mv(input): the multi-value view of an array.
type MVExpr struct {
	Input Expr
}

func (MVExpr) nativeExpr() {}

func (m MVExpr) Type() ir.ExtractionType {
	return m.Input.Type().ElementType()
}

func (m MVExpr) String() string { return "array_to_mv(" + m.Input.String() + ")" }

// Walk calls fn for e and every sub-expression, parents first.
func Walk(e Expr, fn func(Expr)) {
	if e == nil {
		return
	}
	fn(e)
	switch n := e.(type) {
	case FieldAccess:
		Walk(n.Input, fn)
	case Keys:
		Walk(n.Input, fn)
	case Paths:
		Walk(n.Input, fn)
	case ObjectCtor:
		for _, v := range n.Values {
			Walk(v, fn)
		}
	case CastExpr:
		Walk(n.Input, fn)
	case CoalesceExpr:
		for _, a := range n.Args {
			Walk(a, fn)
		}
	case MVExpr:
		Walk(n.Input, fn)
	}
}

// Vectorizable reports whether e can be evaluated in batches: no field
// access inside it uses a negative array index.
func Vectorizable(e Expr) bool {
	ok := true
	Walk(e, func(n Expr) {
		if f, isField := n.(FieldAccess); isField && f.Path.HasNegativeIndex() {
			ok = false
		}
	})
	return ok
}

// Inputs returns the distinct columns and virtual columns e reads, in first
// appearance order.
func Inputs(e Expr) []string {
	var out []string
	seen := make(map[string]bool)
	Walk(e, func(n Expr) {
		var name string
		switch r := n.(type) {
		case ColumnRef:
			name = r.Name
		case VirtualRef:
			name = r.Name
		default:
			return
		}
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	})
	return out
}

func quoteString(s string) string {
	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s) + "'"
}

func quoteIdent(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}
