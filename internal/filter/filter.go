// Package filter translates WHERE predicates into native filters bound to
// typed extraction operators.
//
// Leaves name the operator (or physical column) they read and carry a
// MatchType equal to that operator's output type; literal values are always
// stored already coerced to MatchType.
package filter

import (
	"fmt"
	"strings"

	"github.com/roach88/nestq/internal/ir"
	"github.com/roach88/nestq/internal/native"
	"github.com/roach88/nestq/internal/queryir"
)

// Filter is a sealed native filter tree.
type Filter interface {
	filterNode()
	String() string
}

// Operand is what a leaf reads: a virtual column or a physical column.
type Operand struct {
	Column    string
	MatchType ir.ExtractionType
	// MultiValue marks an ARRAY_TO_MV operand: the leaf matches when any
	// element matches, and null or [] behave as a single null element.
	MultiValue bool
}

func (o Operand) String() string {
	if o.MultiValue {
		return fmt.Sprintf("mv(%s):%s", o.Column, o.MatchType)
	}
	return fmt.Sprintf("%s:%s", o.Column, o.MatchType)
}

// Equality matches rows whose operand equals Value.
type Equality struct {
	Operand
	Value ir.Value
}

func (Equality) filterNode() {}
func (f Equality) String() string {
	return fmt.Sprintf("%s = %s", f.Operand, ir.JSONText(f.Value))
}

// Range matches rows within the bounds. A nil bound is unbounded.
type Range struct {
	Operand
	Lower     ir.Value
	Upper     ir.Value
	LowerOpen bool
	UpperOpen bool
}

func (Range) filterNode() {}
func (f Range) String() string {
	lo, hi := "(-inf", "+inf)"
	if f.Lower != nil {
		lo = "[" + ir.JSONText(f.Lower)
		if f.LowerOpen {
			lo = "(" + ir.JSONText(f.Lower)
		}
	}
	if f.Upper != nil {
		hi = ir.JSONText(f.Upper) + "]"
		if f.UpperOpen {
			hi = ir.JSONText(f.Upper) + ")"
		}
	}
	return fmt.Sprintf("%s in %s, %s", f.Operand, lo, hi)
}

// Like matches string operands against a SQL LIKE pattern.
type Like struct {
	Operand
	Pattern string
}

func (Like) filterNode() {}
func (f Like) String() string {
	return fmt.Sprintf("%s LIKE %q", f.Operand, f.Pattern)
}

// In matches rows whose operand equals any of Values.
type In struct {
	Operand
	Values []ir.Value
}

func (In) filterNode() {}
func (f In) String() string {
	parts := make([]string, len(f.Values))
	for i, v := range f.Values {
		parts[i] = ir.JSONText(v)
	}
	return fmt.Sprintf("%s IN [%s]", f.Operand, strings.Join(parts, ", "))
}

// Null matches rows whose operand is null.
type Null struct {
	Operand
}

func (Null) filterNode() {}
func (f Null) String() string {
	return fmt.Sprintf("%s IS NULL", f.Operand)
}

// And matches when every child matches.
type And struct {
	Filters []Filter
}

func (And) filterNode() {}
func (f And) String() string { return joinFilters("AND", f.Filters) }

// Or matches when any child matches.
type Or struct {
	Filters []Filter
}

func (Or) filterNode() {}
func (f Or) String() string { return joinFilters("OR", f.Filters) }

// Not inverts its child.
type Not struct {
	Filter Filter
}

func (Not) filterNode() {}
func (f Not) String() string {
	return "NOT(" + f.Filter.String() + ")"
}

// Expression is the fallback for predicates that cannot be pushed down: a
// comparison between two native expressions evaluated row at a time.
type Expression struct {
	Left  native.Expr
	Op    queryir.CompareOp
	Right native.Expr
}

func (Expression) filterNode() {}
func (f Expression) String() string {
	return fmt.Sprintf("expression(%s %s %s)", f.Left, f.Op, f.Right)
}

func joinFilters(op string, filters []Filter) string {
	parts := make([]string, len(filters))
	for i, f := range filters {
		parts[i] = f.String()
	}
	return op + "(" + strings.Join(parts, ", ") + ")"
}

// Operands returns every operand read by leaves of f, in traversal order.
func Operands(f Filter) []Operand {
	var out []Operand
	walk(f, func(leaf Filter) {
		switch n := leaf.(type) {
		case Equality:
			out = append(out, n.Operand)
		case Range:
			out = append(out, n.Operand)
		case Like:
			out = append(out, n.Operand)
		case In:
			out = append(out, n.Operand)
		case Null:
			out = append(out, n.Operand)
		}
	})
	return out
}

func walk(f Filter, fn func(Filter)) {
	if f == nil {
		return
	}
	fn(f)
	switch n := f.(type) {
	case And:
		for _, c := range n.Filters {
			walk(c, fn)
		}
	case Or:
		for _, c := range n.Filters {
			walk(c, fn)
		}
	case Not:
		walk(n.Filter, fn)
	}
}
