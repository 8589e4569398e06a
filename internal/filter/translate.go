package filter

import (
	"fmt"

	"github.com/roach88/nestq/internal/extract"
	"github.com/roach88/nestq/internal/ir"
	"github.com/roach88/nestq/internal/native"
	"github.com/roach88/nestq/internal/queryir"
)

// Binder resolves predicate operands to planned operators. The planner
// implements it over its private operator registry.
type Binder interface {
	// Bind returns the operand for e, requesting an operator fixed at t.
	// The binder may settle on another type (a RETURNING clause wins over t);
	// the returned MatchType is authoritative.
	Bind(e queryir.Expr, t ir.ExtractionType) (Operand, error)
	// BindDisplay returns the operand serving e in SELECT.
	BindDisplay(e queryir.Expr) (Operand, error)
	// Native converts e into a native expression for expression fallbacks.
	Native(e queryir.Expr) (native.Expr, error)
}

// Translate converts a predicate into a native filter. A nil predicate
// yields a nil filter. Predicates that cannot be pushed down become
// Expression filters; Translate never fails for that reason.
func Translate(p queryir.Predicate, b Binder) (Filter, error) {
	switch n := queryir.DerefPredicate(p).(type) {
	case nil:
		return nil, nil
	case queryir.Compare:
		return translateCompare(n, b)
	case queryir.Between:
		return translateBetween(n, b)
	case queryir.Like:
		op, err := b.Bind(n.Expr, ir.StringType)
		if err != nil {
			return nil, err
		}
		return Like{Operand: op, Pattern: n.Pattern}, nil
	case queryir.In:
		return translateIn(n, b)
	case queryir.IsNull:
		op, err := b.BindDisplay(n.Expr)
		if err != nil {
			return nil, err
		}
		var f Filter = Null{Operand: op}
		if n.Negate {
			f = Not{Filter: f}
		}
		return f, nil
	case queryir.And:
		children, err := translateAll(n.Predicates, b)
		if err != nil {
			return nil, err
		}
		return And{Filters: children}, nil
	case queryir.Or:
		children, err := translateAll(n.Predicates, b)
		if err != nil {
			return nil, err
		}
		return Or{Filters: children}, nil
	case queryir.Not:
		child, err := Translate(n.Predicate, b)
		if err != nil {
			return nil, err
		}
		return Not{Filter: child}, nil
	}
	return nil, fmt.Errorf("unsupported predicate type: %T", p)
}

func translateAll(preds []queryir.Predicate, b Binder) ([]Filter, error) {
	out := make([]Filter, 0, len(preds))
	for _, p := range preds {
		f, err := Translate(p, b)
		if err != nil {
			return nil, err
		}
		if f != nil {
			out = append(out, f)
		}
	}
	return out, nil
}

// literalOf returns the literal value of e, if e is a non-null literal.
func literalOf(e queryir.Expr) (ir.Value, bool) {
	lit, ok := queryir.Deref(e).(queryir.Literal)
	if !ok || ir.IsNull(lit.Value) {
		return nil, false
	}
	return lit.Value, true
}

// literalType is the operator type a literal asks for. Booleans compare as LONG.
func literalType(v ir.Value) ir.ExtractionType {
	return ir.TypeOf(v)
}

func translateCompare(c queryir.Compare, b Binder) (Filter, error) {
	left, op, right := c.Left, c.Op, c.Right
	if _, ok := literalOf(left); ok {
		if _, rightLit := literalOf(right); !rightLit {
			left, op, right = right, op.Flip(), left
		}
	}

	_, leftLit := literalOf(left)
	lit, ok := literalOf(right)
	if !ok || leftLit || classifyCompare(left, right) == RequiresExpressionFallback {
		return expressionFallback(left, op, right, b)
	}

	if co, isCoalesce := queryir.Deref(left).(queryir.Coalesce); isCoalesce {
		return translateCoalesce(co, op, lit, b)
	}

	operand, err := b.Bind(left, literalType(lit))
	if err != nil {
		return nil, err
	}
	value := extract.Cast(lit, operand.MatchType)
	if ir.IsNull(value) {
		// The literal has no form in the operand's type.
		return expressionFallback(left, op, right, b)
	}
	return comparison(operand, op, value), nil
}

// comparison builds the pushdown filter for operand <op> value.
func comparison(operand Operand, op queryir.CompareOp, value ir.Value) Filter {
	switch op {
	case queryir.OpEq:
		return Equality{Operand: operand, Value: value}
	case queryir.OpNe:
		return Not{Filter: Equality{Operand: operand, Value: value}}
	case queryir.OpLt:
		return Range{Operand: operand, Upper: value, UpperOpen: true}
	case queryir.OpLe:
		return Range{Operand: operand, Upper: value}
	case queryir.OpGt:
		return Range{Operand: operand, Lower: value, LowerOpen: true}
	case queryir.OpGe:
		return Range{Operand: operand, Lower: value}
	}
	return Equality{Operand: operand, Value: value}
}

// translateCoalesce handles COALESCE(path, default) <op> literal when the
// default is a literal: the filter applies to the path operator, OR'ed with
// a null check when the default itself satisfies the comparison.
func translateCoalesce(co queryir.Coalesce, op queryir.CompareOp, lit ir.Value, b Binder) (Filter, error) {
	def, _ := literalOf(co.Args[1])

	// The default's type decides the operator, as it does in SELECT.
	operand, err := b.Bind(co.Args[0], literalType(def))
	if err != nil {
		return nil, err
	}
	value := extract.Cast(lit, operand.MatchType)
	if ir.IsNull(value) {
		return expressionFallback(co, op, queryir.Literal{Value: lit}, b)
	}

	f := comparison(operand, op, value)
	if Satisfies(extract.Cast(def, operand.MatchType), op, value) {
		return Or{Filters: []Filter{f, Null{Operand: operand}}}, nil
	}
	return f, nil
}

func translateBetween(n queryir.Between, b Binder) (Filter, error) {
	lo, loOK := literalOf(n.Low)
	hi, hiOK := literalOf(n.High)
	if !loOK || !hiOK || classifyOperand(n.Expr) == RequiresExpressionFallback {
		return betweenFallback(n, b)
	}

	operand, err := b.Bind(n.Expr, ir.Join(literalType(lo), literalType(hi)))
	if err != nil {
		return nil, err
	}
	lower := extract.Cast(lo, operand.MatchType)
	upper := extract.Cast(hi, operand.MatchType)
	if ir.IsNull(lower) || ir.IsNull(upper) {
		// A nil bound would read as unbounded.
		return betweenFallback(n, b)
	}
	return Range{Operand: operand, Lower: lower, Upper: upper}, nil
}

func betweenFallback(n queryir.Between, b Binder) (Filter, error) {
	ge, err := expressionFallback(n.Expr, queryir.OpGe, n.Low, b)
	if err != nil {
		return nil, err
	}
	le, err := expressionFallback(n.Expr, queryir.OpLe, n.High, b)
	if err != nil {
		return nil, err
	}
	return And{Filters: []Filter{ge, le}}, nil
}

// translateIn groups literals by type in first-appearance order. One group
// yields a single In; several yield an Or of per-type groups, each group
// bound to its own typed operator.
func translateIn(n queryir.In, b Binder) (Filter, error) {
	type group struct {
		typ    ir.ExtractionType
		values []ir.Value
	}
	var groups []*group
	byType := make(map[ir.ExtractionType]*group)
	for _, v := range n.Values {
		lit, ok := literalOf(v)
		if !ok {
			continue
		}
		t := literalType(lit)
		g, seen := byType[t]
		if !seen {
			g = &group{typ: t}
			byType[t] = g
			groups = append(groups, g)
		}
		g.values = append(g.values, lit)
	}

	if len(groups) == 0 {
		// Only NULL literals: IN never matches.
		return Or{}, nil
	}

	filters := make([]Filter, 0, len(groups))
	for _, g := range groups {
		operand, err := b.Bind(n.Expr, g.typ)
		if err != nil {
			return nil, err
		}
		values := make([]ir.Value, 0, len(g.values))
		for _, v := range g.values {
			if cast := extract.Cast(v, operand.MatchType); !ir.IsNull(cast) {
				values = append(values, cast)
			}
		}
		switch {
		case len(values) == 0:
			continue
		case len(values) == 1 && len(groups) > 1:
			filters = append(filters, Equality{Operand: operand, Value: values[0]})
		default:
			filters = append(filters, In{Operand: operand, Values: values})
		}
	}

	if len(filters) == 1 {
		return filters[0], nil
	}
	return Or{Filters: filters}, nil
}

func expressionFallback(left queryir.Expr, op queryir.CompareOp, right queryir.Expr, b Binder) (Filter, error) {
	l, err := b.Native(left)
	if err != nil {
		return nil, err
	}
	r, err := b.Native(right)
	if err != nil {
		return nil, err
	}
	return Expression{Left: l, Op: op, Right: r}, nil
}
