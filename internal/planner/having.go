package planner

import (
	"fmt"

	"github.com/roach88/nestq/internal/filter"
	"github.com/roach88/nestq/internal/ir"
	"github.com/roach88/nestq/internal/native"
	"github.com/roach88/nestq/internal/queryir"
)

// havingBinder binds HAVING operands to the grouped output: aggregates to
// aggregators, everything else to the dimension grouping the same operator.
// Path functions go through the query's registry, so a HAVING path shared
// with SELECT reads the same operator.
type havingBinder struct {
	c    *compilation
	plan *Plan
	n    int
}

// Bind implements filter.Binder. Dimensions keep their type; the translator
// casts the literal to it.
func (h *havingBinder) Bind(e queryir.Expr, _ ir.ExtractionType) (filter.Operand, error) {
	clauseID := fmt.Sprintf("%s[%d]", clauseHaving, h.n)
	h.n++

	if agg, ok := queryir.Deref(e).(queryir.Aggregate); ok {
		a, err := h.aggregator(agg, clauseID)
		if err != nil {
			return filter.Operand{}, err
		}
		return filter.Operand{Column: a.Name, MatchType: a.OutputType}, nil
	}

	op, err := h.c.operand(e, ir.Unknown)
	if err != nil {
		return filter.Operand{}, err
	}
	for _, d := range h.plan.Dimensions {
		if d.Input == op.Column && d.MultiValue == op.MultiValue {
			h.c.bind(clauseID, op.Column)
			return filter.Operand{Column: d.Name, MatchType: d.OutputType}, nil
		}
	}
	return filter.Operand{}, newInvalidQueryError("HAVING expression %s is neither grouped nor aggregated", queryir.Format(e))
}

// BindDisplay implements filter.Binder.
func (h *havingBinder) BindDisplay(e queryir.Expr) (filter.Operand, error) {
	return h.Bind(e, ir.Unknown)
}

// Native implements filter.Binder. Expression fallbacks in HAVING compare
// grouped columns and literals only.
func (h *havingBinder) Native(e queryir.Expr) (native.Expr, error) {
	if lit, ok := queryir.Deref(e).(queryir.Literal); ok {
		return native.Literal{Value: lit.Value}, nil
	}
	op, err := h.Bind(e, ir.Unknown)
	if err != nil {
		return nil, err
	}
	return native.ColumnRef{Name: op.Column, Kind: op.MatchType}, nil
}

// aggregator returns the aggregator computing agg, adding an unprojected
// one when SELECT has no equal aggregate.
func (h *havingBinder) aggregator(agg queryir.Aggregate, clauseID string) (Aggregator, error) {
	name := fmt.Sprintf("a%d", len(h.plan.Aggregators))
	a, err := h.c.planAggregate(agg, name, clauseID)
	if err != nil {
		return Aggregator{}, err
	}
	for _, existing := range h.plan.Aggregators {
		if existing.Func == a.Func && existing.Input == a.Input &&
			existing.Distinct == a.Distinct && existing.OutputType == a.OutputType {
			return existing, nil
		}
	}
	h.plan.Aggregators = append(h.plan.Aggregators, a)
	return a, nil
}
