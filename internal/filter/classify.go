package filter

import (
	"github.com/roach88/nestq/internal/queryir"
)

// Capability says whether a predicate maps onto pushdown filters.
type Capability int

const (
	// Pushdownable predicates become Equality/Range/Like/In/Null filters.
	Pushdownable Capability = iota
	// RequiresExpressionFallback predicates are evaluated as expressions.
	RequiresExpressionFallback
)

func (c Capability) String() string {
	if c == RequiresExpressionFallback {
		return "expression-fallback"
	}
	return "pushdown"
}

// Classify reports whether every leaf of p can be pushed down.
func Classify(p queryir.Predicate) Capability {
	switch n := queryir.DerefPredicate(p).(type) {
	case nil:
		return Pushdownable
	case queryir.Compare:
		left, right := n.Left, n.Right
		if _, ok := literalOf(left); ok {
			left, right = right, left
		}
		return classifyCompare(left, right)
	case queryir.Between:
		_, loOK := literalOf(n.Low)
		_, hiOK := literalOf(n.High)
		if !loOK || !hiOK {
			return RequiresExpressionFallback
		}
		return classifyOperand(n.Expr)
	case queryir.Like:
		return classifyOperand(n.Expr)
	case queryir.In:
		return classifyOperand(n.Expr)
	case queryir.IsNull:
		return classifyOperand(n.Expr)
	case queryir.And:
		return classifyAll(n.Predicates)
	case queryir.Or:
		return classifyAll(n.Predicates)
	case queryir.Not:
		return Classify(n.Predicate)
	}
	return RequiresExpressionFallback
}

func classifyAll(preds []queryir.Predicate) Capability {
	for _, p := range preds {
		if Classify(p) == RequiresExpressionFallback {
			return RequiresExpressionFallback
		}
	}
	return Pushdownable
}

// classifyCompare classifies left <op> right after literal normalization.
func classifyCompare(left, right queryir.Expr) Capability {
	if _, ok := literalOf(right); !ok {
		return RequiresExpressionFallback
	}
	return classifyOperand(left)
}

// classifyOperand reports whether an operand can be read by a pushdown leaf.
// Everything can, except COALESCE shapes other than (expr, literal).
func classifyOperand(e queryir.Expr) Capability {
	co, ok := queryir.Deref(e).(queryir.Coalesce)
	if !ok {
		return Pushdownable
	}
	if len(co.Args) != 2 {
		return RequiresExpressionFallback
	}
	if _, isLit := literalOf(co.Args[1]); !isLit {
		return RequiresExpressionFallback
	}
	if _, innerLit := literalOf(co.Args[0]); innerLit {
		return RequiresExpressionFallback
	}
	return Pushdownable
}
