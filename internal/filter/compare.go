package filter

import (
	"cmp"

	"github.com/roach88/nestq/internal/ir"
	"github.com/roach88/nestq/internal/queryir"
)

// Compare orders two values of the same match type. Numbers compare
// numerically (LONG against DOUBLE widens), strings lexically. The boolean
// is false when either side is null or the kinds are incomparable.
func Compare(a, b ir.Value) (int, bool) {
	if ir.IsNull(a) || ir.IsNull(b) {
		return 0, false
	}
	switch av := a.(type) {
	case ir.Long:
		switch bv := b.(type) {
		case ir.Long:
			return cmp.Compare(av, bv), true
		case ir.Double:
			return cmp.Compare(float64(av), float64(bv)), true
		}
	case ir.Double:
		switch bv := b.(type) {
		case ir.Long:
			return cmp.Compare(float64(av), float64(bv)), true
		case ir.Double:
			return cmp.Compare(av, bv), true
		}
	case ir.String:
		if bv, ok := b.(ir.String); ok {
			return cmp.Compare(av, bv), true
		}
	}
	return 0, false
}

// Satisfies evaluates v <op> lit with SQL null semantics: null never satisfies.
func Satisfies(v ir.Value, op queryir.CompareOp, lit ir.Value) bool {
	c, ok := Compare(v, lit)
	if !ok {
		return false
	}
	switch op {
	case queryir.OpEq:
		return c == 0
	case queryir.OpNe:
		return c != 0
	case queryir.OpLt:
		return c < 0
	case queryir.OpLe:
		return c <= 0
	case queryir.OpGt:
		return c > 0
	case queryir.OpGe:
		return c >= 0
	}
	return false
}
