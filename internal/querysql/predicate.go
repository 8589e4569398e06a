package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/nestq/internal/filter"
	"github.com/roach88/nestq/internal/store"
)

// filterSQL compiles a native filter to a WHERE condition.
//
// Leaves over multi-value operands match when any element matches; SQL
// null semantics make every comparison against null false.
func (c *compilation) filterSQL(f filter.Filter) (string, error) {
	switch n := f.(type) {
	case filter.Equality:
		return c.leaf(n.Operand, func(col string, asJSON bool) string {
			return col + " = " + c.param(store.ToSQL(n.Value, asJSON))
		})
	case filter.Range:
		return c.leaf(n.Operand, func(col string, asJSON bool) string {
			var parts []string
			if n.Lower != nil {
				op := " >= "
				if n.LowerOpen {
					op = " > "
				}
				parts = append(parts, col+op+c.param(store.ToSQL(n.Lower, asJSON)))
			}
			if n.Upper != nil {
				op := " <= "
				if n.UpperOpen {
					op = " < "
				}
				parts = append(parts, col+op+c.param(store.ToSQL(n.Upper, asJSON)))
			}
			if len(parts) == 0 {
				return col + " IS NOT NULL"
			}
			return strings.Join(parts, " AND ")
		})
	case filter.Like:
		return c.leaf(n.Operand, func(col string, _ bool) string {
			return fmt.Sprintf("nested_like(%s, %s)", col, c.param(n.Pattern))
		})
	case filter.In:
		return c.leaf(n.Operand, func(col string, asJSON bool) string {
			marks := make([]string, len(n.Values))
			for i, v := range n.Values {
				marks[i] = c.param(store.ToSQL(v, asJSON))
			}
			return col + " IN (" + strings.Join(marks, ", ") + ")"
		})
	case filter.Null:
		return c.leaf(n.Operand, func(col string, _ bool) string {
			return col + " IS NULL"
		})
	case filter.Not:
		inner, err := c.filterSQL(n.Filter)
		if err != nil {
			return "", err
		}
		return "NOT (" + inner + ")", nil
	case filter.And:
		return c.junction("AND", "1", n.Filters)
	case filter.Or:
		return c.junction("OR", "0", n.Filters)
	case filter.Expression:
		l, lJSON, err := c.nativeSQL(n.Left)
		if err != nil {
			return "", err
		}
		op := c.param(string(n.Op))
		r, rJSON, err := c.nativeSQL(n.Right)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("nested_satisfies(%s, %s, %s, %s, %s)", l, flag(lJSON), op, r, flag(rJSON)), nil
	}
	return "", fmt.Errorf("unsupported filter type: %T", f)
}

// leaf renders cond over an operand. cond receives the column expression
// and whether its values are JSON text.
func (c *compilation) leaf(op filter.Operand, cond func(col string, asJSON bool) string) (string, error) {
	src, err := c.source(op.Column)
	if err != nil {
		return "", err
	}
	col := c.ref(op.Column)
	if src.mv || op.MultiValue {
		return fmt.Sprintf("EXISTS (SELECT 1 FROM json_each(%s) AS m WHERE %s)", col, cond("m.value", store.IsJSONType(src.typ))), nil
	}
	return cond(col, src.json), nil
}

func (c *compilation) junction(op, empty string, filters []filter.Filter) (string, error) {
	if len(filters) == 0 {
		return empty, nil
	}
	parts := make([]string, len(filters))
	for i, f := range filters {
		s, err := c.filterSQL(f)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return "(" + strings.Join(parts, " "+op+" ") + ")", nil
}
