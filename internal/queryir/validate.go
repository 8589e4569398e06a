package queryir

import (
	"fmt"

	"github.com/roach88/nestq/internal/ir"
)

// ValidationResult lists structural problems found in a query.
//
// Validation is purely structural: it never looks at table schemas or
// parses paths. Schema and path problems are reported by the planner.
type ValidationResult struct {
	// IsValid is true when Problems is empty.
	IsValid bool

	// Problems lists every structural defect, in traversal order.
	Problems []string
}

// Err returns the first problem as an error, or nil.
func (r ValidationResult) Err() error {
	if r.IsValid {
		return nil
	}
	return fmt.Errorf("%s", r.Problems[0])
}

// Validate checks a query for structural defects.
//
// Rules:
//  1. DataSource is required
//  2. At least one select item, none nil
//  3. GROUP BY and ORDER BY ordinals are within the select list
//  4. GROUP BY ordinals never name an aggregate; non-grouped, non-aggregate
//     select items are rejected in aggregate queries
//  5. Aggregates only appear at the top of select items
//  6. Comparison operators are known; IN lists are non-empty literals
//  7. UnnestRef is only used when the query has an UNNEST clause
//  8. HAVING only appears in aggregate queries; aggregates may appear as its
//     comparison operands but never in WHERE
//
// Validate is a pure function with no side effects.
func Validate(q Query) ValidationResult {
	v := &validator{
		problems:  []string{},
		hasUnnest: q.Unnest != nil,
	}
	v.validateQuery(q)

	return ValidationResult{
		IsValid:  len(v.problems) == 0,
		Problems: v.problems,
	}
}

// validator accumulates problems during traversal.
type validator struct {
	problems  []string
	hasUnnest bool
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	if q.DataSource == "" {
		v.addProblem("query has no data source")
	}
	if len(q.Select) == 0 {
		v.addProblem("query selects no columns")
	}

	if q.Join != nil {
		if q.Join.Table == "" || q.Join.RightColumn == "" {
			v.addProblem("join requires a table and a right column")
		}
		if q.Join.LeftKey == nil {
			v.addProblem("join requires a left key")
		} else {
			v.validateExpr(q.Join.LeftKey, false)
		}
	}

	if q.Unnest != nil {
		if q.Unnest.Input == nil {
			v.addProblem("UNNEST requires an input expression")
		} else {
			v.validateExpr(q.Unnest.Input, false)
		}
	}

	for i, item := range q.Select {
		if item.Expr == nil {
			v.addProblem("select item %d is empty", i+1)
			continue
		}
		v.validateExpr(item.Expr, true)
	}

	if q.Where != nil {
		v.validatePredicate(q.Where, false)
	}
	if q.Having != nil {
		if !q.IsAggregate() {
			v.addProblem("HAVING requires GROUP BY or an aggregate")
		}
		v.validatePredicate(q.Having, true)
	}

	grouped := make(map[int]bool, len(q.GroupBy))
	for _, ord := range q.GroupBy {
		if !v.checkOrdinal("GROUP BY", ord, len(q.Select)) {
			continue
		}
		if IsAggregateExpr(q.Select[ord-1].Expr) {
			v.addProblem("GROUP BY ordinal %d refers to an aggregate", ord)
		}
		grouped[ord] = true
	}

	if q.IsAggregate() {
		for i, item := range q.Select {
			if item.Expr == nil || IsAggregateExpr(item.Expr) || grouped[i+1] {
				continue
			}
			v.addProblem("select item %d (%s) must be grouped or aggregated", i+1, Format(item.Expr))
		}
	}

	for _, o := range q.OrderBy {
		v.checkOrdinal("ORDER BY", o.Ordinal, len(q.Select))
	}

	if q.Limit < 0 {
		v.addProblem("LIMIT must not be negative")
	}
}

func (v *validator) checkOrdinal(clause string, ord, n int) bool {
	if ord < 1 || ord > n {
		v.addProblem("%s ordinal %d is out of range [1, %d]", clause, ord, n)
		return false
	}
	return true
}

// validateExpr walks an expression; top marks a select item root, the only
// place aggregates may appear.
func (v *validator) validateExpr(e Expr, top bool) {
	switch n := Deref(e).(type) {
	case nil:
		v.addProblem("missing expression")
	case Column:
		if n.Name == "" {
			v.addProblem("column reference without a name")
		}
	case Literal:
		if n.Value == nil {
			v.addProblem("literal without a value")
		}
	case JSONValue:
		v.validateExpr(n.Input, false)
	case JSONQuery:
		v.validateExpr(n.Input, false)
	case JSONQueryArray:
		v.validateExpr(n.Input, false)
	case JSONKeys:
		v.validateExpr(n.Input, false)
	case JSONPaths:
		v.validateExpr(n.Input, false)
	case JSONObject:
		seen := make(map[string]bool, len(n.Fields))
		for _, f := range n.Fields {
			if seen[f.Key] {
				v.addProblem("JSON_OBJECT key %q is repeated", f.Key)
			}
			seen[f.Key] = true
			v.validateExpr(f.Value, false)
		}
	case Cast:
		if n.Type == ir.Unknown {
			v.addProblem("CAST requires a target type")
		}
		v.validateExpr(n.Input, false)
	case Coalesce:
		if len(n.Args) == 0 {
			v.addProblem("COALESCE requires at least one argument")
		}
		for _, a := range n.Args {
			v.validateExpr(a, false)
		}
	case ArrayToMV:
		v.validateExpr(n.Input, false)
	case UnnestRef:
		if !v.hasUnnest {
			v.addProblem("UNNEST reference without an UNNEST clause")
		}
	case Aggregate:
		if !top {
			v.addProblem("aggregate %s is nested inside another expression", n.Func)
		}
		switch n.Func {
		case AggCount:
		case AggSum, AggMin, AggMax, AggApproxCountDistinct:
			if n.Arg == nil {
				v.addProblem("%s requires an argument", n.Func)
			}
		default:
			v.addProblem("unknown aggregate %q", n.Func)
		}
		if n.Arg != nil {
			v.validateExpr(n.Arg, false)
		}
	default:
		v.addProblem("unknown expression type: %T", e)
	}
}

// validatePredicate walks a predicate; aggregates marks HAVING, where
// comparison operands may be aggregates.
func (v *validator) validatePredicate(p Predicate, aggregates bool) {
	switch n := DerefPredicate(p).(type) {
	case nil:
		v.addProblem("missing predicate")
	case Compare:
		if !n.Op.Valid() {
			v.addProblem("unknown comparison operator %q", n.Op)
		}
		v.validateExpr(n.Left, aggregates)
		v.validateExpr(n.Right, aggregates)
	case Between:
		v.validateExpr(n.Expr, aggregates)
		v.validateExpr(n.Low, false)
		v.validateExpr(n.High, false)
	case Like:
		v.validateExpr(n.Expr, aggregates)
	case In:
		if len(n.Values) == 0 {
			v.addProblem("IN list is empty")
		}
		v.validateExpr(n.Expr, aggregates)
		for _, val := range n.Values {
			if _, ok := Deref(val).(Literal); !ok {
				v.addProblem("IN list values must be literals, got %s", Format(val))
			}
		}
	case IsNull:
		v.validateExpr(n.Expr, aggregates)
	case And:
		for _, sub := range n.Predicates {
			v.validatePredicate(sub, aggregates)
		}
	case Or:
		for _, sub := range n.Predicates {
			v.validatePredicate(sub, aggregates)
		}
	case Not:
		v.validatePredicate(n.Predicate, aggregates)
	default:
		v.addProblem("unknown predicate type: %T", p)
	}
}
