package queryir

import (
	"fmt"
	"strings"

	"github.com/roach88/nestq/internal/ir"
)

// Format renders an expression as SQL text. Used for output column names
// and error messages; it is not meant to be parsed back.
func Format(e Expr) string {
	switch n := Deref(e).(type) {
	case nil:
		return "NULL"
	case Column:
		if n.Table != "" {
			return n.Table + "." + quoteIdent(n.Name)
		}
		return quoteIdent(n.Name)
	case Literal:
		return formatLiteral(n.Value)
	case JSONValue:
		var sb strings.Builder
		fmt.Fprintf(&sb, "JSON_VALUE(%s, %s", Format(n.Input), quoteString(n.Path))
		if n.Returning != ir.Unknown {
			fmt.Fprintf(&sb, " RETURNING %s", n.Returning)
		}
		if n.OnEmpty != BehaviorNull {
			fmt.Fprintf(&sb, " %s ON EMPTY", n.OnEmpty)
		}
		if n.OnError != BehaviorNull {
			fmt.Fprintf(&sb, " %s ON ERROR", n.OnError)
		}
		sb.WriteByte(')')
		return sb.String()
	case JSONQuery:
		return fmt.Sprintf("JSON_QUERY(%s, %s)", Format(n.Input), quoteString(n.Path))
	case JSONQueryArray:
		return fmt.Sprintf("JSON_QUERY_ARRAY(%s, %s)", Format(n.Input), quoteString(n.Path))
	case JSONKeys:
		return fmt.Sprintf("JSON_KEYS(%s, %s)", Format(n.Input), quoteString(n.Path))
	case JSONPaths:
		return fmt.Sprintf("JSON_PATHS(%s)", Format(n.Input))
	case JSONObject:
		parts := make([]string, len(n.Fields))
		for i, f := range n.Fields {
			parts[i] = fmt.Sprintf("KEY %s VALUE %s", quoteString(f.Key), Format(f.Value))
		}
		return "JSON_OBJECT(" + strings.Join(parts, ", ") + ")"
	case Cast:
		return fmt.Sprintf("CAST(%s AS %s)", Format(n.Input), n.Type)
	case Coalesce:
		parts := make([]string, len(n.Args))
		for i, a := range n.Args {
			parts[i] = Format(a)
		}
		return "COALESCE(" + strings.Join(parts, ", ") + ")"
	case ArrayToMV:
		return fmt.Sprintf("ARRAY_TO_MV(%s)", Format(n.Input))
	case UnnestRef:
		return "UNNEST"
	case Aggregate:
		arg := "*"
		if n.Arg != nil {
			arg = Format(n.Arg)
		}
		if n.Distinct {
			arg = "DISTINCT " + arg
		}
		return fmt.Sprintf("%s(%s)", n.Func, arg)
	}
	return fmt.Sprintf("<%T>", e)
}

// FormatPredicate renders a predicate as SQL text.
func FormatPredicate(p Predicate) string {
	switch n := DerefPredicate(p).(type) {
	case nil:
		return "TRUE"
	case Compare:
		return fmt.Sprintf("%s %s %s", Format(n.Left), n.Op, Format(n.Right))
	case Between:
		return fmt.Sprintf("%s BETWEEN %s AND %s", Format(n.Expr), Format(n.Low), Format(n.High))
	case Like:
		return fmt.Sprintf("%s LIKE %s", Format(n.Expr), quoteString(n.Pattern))
	case In:
		parts := make([]string, len(n.Values))
		for i, v := range n.Values {
			parts[i] = Format(v)
		}
		return fmt.Sprintf("%s IN (%s)", Format(n.Expr), strings.Join(parts, ", "))
	case IsNull:
		if n.Negate {
			return Format(n.Expr) + " IS NOT NULL"
		}
		return Format(n.Expr) + " IS NULL"
	case And:
		return joinPredicates(n.Predicates, " AND ")
	case Or:
		return joinPredicates(n.Predicates, " OR ")
	case Not:
		return "NOT (" + FormatPredicate(n.Predicate) + ")"
	}
	return fmt.Sprintf("<%T>", p)
}

func joinPredicates(preds []Predicate, sep string) string {
	parts := make([]string, len(preds))
	for i, p := range preds {
		parts[i] = "(" + FormatPredicate(p) + ")"
	}
	return strings.Join(parts, sep)
}

func formatLiteral(v ir.Value) string {
	switch val := v.(type) {
	case ir.String:
		return quoteString(string(val))
	case nil, ir.Null:
		return "NULL"
	}
	return ir.JSONText(v)
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func quoteIdent(s string) string {
	for _, c := range s {
		if !(c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
		}
	}
	return s
}
