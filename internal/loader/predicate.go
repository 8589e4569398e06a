package loader

import (
	"github.com/roach88/nestq/internal/queryir"
)

var compareOps = map[string]queryir.CompareOp{
	"eq": queryir.OpEq,
	"ne": queryir.OpNe,
	"lt": queryir.OpLt,
	"le": queryir.OpLe,
	"gt": queryir.OpGt,
	"ge": queryir.OpGe,
}

// predicate converts one WHERE node.
func predicate(field string, v any) (queryir.Predicate, error) {
	m, err := object(field, v)
	if err != nil {
		return nil, err
	}
	key, arg, err := single(field, m, ErrCodeInvalidPred, "predicate")
	if err != nil {
		return nil, err
	}
	f := join(field, key)

	if op, ok := compareOps[key]; ok {
		args, err := exprList(f, arg)
		if err != nil {
			return nil, err
		}
		if len(args) != 2 {
			return nil, fieldError(ErrCodeInvalidPred, f, "%s takes two operands, got %d", key, len(args))
		}
		return queryir.Compare{Left: args[0], Op: op, Right: args[1]}, nil
	}

	switch key {
	case "between":
		m, err := object(f, arg, "input", "low", "high")
		if err != nil {
			return nil, err
		}
		b := queryir.Between{}
		if b.Expr, err = requiredExpr(m, f, "input"); err != nil {
			return nil, err
		}
		if b.Low, err = requiredExpr(m, f, "low"); err != nil {
			return nil, err
		}
		if b.High, err = requiredExpr(m, f, "high"); err != nil {
			return nil, err
		}
		return b, nil
	case "like":
		m, err := object(f, arg, "input", "pattern")
		if err != nil {
			return nil, err
		}
		l := queryir.Like{}
		if l.Expr, err = requiredExpr(m, f, "input"); err != nil {
			return nil, err
		}
		if l.Pattern, err = requiredString(m, f, "pattern"); err != nil {
			return nil, err
		}
		return l, nil
	case "in":
		m, err := object(f, arg, "input", "values")
		if err != nil {
			return nil, err
		}
		in := queryir.In{}
		if in.Expr, err = requiredExpr(m, f, "input"); err != nil {
			return nil, err
		}
		values, ok := m["values"]
		if !ok {
			return nil, fieldError(ErrCodeMissingField, join(f, "values"), "values is required")
		}
		if in.Values, err = exprList(join(f, "values"), values); err != nil {
			return nil, err
		}
		return in, nil
	case "is_null", "is_not_null":
		e, err := expr(f, arg)
		if err != nil {
			return nil, err
		}
		return queryir.IsNull{Expr: e, Negate: key == "is_not_null"}, nil
	case "and", "or":
		list, err := array(f, arg)
		if err != nil {
			return nil, err
		}
		preds := make([]queryir.Predicate, len(list))
		for i, elem := range list {
			if preds[i], err = predicate(index(f, i), elem); err != nil {
				return nil, err
			}
		}
		if key == "and" {
			return queryir.And{Predicates: preds}, nil
		}
		return queryir.Or{Predicates: preds}, nil
	case "not":
		p, err := predicate(f, arg)
		if err != nil {
			return nil, err
		}
		return queryir.Not{Predicate: p}, nil
	}
	return nil, fieldError(ErrCodeInvalidPred, f, "unknown predicate %q", key)
}
