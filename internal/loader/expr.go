package loader

import (
	"strings"

	"github.com/roach88/nestq/internal/ir"
	"github.com/roach88/nestq/internal/queryir"
)

// Expression keys.
const (
	exprColumn              = "column"
	exprLit                 = "lit"
	exprJSONValue           = "json_value"
	exprJSONQuery           = "json_query"
	exprJSONQueryArray      = "json_query_array"
	exprJSONKeys            = "json_keys"
	exprJSONPaths           = "json_paths"
	exprJSONObject          = "json_object"
	exprCast                = "cast"
	exprCoalesce            = "coalesce"
	exprArrayToMV           = "array_to_mv"
	exprUnnest              = "unnest"
	exprCount               = "count"
	exprCountDistinct       = "count_distinct"
	exprSum                 = "sum"
	exprMin                 = "min"
	exprMax                 = "max"
	exprApproxCountDistinct = "approx_count_distinct"
)

var aggregates = map[string]queryir.AggFunc{
	exprCount:               queryir.AggCount,
	exprCountDistinct:       queryir.AggCount,
	exprSum:                 queryir.AggSum,
	exprMin:                 queryir.AggMin,
	exprMax:                 queryir.AggMax,
	exprApproxCountDistinct: queryir.AggApproxCountDistinct,
}

// expr converts one expression node.
func expr(field string, v any) (queryir.Expr, error) {
	if s, ok := v.(string); ok {
		if lit, quoted := quotedString(s); quoted {
			return queryir.Lit(ir.String(lit)), nil
		}
		if s == "" {
			return nil, fieldError(ErrCodeInvalidExpr, field, "empty column name")
		}
		return queryir.Col(s), nil
	}

	m, isMap := asMap(v)
	if !isMap {
		return literal(field, v)
	}

	// {column: k, table: t} is the one two-key form.
	if hasKey(m, exprColumn) {
		m, err := object(field, v, exprColumn, "table")
		if err != nil {
			return nil, err
		}
		name, err := requiredString(m, field, exprColumn)
		if err != nil {
			return nil, err
		}
		c := queryir.Column{Name: name}
		if t, ok := m["table"]; ok {
			if c.Table, err = str(join(field, "table"), t); err != nil {
				return nil, err
			}
		}
		return c, nil
	}

	key, arg, err := single(field, m, ErrCodeInvalidExpr, "expression")
	if err != nil {
		return nil, err
	}
	f := join(field, key)

	switch key {
	case exprLit:
		return literal(f, arg)
	case exprJSONValue:
		return jsonValue(f, arg)
	case exprJSONQuery, exprJSONQueryArray, exprJSONKeys:
		input, path, err := inputAndPath(f, arg)
		if err != nil {
			return nil, err
		}
		switch key {
		case exprJSONQuery:
			return queryir.JSONQuery{Input: input, Path: path}, nil
		case exprJSONQueryArray:
			return queryir.JSONQueryArray{Input: input, Path: path}, nil
		}
		return queryir.JSONKeys{Input: input, Path: path}, nil
	case exprJSONPaths:
		input, err := expr(f, arg)
		if err != nil {
			return nil, err
		}
		return queryir.JSONPaths{Input: input}, nil
	case exprJSONObject:
		return jsonObject(f, arg)
	case exprCast:
		m, err := object(f, arg, "input", "type")
		if err != nil {
			return nil, err
		}
		input, err := requiredExpr(m, f, "input")
		if err != nil {
			return nil, err
		}
		t, err := extractionType(m, f, "type")
		if err != nil {
			return nil, err
		}
		return queryir.Cast{Input: input, Type: t}, nil
	case exprCoalesce:
		args, err := exprList(f, arg)
		if err != nil {
			return nil, err
		}
		return queryir.Coalesce{Args: args}, nil
	case exprArrayToMV:
		input, err := expr(f, arg)
		if err != nil {
			return nil, err
		}
		return queryir.ArrayToMV{Input: input}, nil
	case exprUnnest:
		return queryir.UnnestRef{}, nil
	}

	if fn, ok := aggregates[key]; ok {
		agg := queryir.Aggregate{Func: fn, Distinct: key == exprCountDistinct}
		if key == exprCount && arg == "*" {
			return agg, nil
		}
		if agg.Arg, err = expr(f, arg); err != nil {
			return nil, err
		}
		return agg, nil
	}
	return nil, fieldError(ErrCodeInvalidExpr, join(field, key), "unknown expression %q", key)
}

func requiredExpr(m map[string]any, parent, key string) (queryir.Expr, error) {
	v, ok := m[key]
	if !ok {
		return nil, fieldError(ErrCodeMissingField, join(parent, key), "%s is required", key)
	}
	return expr(join(parent, key), v)
}

func exprList(field string, v any) ([]queryir.Expr, error) {
	list, err := array(field, v)
	if err != nil {
		return nil, err
	}
	out := make([]queryir.Expr, len(list))
	for i, elem := range list {
		if out[i], err = expr(index(field, i), elem); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func literal(field string, v any) (queryir.Expr, error) {
	val, err := ir.FromGo(v)
	if err != nil {
		return nil, fieldError(ErrCodeInvalidExpr, field, "invalid literal: %v", err)
	}
	return queryir.Lit(val), nil
}

// quotedString unwraps 'text', undoubling '' the way SQL does.
func quotedString(s string) (string, bool) {
	if len(s) < 2 || s[0] != '\'' || s[len(s)-1] != '\'' {
		return "", false
	}
	return strings.ReplaceAll(s[1:len(s)-1], "''", "'"), true
}

func inputAndPath(field string, v any) (queryir.Expr, string, error) {
	m, err := object(field, v, "input", "path")
	if err != nil {
		return nil, "", err
	}
	input, err := requiredExpr(m, field, "input")
	if err != nil {
		return nil, "", err
	}
	path, err := pathOf(m, field)
	if err != nil {
		return nil, "", err
	}
	return input, path, nil
}

// pathOf reads the path string. Its syntax is checked by the planner, which
// owns the InvalidPath error.
func pathOf(m map[string]any, field string) (string, error) {
	v, ok := m["path"]
	if !ok {
		return "", fieldError(ErrCodeMissingField, join(field, "path"), "path is required")
	}
	return str(join(field, "path"), v)
}

func jsonValue(field string, v any) (queryir.Expr, error) {
	m, err := object(field, v, "input", "path", "returning", "on_empty", "on_error")
	if err != nil {
		return nil, err
	}
	jv := queryir.JSONValue{}
	if jv.Input, err = requiredExpr(m, field, "input"); err != nil {
		return nil, err
	}
	if jv.Path, err = pathOf(m, field); err != nil {
		return nil, err
	}
	if _, ok := m["returning"]; ok {
		if jv.Returning, err = extractionType(m, field, "returning"); err != nil {
			return nil, err
		}
	}
	if jv.OnEmpty, err = behavior(m, field, "on_empty"); err != nil {
		return nil, err
	}
	if jv.OnError, err = behavior(m, field, "on_error"); err != nil {
		return nil, err
	}
	return jv, nil
}

func behavior(m map[string]any, parent, key string) (queryir.Behavior, error) {
	v, ok := m[key]
	if !ok {
		return queryir.BehaviorNull, nil
	}
	f := join(parent, key)
	s, err := str(f, v)
	if err != nil {
		return queryir.BehaviorNull, err
	}
	switch strings.ToUpper(s) {
	case "NULL":
		return queryir.BehaviorNull, nil
	case "ERROR":
		return queryir.BehaviorError, nil
	case "DEFAULT":
		return queryir.BehaviorDefault, nil
	}
	return queryir.BehaviorNull, fieldError(ErrCodeInvalidValue, f, "unknown behavior %q (want NULL, ERROR or DEFAULT)", s)
}

func extractionType(m map[string]any, parent, key string) (ir.ExtractionType, error) {
	f := join(parent, key)
	v, ok := m[key]
	if !ok {
		return ir.Unknown, fieldError(ErrCodeMissingField, f, "%s is required", key)
	}
	s, err := str(f, v)
	if err != nil {
		return ir.Unknown, err
	}
	t, err := ir.ParseExtractionType(s)
	if err != nil {
		return ir.Unknown, fieldError(ErrCodeInvalidType, f, "%v", err)
	}
	return t, nil
}

func jsonObject(field string, v any) (queryir.Expr, error) {
	list, err := array(field, v)
	if err != nil {
		return nil, err
	}
	obj := queryir.JSONObject{Fields: make([]queryir.ObjectField, len(list))}
	for i, elem := range list {
		f := index(field, i)
		m, err := object(f, elem, "key", "value")
		if err != nil {
			return nil, err
		}
		key, err := requiredString(m, f, "key")
		if err != nil {
			return nil, err
		}
		value, err := requiredExpr(m, f, "value")
		if err != nil {
			return nil, err
		}
		obj.Fields[i] = queryir.ObjectField{Key: key, Value: value}
	}
	return obj, nil
}

// single unwraps a one-key map.
func single(field string, m map[string]any, code, what string) (string, any, error) {
	if len(m) != 1 {
		return "", nil, fieldError(code, field, "%s must have exactly one key, got %d (%s)", what, len(m), strings.Join(sortedKeys(m), ", "))
	}
	for k, v := range m {
		return k, v, nil
	}
	return "", nil, nil
}
