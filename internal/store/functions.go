package store

import (
	"fmt"
	"sync"

	"github.com/mattn/go-sqlite3"

	"github.com/roach88/nestq/internal/extract"
	"github.com/roach88/nestq/internal/filter"
	"github.com/roach88/nestq/internal/ir"
	"github.com/roach88/nestq/internal/jsonpath"
	"github.com/roach88/nestq/internal/queryir"
)

// SQL user functions backing the native operators.
//
//	nested_value(input, isJSON, path, type, arrayOfObjects)
//	nested_keys(input, isJSON, path)
//	nested_paths(input, isJSON)
//	nested_object(key, value, isJSON, ...)
//	nested_cast(input, isJSON, type)
//	nested_coalesce(type, value, isJSON, ...)
//	nested_mv(input, isJSON)
//	nested_unnest(input, isJSON)
//	nested_like(input, pattern)
//	nested_satisfies(left, leftJSON, op, right, rightJSON)
//
// isJSON tells whether a text argument holds JSON. Results of array and
// COMPLEX<json> type are JSON text.
var functions = []struct {
	name string
	impl any
}{
	{"nested_value", nestedValue},
	{"nested_keys", nestedKeys},
	{"nested_paths", nestedPaths},
	{"nested_object", nestedObject},
	{"nested_cast", nestedCast},
	{"nested_coalesce", nestedCoalesce},
	{"nested_mv", nestedMV},
	{"nested_unnest", nestedUnnest},
	{"nested_like", nestedLike},
	{"nested_satisfies", nestedSatisfies},
}

func registerFunctions(conn *sqlite3.SQLiteConn) error {
	for _, f := range functions {
		if err := conn.RegisterFunc(f.name, f.impl, true); err != nil {
			return fmt.Errorf("register %s: %w", f.name, err)
		}
	}
	return nil
}

// Paths and types arrive as text on every row; parse each once.
var (
	pathCache sync.Map // string -> jsonpath.Path
	typeCache sync.Map // string -> ir.ExtractionType
)

func cachedPath(raw string) (jsonpath.Path, error) {
	if p, ok := pathCache.Load(raw); ok {
		return p.(jsonpath.Path), nil
	}
	p, err := jsonpath.Parse(raw)
	if err != nil {
		return jsonpath.Path{}, err
	}
	pathCache.Store(raw, p)
	return p, nil
}

func cachedType(raw string) (ir.ExtractionType, error) {
	if t, ok := typeCache.Load(raw); ok {
		return t.(ir.ExtractionType), nil
	}
	t, err := ir.ParseExtractionType(raw)
	if err != nil {
		return ir.Unknown, err
	}
	typeCache.Store(raw, t)
	return t, nil
}

func nestedValue(input any, isJSON bool, path, typ string, arrayOfObjects bool) (any, error) {
	p, err := cachedPath(path)
	if err != nil {
		return nil, err
	}
	t, err := cachedType(typ)
	if err != nil {
		return nil, err
	}

	var v ir.Value
	if raw, ok := input.(string); ok && isJSON {
		v = extract.ExtractRaw([]byte(raw), p, t, arrayOfObjects)
	} else {
		doc := FromSQL(input, isJSON)
		if arrayOfObjects {
			v = extract.ExtractArrayOfObjects(doc, p)
		} else {
			v = extract.Extract(doc, p, t)
		}
	}
	return ToSQL(v, arrayOfObjects || IsJSONType(t)), nil
}

// document decodes a whole input value. JSON text that does not parse is
// absent, as it is for nested_value.
func document(input any, isJSON bool) ir.Value {
	if raw, ok := input.(string); ok && isJSON {
		return extract.DecodeRaw([]byte(raw))
	}
	return FromSQL(input, isJSON)
}

func nestedKeys(input any, isJSON bool, path string) (any, error) {
	p, err := cachedPath(path)
	if err != nil {
		return nil, err
	}
	return ToSQL(extract.Keys(document(input, isJSON), p), true), nil
}

func nestedPaths(input any, isJSON bool) any {
	return ToSQL(extract.Paths(document(input, isJSON)), true)
}

func nestedObject(args ...any) (any, error) {
	if len(args)%3 != 0 {
		return nil, fmt.Errorf("nested_object: want key, value, isJSON triples, got %d arguments", len(args))
	}
	obj := make(ir.Object, len(args)/3)
	for i := 0; i < len(args); i += 3 {
		key, ok := args[i].(string)
		if !ok {
			return nil, fmt.Errorf("nested_object: key %d is %T, not text", i/3, args[i])
		}
		obj[key] = FromSQL(args[i+1], truthy(args[i+2]))
	}
	return ToSQL(obj, true), nil
}

func nestedCast(input any, isJSON bool, typ string) (any, error) {
	t, err := cachedType(typ)
	if err != nil {
		return nil, err
	}
	return ToSQL(extract.Cast(FromSQL(input, isJSON), t), IsJSONType(t)), nil
}

func nestedCoalesce(typ string, args ...any) (any, error) {
	t, err := cachedType(typ)
	if err != nil {
		return nil, err
	}
	if len(args)%2 != 0 {
		return nil, fmt.Errorf("nested_coalesce: want value, isJSON pairs, got %d arguments", len(args))
	}
	for i := 0; i < len(args); i += 2 {
		v := FromSQL(args[i], truthy(args[i+1]))
		if !ir.IsNull(v) {
			return ToSQL(extract.Cast(v, t), IsJSONType(t)), nil
		}
	}
	return nil, nil
}

func nestedMV(input any, isJSON bool) any {
	return ToSQL(ir.Array(extract.ToMultiValue(FromSQL(input, isJSON))), true)
}

// nestedUnnest returns the elements an UNNEST emits as a JSON array, or
// null when there are none.
func nestedUnnest(input any, isJSON bool) any {
	rows := extract.Unnest(document(input, isJSON))
	if len(rows) == 0 {
		return nil
	}
	return ToSQL(ir.Array(rows), true)
}

func nestedLike(input any, pattern string) any {
	v := FromSQL(input, false)
	if ir.IsNull(v) {
		return nil
	}
	s, ok := extract.Cast(v, ir.StringType).(ir.String)
	if !ok {
		return nil
	}
	return filter.MatchLike(string(s), pattern)
}

func nestedSatisfies(left any, leftJSON bool, op string, right any, rightJSON bool) bool {
	l, r := alignTypes(FromSQL(left, leftJSON), FromSQL(right, rightJSON))
	return filter.Satisfies(l, queryir.CompareOp(op), r)
}

// alignTypes makes a string comparable with a number by casting the string
// to DOUBLE, or the number to STRING when the string is not numeric.
func alignTypes(l, r ir.Value) (ir.Value, ir.Value) {
	ls, lString := l.(ir.String)
	rs, rString := r.(ir.String)
	switch {
	case lString && isNumber(r):
		if d := extract.Cast(ls, ir.DoubleType); !ir.IsNull(d) {
			return d, r
		}
		return l, extract.Cast(r, ir.StringType)
	case rString && isNumber(l):
		if d := extract.Cast(rs, ir.DoubleType); !ir.IsNull(d) {
			return l, d
		}
		return extract.Cast(l, ir.StringType), r
	}
	return l, r
}

func isNumber(v ir.Value) bool {
	switch v.(type) {
	case ir.Long, ir.Double:
		return true
	}
	return false
}

func truthy(v any) bool {
	switch val := v.(type) {
	case int64:
		return val != 0
	case bool:
		return val
	}
	return false
}
