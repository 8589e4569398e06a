package loader

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/roach88/nestq/internal/queryir"
)

// document fields
const (
	keyDataSource = "datasource"
	keySelect     = "select"
	keyWhere      = "where"
	keyGroupBy    = "group_by"
	keyHaving     = "having"
	keyOrderBy    = "order_by"
	keyLimit      = "limit"
	keyJoin       = "join"
	keyUnnest     = "unnest"
	keyContext    = "context"
)

// FromDocument converts a decoded document (maps, slices and scalars as
// produced by yaml.v3, encoding/json or CUE) into a query.
func FromDocument(raw any) (queryir.Query, error) {
	doc, err := object("", raw, keyDataSource, keySelect, keyWhere, keyGroupBy, keyHaving, keyOrderBy, keyLimit, keyJoin, keyUnnest, keyContext)
	if err != nil {
		return queryir.Query{}, err
	}

	var q queryir.Query
	if q.DataSource, err = requiredString(doc, "", keyDataSource); err != nil {
		return queryir.Query{}, err
	}

	if v, ok := doc[keyJoin]; ok {
		if q.Join, err = joinClause(keyJoin, v); err != nil {
			return queryir.Query{}, err
		}
	}
	if v, ok := doc[keyUnnest]; ok {
		if q.Unnest, err = unnestClause(keyUnnest, v); err != nil {
			return queryir.Query{}, err
		}
	}

	items, ok := doc[keySelect]
	if !ok {
		return queryir.Query{}, fieldError(ErrCodeMissingField, keySelect, "select is required")
	}
	if q.Select, err = selectItems(keySelect, items); err != nil {
		return queryir.Query{}, err
	}

	if v, ok := doc[keyWhere]; ok && v != nil {
		if q.Where, err = predicate(keyWhere, v); err != nil {
			return queryir.Query{}, err
		}
	}

	if v, ok := doc[keyGroupBy]; ok {
		list, err := array(keyGroupBy, v)
		if err != nil {
			return queryir.Query{}, err
		}
		for i, elem := range list {
			ord, err := integer(index(keyGroupBy, i), elem)
			if err != nil {
				return queryir.Query{}, err
			}
			q.GroupBy = append(q.GroupBy, ord)
		}
	}

	if v, ok := doc[keyHaving]; ok && v != nil {
		if q.Having, err = predicate(keyHaving, v); err != nil {
			return queryir.Query{}, err
		}
	}

	if v, ok := doc[keyOrderBy]; ok {
		if q.OrderBy, err = orderItems(keyOrderBy, v); err != nil {
			return queryir.Query{}, err
		}
	}

	if v, ok := doc[keyLimit]; ok {
		if q.Limit, err = integer(keyLimit, v); err != nil {
			return queryir.Query{}, err
		}
	}

	if v, ok := doc[keyContext]; ok {
		ctx, err := object(keyContext, v)
		if err != nil {
			return queryir.Query{}, err
		}
		q.Context = ctx
	}
	return q, nil
}

func selectItems(field string, v any) ([]queryir.SelectItem, error) {
	list, err := array(field, v)
	if err != nil {
		return nil, err
	}
	items := make([]queryir.SelectItem, 0, len(list))
	for i, elem := range list {
		f := index(field, i)
		m, isMap := asMap(elem)
		if !isMap || !hasKey(m, "expr") {
			e, err := expr(f, elem)
			if err != nil {
				return nil, err
			}
			items = append(items, queryir.SelectItem{Expr: e})
			continue
		}

		m, err := object(f, elem, "expr", "as")
		if err != nil {
			return nil, err
		}
		e, err := expr(f+".expr", m["expr"])
		if err != nil {
			return nil, err
		}
		item := queryir.SelectItem{Expr: e}
		if _, ok := m["as"]; ok {
			if item.Alias, err = str(f+".as", m["as"]); err != nil {
				return nil, err
			}
		}
		items = append(items, item)
	}
	return items, nil
}

// orderItems accepts ordinals (1) or maps ({ordinal: 1, desc: true}).
func orderItems(field string, v any) ([]queryir.OrderItem, error) {
	list, err := array(field, v)
	if err != nil {
		return nil, err
	}
	out := make([]queryir.OrderItem, 0, len(list))
	for i, elem := range list {
		f := index(field, i)
		if _, isMap := asMap(elem); !isMap {
			ord, err := integer(f, elem)
			if err != nil {
				return nil, err
			}
			out = append(out, queryir.OrderItem{Ordinal: ord})
			continue
		}
		m, err := object(f, elem, "ordinal", "desc")
		if err != nil {
			return nil, err
		}
		raw, ok := m["ordinal"]
		if !ok {
			return nil, fieldError(ErrCodeMissingField, f+".ordinal", "ordinal is required")
		}
		item := queryir.OrderItem{}
		if item.Ordinal, err = integer(f+".ordinal", raw); err != nil {
			return nil, err
		}
		if d, ok := m["desc"]; ok {
			b, ok := d.(bool)
			if !ok {
				return nil, fieldError(ErrCodeInvalidValue, f+".desc", "want a boolean, got %s", describe(d))
			}
			item.Desc = b
		}
		out = append(out, item)
	}
	return out, nil
}

func joinClause(field string, v any) (*queryir.JoinClause, error) {
	m, err := object(field, v, "table", "left", "right")
	if err != nil {
		return nil, err
	}
	j := &queryir.JoinClause{}
	if j.Table, err = requiredString(m, field, "table"); err != nil {
		return nil, err
	}
	if j.RightColumn, err = requiredString(m, field, "right"); err != nil {
		return nil, err
	}
	left, ok := m["left"]
	if !ok {
		return nil, fieldError(ErrCodeMissingField, field+".left", "left is required")
	}
	if j.LeftKey, err = expr(field+".left", left); err != nil {
		return nil, err
	}
	return j, nil
}

func unnestClause(field string, v any) (*queryir.UnnestClause, error) {
	m, err := object(field, v, "input", "as")
	if err != nil {
		return nil, err
	}
	u := &queryir.UnnestClause{}
	if u.Alias, err = requiredString(m, field, "as"); err != nil {
		return nil, err
	}
	in, ok := m["input"]
	if !ok {
		return nil, fieldError(ErrCodeMissingField, field+".input", "input is required")
	}
	if u.Input, err = expr(field+".input", in); err != nil {
		return nil, err
	}
	return u, nil
}

// object converts v to a map and rejects keys outside allowed. With no
// allowed keys every key is accepted.
func object(field string, v any, allowed ...string) (map[string]any, error) {
	m, ok := asMap(v)
	if !ok {
		return nil, fieldError(ErrCodeInvalidValue, field, "want a mapping, got %s", describe(v))
	}
	if len(allowed) == 0 {
		return m, nil
	}
	for _, k := range sortedKeys(m) {
		if !slices.Contains(allowed, k) {
			return nil, fieldError(ErrCodeUnknownField, join(field, k), "unknown field %q (allowed: %s)", k, strings.Join(allowed, ", "))
		}
	}
	return m, nil
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = val
		}
		return out, true
	}
	return nil, false
}

func hasKey(m map[string]any, key string) bool {
	_, ok := m[key]
	return ok
}

func array(field string, v any) ([]any, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, fieldError(ErrCodeInvalidValue, field, "want a list, got %s", describe(v))
	}
	return list, nil
}

func str(field string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fieldError(ErrCodeInvalidValue, field, "want a string, got %s", describe(v))
	}
	return s, nil
}

func requiredString(m map[string]any, parent, key string) (string, error) {
	f := join(parent, key)
	v, ok := m[key]
	if !ok {
		return "", fieldError(ErrCodeMissingField, f, "%s is required", key)
	}
	s, err := str(f, v)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", fieldError(ErrCodeMissingField, f, "%s must not be empty", key)
	}
	return s, nil
}

// integer accepts whole numbers from any decoder.
func integer(field string, v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		if n <= math.MaxInt64 {
			return int(n), nil
		}
	case float64:
		if n == math.Trunc(n) {
			return int(n), nil
		}
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), nil
		}
	}
	return 0, fieldError(ErrCodeInvalidValue, field, "want an integer, got %s", describe(v))
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case []any:
		return "list"
	case map[string]any, map[any]any:
		return "mapping"
	}
	return "number"
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func join(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

func index(parent string, i int) string {
	return fmt.Sprintf("%s[%d]", parent, i)
}
