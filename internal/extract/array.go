package extract

import (
	"github.com/roach88/nestq/internal/ir"
	"github.com/roach88/nestq/internal/jsonpath"
)

// ResolveIndex maps a possibly negative array index onto a concrete offset.
// Negative indexes count from the end, so -1 addresses the last element.
func ResolveIndex(length, index int) (int, bool) {
	if index < 0 {
		index += length
	}
	if index < 0 || index >= length {
		return 0, false
	}
	return index, true
}

// Walk follows p inside doc. The boolean is false when any step is absent:
// a missing key, an index out of range, or a step applied to the wrong kind
// of value.
func Walk(doc ir.Value, p jsonpath.Path) (ir.Value, bool) {
	cur := doc
	for i := 0; i < p.Len(); i++ {
		c := p.At(i)
		switch c.Kind {
		case jsonpath.KeyComponent:
			obj, ok := cur.(ir.Object)
			if !ok {
				return nil, false
			}
			next, ok := obj[c.Key]
			if !ok {
				return nil, false
			}
			cur = next
		case jsonpath.IndexComponent:
			arr, ok := cur.(ir.Array)
			if !ok {
				return nil, false
			}
			idx, ok := ResolveIndex(len(arr), c.Index)
			if !ok {
				return nil, false
			}
			cur = arr[idx]
		}
	}
	if cur == nil {
		return nil, false
	}
	return cur, true
}

// ToMultiValue returns the rows a value contributes when treated as a
// multi-value dimension. Null and the empty array both contribute a single
// null entry.
func ToMultiValue(v ir.Value) []ir.Value {
	switch val := v.(type) {
	case nil, ir.Null:
		return []ir.Value{ir.Null{}}
	case ir.Array:
		if len(val) == 0 {
			return []ir.Value{ir.Null{}}
		}
		out := make([]ir.Value, len(val))
		copy(out, val)
		return out
	case ir.Object:
		return []ir.Value{ir.Null{}}
	default:
		return []ir.Value{v}
	}
}

// Unnest returns the rows a value contributes under an explicit UNNEST.
// Null and the empty array contribute no rows.
func Unnest(v ir.Value) []ir.Value {
	switch val := v.(type) {
	case nil, ir.Null:
		return nil
	case ir.Array:
		if len(val) == 0 {
			return nil
		}
		out := make([]ir.Value, len(val))
		copy(out, val)
		return out
	default:
		return []ir.Value{v}
	}
}

// Vectorizable reports whether an operator over p can run in batches.
// Negative indexes depend on each row's array length.
func Vectorizable(p jsonpath.Path) bool {
	return !p.HasNegativeIndex()
}
