package extract

import (
	"slices"

	"github.com/roach88/nestq/internal/ir"
	"github.com/roach88/nestq/internal/jsonpath"
)

// Keys returns the sorted field names of the object at p, or null when the
// located value is absent or not an object.
func Keys(doc ir.Value, p jsonpath.Path) ir.Value {
	v, ok := Walk(doc, p)
	if !ok {
		return ir.Null{}
	}
	obj, ok := v.(ir.Object)
	if !ok {
		return ir.Null{}
	}
	keys := obj.SortedKeys()
	out := make(ir.Array, len(keys))
	for i, k := range keys {
		out[i] = ir.String(k)
	}
	return out
}

// Paths returns the sorted leaf paths of doc. Arrays and empty objects are
// leaves, and a document that is not an object reports only the root.
func Paths(doc ir.Value) ir.Value {
	var leaves []string
	collectPaths(doc, jsonpath.Root(), &leaves)
	slices.Sort(leaves)

	out := make(ir.Array, len(leaves))
	for i, p := range leaves {
		out[i] = ir.String(p)
	}
	return out
}

func collectPaths(v ir.Value, at jsonpath.Path, out *[]string) {
	obj, ok := v.(ir.Object)
	if !ok || len(obj) == 0 {
		*out = append(*out, at.String())
		return
	}
	for _, k := range obj.SortedKeys() {
		collectPaths(obj[k], at.Child(k), out)
	}
}

// Visit calls fn for doc itself and for every value reachable through object
// fields, parents before children and siblings in sorted key order. Array
// elements are not descended into.
func Visit(doc ir.Value, fn func(p jsonpath.Path, v ir.Value)) {
	visit(doc, jsonpath.Root(), fn)
}

func visit(v ir.Value, at jsonpath.Path, fn func(p jsonpath.Path, v ir.Value)) {
	fn(at, v)
	obj, ok := v.(ir.Object)
	if !ok {
		return
	}
	for _, k := range obj.SortedKeys() {
		visit(obj[k], at.Child(k), fn)
	}
}
