// Package vcol holds the deduplicated set of extraction operators (virtual
// columns) built while planning one query.
//
// A Registry is private to one compilation. Operators are immutable once
// created: requesting the same key returns the existing operator, requesting
// a different type creates a new one.
package vcol

import (
	"fmt"

	"github.com/roach88/nestq/internal/extract"
	"github.com/roach88/nestq/internal/ir"
	"github.com/roach88/nestq/internal/jsonpath"
	"github.com/roach88/nestq/internal/lattice"
	"github.com/roach88/nestq/internal/native"
)

// Kind discriminates field operators from expression operators.
type Kind string

const (
	// KindField reads a path from a physical column.
	KindField Kind = "nested-field"
	// KindExpression evaluates a native expression.
	KindExpression Kind = "expression"
)

// VirtualColumn is one planned extraction operator.
type VirtualColumn struct {
	Name       string
	Kind       Kind
	OutputType ir.ExtractionType

	// Field operators.
	Column         string
	ColumnKind     lattice.ColumnKind
	Path           jsonpath.Path
	ArrayOfObjects bool

	// Expression operators.
	Expression native.Expr
}

// Key is the dedup key: field|column|path|type|arrayFlag or expr|expression|type.
func (vc VirtualColumn) Key() string {
	if vc.Kind == KindExpression {
		return ExpressionKey(vc.Expression, vc.OutputType)
	}
	return FieldKey(vc.Column, vc.Path, vc.OutputType, vc.ArrayOfObjects)
}

// FieldKey builds the dedup key of a field operator.
func FieldKey(column string, path jsonpath.Path, t ir.ExtractionType, arrayOfObjects bool) string {
	return fmt.Sprintf("field|%s|%s|%s|%t", column, path.String(), t, arrayOfObjects)
}

// ExpressionKey builds the dedup key of an expression operator.
func ExpressionKey(e native.Expr, t ir.ExtractionType) string {
	return fmt.Sprintf("expr|%s|%s", e.String(), t)
}

// Vectorizable reports whether the operator can run in batches.
func (vc VirtualColumn) Vectorizable() bool {
	if vc.Kind == KindExpression {
		return native.Vectorizable(vc.Expression)
	}
	return extract.Vectorizable(vc.Path)
}

// Ref returns a native reference to this operator for use inside other
// expressions.
func (vc VirtualColumn) Ref() native.VirtualRef {
	return native.VirtualRef{Name: vc.Name, Output: vc.OutputType}
}

// Native renders the operator as a native expression over its inputs.
func (vc VirtualColumn) Native() native.Expr {
	if vc.Kind == KindExpression {
		return vc.Expression
	}
	return native.FieldAccess{
		Input:          native.ColumnRef{Name: vc.Column, Kind: vc.ColumnKind.ExtractionType()},
		Path:           vc.Path,
		Output:         vc.OutputType,
		ArrayOfObjects: vc.ArrayOfObjects,
	}
}

// String describes the operator, e.g. v0:LONG nested-field(nest, $.x).
func (vc VirtualColumn) String() string {
	if vc.Kind == KindExpression {
		return fmt.Sprintf("%s:%s expression(%s)", vc.Name, vc.OutputType, vc.Expression)
	}
	flag := ""
	if vc.ArrayOfObjects {
		flag = ", arrayOfObjects"
	}
	return fmt.Sprintf("%s:%s nested-field(%s, %s%s)", vc.Name, vc.OutputType, vc.Column, vc.Path, flag)
}

// Registry is an insertion ordered, content addressed set of operators.
// Not safe for concurrent use; a planner owns exactly one per query.
type Registry struct {
	prefix  string
	byKey   map[string]int
	byName  map[string]int
	ordered []VirtualColumn
}

// NewRegistry creates an empty registry naming operators v0, v1, ...
func NewRegistry() *Registry {
	return NewRegistryWithPrefix("v")
}

// NewRegistryWithPrefix creates an empty registry with a custom name prefix.
func NewRegistryWithPrefix(prefix string) *Registry {
	return &Registry{
		prefix: prefix,
		byKey:  make(map[string]int),
		byName: make(map[string]int),
	}
}

// Field returns the field operator for the key, creating it when absent.
// The boolean reports whether it was created by this call.
func (r *Registry) Field(column string, kind lattice.ColumnKind, path jsonpath.Path, t ir.ExtractionType, arrayOfObjects bool) (VirtualColumn, bool) {
	return r.intern(VirtualColumn{
		Kind:           KindField,
		OutputType:     t,
		Column:         column,
		ColumnKind:     kind,
		Path:           path,
		ArrayOfObjects: arrayOfObjects,
	})
}

// Expression returns the expression operator for e, creating it when absent.
func (r *Registry) Expression(e native.Expr) (VirtualColumn, bool) {
	return r.intern(VirtualColumn{
		Kind:       KindExpression,
		OutputType: e.Type(),
		Expression: e,
	})
}

func (r *Registry) intern(vc VirtualColumn) (VirtualColumn, bool) {
	key := vc.Key()
	if idx, ok := r.byKey[key]; ok {
		return r.ordered[idx], false
	}
	vc.Name = fmt.Sprintf("%s%d", r.prefix, len(r.ordered))
	r.byKey[key] = len(r.ordered)
	r.byName[vc.Name] = len(r.ordered)
	r.ordered = append(r.ordered, vc)
	return vc, true
}

// Lookup finds an operator by name.
func (r *Registry) Lookup(name string) (VirtualColumn, bool) {
	idx, ok := r.byName[name]
	if !ok {
		return VirtualColumn{}, false
	}
	return r.ordered[idx], true
}

// Len returns the number of operators.
func (r *Registry) Len() int {
	return len(r.ordered)
}

// Columns returns the operators in first-reference order.
func (r *Registry) Columns() []VirtualColumn {
	out := make([]VirtualColumn, len(r.ordered))
	copy(out, r.ordered)
	return out
}
