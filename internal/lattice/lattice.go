// Package lattice describes what the planner knows about the stored types
// under a column path.
//
// A Witness is a planning-time fact computed by the storage collaborator
// (segment.Summarize). The planner consumes it through the Summary interface
// and never inspects raw documents itself.
package lattice

import (
	"github.com/roach88/nestq/internal/ir"
	"github.com/roach88/nestq/internal/jsonpath"
)

// Kind classifies a witness.
type Kind int

const (
	// KindUnknown means no row stores a value at the path.
	KindUnknown Kind = iota
	// KindSingle means every stored value has one concrete type.
	KindSingle
	// KindVariant means stored values disagree on their type.
	KindVariant
)

func (k Kind) String() string {
	switch k {
	case KindSingle:
		return "single"
	case KindVariant:
		return "variant"
	}
	return "unknown"
}

// Witness is the set of concrete types observed at one column path.
type Witness struct {
	Types ir.TypeSet
	// ArrayOfObjects is set when the path holds arrays whose elements are objects.
	ArrayOfObjects bool
}

// Observe returns a witness for a single stored value.
func Observe(v ir.Value) Witness {
	t := ir.TypeOf(v)
	w := Witness{Types: ir.NewTypeSet(t)}
	if arr, ok := v.(ir.Array); ok && t == ir.ObjectType {
		for _, item := range arr {
			if _, isObj := item.(ir.Object); isObj {
				w.ArrayOfObjects = true
				break
			}
		}
	}
	return w
}

// Merge combines two witnesses of the same path.
func (w Witness) Merge(o Witness) Witness {
	return Witness{
		Types:          w.Types.Union(o.Types),
		ArrayOfObjects: w.ArrayOfObjects || o.ArrayOfObjects,
	}
}

// Kind classifies the witness.
func (w Witness) Kind() Kind {
	switch w.Types.Len() {
	case 0:
		return KindUnknown
	case 1:
		return KindSingle
	}
	return KindVariant
}

// Natural returns the least restrictive type covering every stored value.
// Unknown when nothing is stored.
func (w Witness) Natural() ir.ExtractionType {
	return w.Types.Join()
}

// DisplayType is the type a path function reports when no RETURNING clause
// or literal forces one: the single stored type, STRING for variants and for
// unknown paths.
func (w Witness) DisplayType() ir.ExtractionType {
	if t, ok := w.Types.Single(); ok {
		return t
	}
	return ir.StringType
}

func (w Witness) String() string {
	s := w.Types.String()
	if w.ArrayOfObjects {
		s = "ARRAY<" + s + ">"
	}
	return s
}

// ColumnKind is the storage type of a physical column.
type ColumnKind string

const (
	ColumnLong        ColumnKind = "long"
	ColumnDouble      ColumnKind = "double"
	ColumnString      ColumnKind = "string"
	ColumnLongArray   ColumnKind = "long_array"
	ColumnDoubleArray ColumnKind = "double_array"
	ColumnStringArray ColumnKind = "string_array"
	ColumnNested      ColumnKind = "nested"
)

// ExtractionType maps a column kind onto the matching extraction type.
func (k ColumnKind) ExtractionType() ir.ExtractionType {
	switch k {
	case ColumnLong:
		return ir.LongType
	case ColumnDouble:
		return ir.DoubleType
	case ColumnString:
		return ir.StringType
	case ColumnLongArray:
		return ir.LongArrayType
	case ColumnDoubleArray:
		return ir.DoubleArrayType
	case ColumnStringArray:
		return ir.StringArrayType
	case ColumnNested:
		return ir.ObjectType
	}
	return ir.Unknown
}

// Valid reports whether k is a known column kind.
func (k ColumnKind) Valid() bool {
	return k.ExtractionType() != ir.Unknown
}

// ColumnInfo describes one physical column.
type ColumnInfo struct {
	Name string
	Kind ColumnKind
}

// IsNested reports whether the column stores semi-structured documents.
func (c ColumnInfo) IsNested() bool {
	return c.Kind == ColumnNested
}

// Summary is the read-only per-path type information consumed by the planner.
type Summary interface {
	// TypeAt returns the witness for path under table.column. Paths nobody
	// stores report an empty witness.
	TypeAt(table, column string, path jsonpath.Path) Witness
	// Column looks up a physical column.
	Column(table, column string) (ColumnInfo, bool)
}
