package segment

import (
	"fmt"
	"slices"

	"github.com/roach88/nestq/internal/extract"
	"github.com/roach88/nestq/internal/ir"
	"github.com/roach88/nestq/internal/lattice"
)

// Row maps column names to stored values. Missing columns are null.
type Row map[string]ir.Value

// Table is an immutable set of rows with a fixed column list.
type Table struct {
	Name    string
	Columns []lattice.ColumnInfo
	Rows    []Row
}

// NewTable validates columns and rows. Scalar and array columns have their
// values coerced to the column type; nested columns store values unchanged.
func NewTable(name string, columns []lattice.ColumnInfo, rows []Row) (*Table, error) {
	if name == "" {
		return nil, fmt.Errorf("table name is required")
	}
	known := make(map[string]lattice.ColumnInfo, len(columns))
	for _, col := range columns {
		if col.Name == "" {
			return nil, fmt.Errorf("table %s: column without a name", name)
		}
		if !col.Kind.Valid() {
			return nil, fmt.Errorf("table %s: column %s has unknown kind %q", name, col.Name, col.Kind)
		}
		if _, dup := known[col.Name]; dup {
			return nil, fmt.Errorf("table %s: duplicate column %s", name, col.Name)
		}
		known[col.Name] = col
	}

	out := make([]Row, len(rows))
	for i, row := range rows {
		normalized := make(Row, len(row))
		for k, v := range row {
			col, ok := known[k]
			if !ok {
				return nil, fmt.Errorf("table %s: row %d: unknown column %s", name, i, k)
			}
			if ir.IsNull(v) {
				continue
			}
			if !col.IsNested() {
				v = extract.Coerce(v, col.Kind.ExtractionType())
			}
			normalized[k] = v
		}
		out[i] = normalized
	}

	return &Table{
		Name:    name,
		Columns: slices.Clone(columns),
		Rows:    out,
	}, nil
}

// Column looks up a column by name.
func (t *Table) Column(name string) (lattice.ColumnInfo, bool) {
	for _, col := range t.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return lattice.ColumnInfo{}, false
}

// Value returns the stored value, ir.Null{} when absent.
func (t *Table) Value(row int, column string) ir.Value {
	v, ok := t.Rows[row][column]
	if !ok || v == nil {
		return ir.Null{}
	}
	return v
}

// InferColumns derives a column list from rows, sorted by name.
//
//	all LONG             => long
//	LONG and DOUBLE      => double
//	all STRING           => string
//	one array type       => that array kind
//	anything else        => nested
func InferColumns(rows []Row) []lattice.ColumnInfo {
	types := make(map[string]ir.TypeSet)
	for _, row := range rows {
		for k, v := range row {
			types[k] = types[k].Add(ir.TypeOf(v))
		}
	}

	names := make([]string, 0, len(types))
	for k := range types {
		names = append(names, k)
	}
	slices.Sort(names)

	cols := make([]lattice.ColumnInfo, len(names))
	for i, name := range names {
		cols[i] = lattice.ColumnInfo{Name: name, Kind: inferKind(types[name])}
	}
	return cols
}

func inferKind(ts ir.TypeSet) lattice.ColumnKind {
	if ts == ir.NewTypeSet(ir.LongType, ir.DoubleType) {
		return lattice.ColumnDouble
	}
	t, ok := ts.Single()
	if !ok {
		if ts.Len() == 0 {
			return lattice.ColumnString
		}
		return lattice.ColumnNested
	}
	switch t {
	case ir.LongType:
		return lattice.ColumnLong
	case ir.DoubleType:
		return lattice.ColumnDouble
	case ir.StringType:
		return lattice.ColumnString
	case ir.LongArrayType:
		return lattice.ColumnLongArray
	case ir.DoubleArrayType:
		return lattice.ColumnDoubleArray
	case ir.StringArrayType:
		return lattice.ColumnStringArray
	}
	return lattice.ColumnNested
}
