package segment

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/nestq/internal/extract"
	"github.com/roach88/nestq/internal/ir"
	"github.com/roach88/nestq/internal/jsonpath"
	"github.com/roach88/nestq/internal/lattice"
)

// PathType is the witness recorded for one stored path.
type PathType struct {
	Path    jsonpath.Path
	Witness lattice.Witness
}

// ColumnSummary records a witness for every path reachable through object
// fields of one column. Array elements are summarized as part of their array.
type ColumnSummary struct {
	Column string
	Kind   lattice.ColumnKind
	paths  map[string]PathType
}

// TypeAt returns the witness recorded for p.
func (s *ColumnSummary) TypeAt(p jsonpath.Path) (lattice.Witness, bool) {
	pt, ok := s.paths[p.String()]
	return pt.Witness, ok
}

// Paths returns every recorded path sorted by its normalized form.
func (s *ColumnSummary) Paths() []PathType {
	out := make([]PathType, 0, len(s.paths))
	for _, pt := range s.paths {
		out = append(out, pt)
	}
	slices.SortFunc(out, func(a, b PathType) int {
		return strings.Compare(a.Path.String(), b.Path.String())
	})
	return out
}

// TableSummary holds one ColumnSummary per column.
type TableSummary struct {
	Table   string
	Rows    int
	Columns map[string]*ColumnSummary
}

// Summarize computes column summaries in parallel. Rows are only read.
func Summarize(ctx context.Context, t *Table) (*TableSummary, error) {
	results := make([]*ColumnSummary, len(t.Columns))

	g, ctx := errgroup.WithContext(ctx)
	for i, col := range t.Columns {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = summarizeColumn(t, col)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("summarize %s: %w", t.Name, err)
	}

	s := &TableSummary{
		Table:   t.Name,
		Rows:    len(t.Rows),
		Columns: make(map[string]*ColumnSummary, len(results)),
	}
	for _, cs := range results {
		s.Columns[cs.Column] = cs
	}
	return s, nil
}

func summarizeColumn(t *Table, col lattice.ColumnInfo) *ColumnSummary {
	cs := &ColumnSummary{
		Column: col.Name,
		Kind:   col.Kind,
		paths:  make(map[string]PathType),
	}
	for i := range t.Rows {
		extract.Visit(t.Value(i, col.Name), func(p jsonpath.Path, v ir.Value) {
			key := p.String()
			pt, ok := cs.paths[key]
			if !ok {
				pt = PathType{Path: p}
			}
			pt.Witness = pt.Witness.Merge(lattice.Observe(v))
			cs.paths[key] = pt
		})
	}
	return cs
}
