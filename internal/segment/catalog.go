package segment

import (
	"context"
	"slices"
	"sync"

	"github.com/roach88/nestq/internal/extract"
	"github.com/roach88/nestq/internal/jsonpath"
	"github.com/roach88/nestq/internal/lattice"
)

// Catalog indexes tables by name and answers planner type questions.
// Safe for concurrent use.
type Catalog struct {
	mu        sync.RWMutex
	tables    map[string]*Table
	summaries map[string]*TableSummary
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		tables:    make(map[string]*Table),
		summaries: make(map[string]*TableSummary),
	}
}

// Add summarizes t and registers it, replacing any table of the same name.
func (c *Catalog) Add(ctx context.Context, t *Table) error {
	s, err := Summarize(ctx, t)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables[t.Name] = t
	c.summaries[t.Name] = s
	return nil
}

// Table returns a registered table.
func (c *Catalog) Table(name string) (*Table, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tables[name]
	return t, ok
}

// Summary returns the summary of a registered table.
func (c *Catalog) Summary(name string) (*TableSummary, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.summaries[name]
	return s, ok
}

// Tables returns the registered table names, sorted.
func (c *Catalog) Tables() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Column implements lattice.Summary.
func (c *Catalog) Column(table, column string) (lattice.ColumnInfo, bool) {
	t, ok := c.Table(table)
	if !ok {
		return lattice.ColumnInfo{}, false
	}
	return t.Column(column)
}

// TypeAt implements lattice.Summary. Paths through array elements are not
// recorded by Summarize; they are answered by scanning the rows.
func (c *Catalog) TypeAt(table, column string, path jsonpath.Path) lattice.Witness {
	c.mu.RLock()
	t, ok := c.tables[table]
	s := c.summaries[table]
	c.mu.RUnlock()
	if !ok {
		return lattice.Witness{}
	}
	if cs, ok := s.Columns[column]; ok {
		if w, ok := cs.TypeAt(path); ok {
			return w
		}
	}

	var w lattice.Witness
	for i := range t.Rows {
		if v, ok := extract.Walk(t.Value(i, column), path); ok {
			w = w.Merge(lattice.Observe(v))
		}
	}
	return w
}
