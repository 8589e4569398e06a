package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/roach88/nestq/internal/planner"
	"github.com/roach88/nestq/internal/querysql"
	"github.com/roach88/nestq/internal/segment"
	"github.com/roach88/nestq/internal/store"
)

// Engine executes plans over the tables of one catalog.
//
// Thread-safety model:
//   - Execute(): safe from any goroutine; the store serializes statements
//     over its single connection
//   - table loading happens at most once per table, under a mutex
type Engine struct {
	store    *store.Store
	catalog  *segment.Catalog
	compiler *querysql.Compiler
	logger   *slog.Logger

	mu     sync.Mutex
	loaded map[string]bool
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithLogger sets the engine's logger. A nil logger is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Engine executing against st with tables from cat.
//
// Tables are copied into st lazily, the first time a plan reads them.
func New(st *store.Store, cat *segment.Catalog, opts ...Option) *Engine {
	e := &Engine{
		store:    st,
		catalog:  cat,
		compiler: querysql.NewCompiler(cat),
		logger:   slog.Default(),
		loaded:   make(map[string]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Load copies the named tables into the store unless already loaded.
func (e *Engine) Load(ctx context.Context, tables ...string) error {
	return e.load(ctx, "", tables)
}

func (e *Engine) load(ctx context.Context, queryID string, tables []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, name := range tables {
		if e.loaded[name] {
			continue
		}
		t, ok := e.catalog.Table(name)
		if !ok {
			return NewUnknownTableError(queryID, name)
		}
		if err := e.store.LoadTable(ctx, t); err != nil {
			return newLoadError(queryID, name, err)
		}
		e.loaded[name] = true
		e.logger.Debug("loaded table", "table", name, "rows", len(t.Rows))
	}
	return nil
}

// tablesOf lists the tables a plan reads.
func tablesOf(p *planner.Plan) []string {
	tables := []string{p.DataSource}
	if p.Join != nil && p.Join.Table != p.DataSource {
		tables = append(tables, p.Join.Table)
	}
	return tables
}
