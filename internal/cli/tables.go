package cli

import (
	"context"
	"fmt"

	"github.com/roach88/nestq/internal/segment"
)

// loadCatalog loads every table file into a fresh catalog. Column summaries
// are computed as each table is added.
func loadCatalog(ctx context.Context, paths []string) (*segment.Catalog, error) {
	if len(paths) == 0 {
		return nil, NewExitError(ExitCommandError, "at least one --table file is required")
	}
	cat := segment.NewCatalog()
	for _, path := range paths {
		t, err := segment.LoadFile(path)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to load table %s", path), err)
		}
		if err := cat.Add(ctx, t); err != nil {
			return nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to add table %s", t.Name), err)
		}
	}
	return cat, nil
}

// loadTable loads a single table file and summarizes it.
func loadTable(ctx context.Context, path string) (*segment.Table, *segment.TableSummary, error) {
	t, err := segment.LoadFile(path)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to load table %s", path), err)
	}
	summary, err := segment.Summarize(ctx, t)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to summarize table %s", t.Name), err)
	}
	return t, summary, nil
}
