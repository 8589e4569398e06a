package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/roach88/nestq/internal/loader"
	"github.com/roach88/nestq/internal/planner"
	"github.com/roach88/nestq/internal/segment"
)

// QueryOptions holds flags shared by plan and run.
type QueryOptions struct {
	*RootOptions
	Tables []string // table files (.yaml, .jsonl, .jsonl.zst, .parquet)
}

func addTableFlag(cmd *cobra.Command, tables *[]string) {
	cmd.Flags().StringArrayVarP(tables, "table", "t", nil, "table file to load (repeatable)")
}

// loadError reports a query document failure and returns the matching exit error.
func (f *OutputFormatter) loadError(err error) error {
	var le *loader.LoadError
	if !errors.As(err, &le) {
		return WrapExitError(ExitCommandError, "failed to load query", err)
	}
	details := map[string]string{}
	if le.Field != "" {
		details["field"] = le.Field
	}
	if le.Pos.IsValid() {
		details["position"] = le.Pos.String()
	}
	var d any
	if len(details) > 0 {
		d = details
	}
	if outErr := f.Error(le.Code, le.Message, d); outErr != nil {
		return outErr
	}
	if le.Code == loader.ErrCodeNotFound {
		return WrapExitError(ExitCommandError, "failed to load query", err)
	}
	return WrapExitError(ExitFailure, "invalid query", err)
}

// planFile loads tables and a query document and plans the query.
func planFile(ctx context.Context, opts *QueryOptions, f *OutputFormatter, queryPath string) (*planner.Plan, *segment.Catalog, error) {
	cat, err := loadCatalog(ctx, opts.Tables)
	if err != nil {
		return nil, nil, err
	}
	q, err := loader.LoadFile(queryPath)
	if err != nil {
		return nil, nil, f.loadError(err)
	}
	planOpts, err := opts.plannerOptions()
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "invalid planner options", err)
	}
	plan, err := planner.New(cat, planOpts...).Plan(q)
	if err != nil {
		return nil, nil, f.planError(err)
	}
	return plan, cat, nil
}
