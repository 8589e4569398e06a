package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/nestq/internal/engine"
	"github.com/roach88/nestq/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	QueryOptions
	DB string // SQLite database path
}

// RunResult is the JSON payload of the run command.
type RunResult struct {
	Columns []ColumnResult `json:"columns"`
	Rows    [][]any        `json:"rows"`
}

// ColumnResult describes one output column.
type ColumnResult struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{QueryOptions: QueryOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "run <query-file>",
		Short: "Plan and execute a query on the reference engine",
		Long: `Plan a query document and execute it on the reference SQLite engine.

Tables are loaded into the database on first use. By default the database
lives in memory and is discarded on exit.

Examples:
  nestq run q.yaml -t nested.yaml
  nestq run q.yaml -t nested.yaml --db ./nestq.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}
	addTableFlag(cmd, &opts.Tables)
	cmd.Flags().StringVar(&opts.DB, "db", ":memory:", "SQLite database path")

	return cmd
}

func runQuery(opts *RunOptions, queryPath string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	plan, cat, err := planFile(ctx, &opts.QueryOptions, f, queryPath)
	if err != nil {
		return err
	}

	st, err := store.Open(opts.DB)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	res, err := engine.New(st, cat, engine.WithLogger(opts.Logger())).Execute(ctx, plan)
	if err != nil {
		return WrapExitError(ExitFailure, "execution failed", err)
	}

	if f.json() {
		cols := make([]ColumnResult, len(res.Columns))
		for i, c := range res.Columns {
			cols[i] = ColumnResult{Name: c.Name, Type: c.Type.String()}
		}
		return f.writeJSON(CLIResponse{
			Status:  "ok",
			QueryID: res.QueryID,
			Data:    RunResult{Columns: cols, Rows: jsonRows(res.Rows)},
		})
	}

	w := cmd.OutOrStdout()
	renderTable(w, columnHeaders(res.Columns), valueCells(res.Rows))
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("%d row(s), query %s", len(res.Rows), res.QueryID)))
	return nil
}
