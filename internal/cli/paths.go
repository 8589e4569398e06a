package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/nestq/internal/lattice"
	"github.com/roach88/nestq/internal/segment"
)

// PathSummary is the witness recorded for one path of a nested column.
type PathSummary struct {
	Column  string   `json:"column"`
	Path    string   `json:"path"`
	Types   []string `json:"types"`
	Display string   `json:"display_type"`
	Natural string   `json:"natural_type"`
	Variant bool     `json:"variant"`
}

// NewPathsCommand creates the paths command.
func NewPathsCommand(rootOpts *RootOptions) *cobra.Command {
	var column string

	cmd := &cobra.Command{
		Use:   "paths <table-file>",
		Short: "Print the per-path type summary of a table",
		Long: `Print every path stored under the nested columns of a table, with the
set of types observed at the path, the type an untyped JSON_VALUE
reports for it, and the least restrictive type holding every value.

Examples:
  nestq paths nested.yaml
  nestq paths events.parquet --column doc --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPaths(rootOpts, args[0], column, cmd)
		},
	}
	cmd.Flags().StringVar(&column, "column", "", "only summarize this column")

	return cmd
}

func runPaths(opts *RootOptions, tablePath, column string, cmd *cobra.Command) error {
	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	t, summary, err := loadTable(cmd.Context(), tablePath)
	if err != nil {
		return err
	}
	if column != "" {
		if _, ok := t.Column(column); !ok {
			return NewExitError(ExitCommandError, fmt.Sprintf("column [%s] not found in table [%s]", column, t.Name))
		}
	}

	paths := summarizePaths(t, summary, column)
	if f.json() {
		return f.writeJSON(CLIResponse{Status: "ok", Data: paths})
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%s (%d rows)", t.Name, summary.Rows)))
	rows := make([][]string, len(paths))
	for i, p := range paths {
		types := fmt.Sprint(p.Types)
		if p.Variant {
			types += " variant"
		}
		rows[i] = []string{p.Column, p.Path, types, p.Display, p.Natural}
	}
	renderTable(w, []string{"column", "path", "types", "display", "natural"}, rows)
	return nil
}

// summarizePaths flattens the nested column summaries in column order.
func summarizePaths(t *segment.Table, summary *segment.TableSummary, only string) []PathSummary {
	out := []PathSummary{}
	for _, col := range t.Columns {
		if !col.IsNested() || (only != "" && col.Name != only) {
			continue
		}
		cs, ok := summary.Columns[col.Name]
		if !ok {
			continue
		}
		for _, pt := range cs.Paths() {
			types := make([]string, 0, pt.Witness.Types.Len())
			for _, et := range pt.Witness.Types.Types() {
				types = append(types, et.String())
			}
			slices.Sort(types)
			out = append(out, PathSummary{
				Column:  col.Name,
				Path:    pt.Path.String(),
				Types:   types,
				Display: pt.Witness.DisplayType().String(),
				Natural: pt.Witness.Natural().String(),
				Variant: pt.Witness.Kind() == lattice.KindVariant,
			})
		}
	}
	return out
}
