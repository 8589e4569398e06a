package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/nestq/internal/segment"
)

// ExportResult is the JSON payload of the export command.
type ExportResult struct {
	Table  string `json:"table"`
	Rows   int    `json:"rows"`
	Output string `json:"output"`
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <table-file> <output-file>",
		Short: "Convert a table between file formats",
		Long: `Convert a table file to .jsonl, .jsonl.zst or .parquet. The output
format is chosen by the output file extension.

Examples:
  nestq export nested.yaml nested.parquet
  nestq export events.jsonl events.jsonl.zst`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(rootOpts, args[0], args[1], cmd)
		},
	}
	return cmd
}

func runExport(opts *RootOptions, in, out string, cmd *cobra.Command) error {
	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	write, err := tableWriter(out)
	if err != nil {
		return err
	}
	t, err := segment.LoadFile(in)
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("failed to load table %s", in), err)
	}

	file, err := os.Create(out)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create output file", err)
	}
	if err := write(file, t); err != nil {
		file.Close()
		return WrapExitError(ExitFailure, fmt.Sprintf("failed to write %s", out), err)
	}
	if err := file.Close(); err != nil {
		return WrapExitError(ExitFailure, fmt.Sprintf("failed to write %s", out), err)
	}
	opts.Logger().Debug("exported table", "table", t.Name, "rows", len(t.Rows), "output", out)

	result := ExportResult{Table: t.Name, Rows: len(t.Rows), Output: out}
	if f.json() {
		return f.writeJSON(CLIResponse{Status: "ok", Data: result})
	}
	fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("✓ wrote %d row(s) of %s to %s", result.Rows, result.Table, out)))
	return nil
}

// tableWriter picks the encoder for an output file name.
func tableWriter(path string) (func(io.Writer, *segment.Table) error, error) {
	switch {
	case strings.HasSuffix(path, ".jsonl.zst"):
		return segment.WriteJSONLZstd, nil
	case strings.HasSuffix(path, ".jsonl"):
		return segment.WriteJSONL, nil
	case strings.HasSuffix(path, ".parquet"):
		return segment.WriteParquet, nil
	}
	return nil, NewExitError(ExitCommandError, fmt.Sprintf("unsupported output file %s (want .jsonl, .jsonl.zst or .parquet)", path))
}
