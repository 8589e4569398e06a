package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/nestq/internal/planner"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose             bool
	Format              string // "json" | "text"
	Typing              string // "string" | "natural"
	ApproxCountDistinct bool

	logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the nestq CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "nestq",
		Short: "nestq - plan and run queries over nested columns",
		Long: `nestq plans JSON_VALUE style path extraction over nested columns into
typed virtual columns and runs the plans on a reference SQLite engine.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			if _, err := planner.ParseTyping(opts.Typing); err != nil {
				return WrapExitError(ExitCommandError, "invalid --typing", err)
			}
			level := slog.LevelInfo
			if opts.Verbose {
				level = slog.LevelDebug
			}
			opts.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Typing, "typing", string(planner.TypingString), "display type for untyped paths (string|natural)")
	cmd.PersistentFlags().BoolVar(&opts.ApproxCountDistinct, "approx-count-distinct", false, "plan COUNT(DISTINCT) as an approximate sketch")

	cmd.AddCommand(NewPlanCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewPathsCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// Logger returns the logger installed by the root command, or a discarding
// logger when commands run without it (tests).
func (o *RootOptions) Logger() *slog.Logger {
	if o.logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.logger
}

// plannerOptions maps global flags onto planner configuration.
func (o *RootOptions) plannerOptions() ([]planner.Option, error) {
	typing, err := planner.ParseTyping(o.Typing)
	if err != nil {
		return nil, err
	}
	return []planner.Option{
		planner.WithLogger(o.Logger()),
		planner.WithTyping(typing),
		planner.WithApproximateCountDistinct(o.ApproxCountDistinct),
	}, nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
