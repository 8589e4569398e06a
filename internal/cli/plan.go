package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/nestq/internal/ir"
)

// PlanResult is the JSON payload of the plan command.
type PlanResult struct {
	PlannerVersion string `json:"planner_version"`
	Fingerprint    string `json:"fingerprint"`
	Plan           any    `json:"plan"`
}

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "plan <query-file>",
		Short: "Plan a query and print its virtual columns",
		Long: `Plan a query document against one or more tables and print the plan:
virtual columns with their types, the filter, dimensions, aggregators and
the output signature.

Examples:
  nestq plan q.yaml -t nested.yaml
  nestq plan q.cue -t events.parquet --typing natural
  nestq plan q.json -t a.jsonl -t b.jsonl.zst --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(opts, args[0], cmd)
		},
	}
	addTableFlag(cmd, &opts.Tables)

	return cmd
}

func runPlan(opts *QueryOptions, queryPath string, cmd *cobra.Command) error {
	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	plan, _, err := planFile(cmd.Context(), opts, f, queryPath)
	if err != nil {
		return err
	}
	fp, err := plan.Fingerprint()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to fingerprint plan", err)
	}

	if f.json() {
		return f.writeJSON(CLIResponse{
			Status:  "ok",
			QueryID: plan.QueryID,
			Data:    PlanResult{PlannerVersion: ir.PlannerVersion, Fingerprint: fp, Plan: plan.Describe()},
		})
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, headerStyle.Render("query "+plan.QueryID))
	fmt.Fprint(w, plan.Explain())
	fmt.Fprintln(w, mutedStyle.Render("fingerprint: "+fp))
	return nil
}
