package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/nestq/internal/loader"
	"github.com/roach88/nestq/internal/planner"
	"github.com/roach88/nestq/internal/queryir"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Tables   []string
	FailFast bool
}

// ValidationIssue is one problem found in a query document.
type ValidationIssue struct {
	File    string `json:"file,omitempty"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Line    int    `json:"line,omitempty"`
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Files  int               `json:"files"`
	Errors []ValidationIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <query-file-or-dir>",
		Short: "Validate query documents without executing them",
		Long: `Validate query documents (.yaml, .json, .cue) without executing them.

Checks document shape and expression syntax. With --table, every query is
also planned against the tables, which checks paths, column references
and type compatibility.

Exit codes:
  0 - All documents valid
  1 - One or more documents invalid
  2 - Command error (path not found, no query files)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}
	addTableFlag(cmd, &opts.Tables)
	cmd.Flags().BoolVar(&opts.FailFast, "fail-fast", false, "stop at the first invalid document")

	return cmd
}

func runValidate(opts *ValidateOptions, path string, cmd *cobra.Command) error {
	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	logger := opts.Logger()

	queries, loadErrs, files, err := loadQueries(path, opts.FailFast)
	if err != nil {
		return err
	}
	logger.Debug("loaded query documents", "path", path, "files", files, "invalid", len(loadErrs))

	result := ValidationResult{Files: files}
	for _, e := range loadErrs {
		result.Errors = append(result.Errors, loadIssue(e))
	}

	if len(opts.Tables) > 0 && !(opts.FailFast && len(result.Errors) > 0) {
		issues, err := planQueries(opts, cmd, queries)
		if err != nil {
			return err
		}
		result.Errors = append(result.Errors, issues...)
	}
	result.Valid = len(result.Errors) == 0

	if f.json() {
		resp := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			resp.Status = "error"
			resp.Error = &CLIError{Code: "E_VALIDATION", Message: fmt.Sprintf("%d validation error(s)", len(result.Errors))}
		}
		if err := f.writeJSON(resp); err != nil {
			return err
		}
	} else {
		writeValidationText(cmd, result)
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("%d validation error(s)", len(result.Errors)))
	}
	return nil
}

// loadQueries loads one file or every query file under a directory.
func loadQueries(path string, failFast bool) ([]loader.NamedQuery, []error, int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, 0, WrapExitError(ExitCommandError, "path not found", err)
	}

	if !info.IsDir() {
		q, err := loader.LoadFile(path)
		if err != nil {
			return nil, []error{fmt.Errorf("%s: %w", path, err)}, 1, nil
		}
		return []loader.NamedQuery{{Name: path, Path: path, Query: q}}, nil, 1, nil
	}

	mode := loader.LoadModeCollectAll
	if failFast {
		mode = loader.LoadModeFailFast
	}
	result, errs := loader.LoadDir(path, mode)
	if result == nil {
		return nil, nil, 0, WrapExitError(ExitCommandError, "failed to load queries", errors.Join(errs...))
	}
	return result.Queries, errs, result.FileCount, nil
}

func planQueries(opts *ValidateOptions, cmd *cobra.Command, queries []loader.NamedQuery) ([]ValidationIssue, error) {
	cat, err := loadCatalog(cmd.Context(), opts.Tables)
	if err != nil {
		return nil, err
	}
	planOpts, err := opts.plannerOptions()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid planner options", err)
	}
	p := planner.New(cat, planOpts...)

	var issues []ValidationIssue
	for _, nq := range queries {
		issue, ok := planIssue(p, nq.Path, nq.Query)
		if !ok {
			continue
		}
		issues = append(issues, issue)
		if opts.FailFast {
			break
		}
	}
	return issues, nil
}

func planIssue(p *planner.Planner, path string, q queryir.Query) (ValidationIssue, bool) {
	_, err := p.Plan(q)
	if err == nil {
		return ValidationIssue{}, false
	}
	issue := ValidationIssue{File: path, Code: loader.ErrCodeGeneric, Message: err.Error()}
	var pe *planner.Error
	if errors.As(err, &pe) {
		issue.Code = string(pe.Code)
		issue.Message = pe.Message
	}
	return issue, true
}

// loadIssue converts a loader error (wrapped with its file path) to an issue.
func loadIssue(err error) ValidationIssue {
	issue := ValidationIssue{Code: loader.ErrCodeGeneric, Message: err.Error()}
	var le *loader.LoadError
	if !errors.As(err, &le) {
		return issue
	}
	issue.Code = le.Code
	issue.Field = le.Field
	issue.Message = le.Message
	if le.Pos.IsValid() {
		issue.File = le.Pos.Filename()
		issue.Line = le.Pos.Line()
	}
	if issue.File == "" {
		if file, _, ok := strings.Cut(err.Error(), ": "); ok {
			issue.File = file
		}
	}
	return issue
}

func writeValidationText(cmd *cobra.Command, result ValidationResult) {
	w := cmd.OutOrStdout()
	if result.Valid {
		fmt.Fprintln(w, successStyle.Render(fmt.Sprintf("✓ %d query file(s) valid", result.Files)))
		return
	}
	for _, issue := range result.Errors {
		loc := issue.File
		if issue.Line > 0 {
			loc = fmt.Sprintf("%s:%d", loc, issue.Line)
		}
		if issue.Field != "" {
			loc += " " + issue.Field
		}
		fmt.Fprintf(w, "%s %s %s\n", errorStyle.Render("✗ "+issue.Code), loc, issue.Message)
	}
	fmt.Fprintln(w, errorStyle.Render(fmt.Sprintf("%d validation error(s) in %d file(s)", len(result.Errors), result.Files)))
}
