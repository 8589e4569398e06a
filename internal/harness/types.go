package harness

import (
	"github.com/roach88/nestq/internal/ir"
	"github.com/roach88/nestq/internal/planner"
)

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if the expectation and all assertions match.
	Pass bool `json:"pass"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Plan is nil when planning failed.
	Plan *planner.Plan `json:"-"`

	// PlanError is the planning failure, if any.
	PlanError error `json:"-"`

	Columns []planner.OutputColumn `json:"columns,omitempty"`
	Rows    [][]ir.Value           `json:"rows,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Explain returns the plan explanation, or "" when planning failed.
func (r *Result) Explain() string {
	if r.Plan == nil {
		return ""
	}
	return r.Plan.Explain()
}
