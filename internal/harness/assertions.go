package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/nestq/internal/ir"
	"github.com/roach88/nestq/internal/planner"
)

// AssertionContext holds what assertions inspect.
type AssertionContext struct {
	Plan    *planner.Plan
	Columns []planner.OutputColumn
	Rows    [][]ir.Value
}

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Explain  string // Plan explanation for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if e.Explain != "" {
		fmt.Fprintf(&buf, "\nPlan:\n")
		for _, line := range strings.Split(strings.TrimRight(e.Explain, "\n"), "\n") {
			fmt.Fprintf(&buf, "  %s\n", line)
		}
	}
	return buf.String()
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for _, a := range assertions {
		if err := evaluateAssertion(a, actx); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func evaluateAssertion(a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertRowCount:
		return assertRowCount(a, actx)
	case AssertContainsRow:
		return assertContainsRow(a, actx)
	case AssertVirtualColumns:
		return assertVirtualColumns(a, actx)
	case AssertBinding:
		return assertBinding(a, actx)
	case AssertExplainContains:
		return assertExplainContains(a, actx)
	case AssertColumnType:
		return assertColumnType(a, actx)
	}
	return fmt.Errorf("unknown assertion type: %s", a.Type)
}

func explainOf(actx *AssertionContext) string {
	if actx.Plan == nil {
		return ""
	}
	return actx.Plan.Explain()
}

// assertRowCount checks the number of result rows.
func assertRowCount(a Assertion, actx *AssertionContext) error {
	if len(actx.Rows) == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertRowCount,
		Expected: fmt.Sprintf("%d rows", a.Count),
		Actual:   fmt.Sprintf("%d rows: %s", len(actx.Rows), formatRows(actx.Rows)),
		Explain:  explainOf(actx),
	}
}

// assertContainsRow checks that a row appears anywhere in the result.
func assertContainsRow(a Assertion, actx *AssertionContext) error {
	want, err := convertRow(a.Row)
	if err != nil {
		return fmt.Errorf("contains_row: %w", err)
	}
	for _, row := range actx.Rows {
		if rowEqual(want, row) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertContainsRow,
		Expected: fmt.Sprintf("row %s", formatRow(want)),
		Actual:   fmt.Sprintf("not found in %s", formatRows(actx.Rows)),
		Explain:  explainOf(actx),
	}
}

// assertVirtualColumns checks the number of planned operators.
func assertVirtualColumns(a Assertion, actx *AssertionContext) error {
	n := len(actx.Plan.VirtualColumns)
	if n == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertVirtualColumns,
		Expected: fmt.Sprintf("%d virtual columns", a.Count),
		Actual:   fmt.Sprintf("%d virtual columns", n),
		Explain:  explainOf(actx),
	}
}

// assertBinding checks which operator serves a clause. An empty Operator
// asserts that the clause reads no operator.
func assertBinding(a Assertion, actx *AssertionContext) error {
	got, ok := actx.Plan.Bindings[a.Clause]
	if got == a.Operator && (ok || a.Operator == "") {
		return nil
	}
	actual := "no operator"
	if vc, found := actx.Plan.VirtualColumn(got); found {
		actual = vc.String()
	} else if ok {
		actual = got
	}
	return &AssertionError{
		Type:     AssertBinding,
		Expected: fmt.Sprintf("%s served by %q", a.Clause, a.Operator),
		Actual:   actual,
		Explain:  explainOf(actx),
	}
}

// assertExplainContains checks the plan explanation text.
func assertExplainContains(a Assertion, actx *AssertionContext) error {
	explain := explainOf(actx)
	if strings.Contains(explain, a.Text) {
		return nil
	}
	return &AssertionError{
		Type:     AssertExplainContains,
		Expected: fmt.Sprintf("explanation containing %q", a.Text),
		Actual:   "not found",
		Explain:  explain,
	}
}

// assertColumnType checks the type of one output column.
func assertColumnType(a Assertion, actx *AssertionContext) error {
	for _, c := range actx.Columns {
		if c.Name != a.Column {
			continue
		}
		if strings.EqualFold(c.Type.String(), a.ColumnType) {
			return nil
		}
		return &AssertionError{
			Type:     AssertColumnType,
			Expected: fmt.Sprintf("column %s of type %s", a.Column, a.ColumnType),
			Actual:   c.Type.String(),
			Explain:  explainOf(actx),
		}
	}
	return &AssertionError{
		Type:     AssertColumnType,
		Expected: fmt.Sprintf("column %s of type %s", a.Column, a.ColumnType),
		Actual:   "no such column",
		Explain:  explainOf(actx),
	}
}
