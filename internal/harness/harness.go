package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/nestq/internal/engine"
	"github.com/roach88/nestq/internal/ir"
	"github.com/roach88/nestq/internal/loader"
	"github.com/roach88/nestq/internal/planner"
	"github.com/roach88/nestq/internal/queryir"
	"github.com/roach88/nestq/internal/segment"
	"github.com/roach88/nestq/internal/store"
	"github.com/roach88/nestq/internal/testutil"
)

// Harness is the test execution engine.
// It runs one scenario with a fixed query id against a fresh store.
type Harness struct {
	planner *planner.Planner
	engine  *engine.Engine
	logger  *slog.Logger
}

// Option configures Run.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger routes planner and engine logs to l. Logs are discarded by default.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Load fixtures into a catalog
// 2. Load the query document
// 3. Plan; a planning error is compared against expect.error
// 4. Execute and compare rows against expect
// 5. Evaluate assertions
//
// The returned error reports infrastructure failures (unreadable fixtures
// or query documents); mismatches are recorded in the Result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	o := options{logger: testutil.DiscardLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	ctx := context.Background()

	cat, err := loadFixtures(ctx, scenario.Fixtures)
	if err != nil {
		return nil, fmt.Errorf("failed to load fixtures: %w", err)
	}

	q, err := scenarioQuery(scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to load query: %w", err)
	}

	planOpts, err := plannerOptions(scenario, o.logger)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		planner: planner.New(cat, planOpts...),
		engine:  engine.New(st, cat, engine.WithLogger(o.logger)),
		logger:  o.logger,
	}
	return h.run(ctx, scenario, q)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario, q queryir.Query) (*Result, error) {
	result := NewResult()

	plan, err := h.planner.Plan(q)
	if err != nil {
		result.PlanError = err
		checkPlanError(result, scenario.Expect, err)
		return result, nil
	}
	result.Plan = plan
	if scenario.Expect != nil && scenario.Expect.Error != nil {
		result.AddError(fmt.Sprintf("expected planning error %s, but planning succeeded", scenario.Expect.Error.Code))
		return result, nil
	}

	res, err := h.engine.Execute(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("failed to execute plan: %w", err)
	}
	result.Columns = res.Columns
	result.Rows = res.Rows
	h.logger.Debug("scenario executed", "scenario", scenario.Name, "rows", len(res.Rows))

	if scenario.Expect != nil {
		checkExpectation(result, scenario.Expect)
	}

	actx := &AssertionContext{Plan: plan, Columns: res.Columns, Rows: res.Rows}
	for _, errMsg := range EvaluateAssertions(scenario.Assertions, actx) {
		result.AddError(errMsg)
	}
	return result, nil
}

func loadFixtures(ctx context.Context, fixtures []string) (*segment.Catalog, error) {
	cat := segment.NewCatalog()
	for _, f := range fixtures {
		var (
			t   *segment.Table
			err error
		)
		if isFixturePath(f) {
			t, err = segment.LoadFile(f)
		} else {
			t, err = testutil.Fixture(f)
		}
		if err != nil {
			return nil, err
		}
		if err := cat.Add(ctx, t); err != nil {
			return nil, err
		}
	}
	return cat, nil
}

func scenarioQuery(s *Scenario) (queryir.Query, error) {
	if s.QueryFile != "" {
		return loader.LoadFile(s.QueryFile)
	}
	return loader.FromDocument(s.Query)
}

func plannerOptions(s *Scenario, logger *slog.Logger) ([]planner.Option, error) {
	typing, err := planner.ParseTyping(s.Config.Typing)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	return []planner.Option{
		planner.WithLogger(logger),
		planner.WithIDGenerator(testutil.NewFixedQueryID(s.QueryID)),
		planner.WithTyping(typing),
		planner.WithApproximateCountDistinct(s.Config.ApproxCountDistinct),
	}, nil
}

func checkPlanError(result *Result, expect *Expectation, err error) {
	if expect == nil || expect.Error == nil {
		result.AddError(fmt.Sprintf("planning failed: %v", err))
		return
	}
	var pe *planner.Error
	if !errors.As(err, &pe) {
		result.AddError(fmt.Sprintf("expected planner error %s, got %T: %v", expect.Error.Code, err, err))
		return
	}
	if string(pe.Code) != expect.Error.Code {
		result.AddError(fmt.Sprintf("expected error code %s, got %s: %s", expect.Error.Code, pe.Code, pe.Message))
	}
	if expect.Error.Message != "" && pe.Message != expect.Error.Message {
		result.AddError(fmt.Sprintf("expected error message %q, got %q", expect.Error.Message, pe.Message))
	}
}

func checkExpectation(result *Result, expect *Expectation) {
	if expect.Columns != nil {
		names := make([]string, len(result.Columns))
		for i, c := range result.Columns {
			names[i] = c.Name
		}
		if strings.Join(names, ",") != strings.Join(expect.Columns, ",") {
			result.AddError(fmt.Sprintf("expected columns %v, got %v", expect.Columns, names))
		}
	}

	if expect.Types != nil {
		types := make([]string, len(result.Columns))
		for i, c := range result.Columns {
			types[i] = c.Type.String()
		}
		if strings.Join(types, ",") != strings.Join(expect.Types, ",") {
			result.AddError(fmt.Sprintf("expected types %v, got %v", expect.Types, types))
		}
	}

	if expect.Rows == nil {
		return
	}
	want, err := convertRows(expect.Rows)
	if err != nil {
		result.AddError(fmt.Sprintf("invalid expected rows: %v", err))
		return
	}
	if len(want) != len(result.Rows) {
		result.AddError(fmt.Sprintf("expected %d rows, got %d: %s", len(want), len(result.Rows), formatRows(result.Rows)))
		return
	}
	for i := range want {
		if !rowEqual(want[i], result.Rows[i]) {
			result.AddError(fmt.Sprintf("row %d: expected %s, got %s", i, formatRow(want[i]), formatRow(result.Rows[i])))
		}
	}
}

func convertRows(rows [][]any) ([][]ir.Value, error) {
	out := make([][]ir.Value, len(rows))
	for i, row := range rows {
		vals, err := convertRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = vals
	}
	return out, nil
}

func convertRow(row []any) ([]ir.Value, error) {
	vals := make([]ir.Value, len(row))
	for j, v := range row {
		val, err := ir.FromGo(v)
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", j, err)
		}
		vals[j] = val
	}
	return vals, nil
}

func rowEqual(a, b []ir.Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !ir.Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func formatRow(row []ir.Value) string {
	return ir.JSONText(ir.Array(row))
}

func formatRows(rows [][]ir.Value) string {
	parts := make([]string, len(rows))
	for i, r := range rows {
		parts[i] = formatRow(r)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
