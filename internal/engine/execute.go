package engine

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/nestq/internal/ir"
	"github.com/roach88/nestq/internal/planner"
	"github.com/roach88/nestq/internal/store"
)

// Result holds the rows of one executed plan.
type Result struct {
	QueryID string
	Columns []planner.OutputColumn
	// Rows are in result order; each has one value per column.
	Rows [][]ir.Value
}

// Execute runs p and returns its rows.
//
// Returns zero or more rows (an empty result is valid, not an error).
// Rows are ordered by the plan's orderings, then deterministically by row
// position.
func (e *Engine) Execute(ctx context.Context, p *planner.Plan) (*Result, error) {
	if p == nil {
		return nil, fmt.Errorf("cannot execute nil plan")
	}
	if err := e.load(ctx, p.QueryID, tablesOf(p)); err != nil {
		return nil, err
	}

	sqlStr, params, err := e.compiler.Compile(p)
	if err != nil {
		return nil, newExecutionError(p.QueryID, "compile", err)
	}
	e.logger.Debug("executing plan", "query_id", p.QueryID, "sql", sqlStr, "params", len(params))

	rows, err := e.store.Query(ctx, sqlStr, params...)
	if err != nil {
		return nil, newExecutionError(p.QueryID, "query", err)
	}
	defer rows.Close()

	decoders := columnDecoders(p)
	res := &Result{
		QueryID: p.QueryID,
		Columns: append([]planner.OutputColumn(nil), p.Signature...),
		Rows:    [][]ir.Value{},
	}
	for rows.Next() {
		row, err := scanRow(rows, decoders)
		if err != nil {
			return nil, newExecutionError(p.QueryID, "scan", err)
		}
		res.Rows = append(res.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, newExecutionError(p.QueryID, "rows iteration", err)
	}

	e.logger.Debug("executed plan", "query_id", p.QueryID, "rows", len(res.Rows))
	return res, nil
}

// columnDecoders reports, per result column, whether its text is JSON.
// Multi-value projections arrive as arrays in scans but as single elements
// once grouped.
func columnDecoders(p *planner.Plan) []bool {
	out := make([]bool, len(p.Projections))
	for i, pr := range p.Projections {
		out[i] = store.IsJSONType(pr.Type) || (pr.MultiValue && !p.IsAggregate())
	}
	return out
}

// scanRow scans one SQL row into values.
func scanRow(rows *sql.Rows, isJSON []bool) ([]ir.Value, error) {
	values := make([]any, len(isJSON))
	valuePtrs := make([]any, len(isJSON))
	for i := range values {
		valuePtrs[i] = &values[i]
	}
	if err := rows.Scan(valuePtrs...); err != nil {
		return nil, fmt.Errorf("scan row: %w", err)
	}

	row := make([]ir.Value, len(values))
	for i, v := range values {
		row[i] = store.FromSQL(v, isJSON[i])
	}
	return row, nil
}
