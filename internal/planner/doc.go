// Package planner compiles a queryir.Query into a Plan: the deduplicated
// extraction operators (virtual columns) a native engine needs, the filter
// tree bound to them, and the dimensions, aggregators and projections that
// read them.
//
// # Planning order
//
// Clauses are planned in a fixed order so operator names are deterministic:
//
//  1. FROM: the UNNEST input, then the join key
//  2. WHERE, left to right
//  3. SELECT items that are not aggregates (and GROUP BY, which refers to them)
//  4. aggregator arguments
//  5. ORDER BY and LIMIT, which only refer to output columns
//
// # Operator typing
//
// A path function settles on one output type, in priority order:
//
//	RETURNING clause
//	literal type       (filters, COALESCE defaults)
//	natural type       (only with TypingNatural; STRING for variant paths)
//	STRING
//
// Requesting the same (column, path, type) twice yields the same operator.
// A filter literal of another type yields a second operator on the same path;
// the first one keeps serving SELECT.
//
// # Thread Safety
//
// A Planner is safe for concurrent use: every Plan call owns a private
// compilation. Plans are immutable once returned.
package planner
