// Package harness provides conformance testing for nestq query planning
// and execution.
//
// The harness loads fixture tables and a query document, plans the query,
// executes it on the reference SQLite engine, and checks the outcome.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: group_by_nested_x
//	description: "GROUP BY JSON_VALUE(nest, '$.x') counts rows per value"
//	fixtures: [nested]
//	config: {typing: string}
//	query:
//	  datasource: nested
//	  select: [{json_value: {input: nest, path: $.x}}, {count: "*"}]
//	  group_by: [1]
//	expect:
//	  columns: [EXPR$0, EXPR$1]
//	  rows: [[null, 4], ["100", 2], ["200", 1]]
//	assertions:
//	  - type: virtual_columns
//	    count: 1
//
// A scenario may reference a query file (query_file: queries/x.cue) instead
// of an inline query, and may expect a planning error:
//
//	expect:
//	  error: {code: INVALID_PATH, message: "..."}
//
// # Assertion Types
//
//   - row_count: the result has exactly count rows
//   - contains_row: row appears somewhere in the result
//   - virtual_columns: the plan has exactly count virtual columns
//   - binding: clause (where[0], select[1], agg[0], ...) is served by operator
//   - explain_contains: text appears in the plan explanation
//   - column_type: output column has type column_type
//
// # Deterministic Testing
//
// Every scenario runs against a fresh in-memory SQLite database with a
// fixed query id, so plan explanations and rows are reproducible and can
// be compared against golden files with RunWithGolden.
package harness
