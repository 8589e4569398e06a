// Package engine is the reference native engine for planned queries.
//
// The engine executes a planner.Plan against tables loaded into SQLite. It
// does not interpret queries itself: querysql compiles the plan's operators,
// filters and aggregations to SQL, and the store's nested_* user functions
// evaluate extraction and coercion row at a time with the same code the
// planner's semantics are defined by.
//
// ARCHITECTURE:
//
//  1. Execute() resolves the plan's data source and join table in the catalog
//  2. Tables are loaded into the store on first use (once per engine)
//  3. The plan is compiled to one parameterized SQL statement
//  4. Rows are decoded back to values using the plan's signature types
//
// Execution never fails on data: absent paths, type mismatches and invalid
// JSON become nulls inside the user functions. Errors are reserved for
// unknown tables and database failures.
//
// Result order is deterministic: every compiled statement ends with ORDER BY,
// falling back to the original row position.
package engine
