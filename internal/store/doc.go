// Package store provides the SQLite backing of the reference engine.
//
// Tables are loaded from segment tables into plain SQLite tables. Scalar
// columns keep their SQL storage class; array and nested columns are stored
// as JSON text. Every connection registers the nested_* user functions,
// which evaluate extraction operators with the same code the planner's
// tests exercise (package extract).
//
// # Storage Layout
//
//   - One SQLite table per segment table, named after it
//   - "__row" INTEGER holds the original row position
//   - long => INTEGER, double => REAL, string => TEXT
//   - arrays and nested => TEXT (compact JSON)
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - A single connection, so ":memory:" databases survive between queries
package store
