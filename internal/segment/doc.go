// Package segment holds in-memory tables of nested documents and computes
// the per-path type summary the planner consumes.
//
// Tables load from YAML fixtures, JSON lines (optionally zstd compressed)
// and parquet snapshots. A Catalog indexes loaded tables and implements
// lattice.Summary.
package segment
