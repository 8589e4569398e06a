// Package queryir is the structured query model handed to the planner.
//
// It stands in for the SQL layer: a parser/validator would produce these
// values from query text. The planner never sees SQL, only this tree.
//
//	[SQL text] -> [queryir.Query] -> [planner.Plan] -> [querysql / engine]
//
// SEALED INTERFACES:
//
// Expr and Predicate are sealed interfaces using the marker method pattern.
// Only types in this package can implement them, which keeps every type
// switch in the planner and the filter translator exhaustive.
//
// Every node may be used by value or by pointer; consumers accept both.
//
//	switch e := expr.(type) {
//	case Column, *Column:
//	    // physical column
//	case JSONValue, *JSONValue:
//	    // path function
//	}
//
// Paths are carried as the raw strings the user wrote. Parsing (and the
// user-facing InvalidPath error) belongs to the planner so the error quotes
// the original text.
package queryir
