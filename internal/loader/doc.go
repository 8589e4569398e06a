// Package loader reads query documents and converts them to queryir.Query.
//
// A query document is structured data, not SQL text. The same shape can be
// written as YAML (.yaml/.yml), CUE (.cue) or JSON (.json):
//
//	datasource: nested
//	select:
//	  - expr: {json_value: {input: nest, path: $.x}}
//	    as: x
//	  - count: "*"
//	where:
//	  eq: [{json_value: {input: nest, path: $.mixed2}}, 1]
//	group_by: [1]
//	order_by: [{ordinal: 2, desc: true}]
//	limit: 10
//
// # Expressions
//
// A bare string is a column of the data source (or the UNNEST alias); a
// string wrapped in single quotes ('abc') is a string literal. Numbers,
// booleans and null are literals. Everything else is a single-key map:
//
//	{column: k, table: lookup}         joined column
//	{lit: "100"}                       literal of any type
//	{json_value: {input, path, returning, on_empty, on_error}}
//	{json_query: {input, path}}
//	{json_query_array: {input, path}}
//	{json_keys: {input, path}}
//	{json_paths: <expr>}
//	{json_object: [{key: k, value: <expr>}, ...]}
//	{cast: {input, type}}
//	{coalesce: [<expr>, ...]}
//	{array_to_mv: <expr>}
//	{count: "*"} {count: <expr>} {count_distinct: <expr>}
//	{sum: <expr>} {min: <expr>} {max: <expr>} {approx_count_distinct: <expr>}
//
// # Predicates
//
//	{eq|ne|lt|le|gt|ge: [<expr>, <expr>]}
//	{between: {input, low, high}}
//	{like: {input, pattern}}
//	{in: {input, values: [...]}}
//	{is_null: <expr>} {is_not_null: <expr>}
//	{and: [...]} {or: [...]} {not: <predicate>}
//
// Unknown keys are rejected with a LoadError naming the offending field.
package loader
