// Package extract evaluates extraction operators against stored values.
//
// Every function in this package is pure and safe for concurrent use.
// Nothing here returns an error for data problems: absent paths, out of
// range indexes, unparsable numbers and non-scalar values under a scalar
// type all degrade to ir.Null.
package extract
