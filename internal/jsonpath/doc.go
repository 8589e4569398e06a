// Package jsonpath parses the restricted JSONPath dialect used to address
// values inside nested columns.
//
// Supported syntax:
//
//	$                  whole value
//	$.                 whole value
//	$.key              object field
//	$.key.key2         nested field
//	$['key with .']    quoted field (single or double quotes)
//	$.arr[0]           array element
//	$.arr[-1]          array element counted from the end
//
// Wildcards, slices, filters and recursive descent are rejected.
//
// A parsed Path is immutable. Two paths are equal when their component
// sequences are equal, and String renders a normalized form so that
// $['x'] and $.x produce identical dedup keys.
package jsonpath
