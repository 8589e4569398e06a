package planner

import (
	"errors"
	"fmt"

	"github.com/roach88/nestq/internal/ir"
	"github.com/roach88/nestq/internal/jsonpath"
)

// ErrorCode categorizes planning errors.
type ErrorCode string

const (
	// ErrCodeInvalidPath indicates a path that fails to parse.
	ErrCodeInvalidPath ErrorCode = "INVALID_PATH"

	// ErrCodeUnsupportedOption indicates an ON EMPTY / ON ERROR clause other than NULL.
	ErrCodeUnsupportedOption ErrorCode = "UNSUPPORTED_OPTION"

	// ErrCodeTypeIncompatibility indicates an operation that cannot accept
	// its argument type, e.g. a join on a nested column.
	ErrCodeTypeIncompatibility ErrorCode = "TYPE_INCOMPATIBILITY"

	// ErrCodeInvalidQuery indicates a malformed query: unknown columns,
	// bad ordinals, misplaced aggregates.
	ErrCodeInvalidQuery ErrorCode = "INVALID_QUERY"
)

// Error is a planning failure.
//
// Error() returns Message verbatim: user-facing messages are part of the
// contract and are matched exactly by callers.
type Error struct {
	Code    ErrorCode
	Message string

	// Details contains additional context, e.g. the offending path.
	Details map[string]string

	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

func hasCode(err error, code ErrorCode) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code == code
	}
	return false
}

// IsInvalidPath reports whether err is a path parse failure.
func IsInvalidPath(err error) bool {
	return hasCode(err, ErrCodeInvalidPath) || jsonpath.IsInvalidPath(err)
}

// IsUnsupportedOption reports whether err rejects an ON EMPTY / ON ERROR clause.
func IsUnsupportedOption(err error) bool {
	return hasCode(err, ErrCodeUnsupportedOption)
}

// IsTypeIncompatibility reports whether err is a type check failure.
func IsTypeIncompatibility(err error) bool {
	return hasCode(err, ErrCodeTypeIncompatibility)
}

// IsInvalidQuery reports whether err rejects the query shape.
func IsInvalidQuery(err error) bool {
	return hasCode(err, ErrCodeInvalidQuery)
}

func newInvalidPathError(path string, cause error) *Error {
	return &Error{
		Code:    ErrCodeInvalidPath,
		Message: cause.Error(),
		Details: map[string]string{"path": path},
		cause:   cause,
	}
}

func newUnsupportedOptionError(option string) *Error {
	return &Error{
		Code: ErrCodeUnsupportedOption,
		Message: fmt.Sprintf(
			"Unsupported JSON_VALUE parameter '%s' defined - please re-issue this query without this argument",
			option,
		),
		Details: map[string]string{"option": option},
	}
}

func newJoinTypeError() *Error {
	return &Error{
		Code:    ErrCodeTypeIncompatibility,
		Message: fmt.Sprintf("Cannot join when the join condition has column of type [%s]", ir.ObjectType),
	}
}

// newApplyTypeError mirrors the SQL validator's wording, e.g.
// Cannot apply 'SUM' to arguments of type 'SUM(<VARCHAR>)'.
func newApplyTypeError(fn string, t ir.ExtractionType) *Error {
	return &Error{
		Code: ErrCodeTypeIncompatibility,
		Message: fmt.Sprintf("Cannot apply '%s' to arguments of type '%s(<%s>)'",
			fn, fn, sqlTypeName(t)),
		Details: map[string]string{"function": fn, "type": t.String()},
	}
}

func newApproxCountDistinctError() *Error {
	return &Error{
		Code: ErrCodeTypeIncompatibility,
		Message: fmt.Sprintf("Using APPROX_COUNT_DISTINCT() or enabling approximation with COUNT(DISTINCT) "+
			"is not supported for column type [%s]. You can disable approximation by setting "+
			"[%s: false] in the query context.", ir.ObjectType, ContextApproximateCountDistinct),
	}
}

func newInvalidQueryError(format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeInvalidQuery,
		Message: fmt.Sprintf(format, args...),
	}
}

// sqlTypeName renders t the way the SQL layer names types in messages.
func sqlTypeName(t ir.ExtractionType) string {
	switch t {
	case ir.LongType:
		return "BIGINT"
	case ir.DoubleType:
		return "DOUBLE"
	case ir.StringType:
		return "VARCHAR"
	case ir.ObjectType:
		return "COMPLEX<JSON>"
	}
	if t.IsArray() {
		return sqlTypeName(t.ElementType()) + " ARRAY"
	}
	return t.String()
}
