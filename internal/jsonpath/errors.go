package jsonpath

import (
	"errors"
	"fmt"
)

// ErrorCode identifies the category of a path error.
type ErrorCode string

const (
	// ErrInvalidPath indicates a malformed path expression.
	ErrInvalidPath ErrorCode = "INVALID_PATH"
)

// Error is the structured error returned by Parse.
//
// Message is user facing and is surfaced verbatim by the planner, so it always
// quotes the offending path string exactly as it was supplied.
type Error struct {
	Code    ErrorCode
	Path    string
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// IsInvalidPath returns true if err is (or wraps) a path syntax error.
func IsInvalidPath(err error) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code == ErrInvalidPath
	}
	return false
}

func errMissingRoot(path string) *Error {
	return &Error{
		Code:    ErrInvalidPath,
		Path:    path,
		Message: fmt.Sprintf("JSONPath [%s] is invalid, it must start with '$'", path),
	}
}

func errSyntax(path string, format string, args ...any) *Error {
	return &Error{
		Code:    ErrInvalidPath,
		Path:    path,
		Message: fmt.Sprintf("JSONPath [%s] is invalid, %s", path, fmt.Sprintf(format, args...)),
	}
}
