package loader

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue/token"
)

// Error codes. Stable across releases; the CLI prints them.
const (
	ErrCodeGeneric       = "E001" // Generic/unknown error
	ErrCodeScanError     = "E002" // Directory scan error
	ErrCodeNoFiles       = "E003" // No query files found
	ErrCodeLoadFailed    = "E004" // Syntax error in the document
	ErrCodeNotFound      = "E005" // Path not found
	ErrCodeBuildFailed   = "E006" // CUE evaluation failed
	ErrCodeUnknownFormat = "E007" // Unrecognized file extension

	ErrCodeUnknownField = "E101" // Field not part of the document shape
	ErrCodeMissingField = "E102" // Required field absent
	ErrCodeInvalidValue = "E103" // Field has the wrong shape
	ErrCodeInvalidType  = "E104" // Unknown type name
	ErrCodeInvalidExpr  = "E110" // Malformed expression
	ErrCodeInvalidPred  = "E111" // Malformed predicate
)

// LoadError reports a problem with a query document.
type LoadError struct {
	Code    string
	Field   string    // dotted location in the document, e.g. select[0].expr
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsLoadError reports whether err is a *LoadError, optionally with one of codes.
func IsLoadError(err error, codes ...string) bool {
	var le *LoadError
	if !errors.As(err, &le) {
		return false
	}
	if len(codes) == 0 {
		return true
	}
	for _, c := range codes {
		if le.Code == c {
			return true
		}
	}
	return false
}

func fieldError(code, field, format string, args ...any) *LoadError {
	return &LoadError{Code: code, Field: field, Message: fmt.Sprintf(format, args...)}
}
