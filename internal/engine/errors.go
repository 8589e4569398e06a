package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error detected during execution.
//
// Runtime errors include:
//   - Unknown table: the plan reads a table missing from the catalog
//   - Load failure: a table could not be written to the store
//   - Execution failure: SQLite rejected or aborted the compiled statement
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// QueryID identifies the affected query, when known.
	QueryID string

	// Details contains additional context.
	Details map[string]string

	cause error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeUnknownTable indicates the plan reads a table the catalog lacks.
	ErrCodeUnknownTable RuntimeErrorCode = "UNKNOWN_TABLE"

	// ErrCodeLoadFailed indicates a table could not be loaded into the store.
	ErrCodeLoadFailed RuntimeErrorCode = "LOAD_FAILED"

	// ErrCodeExecution indicates the compiled statement failed.
	ErrCodeExecution RuntimeErrorCode = "EXECUTION_FAILED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.QueryID != "" {
		return fmt.Sprintf("%s: %s (query=%s)", e.Code, e.Message, e.QueryID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.cause
}

// IsUnknownTableError returns true if the error is an unknown table error.
// Uses errors.As to handle wrapped errors.
func IsUnknownTableError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeUnknownTable
	}
	return false
}

// IsExecutionError returns true if the compiled statement failed.
func IsExecutionError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeExecution
	}
	return false
}

// NewUnknownTableError creates a RuntimeError for a missing table.
func NewUnknownTableError(queryID, table string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeUnknownTable,
		Message: fmt.Sprintf("table [%s] not found", table),
		QueryID: queryID,
		Details: map[string]string{"table": table},
	}
}

func newLoadError(queryID, table string, err error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeLoadFailed,
		Message: fmt.Sprintf("load table [%s]: %v", table, err),
		QueryID: queryID,
		Details: map[string]string{"table": table},
		cause:   err,
	}
}

func newExecutionError(queryID, stage string, err error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeExecution,
		Message: fmt.Sprintf("%s: %v", stage, err),
		QueryID: queryID,
		Details: map[string]string{"stage": stage},
		cause:   err,
	}
}
