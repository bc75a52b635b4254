package dynamics

import (
	"errors"
	"fmt"
)

// SchemaError reports a batch that violates the Record contract.
//
// A rejected batch leaves the store unchanged.
type SchemaError struct {
	// Code identifies the violation.
	Code SchemaErrorCode

	// Message is a human-readable description.
	Message string

	// Index is the offending batch row, or -1 when the violation is batch-wide.
	Index int
}

// SchemaErrorCode categorizes contract violations.
type SchemaErrorCode string

const (
	// ErrCodeLengthMismatch indicates logits, labels and ids differ in length.
	ErrCodeLengthMismatch SchemaErrorCode = "LENGTH_MISMATCH"

	// ErrCodeMissingIDs indicates a non-empty batch arrived without example ids.
	ErrCodeMissingIDs SchemaErrorCode = "MISSING_IDS"

	// ErrCodeEmptyRow indicates a logits row with no classes.
	ErrCodeEmptyRow SchemaErrorCode = "EMPTY_ROW"

	// ErrCodeRaggedRow indicates logits rows of different widths within one batch.
	ErrCodeRaggedRow SchemaErrorCode = "RAGGED_ROW"

	// ErrCodeNonFiniteLogit indicates a NaN or infinite logit.
	ErrCodeNonFiniteLogit SchemaErrorCode = "NON_FINITE_LOGIT"
)

// Error implements the error interface.
func (e *SchemaError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("%s: %s (row=%d)", e.Code, e.Message, e.Index)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsSchemaError returns true if err is, or wraps, a *SchemaError.
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}

// HasSchemaCode returns true if err is a *SchemaError with the given code.
func HasSchemaCode(err error, code SchemaErrorCode) bool {
	var se *SchemaError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

func newBatchError(code SchemaErrorCode, format string, args ...any) *SchemaError {
	return &SchemaError{Code: code, Message: fmt.Sprintf(format, args...), Index: -1}
}

func newRowError(code SchemaErrorCode, row int, format string, args ...any) *SchemaError {
	return &SchemaError{Code: code, Message: fmt.Sprintf(format, args...), Index: row}
}
