package database

import (
	"errors"
	"fmt"
)

// ErrInvalidOptions indicates that connection options failed validation.
var ErrInvalidOptions = errors.New("invalid database options")

// Error wraps a database failure with the script and statement that caused it.
type Error struct {
	Script    string // Script being executed (if applicable)
	Statement string // SQL statement that failed (if applicable)
	Operation string // Database operation (execute, begin transaction, etc.)
	Err       error  // Underlying error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Script != "" {
		return fmt.Sprintf("database error in script %s during %s: %v", e.Script, e.Operation, e.Err)
	}
	return fmt.Sprintf("database error during %s: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new Error
func NewError(script, statement, operation string, err error) *Error {
	return &Error{
		Script:    script,
		Statement: statement,
		Operation: operation,
		Err:       err,
	}
}
