package journal

import "fmt"

// Error wraps a failed journal read or write with the table and operation involved.
type Error struct {
	Table     string // Qualified journal table name
	Operation string // Journal operation (read entries, create table, insert entry, ...)
	Err       error  // Underlying error
}

func (e *Error) Error() string {
	return fmt.Sprintf("journal %s: %s: %v", e.Table, e.Operation, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a journal Error.
func NewError(table, operation string, err error) *Error {
	return &Error{Table: table, Operation: operation, Err: err}
}
