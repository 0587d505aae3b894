package providers

import (
	"errors"
	"fmt"
)

// ErrDirectoryNotFound indicates the configured script directory does not exist.
var ErrDirectoryNotFound = errors.New("script directory does not exist")

// FileSystemError wraps failures while discovering or reading script files.
type FileSystemError struct {
	Path      string // File or directory path
	Operation string // File operation (scan, read, match)
	Err       error  // Underlying error
}

func (e *FileSystemError) Error() string {
	return fmt.Sprintf("file system error (%s): %s: %v", e.Path, e.Operation, e.Err)
}

func (e *FileSystemError) Unwrap() error {
	return e.Err
}

func (e *FileSystemError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewFileSystemError creates a FileSystemError.
func NewFileSystemError(path, operation string, err error) *FileSystemError {
	return &FileSystemError{Path: path, Operation: operation, Err: err}
}
