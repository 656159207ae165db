package store

import "fmt"

// StorageError represents an error from the database driver.
type StorageError struct {
	Driver    string // Driver name ("sqlite", "postgres", etc.)
	Operation string // Operation that failed ("open", "ping", "begin", etc.)
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [driver=%s, operation=%s]: %v", e.Driver, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(driver, operation string, cause error) *StorageError {
	return &StorageError{
		Driver:    driver,
		Operation: operation,
		Cause:     cause,
	}
}
