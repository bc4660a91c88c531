package sidecar

import (
	"errors"
	"fmt"
)

// Common errors returned by supervisor operations
var (
	// ErrSpawn indicates the sidecar executable could not be launched
	ErrSpawn = errors.New("sidecar: spawn failed")

	// ErrNotReady indicates the sidecar did not become ready within the
	// configured readiness timeout
	ErrNotReady = errors.New("sidecar: not ready within timeout")

	// ErrKill indicates the termination primitive failed
	ErrKill = errors.New("sidecar: kill failed")

	// ErrTimeout indicates an operation exceeded its timeout
	ErrTimeout = errors.New("sidecar: timeout")

	// ErrConfig indicates the supervisor configuration is invalid
	ErrConfig = errors.New("sidecar: invalid config")
)

// OpError represents an error from a supervisor or tool operation
type OpError struct {
	// Op is the operation that failed
	Op Operation
	// Bin is the executable involved in the operation
	Bin string
	// Err is the underlying error
	Err error
}

// Error returns a formatted error message
func (e *OpError) Error() string {
	return fmt.Sprintf("sidecar %s %q: %v", e.Op.String(), e.Bin, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *OpError) Unwrap() error {
	return e.Err
}

// MultiError aggregates multiple errors from bulk operations
type MultiError struct {
	// Errors contains all accumulated errors
	Errors []error
}

// Error returns a summary of the accumulated errors
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors occurred", len(m.Errors))
}

// Add appends an error to the collection if it's not nil
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// Err returns nil if no errors occurred, otherwise returns the MultiError itself
func (m *MultiError) Err() error {
	if len(m.Errors) == 0 {
		return nil
	}
	return m
}
