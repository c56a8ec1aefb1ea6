package taskstore

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no task has the requested id.
	ErrNotFound = errors.New("task not found")

	// ErrIDsExhausted is returned by Add once the largest task id is taken.
	ErrIDsExhausted = errors.New("no task ids left")

	// ErrImport matches every *ImportError via errors.Is.
	ErrImport = errors.New("import failed")

	// ErrStorage matches every *StorageError via errors.Is.
	ErrStorage = errors.New("storage failed")
)

// ImportError reports a payload that could not be turned into a task
// collection. The collection is left untouched.
type ImportError struct {
	// Index is the position of the offending record, or -1 when the payload
	// as a whole was rejected.
	Index int
	Err   error
}

func (e *ImportError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("import failed at task %d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("import failed: %v", e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }

func (e *ImportError) Is(target error) bool { return target == ErrImport }

// StorageError reports a failed write to the persistence slot. The
// in-memory collection has been rolled back to its state before the call.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: failed to persist tasks: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }
