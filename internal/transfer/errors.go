package transfer

import (
	"errors"
	"fmt"
)

var (
	// ErrDirectory is returned synchronously when an upload batch names a
	// directory instead of a file.
	ErrDirectory = errors.New("transfer: directories are not supported")

	// ErrInvalidConfig wraps every configuration validation failure.
	ErrInvalidConfig = errors.New("transfer: invalid configuration")

	// ErrManagerClosed is returned when a batch is started on a closed Manager.
	ErrManagerClosed = errors.New("transfer: manager closed")

	// ErrPathTraversal marks a download whose destination escapes the
	// download directory.
	ErrPathTraversal = errors.New("transfer: destination escapes download directory")

	// ErrDuplicateObject marks an upload whose derived object name was
	// already claimed by an earlier item of the same batch.
	ErrDuplicateObject = errors.New("transfer: object name already used in this batch")

	// ErrBucketMismatch marks a download target outside the configured bucket.
	ErrBucketMismatch = errors.New("transfer: object bucket does not match configured bucket")
)

// ByteCountError reports a ranged or whole-object read that delivered a
// different number of bytes than expected.
type ByteCountError struct {
	Expected int64
	Actual   int64
}

func (e *ByteCountError) Error() string {
	return fmt.Sprintf("transfer: byte count mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// PanicError wraps a panic recovered inside a unit executor.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("transfer: executor panic: %v", e.Value)
}
