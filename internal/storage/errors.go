package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested object does not exist.
	ErrNotFound = errors.New("storage: object not found")

	// ErrPreconditionFailed indicates a write or read precondition
	// (does-not-exist, generation match) was not met.
	ErrPreconditionFailed = errors.New("storage: precondition failed")

	// ErrTimeout indicates a bounded wait expired.
	ErrTimeout = errors.New("storage: operation timed out")
)

// Error is a storage failure with the operation and object it concerns.
type Error struct {
	Op     string
	Bucket string
	Key    string
	Err    error
}

func (e *Error) Error() string {
	if e.Bucket != "" && e.Key != "" {
		return fmt.Sprintf("storage.%s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
	}
	if e.Bucket != "" {
		return fmt.Sprintf("storage.%s bucket %s: %v", e.Op, e.Bucket, e.Err)
	}
	return fmt.Sprintf("storage.%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with the operation and object identity.
func NewError(op string, id ObjectID, err error) *Error {
	return &Error{Op: op, Bucket: id.Bucket, Key: id.Name, Err: err}
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsPreconditionFailed(err error) bool {
	return errors.Is(err, ErrPreconditionFailed)
}
