package s3client

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"

	"s3transfer/internal/storage"
)

// wrapError maps S3 error codes onto the storage sentinels and attaches
// the operation and object.
func wrapError(op string, id storage.ObjectID, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "PreconditionFailed", "ConditionalRequestConflict":
			err = fmt.Errorf("%w: %w", storage.ErrPreconditionFailed, err)
		case "NoSuchKey", "NotFound":
			err = fmt.Errorf("%w: %w", storage.ErrNotFound, err)
		}
	}
	return storage.NewError(op, id, err)
}
