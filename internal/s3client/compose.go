package s3client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"s3transfer/internal/storage"
)

// ComposeParts concatenates parts into target with a multipart upload whose
// parts are server-side copies. The multipart upload is aborted on any
// failure; after success the part objects are deleted.
func (c *Client) ComposeParts(ctx context.Context, parts []storage.ObjectID, target storage.ObjectID, opts storage.WriteOptions) (result storage.ObjectID, err error) {
	if len(parts) == 0 {
		return storage.ObjectID{}, storage.NewError("composeParts", target, errors.New("no parts to compose"))
	}

	create := &s3.CreateMultipartUploadInput{
		Bucket:      aws.String(target.Bucket),
		Key:         aws.String(target.Name),
		ContentType: aws.String(contentType(target.Name, opts.ContentType)),
	}
	if opts.CacheControl != "" {
		create.CacheControl = aws.String(opts.CacheControl)
	}
	if opts.StorageClass != "" {
		create.StorageClass = types.StorageClass(opts.StorageClass)
	}
	if len(opts.Metadata) > 0 {
		create.Metadata = opts.Metadata
	}
	createOut, err := c.api.CreateMultipartUpload(ctx, create)
	if err != nil {
		return storage.ObjectID{}, wrapError("composeParts", target, err)
	}
	uploadID := createOut.UploadId

	defer func() {
		if err == nil {
			return
		}
		_, abortErr := c.api.AbortMultipartUpload(context.WithoutCancel(ctx), &s3.AbortMultipartUploadInput{
			Bucket:   aws.String(target.Bucket),
			Key:      aws.String(target.Name),
			UploadId: uploadID,
		})
		if abortErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to abort multipart upload: %w", abortErr))
		}
	}()

	completed := make([]types.CompletedPart, 0, len(parts))
	for i, part := range parts {
		partNumber := aws.Int32(int32(i + 1))
		out, err := c.api.UploadPartCopy(ctx, &s3.UploadPartCopyInput{
			Bucket:     aws.String(target.Bucket),
			Key:        aws.String(target.Name),
			UploadId:   uploadID,
			PartNumber: partNumber,
			CopySource: aws.String(copySource(part)),
		})
		if err != nil {
			return storage.ObjectID{}, wrapError("composeParts", part, fmt.Errorf("failed to copy part %d: %w", i+1, err))
		}
		var etag *string
		if out.CopyPartResult != nil {
			etag = out.CopyPartResult.ETag
		}
		completed = append(completed, types.CompletedPart{ETag: etag, PartNumber: partNumber})
	}

	complete := &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(target.Bucket),
		Key:             aws.String(target.Name),
		UploadId:        uploadID,
		MultipartUpload: &types.CompletedMultipartUpload{Parts: completed},
	}
	if opts.DoesNotExist {
		complete.IfNoneMatch = aws.String("*")
	}
	completeOut, err := c.api.CompleteMultipartUpload(ctx, complete)
	if err != nil {
		return storage.ObjectID{}, wrapError("composeParts", target, err)
	}

	// Parts are garbage now; a failed delete only leaves debris for
	// cleanup-parts to collect.
	for _, part := range parts {
		_ = c.DeleteObject(context.WithoutCancel(ctx), part)
	}
	return withGeneration(target, completeOut.ETag), nil
}

// copySource renders id as the URL-encoded "bucket/key" form S3 expects in
// the x-amz-copy-source header. Slashes between key segments stay literal.
func copySource(id storage.ObjectID) string {
	segments := strings.Split(id.Name, "/")
	for i, segment := range segments {
		segments[i] = strings.ReplaceAll(url.QueryEscape(segment), "+", "%20")
	}
	return id.Bucket + "/" + strings.Join(segments, "/")
}
