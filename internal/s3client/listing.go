package s3client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"s3transfer/internal/models"
	"s3transfer/internal/storage"
	"s3transfer/pkg/utils"
)

const maxDeleteBatch = 1000

// ListObjects returns every object under prefix. Keys ending in "/" are
// folder markers and are left out.
func (c *Client) ListObjects(ctx context.Context, bucket, prefix string) ([]storage.ObjectInfo, error) {
	var objects []storage.ObjectInfo
	paginator := s3.NewListObjectsV2Paginator(c.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, "/") {
				continue
			}
			objects = append(objects, storage.ObjectInfo{
				ObjectID:     storage.ObjectID{Bucket: bucket, Name: key, Generation: aws.ToString(obj.ETag)},
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}
	return objects, nil
}

// DeleteOldObjects removes objects under prefix that were last modified
// more than daysOld days ago and satisfy match. A nil match accepts every
// key. With dryRun the candidates are reported but nothing is deleted.
func (c *Client) DeleteOldObjects(ctx context.Context, bucket, prefix string, daysOld int, match func(key string) bool, dryRun bool) (*models.DeleteResult, error) {
	cutoffDate := time.Now().AddDate(0, 0, -daysOld)

	var toDelete []types.ObjectIdentifier
	var candidates []string
	var totalSize int64

	paginator := s3.NewListObjectsV2Paginator(c.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}

		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if obj.LastModified == nil || !obj.LastModified.Before(cutoffDate) {
				continue
			}
			if match != nil && !match(key) {
				continue
			}
			toDelete = append(toDelete, types.ObjectIdentifier{Key: obj.Key})
			candidates = append(candidates, key)
			totalSize += aws.ToInt64(obj.Size)
		}
	}

	result := &models.DeleteResult{
		BucketName:     bucket,
		Prefix:         prefix,
		DaysOld:        daysOld,
		DryRun:         dryRun,
		DeletedFiles:   candidates,
		TotalSizeBytes: totalSize,
		TotalSizeHuman: utils.FormatBytes(totalSize),
		OperationTime:  utils.FormatTime(time.Now()),
		CutoffDate:     utils.FormatTime(cutoffDate),
	}
	if dryRun {
		return result, nil
	}

	for start := 0; start < len(toDelete); start += maxDeleteBatch {
		batch := toDelete[start:min(start+maxDeleteBatch, len(toDelete))]
		out, err := c.api.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(bucket),
			Delete: &types.Delete{
				Objects: batch,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to delete objects batch: %w", err)
		}
		for _, e := range out.Errors {
			result.FailedFiles = append(result.FailedFiles, aws.ToString(e.Key))
		}
		result.DeletedCount += len(batch) - len(out.Errors)
	}
	return result, nil
}
