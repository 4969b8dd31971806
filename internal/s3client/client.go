package s3client

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	appConfig "s3transfer/config"
	"s3transfer/internal/storage"
)

// Client binds storage.Client to S3 and S3-compatible endpoints.
type Client struct {
	api      S3API
	uploader *manager.Uploader
}

var _ storage.Client = (*Client)(nil)

func New(cfg *appConfig.Config) (*Client, error) {
	awsConfig, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.StaticCredentialsProvider{
			Value: aws.Credentials{
				AccessKeyID:     cfg.AccessKey,
				SecretAccessKey: cfg.SecretKey,
			},
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Client *s3.Client
	if cfg.ApiURL != "" {
		s3Client = s3.NewFromConfig(awsConfig, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.ApiURL)
			o.UsePathStyle = true
		})
	} else {
		s3Client = s3.NewFromConfig(awsConfig)
	}

	return NewWithAPI(s3Client, cfg.BufferSize), nil
}

// NewWithAPI wraps an existing S3 client. partSize sets the part size of
// streamed writes and is raised to the S3 minimum when smaller.
func NewWithAPI(api S3API, partSize int64) *Client {
	return &Client{
		api: api,
		uploader: manager.NewUploader(api, func(u *manager.Uploader) {
			u.PartSize = max(partSize, manager.MinUploadPartSize)
		}),
	}
}

func (c *Client) CreateObject(ctx context.Context, id storage.ObjectID, body io.ReadSeeker, opts storage.WriteOptions) (storage.ObjectID, error) {
	size, err := remaining(body)
	if err != nil {
		return storage.ObjectID{}, storage.NewError("createObject", id, err)
	}
	input := &s3.PutObjectInput{
		Bucket:        aws.String(id.Bucket),
		Key:           aws.String(id.Name),
		Body:          body,
		ContentLength: aws.Int64(size),
	}
	applyPutOptions(input, id.Name, opts)

	out, err := c.api.PutObject(ctx, input)
	if err != nil {
		return storage.ObjectID{}, wrapError("createObject", id, err)
	}
	return withGeneration(id, out.ETag), nil
}

func (c *Client) OpenReadStream(ctx context.Context, id storage.ObjectID, rng *storage.Range, opts storage.ReadOptions) (storage.ReadStream, error) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(id.Bucket),
		Key:    aws.String(id.Name),
	}
	if rng != nil {
		if rng.Len() <= 0 {
			return nil, storage.NewError("openReadStream", id, fmt.Errorf("empty range %d-%d", rng.Start, rng.End))
		}
		input.Range = aws.String(rangeHeader(*rng))
	}
	if opts.Generation != "" {
		input.IfMatch = aws.String(opts.Generation)
	}

	out, err := c.api.GetObject(ctx, input)
	if err != nil {
		return nil, wrapError("openReadStream", id, err)
	}
	size := int64(-1)
	if out.ContentLength != nil {
		size = *out.ContentLength
	}
	return &readStream{
		ReadCloser: out.Body,
		generation: aws.ToString(out.ETag),
		size:       size,
	}, nil
}

func (c *Client) StatObject(ctx context.Context, id storage.ObjectID) (storage.ObjectInfo, error) {
	out, err := c.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(id.Bucket),
		Key:    aws.String(id.Name),
	})
	if err != nil {
		return storage.ObjectInfo{}, wrapError("statObject", id, err)
	}
	return storage.ObjectInfo{
		ObjectID:     withGeneration(id, out.ETag),
		Size:         aws.ToInt64(out.ContentLength),
		ContentType:  aws.ToString(out.ContentType),
		LastModified: aws.ToTime(out.LastModified),
	}, nil
}

func (c *Client) DeleteObject(ctx context.Context, id storage.ObjectID) error {
	_, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(id.Bucket),
		Key:    aws.String(id.Name),
	})
	if err != nil {
		return wrapError("deleteObject", id, err)
	}
	return nil
}

type readStream struct {
	io.ReadCloser
	generation string
	size       int64
}

func (r *readStream) Generation() string { return r.generation }
func (r *readStream) Size() int64        { return r.size }

// remaining returns the number of bytes between the current offset of r
// and its end, leaving the offset unchanged.
func remaining(r io.Seeker) (int64, error) {
	cur, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	end, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := r.Seek(cur, io.SeekStart); err != nil {
		return 0, err
	}
	return end - cur, nil
}

// rangeHeader renders a half-open range as an inclusive HTTP byte range.
func rangeHeader(r storage.Range) string {
	return fmt.Sprintf("bytes=%d-%d", r.Start, r.End-1)
}

func withGeneration(id storage.ObjectID, etag *string) storage.ObjectID {
	id.Generation = aws.ToString(etag)
	return id
}

func applyPutOptions(input *s3.PutObjectInput, key string, opts storage.WriteOptions) {
	input.ContentType = aws.String(contentType(key, opts.ContentType))
	if opts.DoesNotExist {
		input.IfNoneMatch = aws.String("*")
	}
	if opts.CacheControl != "" {
		input.CacheControl = aws.String(opts.CacheControl)
	}
	if opts.StorageClass != "" {
		input.StorageClass = types.StorageClass(opts.StorageClass)
	}
	if len(opts.Metadata) > 0 {
		input.Metadata = opts.Metadata
	}
}
