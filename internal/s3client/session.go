package s3client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"s3transfer/internal/storage"
)

// writeSession streams bytes through a pipe into the managed uploader,
// which runs in its own goroutine from open until the pipe is closed.
type writeSession struct {
	id     storage.ObjectID
	pw     *io.PipeWriter
	cancel context.CancelFunc
	done   chan struct{}

	// out and err are written once before done is closed.
	out *manager.UploadOutput
	err error
}

func (c *Client) OpenWriteSession(ctx context.Context, id storage.ObjectID, opts storage.WriteOptions) (storage.WriteSession, error) {
	if id.Bucket == "" || id.Name == "" {
		return nil, storage.NewError("openWriteSession", id, errors.New("bucket and key are required"))
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(id.Bucket),
		Key:    aws.String(id.Name),
	}
	applyPutOptions(input, id.Name, opts)

	pr, pw := io.Pipe()
	input.Body = pr

	uploadCtx, cancel := context.WithCancel(ctx)
	s := &writeSession{
		id:     id,
		pw:     pw,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		s.out, s.err = c.uploader.Upload(uploadCtx, input)
		// Unblock writers if the upload stopped reading early.
		pr.CloseWithError(s.err)
	}()
	return s, nil
}

func (s *writeSession) Write(p []byte) (int, error) {
	return s.pw.Write(p)
}

func (s *writeSession) Abort(err error) {
	if err == nil {
		err = errors.New("write session aborted")
	}
	s.pw.CloseWithError(err)
	s.cancel()
}

func (s *writeSession) AwaitResult(ctx context.Context, timeout time.Duration) (storage.ObjectID, error) {
	s.pw.Close()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-s.done:
	case <-expired:
		s.cancel()
		return storage.ObjectID{}, storage.NewError("awaitResult", s.id, fmt.Errorf("%w after %s", storage.ErrTimeout, timeout))
	case <-ctx.Done():
		s.cancel()
		return storage.ObjectID{}, storage.NewError("awaitResult", s.id, ctx.Err())
	}
	defer s.cancel()

	if s.err != nil {
		return storage.ObjectID{}, wrapError("awaitResult", s.id, s.err)
	}
	return withGeneration(s.id, s.out.ETag), nil
}
