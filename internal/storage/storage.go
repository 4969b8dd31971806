// Package storage defines the single-object operations the transfer engine
// needs from an object store.
package storage

import (
	"context"
	"io"
	"time"
)

// ObjectID identifies one object. Generation is an opaque version token
// (an ETag on S3); empty means "unknown / latest".
type ObjectID struct {
	Bucket     string `json:"bucket"`
	Name       string `json:"name"`
	Generation string `json:"generation,omitempty"`
}

func (id ObjectID) String() string {
	return id.Bucket + "/" + id.Name
}

// ObjectInfo is object metadata as returned by a listing or a stat call.
type ObjectInfo struct {
	ObjectID
	Size         int64
	ContentType  string
	LastModified time.Time
}

// Range is a half-open byte range [Start, End).
type Range struct {
	Start int64
	End   int64
}

func (r Range) Len() int64 {
	return r.End - r.Start
}

// WriteOptions are applied verbatim to every write of a batch.
type WriteOptions struct {
	// DoesNotExist makes the write fail with ErrPreconditionFailed when the
	// target object already exists.
	DoesNotExist bool
	ContentType  string
	CacheControl string
	StorageClass string
	Metadata     map[string]string
}

// ReadOptions are applied verbatim to every read of a batch.
type ReadOptions struct {
	// Generation pins the read to one object version; a mismatch fails with
	// ErrPreconditionFailed.
	Generation string
}

// ReadStream is an open object read. Generation reports the version being
// read and Size the number of bytes the server promised for this stream
// (-1 when unknown).
type ReadStream interface {
	io.ReadCloser
	Generation() string
	Size() int64
}

// WriteSession streams one object. The object becomes visible only after
// AwaitResult succeeds.
type WriteSession interface {
	io.Writer
	// AwaitResult finishes the write and waits at most timeout for the
	// store's verdict. A zero timeout waits until ctx is done.
	AwaitResult(ctx context.Context, timeout time.Duration) (ObjectID, error)
	// Abort discards the session.
	Abort(err error)
}

// Client is the single-object storage collaborator.
type Client interface {
	// CreateObject writes body as one object. body is read from its current
	// offset to EOF and may be sought to determine its length.
	CreateObject(ctx context.Context, id ObjectID, body io.ReadSeeker, opts WriteOptions) (ObjectID, error)
	OpenWriteSession(ctx context.Context, id ObjectID, opts WriteOptions) (WriteSession, error)
	// OpenReadStream opens id for reading; rng == nil reads the whole object.
	OpenReadStream(ctx context.Context, id ObjectID, rng *Range, opts ReadOptions) (ReadStream, error)
	// ComposeParts concatenates parts, in order, into target.
	ComposeParts(ctx context.Context, parts []ObjectID, target ObjectID, opts WriteOptions) (ObjectID, error)
	StatObject(ctx context.Context, id ObjectID) (ObjectInfo, error)
	DeleteObject(ctx context.Context, id ObjectID) error
}
