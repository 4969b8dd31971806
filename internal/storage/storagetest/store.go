// Package storagetest provides an in-memory storage.Client for tests.
package storagetest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"s3transfer/internal/storage"
)

type object struct {
	data        []byte
	generation  string
	contentType string
	modified    time.Time
}

// Store is a goroutine-safe in-memory object store. The hook fields, when
// set, run before the corresponding operation and can inject failures.
type Store struct {
	// CreateHook fails CreateObject when it returns an error.
	CreateHook func(id storage.ObjectID) error
	// OpenWriteHook fails OpenWriteSession when it returns an error.
	OpenWriteHook func(id storage.ObjectID) error
	// AwaitHook fails WriteSession.AwaitResult when it returns an error.
	AwaitHook func(id storage.ObjectID) error
	// ReadHook fails OpenReadStream when it returns an error.
	ReadHook func(id storage.ObjectID, rng *storage.Range) error
	// TruncateHook returns how many trailing bytes a stream silently drops.
	TruncateHook func(id storage.ObjectID, rng *storage.Range) int64
	// ComposeHook fails ComposeParts when it returns an error.
	ComposeHook func(target storage.ObjectID) error

	mu      sync.Mutex
	objects map[string]*object
	nextGen int
	reads   []storage.Range
	calls   map[string]int
}

var _ storage.Client = (*Store)(nil)

func New() *Store {
	return &Store{
		objects: make(map[string]*object),
		calls:   make(map[string]int),
	}
}

func key(id storage.ObjectID) string {
	return id.Bucket + "/" + id.Name
}

// Put seeds an object and returns its identity with the new generation.
func (s *Store) Put(bucket, name string, data []byte) storage.ObjectID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putLocked(storage.ObjectID{Bucket: bucket, Name: name}, data, "")
}

func (s *Store) putLocked(id storage.ObjectID, data []byte, contentType string) storage.ObjectID {
	s.nextGen++
	gen := strconv.Itoa(s.nextGen)
	s.objects[key(id)] = &object{
		data:        append([]byte(nil), data...),
		generation:  gen,
		contentType: contentType,
		modified:    time.Now(),
	}
	return storage.ObjectID{Bucket: id.Bucket, Name: id.Name, Generation: gen}
}

// Get returns a copy of the stored bytes.
func (s *Store) Get(bucket, name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[bucket+"/"+name]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), obj.data...), true
}

// Len returns the number of stored objects.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// Calls returns how many times op was invoked.
func (s *Store) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// Reads returns every range requested through OpenReadStream.
func (s *Store) Reads() []storage.Range {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]storage.Range(nil), s.reads...)
}

func (s *Store) count(op string) {
	s.mu.Lock()
	s.calls[op]++
	s.mu.Unlock()
}

func (s *Store) CreateObject(ctx context.Context, id storage.ObjectID, body io.ReadSeeker, opts storage.WriteOptions) (storage.ObjectID, error) {
	s.count("create")
	if s.CreateHook != nil {
		if err := s.CreateHook(id); err != nil {
			return storage.ObjectID{}, storage.NewError("createObject", id, err)
		}
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return storage.ObjectID{}, storage.NewError("createObject", id, err)
	}
	return s.commit(ctx, "createObject", id, data, opts)
}

func (s *Store) commit(ctx context.Context, op string, id storage.ObjectID, data []byte, opts storage.WriteOptions) (storage.ObjectID, error) {
	if err := ctx.Err(); err != nil {
		return storage.ObjectID{}, storage.NewError(op, id, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.objects[key(id)]; exists && opts.DoesNotExist {
		return storage.ObjectID{}, storage.NewError(op, id, storage.ErrPreconditionFailed)
	}
	return s.putLocked(id, data, opts.ContentType), nil
}

func (s *Store) OpenWriteSession(ctx context.Context, id storage.ObjectID, opts storage.WriteOptions) (storage.WriteSession, error) {
	s.count("openWrite")
	if s.OpenWriteHook != nil {
		if err := s.OpenWriteHook(id); err != nil {
			return nil, storage.NewError("openWriteSession", id, err)
		}
	}
	return &session{store: s, id: id, opts: opts}, nil
}

type session struct {
	store   *Store
	id      storage.ObjectID
	opts    storage.WriteOptions
	buf     bytes.Buffer
	aborted error
}

func (w *session) Write(p []byte) (int, error) {
	if w.aborted != nil {
		return 0, w.aborted
	}
	return w.buf.Write(p)
}

func (w *session) Abort(err error) {
	if err == nil {
		err = fmt.Errorf("session aborted")
	}
	w.aborted = err
}

func (w *session) AwaitResult(ctx context.Context, timeout time.Duration) (storage.ObjectID, error) {
	if w.aborted != nil {
		return storage.ObjectID{}, w.aborted
	}
	if w.store.AwaitHook != nil {
		if err := w.store.AwaitHook(w.id); err != nil {
			return storage.ObjectID{}, storage.NewError("awaitResult", w.id, err)
		}
	}
	return w.store.commit(ctx, "awaitResult", w.id, w.buf.Bytes(), w.opts)
}

func (s *Store) OpenReadStream(ctx context.Context, id storage.ObjectID, rng *storage.Range, opts storage.ReadOptions) (storage.ReadStream, error) {
	s.count("read")
	if s.ReadHook != nil {
		if err := s.ReadHook(id, rng); err != nil {
			return nil, storage.NewError("openReadStream", id, err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if rng != nil {
		s.reads = append(s.reads, *rng)
	}
	obj, ok := s.objects[key(id)]
	if !ok {
		return nil, storage.NewError("openReadStream", id, storage.ErrNotFound)
	}
	if opts.Generation != "" && opts.Generation != obj.generation {
		return nil, storage.NewError("openReadStream", id, storage.ErrPreconditionFailed)
	}
	data := obj.data
	if rng != nil {
		end := rng.End
		if end > int64(len(data)) {
			end = int64(len(data))
		}
		if rng.Start > end {
			return nil, storage.NewError("openReadStream", id, fmt.Errorf("invalid range %d-%d", rng.Start, rng.End))
		}
		data = data[rng.Start:end]
	}
	size := int64(len(data))
	if s.TruncateHook != nil {
		if drop := s.TruncateHook(id, rng); drop > 0 && drop <= int64(len(data)) {
			data = data[:int64(len(data))-drop]
		}
	}
	return &stream{
		Reader:     bytes.NewReader(append([]byte(nil), data...)),
		generation: obj.generation,
		size:       size,
	}, nil
}

type stream struct {
	io.Reader
	generation string
	size       int64
}

func (r *stream) Close() error       { return nil }
func (r *stream) Generation() string { return r.generation }
func (r *stream) Size() int64        { return r.size }

func (s *Store) ComposeParts(ctx context.Context, parts []storage.ObjectID, target storage.ObjectID, opts storage.WriteOptions) (storage.ObjectID, error) {
	s.count("compose")
	if s.ComposeHook != nil {
		if err := s.ComposeHook(target); err != nil {
			return storage.ObjectID{}, storage.NewError("composeParts", target, err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.objects[key(target)]; exists && opts.DoesNotExist {
		return storage.ObjectID{}, storage.NewError("composeParts", target, storage.ErrPreconditionFailed)
	}
	var buf bytes.Buffer
	for _, p := range parts {
		obj, ok := s.objects[key(p)]
		if !ok {
			return storage.ObjectID{}, storage.NewError("composeParts", p, storage.ErrNotFound)
		}
		buf.Write(obj.data)
	}
	for _, p := range parts {
		delete(s.objects, key(p))
	}
	return s.putLocked(target, buf.Bytes(), opts.ContentType), nil
}

func (s *Store) StatObject(ctx context.Context, id storage.ObjectID) (storage.ObjectInfo, error) {
	s.count("stat")
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[key(id)]
	if !ok {
		return storage.ObjectInfo{}, storage.NewError("statObject", id, storage.ErrNotFound)
	}
	return storage.ObjectInfo{
		ObjectID:     storage.ObjectID{Bucket: id.Bucket, Name: id.Name, Generation: obj.generation},
		Size:         int64(len(obj.data)),
		ContentType:  obj.contentType,
		LastModified: obj.modified,
	}, nil
}

func (s *Store) DeleteObject(ctx context.Context, id storage.ObjectID) error {
	s.count("delete")
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key(id)]; !ok {
		return storage.NewError("deleteObject", id, storage.ErrNotFound)
	}
	delete(s.objects, key(id))
	return nil
}
