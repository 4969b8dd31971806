package transfer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"s3transfer/internal/storage"
	"s3transfer/internal/storage/storagetest"
)

func splitConfig(threshold, buffer int64) func(*EngineConfig) {
	return func(c *EngineConfig) {
		c.AllowSplitDownload = true
		c.SplitThreshold = threshold
		c.PerWorkerBufferSize = buffer
	}
}

func target(name string) storage.ObjectInfo {
	return storage.ObjectInfo{ObjectID: storage.ObjectID{Name: name}}
}

func TestDownloadManyWhole(t *testing.T) {
	dir := t.TempDir()
	store := storagetest.New()
	store.Put("bkt", "docs/a.txt", []byte("alpha"))
	store.Put("bkt", "b.txt", []byte("bravo"))
	m := newTestManager(t, store, nil)

	job, err := m.DownloadMany(context.Background(),
		[]storage.ObjectInfo{target("docs/a.txt"), target("b.txt")},
		DownloadConfig{Bucket: "bkt", DownloadDir: dir})
	require.NoError(t, err)

	require.Equal(t, 2, job.Len())
	assert.Equal(t, DownloadJob, job.Kind)
	assert.False(t, job.AnyFailed())

	first := job.Results[0]
	assert.Equal(t, Success, first.Status)
	assert.Equal(t, filepath.Join(dir, "docs", "a.txt"), first.Path)
	assert.Equal(t, first.Path, first.Output())
	assert.Equal(t, "1", first.Generation)

	data, err := os.ReadFile(first.Path)
	require.NoError(t, err)
	assert.Equal(t, []byte("alpha"), data)
	assert.Empty(t, store.Reads(), "whole downloads issue no ranged reads")
	assert.Zero(t, store.Calls("stat"), "no stat when split downloads are disabled")
}

func TestDownloadManySplit(t *testing.T) {
	// 200 bytes with a 128 byte threshold and 16 byte chunks has the same
	// shape as 200MiB with the default settings.
	dir := t.TempDir()
	data := pattern(200)
	store := storagetest.New()
	store.Put("bkt", "big.bin", data)
	m := newTestManager(t, store, splitConfig(128, 16))

	job, err := m.DownloadMany(context.Background(), []storage.ObjectInfo{target("big.bin")},
		DownloadConfig{Bucket: "bkt", DownloadDir: dir})
	require.NoError(t, err)

	res := job.Results[0]
	require.Equal(t, Success, res.Status, "%v", res.Err)
	assert.Equal(t, filepath.Join(dir, "big.bin"), res.Path)
	assert.Equal(t, "1", res.Generation)
	assert.Equal(t, 1, store.Calls("stat"))

	reads := store.Reads()
	assert.Len(t, reads, 13)
	assert.ElementsMatch(t, computeRanges(200, 16), reads)

	got, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestDownloadManyListedMetadataSkipsProbe(t *testing.T) {
	dir := t.TempDir()
	store := storagetest.New()
	id := store.Put("bkt", "big.bin", pattern(40))
	m := newTestManager(t, store, splitConfig(16, 10))

	info := storage.ObjectInfo{ObjectID: id, Size: 40}
	job, err := m.DownloadMany(context.Background(), []storage.ObjectInfo{info},
		DownloadConfig{Bucket: "bkt", DownloadDir: dir})
	require.NoError(t, err)

	assert.Equal(t, Success, job.Results[0].Status)
	assert.Zero(t, store.Calls("stat"))
	assert.Len(t, store.Reads(), 4)
}

func TestDownloadManyShortRange(t *testing.T) {
	dir := t.TempDir()
	store := storagetest.New()
	store.Put("bkt", "obj", pattern(30))
	store.TruncateHook = func(_ storage.ObjectID, rng *storage.Range) int64 {
		if rng != nil && rng.Start == 10 {
			return 1
		}
		return 0
	}
	m := newTestManager(t, store, splitConfig(10, 10))

	job, err := m.DownloadMany(context.Background(), []storage.ObjectInfo{target("obj")},
		DownloadConfig{Bucket: "bkt", DownloadDir: dir})
	require.NoError(t, err)

	res := job.Results[0]
	assert.Equal(t, FailedToFinish, res.Status)
	var countErr *ByteCountError
	require.ErrorAs(t, res.Err, &countErr)
	assert.Equal(t, int64(10), countErr.Expected)
	assert.Equal(t, int64(9), countErr.Actual)
	assert.Empty(t, res.Output())
	assert.True(t, job.AnyFailed())

	_, err = os.Stat(filepath.Join(dir, "obj"))
	assert.ErrorIs(t, err, os.ErrNotExist, "incomplete downloads are removed")
}

func TestDownloadManyShortWhole(t *testing.T) {
	dir := t.TempDir()
	store := storagetest.New()
	store.Put("bkt", "obj", []byte("0123456789"))
	store.TruncateHook = func(storage.ObjectID, *storage.Range) int64 { return 1 }
	m := newTestManager(t, store, nil)

	job, err := m.DownloadMany(context.Background(), []storage.ObjectInfo{target("obj")},
		DownloadConfig{Bucket: "bkt", DownloadDir: dir})
	require.NoError(t, err)

	res := job.Results[0]
	assert.Equal(t, FailedToFinish, res.Status)
	var countErr *ByteCountError
	require.ErrorAs(t, res.Err, &countErr)
	assert.Equal(t, &ByteCountError{Expected: 10, Actual: 9}, countErr)
}

func TestDownloadManyRangeOpenFailure(t *testing.T) {
	dir := t.TempDir()
	store := storagetest.New()
	store.Put("bkt", "obj", pattern(30))
	store.ReadHook = func(_ storage.ObjectID, rng *storage.Range) error {
		if rng != nil && rng.Start == 20 {
			return errors.New("stream refused")
		}
		return nil
	}
	m := newTestManager(t, store, splitConfig(10, 10))

	job, err := m.DownloadMany(context.Background(), []storage.ObjectInfo{target("obj")},
		DownloadConfig{Bucket: "bkt", DownloadDir: dir})
	require.NoError(t, err)
	assert.Equal(t, FailedToStart, job.Results[0].Status)
}

func TestDownloadManyMissingObject(t *testing.T) {
	dir := t.TempDir()
	store := storagetest.New()
	store.Put("bkt", "present.txt", []byte("here"))

	for name, mutate := range map[string]func(*EngineConfig){
		"whole":          nil,
		"stat fallback": splitConfig(1, 1),
	} {
		t.Run(name, func(t *testing.T) {
			m := newTestManager(t, store, mutate)
			job, err := m.DownloadMany(context.Background(),
				[]storage.ObjectInfo{target("missing.txt"), target("present.txt")},
				DownloadConfig{Bucket: "bkt", DownloadDir: dir})
			require.NoError(t, err)

			require.Equal(t, 2, job.Len())
			assert.Equal(t, FailedToStart, job.Results[0].Status)
			assert.True(t, storage.IsNotFound(job.Results[0].Err))
			assert.Equal(t, Success, job.Results[1].Status)

			_, err = os.Stat(filepath.Join(dir, "missing.txt"))
			assert.ErrorIs(t, err, os.ErrNotExist)
		})
	}
}

func TestDownloadManyGenerationMismatch(t *testing.T) {
	store := storagetest.New()
	id := store.Put("bkt", "obj", []byte("v1"))
	store.Put("bkt", "obj", []byte("v2"))
	m := newTestManager(t, store, nil)

	job, err := m.DownloadMany(context.Background(), []storage.ObjectInfo{{ObjectID: id}},
		DownloadConfig{Bucket: "bkt", DownloadDir: t.TempDir()})
	require.NoError(t, err)

	assert.Equal(t, FailedToStart, job.Results[0].Status)
	assert.True(t, storage.IsPreconditionFailed(job.Results[0].Err))
}

func TestDownloadManyStripPrefix(t *testing.T) {
	dir := t.TempDir()
	store := storagetest.New()
	store.Put("bkt", "backups/2024/a.txt", []byte("a"))
	m := newTestManager(t, store, nil)

	job, err := m.DownloadMany(context.Background(), []storage.ObjectInfo{target("backups/2024/a.txt")},
		DownloadConfig{Bucket: "bkt", DownloadDir: dir, StripPrefix: "backups/"})
	require.NoError(t, err)

	require.Equal(t, Success, job.Results[0].Status)
	assert.Equal(t, filepath.Join(dir, "2024", "a.txt"), job.Results[0].Path)
}

func TestDownloadManyRejectedItems(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "exists.txt"), []byte("local"))
	store := storagetest.New()
	store.Put("bkt", "exists.txt", []byte("remote"))
	store.Put("bkt", "../escape.txt", []byte("x"))
	store.Put("other", "a.txt", []byte("x"))
	m := newTestManager(t, store, nil)

	targets := []storage.ObjectInfo{
		target("exists.txt"),
		target("../escape.txt"),
		{ObjectID: storage.ObjectID{Bucket: "other", Name: "a.txt"}},
	}
	job, err := m.DownloadMany(context.Background(), targets,
		DownloadConfig{Bucket: "bkt", DownloadDir: dir, SkipIfExists: true})
	require.NoError(t, err)

	require.Equal(t, len(targets), job.Len())
	assert.Equal(t, Skipped, job.Results[0].Status)
	assert.Equal(t, FailedToStart, job.Results[1].Status)
	assert.ErrorIs(t, job.Results[1].Err, ErrPathTraversal)
	assert.Equal(t, FailedToStart, job.Results[2].Status)
	assert.ErrorIs(t, job.Results[2].Err, ErrBucketMismatch)
	assert.Zero(t, store.Calls("read"), "rejected items schedule no work")

	data, err := os.ReadFile(filepath.Join(dir, "exists.txt"))
	require.NoError(t, err)
	assert.Equal(t, []byte("local"), data)
}

func TestDownloadManyEmptyName(t *testing.T) {
	m := newTestManager(t, storagetest.New(), nil)
	_, err := m.DownloadMany(context.Background(), []storage.ObjectInfo{target("")},
		DownloadConfig{Bucket: "bkt"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestDownloadManyClosedManager(t *testing.T) {
	m := newTestManager(t, storagetest.New(), nil)
	require.NoError(t, m.Close())
	_, err := m.DownloadMany(context.Background(), nil, DownloadConfig{Bucket: "bkt"})
	assert.ErrorIs(t, err, ErrManagerClosed)
}

func TestDownloadManyConcurrentBatches(t *testing.T) {
	store := storagetest.New()
	for _, name := range []string{"a", "b", "c", "d"} {
		store.Put("bkt", name, pattern(64))
	}
	m := newTestManager(t, store, splitConfig(16, 8))

	errs := make(chan error, 2)
	jobs := make(chan *Job, 2)
	for range 2 {
		go func() {
			job, err := m.DownloadMany(context.Background(),
				[]storage.ObjectInfo{target("a"), target("b"), target("c"), target("d")},
				DownloadConfig{Bucket: "bkt", DownloadDir: t.TempDir()})
			errs <- err
			jobs <- job
		}()
	}
	for range 2 {
		require.NoError(t, <-errs)
		job := <-jobs
		assert.Equal(t, 4, job.Len())
		assert.Equal(t, 4, job.Count(Success))
	}
}
