package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"s3transfer/internal/storage"
)

// DownloadMany fetches every target object into cfg.DownloadDir and blocks
// until each one has a Result.
//
// Targets with an empty Bucket are taken from cfg.Bucket. A target with a
// positive Size and a Generation is planned from that metadata; otherwise,
// when split downloads are enabled, the object is stat-ed first. An object
// of unknown size is always downloaded whole.
func (m *Manager) DownloadMany(ctx context.Context, targets []storage.ObjectInfo, cfg DownloadConfig) (*Job, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if m.pool.isClosed() {
		return nil, ErrManagerClosed
	}
	for i, target := range targets {
		if target.Name == "" {
			return nil, fmt.Errorf("%w: download: target %d has no object name", ErrInvalidConfig, i)
		}
	}

	b := newBatch(DownloadJob, cfg.Bucket, len(targets))
	for i, target := range targets {
		st, res := m.planDownload(ctx, i, target, cfg)
		if st == nil {
			m.settle(b, i, res)
			continue
		}
		b.schedule(st)
	}
	return m.run(ctx, b), nil
}

func (m *Manager) planDownload(ctx context.Context, pos int, target storage.ObjectInfo, cfg DownloadConfig) (*itemState, Result) {
	id := target.ObjectID
	if id.Bucket == "" {
		id.Bucket = cfg.Bucket
	}
	item := Item{Object: id, Size: -1}
	if target.Size > 0 {
		item.Size = target.Size
	}
	whole := Unit{Kind: WholeUnit}
	reject := func(status Status, err error) (*itemState, Result) {
		return nil, failure(item, whole, status, err).Result
	}

	if id.Bucket != cfg.Bucket {
		return reject(FailedToStart, fmt.Errorf("%w: %s not in %s", ErrBucketMismatch, id, cfg.Bucket))
	}
	dest, err := destinationPath(cfg, id.Name)
	if err != nil {
		return reject(FailedToStart, err)
	}
	item.Destination = dest
	if cfg.SkipIfExists {
		if _, err := os.Stat(dest); err == nil {
			return reject(Skipped, fmt.Errorf("%s already exists", dest))
		}
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return reject(FailedToStart, err)
	}

	if m.cfg.AllowSplitDownload && (item.Size < 0 || id.Generation == "") {
		// Probe failures leave the item on the whole-object path, which
		// reports the real error if the object is unreadable.
		if info, err := m.client.StatObject(ctx, id); err == nil {
			item.Size = info.Size
			if item.Object.Generation == "" {
				item.Object.Generation = info.Generation
			}
		} else {
			m.logger.Debug("stat before split failed", "object", id.String(), "error", err)
		}
	}

	opts := cfg.ReadOptions
	if opts.Generation == "" {
		opts.Generation = item.Object.Generation
	}

	st := &itemState{pos: pos, item: item}
	if item.Size < 0 || !m.qos.SplitDownload(item.Size) {
		st.units = []Unit{whole}
		st.exec = func(ctx context.Context, _ Unit) UnitResult {
			return m.downloadWhole(ctx, item, opts)
		}
		return st, Result{}
	}

	// Planning holds no handle; each range opens the file while it runs.
	if err := createEmpty(dest); err != nil {
		return reject(FailedToStart, err)
	}
	st.units = splitUnits(RangeUnit, item.Size, m.qos.ChunkSize())
	st.exec = func(ctx context.Context, unit Unit) UnitResult {
		return m.downloadRange(ctx, item, unit, opts)
	}
	st.finalize = func(_ context.Context, acc UnitResult) UnitResult {
		return finishSplit(st.item, acc)
	}
	return st, Result{}
}

func (m *Manager) downloadWhole(ctx context.Context, item Item, opts storage.ReadOptions) UnitResult {
	unit := Unit{Kind: WholeUnit}
	stream, err := m.client.OpenReadStream(ctx, item.Object, nil, opts)
	if err != nil {
		return failure(item, unit, FailedToStart, err)
	}
	defer stream.Close()

	f, err := os.OpenFile(item.Destination, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return failure(item, unit, FailedToStart, err)
	}
	n, err := io.Copy(f, stream)
	if err == nil {
		if expected := stream.Size(); expected >= 0 && n != expected {
			err = &ByteCountError{Expected: expected, Actual: n}
		}
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	unit.End = n
	if err != nil {
		os.Remove(item.Destination)
		return failure(item, unit, FailedToFinish, err)
	}

	res := success(item, unit)
	res.Path = item.Destination
	res.Generation = stream.Generation()
	return res
}

// downloadRange copies one byte range into its offset of the destination
// file. Ranges never overlap, so concurrent writers need no coordination.
func (m *Manager) downloadRange(ctx context.Context, item Item, unit Unit, opts storage.ReadOptions) UnitResult {
	stream, err := m.client.OpenReadStream(ctx, item.Object, unit.storageRange(), opts)
	if err != nil {
		return failure(item, unit, FailedToStart, err)
	}
	defer stream.Close()

	f, err := os.OpenFile(item.Destination, os.O_WRONLY, 0)
	if err != nil {
		return failure(item, unit, FailedToStart, err)
	}
	n, err := io.Copy(io.NewOffsetWriter(f, unit.Start), stream)
	if err == nil && n != unit.Len() {
		err = &ByteCountError{Expected: unit.Len(), Actual: n}
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return failure(item, unit, FailedToFinish, err)
	}

	res := success(item, unit)
	res.Path = item.Destination
	res.Generation = stream.Generation()
	return res
}

// createEmpty creates or truncates path and closes it again.
func createEmpty(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}

// finishSplit removes the destination of a split download unless every
// range arrived.
func finishSplit(item Item, acc UnitResult) UnitResult {
	if acc.Status == Success {
		return acc
	}
	if err := os.Remove(item.Destination); err != nil && !errors.Is(err, os.ErrNotExist) {
		acc.Err = errors.Join(acc.Err, err)
	}
	acc.Path = ""
	return acc
}
