package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gabriel-vasile/mimetype"

	"s3transfer/internal/storage"
)

// UploadMany uploads every file in paths to cfg.Bucket and blocks until
// each one has a Result.
//
// The call fails as a whole only for an invalid cfg, a closed Manager or
// a path naming a directory. Every other problem, including a missing
// source file, is reported on that file's Result.
//
// Object names drop leading "/" and ".." segments, so "../a.txt" and
// "a.txt" both map to "a.txt". Only the first item claiming a name is
// uploaded; later ones fail to start with ErrDuplicateObject.
func (m *Manager) UploadMany(ctx context.Context, paths []string, cfg UploadConfig) (*Job, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if m.pool.isClosed() {
		return nil, ErrManagerClosed
	}

	infos := make([]os.FileInfo, len(paths))
	statErrs := make([]error, len(paths))
	for i, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			statErrs[i] = err
			continue
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%w: %s", ErrDirectory, path)
		}
		infos[i] = info
	}

	b := newBatch(UploadJob, cfg.Bucket, len(paths))
	claimed := make(map[string]string, len(paths))
	for i, path := range paths {
		item := Item{
			Source: path,
			Object: storage.ObjectID{Bucket: cfg.Bucket, Name: objectName(cfg.Prefix, path)},
			Size:   -1,
		}
		if statErrs[i] != nil {
			m.settle(b, i, failure(item, Unit{Kind: WholeUnit}, FailedToStart, statErrs[i]).Result)
			continue
		}
		if first, ok := claimed[item.Object.Name]; ok {
			err := fmt.Errorf("%w: %s and %s both map to %s", ErrDuplicateObject, first, path, item.Object.Name)
			m.settle(b, i, failure(item, Unit{Kind: WholeUnit}, FailedToStart, err).Result)
			continue
		}
		claimed[item.Object.Name] = path
		item.Size = infos[i].Size()
		b.schedule(m.planUpload(i, item, cfg))
	}
	return m.run(ctx, b), nil
}

func (m *Manager) planUpload(pos int, item Item, cfg UploadConfig) *itemState {
	st := &itemState{pos: pos, item: item}
	if !m.qos.CompositeUpload(item.Size) {
		st.units = []Unit{{Kind: WholeUnit, End: item.Size}}
		st.exec = func(ctx context.Context, _ Unit) UnitResult {
			return m.uploadWhole(ctx, item, cfg)
		}
		return st
	}

	st.units = splitUnits(PartUnit, item.Size, m.qos.ChunkSize())
	st.parts = make([]storage.ObjectID, len(st.units))
	partName := m.cfg.PartNaming.namer(item.Object.Name)
	st.exec = func(ctx context.Context, unit Unit) UnitResult {
		part := storage.ObjectID{Bucket: item.Object.Bucket, Name: partName(unit.Index)}
		return m.uploadPart(ctx, item, unit, part, cfg)
	}
	st.finalize = func(ctx context.Context, acc UnitResult) UnitResult {
		return m.compose(ctx, st, acc, cfg)
	}
	return st
}

// uploadWhole streams the file into a single object write.
func (m *Manager) uploadWhole(ctx context.Context, item Item, cfg UploadConfig) UnitResult {
	unit := Unit{Kind: WholeUnit, End: item.Size}
	f, err := os.Open(item.Source)
	if err != nil {
		return failure(item, unit, FailedToStart, err)
	}
	defer f.Close()

	opts := cfg.writeOptions()
	if opts.ContentType == "" {
		mtype, err := mimetype.DetectReader(f)
		if err != nil {
			return failure(item, unit, FailedToStart, err)
		}
		opts.ContentType = mtype.String()
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return failure(item, unit, FailedToStart, err)
		}
	}
	id, err := m.client.CreateObject(ctx, item.Object, f, opts)
	if err != nil {
		return writeFailure(item, unit, cfg, err)
	}
	res := success(item, unit)
	res.Object = &id
	return res
}

func (m *Manager) uploadPart(ctx context.Context, item Item, unit Unit, part storage.ObjectID, cfg UploadConfig) UnitResult {
	f, err := os.Open(item.Source)
	if err != nil {
		return failure(item, unit, FailedToStart, err)
	}
	defer f.Close()

	session, err := m.client.OpenWriteSession(ctx, part, cfg.writeOptions())
	if err != nil {
		return failure(item, unit, FailedToStart, err)
	}
	n, err := io.Copy(session, io.NewSectionReader(f, unit.Start, unit.Len()))
	if err == nil && n != unit.Len() {
		err = &ByteCountError{Expected: unit.Len(), Actual: n}
	}
	if err != nil {
		session.Abort(err)
		return failure(item, unit, FailedToFinish, err)
	}
	id, err := session.AwaitResult(ctx, cfg.partTimeout())
	if err != nil {
		return writeFailure(item, unit, cfg, err)
	}
	res := success(item, unit)
	res.Object = &id
	return res
}

// compose assembles the parts of a composite item once all of them have
// reported. Anything short of full success leaves no parts behind and
// never calls ComposeParts.
func (m *Manager) compose(ctx context.Context, st *itemState, acc UnitResult, cfg UploadConfig) UnitResult {
	if acc.Status != Success {
		m.deleteParts(ctx, st.parts)
		acc.Object = nil
		return acc
	}

	unit := Unit{Kind: WholeUnit, End: st.item.Size}
	opts := cfg.writeOptions()
	if opts.ContentType == "" {
		if mtype, err := mimetype.DetectFile(st.item.Source); err == nil {
			opts.ContentType = mtype.String()
		}
	}
	id, err := m.client.ComposeParts(ctx, st.parts, st.item.Object, opts)
	if err != nil {
		m.deleteParts(ctx, st.parts)
		return writeFailure(st.item, unit, cfg, err)
	}
	res := success(st.item, unit)
	res.Object = &id
	return res
}

func (m *Manager) deleteParts(ctx context.Context, parts []storage.ObjectID) {
	ctx = context.WithoutCancel(ctx)
	for _, part := range parts {
		if part.Name == "" {
			continue
		}
		if err := m.client.DeleteObject(ctx, part); err != nil && !errors.Is(err, storage.ErrNotFound) {
			m.logger.Warn("failed to delete part object", "part", part.String(), "error", err)
		}
	}
}

// writeFailure classifies a failed write: a precondition failure under
// SkipIfExists is a skip, anything else failed mid-transfer.
func writeFailure(item Item, unit Unit, cfg UploadConfig, err error) UnitResult {
	if cfg.SkipIfExists && storage.IsPreconditionFailed(err) {
		return failure(item, unit, Skipped, err)
	}
	return failure(item, unit, FailedToFinish, err)
}
