package transfer

import (
	"context"
	"time"

	"s3transfer/internal/storage"
)

// itemState tracks one scheduled item. It is only touched by the dispatch
// loop before scheduling and by the aggregator afterwards.
type itemState struct {
	pos     int
	item    Item
	units   []Unit
	exec    func(ctx context.Context, unit Unit) UnitResult
	pending int
	acc     *UnitResult

	// finalize, when set, runs on the pool once every unit has reported.
	finalize func(ctx context.Context, acc UnitResult) UnitResult

	// parts collects part identities of a composite upload by index.
	parts []storage.ObjectID
}

type message struct {
	state *itemState
	res   UnitResult
	final bool
}

// batch is one UploadMany or DownloadMany call.
type batch struct {
	kind    JobKind
	bucket  string
	results []Result
	states  []*itemState
	started time.Time
}

func newBatch(kind JobKind, bucket string, n int) *batch {
	return &batch{
		kind:    kind,
		bucket:  bucket,
		results: make([]Result, n),
		started: time.Now(),
	}
}

func (b *batch) schedule(st *itemState) {
	st.pending = len(st.units)
	b.states = append(b.states, st)
}

// run fans every scheduled unit out over the pool and blocks until all
// items are resolved.
func (m *Manager) run(ctx context.Context, b *batch) *Job {
	capacity, units := 0, 0
	for _, st := range b.states {
		units += len(st.units)
		capacity += len(st.units)
		if st.finalize != nil {
			capacity++
		}
	}
	m.logger.Info("batch started",
		"kind", b.kind,
		"bucket", b.bucket,
		"items", len(b.results),
		"units", units)

	// Buffered for every message the batch can produce so workers never
	// block on delivery.
	msgs := make(chan message, capacity)
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.aggregate(ctx, b, msgs)
	}()

	for _, st := range b.states {
		for _, unit := range st.units {
			m.dispatch(ctx, msgs, st, unit)
		}
	}
	<-done

	job := &Job{Kind: b.kind, Bucket: b.bucket, Results: b.results}
	m.logger.Info("batch finished",
		"kind", b.kind,
		"bucket", b.bucket,
		"items", job.Len(),
		"succeeded", len(job.Succeeded()),
		"skipped", len(job.Skipped()),
		"failed", len(job.Failed()),
		"elapsed", time.Since(b.started))
	return job
}

func (m *Manager) dispatch(ctx context.Context, msgs chan<- message, st *itemState, unit Unit) {
	err := m.pool.submit(ctx, func() {
		res := guard(st.item, unit, func() UnitResult {
			return st.exec(ctx, unit)
		})
		msgs <- message{state: st, res: res}
	})
	if err != nil {
		msgs <- message{state: st, res: failure(st.item, unit, FailedToStart, err)}
	}
}

// aggregate is the only goroutine that folds unit results, so item state
// needs no locking.
func (m *Manager) aggregate(ctx context.Context, b *batch, msgs chan message) {
	open := len(b.states)
	for open > 0 {
		msg := <-msgs
		st := msg.state
		if msg.final {
			m.settle(b, st.pos, msg.res.Result)
			open--
			continue
		}

		if st.parts != nil && msg.res.Status == Success && msg.res.Object != nil {
			st.parts[msg.res.Unit.Index] = *msg.res.Object
		}
		folded := Reduce(st.acc, msg.res)
		st.acc = &folded
		st.pending--
		if st.pending > 0 {
			continue
		}

		if st.finalize == nil {
			m.settle(b, st.pos, folded.Result)
			open--
			continue
		}

		finish := func() UnitResult {
			return st.finalize(ctx, folded)
		}
		err := m.pool.submit(ctx, func() {
			msgs <- message{state: st, res: guard(st.item, folded.Unit, finish), final: true}
		})
		if err != nil {
			// The pool is gone or ctx is done; finish in place so the item
			// still cleans up and resolves.
			m.settle(b, st.pos, guard(st.item, folded.Unit, finish).Result)
			open--
		}
	}
}

// settle records the final result of the item at pos. Items rejected
// during planning are settled directly without touching the pool.
func (m *Manager) settle(b *batch, pos int, res Result) {
	b.results[pos] = res
	attrs := []any{"item", itemName(res.Item), "status", res.Status}
	if res.Err != nil {
		attrs = append(attrs, "error", res.Err)
	}
	m.logger.Debug("item resolved", attrs...)
}

// guard runs fn and converts a panic into a FailedToFinish result.
func guard(item Item, unit Unit, fn func() UnitResult) (res UnitResult) {
	defer func() {
		if r := recover(); r != nil {
			res = failure(item, unit, FailedToFinish, &PanicError{Value: r})
		}
	}()
	return fn()
}

func itemName(item Item) string {
	if item.Source != "" {
		return item.Source
	}
	return item.Object.String()
}
