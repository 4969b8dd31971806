package transfer

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// pool is a fixed set of goroutines draining one task channel. It is sized
// once and lives until close.
type pool struct {
	tasks chan func()
	group errgroup.Group

	mu     sync.RWMutex
	closed bool
}

func newPool(workers int) *pool {
	p := &pool{tasks: make(chan func())}
	for range workers {
		p.group.Go(func() error {
			for task := range p.tasks {
				task()
			}
			return nil
		})
	}
	return p
}

// submit hands task to the next idle worker, blocking until one is free,
// ctx is done or the pool is closed.
func (p *pool) submit(ctx context.Context, task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrManagerClosed
	}
	select {
	case p.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pool) isClosed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

// close stops accepting tasks and waits for running ones to return.
func (p *pool) close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()
	return p.group.Wait()
}
