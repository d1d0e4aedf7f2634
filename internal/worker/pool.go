package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var ErrPoolClosed = errors.New("worker pool closed")

type task struct {
	ctx  context.Context
	run  func(context.Context)
	done chan struct{}
}

// Pool runs submitted jobs on a fixed set of goroutines so CPU-bound inference
// never runs on the HTTP serving goroutines.
type Pool struct {
	tasks  chan task
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// New starts workers goroutines fed by a queue holding up to queueSize
// pending jobs. Submitters block once the queue is full.
func New(workers, queueSize int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	p := &Pool{tasks: make(chan task, queueSize)}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.work()
	}

	slog.Info("[WorkerPool] Started",
		slog.Int("workers", workers),
		slog.Int("queue_size", queueSize))
	return p
}

func (p *Pool) work() {
	defer p.wg.Done()
	for t := range p.tasks {
		// the submitter already gave up
		if t.ctx.Err() == nil {
			t.run(t.ctx)
		}
		close(t.done)
	}
}

// Do runs fn on a worker and waits for it to finish. It returns ctx.Err() if
// ctx ends first; fn may still run later in that case, and it observes the
// same cancelled ctx.
func (p *Pool) Do(ctx context.Context, fn func(context.Context)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := task{ctx: ctx, run: fn, done: make(chan struct{})}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrPoolClosed
	}
	select {
	case p.tasks <- t:
		p.mu.RUnlock()
	case <-ctx.Done():
		p.mu.RUnlock()
		return ctx.Err()
	}

	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// QueueDepth is the number of jobs waiting for a worker.
func (p *Pool) QueueDepth() int {
	return len(p.tasks)
}

// Close stops accepting jobs, lets queued jobs finish and waits for the workers.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
	slog.Info("[WorkerPool] Stopped")
}

// Run is Do for functions producing a value.
func Run[T any](ctx context.Context, p *Pool, fn func(context.Context) (T, error)) (T, error) {
	var (
		out    T
		runErr error
	)
	if err := p.Do(ctx, func(ctx context.Context) {
		out, runErr = fn(ctx)
	}); err != nil {
		var zero T
		return zero, err
	}
	return out, runErr
}
