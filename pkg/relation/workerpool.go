package relation

import (
	"context"
	"sync"
)

// Job resolves one chunk of words. Its error is handed to OnError.
type Job func(ctx context.Context) error

// Pool runs chunk jobs for a Relationizer.
type Pool interface {
	Start(ctx context.Context)
	// SubmitCtx enqueues a job but returns promptly if ctx is canceled or the
	// pool is closed.
	SubmitCtx(ctx context.Context, job Job) error
	// Close stops accepting jobs and waits until every started worker exits.
	Close()
}

// WorkerPool runs jobs using a fixed number of goroutines. Chunks of words are
// CPU-bound, so the pool is normally sized to the number of CPUs.
type WorkerPool struct {
	jobs    chan Job
	done    chan struct{}
	wg      sync.WaitGroup
	workers int

	closeMu    sync.Mutex
	closed     bool
	submitters sync.WaitGroup

	// OnError receives errors returned by jobs. It may be called from several
	// workers at once.
	OnError func(error)
}

// NewWorkerPool returns a pool of workers goroutines with room for queue
// waiting jobs.
func NewWorkerPool(workers, queue int) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	if queue <= 0 {
		queue = workers * 2
	}
	return &WorkerPool{
		jobs:    make(chan Job, queue),
		done:    make(chan struct{}),
		workers: workers,
	}
}

// Workers returns the number of goroutines Start launches.
func (p *WorkerPool) Workers() int { return p.workers }

// Start launches the workers. They exit when ctx ends or after Close once
// the queue is drained.
func (p *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case job, ok := <-p.jobs:
					if !ok {
						return
					}
					if err := job(ctx); err != nil && p.OnError != nil {
						p.OnError(err)
					}
				}
			}
		}()
	}
}

// Submit is SubmitCtx without a deadline.
func (p *WorkerPool) Submit(job Job) error {
	return p.SubmitCtx(context.Background(), job)
}

// SubmitCtx enqueues a job, blocking while the queue is full. It returns
// ErrPoolClosed if the pool is closed meanwhile and ctx.Err() if ctx ends first.
func (p *WorkerPool) SubmitCtx(ctx context.Context, job Job) error {
	p.closeMu.Lock()
	if p.closed {
		p.closeMu.Unlock()
		return ErrPoolClosed
	}
	p.submitters.Add(1)
	p.closeMu.Unlock()
	defer p.submitters.Done()

	select {
	case p.jobs <- job:
		return nil
	case <-p.done:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close rejects further jobs and waits for the workers. Queued jobs still
// run unless the Start context is canceled.
func (p *WorkerPool) Close() {
	p.closeMu.Lock()
	if p.closed {
		p.closeMu.Unlock()
		return
	}
	p.closed = true
	close(p.done)
	p.closeMu.Unlock()

	// Blocked submitters return via done; only then is closing jobs safe.
	p.submitters.Wait()
	close(p.jobs)
	p.wg.Wait()
}

// ErrPoolClosed is returned by submissions racing with or following Close.
var ErrPoolClosed = &PoolError{"worker pool closed"}

// PoolError is the error type of pool operations.
type PoolError struct{ msg string }

func (e *PoolError) Error() string { return e.msg }
