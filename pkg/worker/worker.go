package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fluxorio/arquebus/pkg/core"
)

var (
	ErrWorkerPoolClosed = errors.New("worker pool is closed")
	ErrNilJob           = errors.New("job cannot be nil")
)

// Job represents a task to be executed by a worker.
type Job func()

// Executor runs jobs as independent units of work.
type Executor interface {
	// Submit schedules job for execution. It does not wait for the job to run.
	Submit(job Job) error
}

// goExecutor starts one goroutine per job
type goExecutor struct{}

// NewGoExecutor returns an Executor that runs every job on a fresh goroutine
func NewGoExecutor() Executor {
	return goExecutor{}
}

func (goExecutor) Submit(job Job) error {
	if job == nil {
		return ErrNilJob
	}
	go job()
	return nil
}

// WorkerPool is a fixed-size pool of goroutines for executing blocking or CPU-heavy tasks.
//
// Jobs that block on work submitted to the same pool can deadlock a small pool;
// size it for the nesting depth of the callbacks it runs.
type WorkerPool struct {
	jobs      chan Job
	workers   int
	wg        sync.WaitGroup
	mu        sync.RWMutex
	closed    bool
	startOnce sync.Once
	stopOnce  sync.Once
	logger    core.Logger
}

// NewWorkerPool creates a new WorkerPool with a given number of workers and job queue size.
func NewWorkerPool(workers int, queueSize int) *WorkerPool {
	// Fail-fast: size must be positive
	if workers <= 0 {
		core.FailFast(core.InvalidArgument("number of workers must be positive"))
	}
	if queueSize < 0 {
		core.FailFast(core.InvalidArgument("queue size cannot be negative"))
	}
	return &WorkerPool{
		jobs:    make(chan Job, queueSize),
		workers: workers,
		logger:  core.NewNopLogger(),
	}
}

// WithLogger sets the logger used to report recovered job panics
func (p *WorkerPool) WithLogger(logger core.Logger) *WorkerPool {
	if logger != nil {
		p.logger = logger
	}
	return p
}

// Start initializes the workers in the pool. Calling it again is a no-op.
func (p *WorkerPool) Start() {
	p.startOnce.Do(func() {
		p.wg.Add(p.workers)
		for i := 0; i < p.workers; i++ {
			go p.run()
		}
	})
}

// Stop stops accepting jobs and waits for queued jobs to finish or ctx to expire.
func (p *WorkerPool) Stop(ctx context.Context) {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.jobs)
		p.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		// all workers have stopped
	case <-ctx.Done():
		// timeout waiting for workers to stop
	}
}

// run is the worker's execution loop.
func (p *WorkerPool) run() {
	defer p.wg.Done()
	for job := range p.jobs {
		p.execute(job)
	}
}

// execute runs one job, keeping the worker alive if it panics
func (p *WorkerPool) execute(job Job) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error(fmt.Sprintf("worker job panic (isolated): %v", r))
		}
	}()
	job()
}

// Submit sends a job to the worker pool for execution.
// It blocks while the queue is full and returns ErrWorkerPoolClosed if the pool is closed.
func (p *WorkerPool) Submit(job Job) error {
	if job == nil {
		return ErrNilJob
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrWorkerPoolClosed
	}
	p.jobs <- job
	return nil
}

// Size returns the number of workers
func (p *WorkerPool) Size() int {
	return p.workers
}
