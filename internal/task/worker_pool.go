package task

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// WorkerPoolConfig contains configuration for the worker pool
type WorkerPoolConfig struct {
	// MaxConcurrency bounds how many tasks execute at once across all lanes
	MaxConcurrency int
	// LaneBuffer is the buffer size of each lane's queue
	LaneBuffer int
	// TaskTimeout bounds a single task's execution; zero means no limit
	TaskTimeout time.Duration
}

// DefaultWorkerPoolConfig returns a default configuration for the worker pool
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		MaxConcurrency: 4,
		LaneBuffer:     64,
		TaskTimeout:    30 * time.Second,
	}
}

// lane is the serial queue for one key. inflight counts tasks submitted but
// not yet finished and is guarded by the pool mutex.
type lane struct {
	key      string
	queue    *TaskQueue
	inflight int
	quit     chan struct{}
}

// WorkerPool executes tasks on per-key FIFO lanes.
type WorkerPool struct {
	config WorkerPoolConfig
	logger *slog.Logger
	sem    *semaphore.Weighted
	wg     sync.WaitGroup

	mu     sync.Mutex
	lanes  map[string]*lane
	closed bool

	errMu        sync.Mutex
	failures     []error
	errorHandler func(task Task, err error)
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(config WorkerPoolConfig, logger *slog.Logger) *WorkerPool {
	if config.MaxConcurrency < 1 {
		config.MaxConcurrency = 1
	}
	if config.LaneBuffer < 1 {
		config.LaneBuffer = 1
	}

	return &WorkerPool{
		config: config,
		logger: logger.With("component", "worker_pool"),
		sem:    semaphore.NewWeighted(int64(config.MaxConcurrency)),
		lanes:  make(map[string]*lane),
	}
}

// SetErrorHandler sets a function that is called whenever a task fails.
// Failures are still collected for the next Flush.
func (p *WorkerPool) SetErrorHandler(handler func(task Task, err error)) {
	p.errMu.Lock()
	defer p.errMu.Unlock()
	p.errorHandler = handler
}

// Submit appends task to the lane for its key. It returns once the task is
// queued, not when it has run. ctx only bounds the wait for buffer space.
func (p *WorkerPool) Submit(ctx context.Context, task Task) error {
	return p.enqueue(ctx, task, false)
}

func (p *WorkerPool) enqueue(ctx context.Context, task Task, allowClosed bool) error {
	p.mu.Lock()
	if p.closed && !allowClosed {
		p.mu.Unlock()
		return ErrQueueClosed
	}
	l, ok := p.lanes[task.Key()]
	if !ok && allowClosed {
		// The lane retired after the caller looked; nothing is pending on it.
		p.mu.Unlock()
		return task.Execute(ctx)
	}
	if !ok {
		l = &lane{
			key:   task.Key(),
			queue: NewTaskQueue(p.config.LaneBuffer, p.logger),
			quit:  make(chan struct{}),
		}
		p.lanes[l.key] = l
		p.wg.Add(1)
		go p.runLane(l)
	}
	l.inflight++
	p.mu.Unlock()

	if err := l.queue.Enqueue(ctx, task); err != nil {
		p.mu.Lock()
		l.inflight--
		if l.inflight == 0 {
			delete(p.lanes, l.key)
			close(l.quit)
		}
		p.mu.Unlock()
		return err
	}
	return nil
}

// runLane consumes one lane until it has no pending work.
func (p *WorkerPool) runLane(l *lane) {
	defer p.wg.Done()

	for {
		select {
		case t := <-l.queue.GetChannel():
			p.execute(t)
			if p.release(l) {
				return
			}
		case <-l.quit:
			return
		}
	}
}

// release marks one task of l finished and retires the lane when idle.
func (p *WorkerPool) release(l *lane) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	l.inflight--
	if l.inflight > 0 {
		return false
	}
	delete(p.lanes, l.key)
	return true
}

func (p *WorkerPool) execute(t Task) {
	// Acquire never fails on a background context.
	_ = p.sem.Acquire(context.Background(), 1)
	defer p.sem.Release(1)

	ctx := context.Background()
	if p.config.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.TaskTimeout)
		defer cancel()
	}

	start := time.Now()
	err := t.Execute(ctx)
	if t.Type() == taskTypeBarrier {
		return
	}

	if err != nil {
		p.logger.Error("task failed",
			"task_id", t.ID(),
			"task_type", t.Type(),
			"task_key", t.Key(),
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err)
		p.recordFailure(t, err)
		return
	}

	p.logger.Debug("task completed",
		"task_id", t.ID(),
		"task_type", t.Type(),
		"task_key", t.Key(),
		"duration_ms", time.Since(start).Milliseconds())
}

func (p *WorkerPool) recordFailure(t Task, err error) {
	p.errMu.Lock()
	p.failures = append(p.failures, err)
	handler := p.errorHandler
	p.errMu.Unlock()

	if handler != nil {
		handler(t, err)
	}
}

// Flush waits until every task submitted before the call has finished and
// returns the failures recorded since the previous Flush, joined.
func (p *WorkerPool) Flush(ctx context.Context) error {
	p.mu.Lock()
	keys := make([]string, 0, len(p.lanes))
	for key := range p.lanes {
		keys = append(keys, key)
	}
	p.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, key := range keys {
		done := make(chan struct{})
		barrier := NewFuncTask(key, taskTypeBarrier, func(context.Context) error {
			close(done)
			return nil
		})
		if err := p.enqueue(ctx, barrier, true); err != nil {
			return err
		}
		g.Go(func() error {
			select {
			case <-done:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return p.takeFailures()
}

func (p *WorkerPool) takeFailures() error {
	p.errMu.Lock()
	defer p.errMu.Unlock()

	err := errors.Join(p.failures...)
	p.failures = nil
	return err
}

// Pending reports how many submitted tasks have not finished yet.
func (p *WorkerPool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for _, l := range p.lanes {
		n += l.inflight
	}
	return n
}

// Stop refuses new submissions and waits for queued work to drain.
// It returns the context error if ctx ends first; the lanes keep draining.
func (p *WorkerPool) Stop(ctx context.Context) error {
	p.mu.Lock()
	alreadyClosed := p.closed
	p.closed = true
	p.mu.Unlock()

	if !alreadyClosed {
		p.logger.Info("stopping worker pool")
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
