package task

import (
	"context"
	"errors"
	"log/slog"
)

// Common errors returned by the TaskQueue and WorkerPool
var (
	ErrQueueClosed = errors.New("task queue is closed")
	ErrQueueFull   = errors.New("task queue is full")
)

// TaskQueue is the buffered FIFO behind a single lane.
type TaskQueue struct {
	tasks  chan Task
	logger *slog.Logger
}

// NewTaskQueue creates a new task queue with the specified buffer size
func NewTaskQueue(size int, logger *slog.Logger) *TaskQueue {
	if size < 1 {
		size = 1
	}
	return &TaskQueue{
		tasks:  make(chan Task, size),
		logger: logger,
	}
}

// Enqueue adds a task to the queue, waiting for room while the buffer is full.
// It returns ErrQueueFull wrapped with the context error if ctx ends first.
func (q *TaskQueue) Enqueue(ctx context.Context, task Task) error {
	select {
	case q.tasks <- task:
		q.logger.Debug("task enqueued",
			"task_id", task.ID(),
			"task_type", task.Type(),
			"task_key", task.Key(),
			"queue_len", len(q.tasks),
			"queue_cap", cap(q.tasks))
		return nil
	case <-ctx.Done():
		return errors.Join(ErrQueueFull, ctx.Err())
	}
}

// GetChannel returns a read-only channel for consuming tasks
func (q *TaskQueue) GetChannel() <-chan Task {
	return q.tasks
}

// Len reports how many tasks are buffered.
func (q *TaskQueue) Len() int {
	return len(q.tasks)
}
