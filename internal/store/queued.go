package store

import (
	"bytes"
	"context"
	"log/slog"

	"github.com/phrazzld/storefront/internal/task"
)

// Scheduler runs tasks on per-key serial lanes.
// *task.WorkerPool satisfies it.
type Scheduler interface {
	Submit(ctx context.Context, t task.Task) error
	Flush(ctx context.Context) error
}

// QueuedKV routes every operation on a key through that key's lane, so a
// read observes all writes submitted for the key before it.
type QueuedKV struct {
	kv     KV
	lanes  Scheduler
	logger *slog.Logger
}

var _ KV = (*QueuedKV)(nil)

// NewQueuedKV wraps kv so operations are serialized per key by lanes.
func NewQueuedKV(kv KV, lanes Scheduler, logger *slog.Logger) *QueuedKV {
	return &QueuedKV{
		kv:     kv,
		lanes:  lanes,
		logger: logger.With("component", "queued_kv"),
	}
}

type getResult struct {
	blob []byte
	err  error
}

// Get waits for every earlier operation on key and then reads it.
// If ctx ends first the read still happens, but its result is discarded.
func (q *QueuedKV) Get(ctx context.Context, key string) ([]byte, error) {
	results := make(chan getResult, 1)
	t := task.NewFuncTask(key, task.TaskTypeGet, func(taskCtx context.Context) error {
		blob, err := q.kv.Get(taskCtx, key)
		results <- getResult{blob: blob, err: err}
		return nil
	})
	if err := q.lanes.Submit(ctx, t); err != nil {
		return nil, err
	}

	select {
	case r := <-results:
		return r.blob, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Set queues a write and waits for it to complete.
func (q *QueuedKV) Set(ctx context.Context, key string, blob []byte) error {
	return q.wait(ctx, key, task.TaskTypeSet, func(taskCtx context.Context) error {
		return q.kv.Set(taskCtx, key, blob)
	})
}

// SetAsync queues a write and returns without waiting for it. Failures are
// logged by the worker pool and reported by the next Flush.
func (q *QueuedKV) SetAsync(ctx context.Context, key string, blob []byte) error {
	blob = bytes.Clone(blob)
	t := task.NewFuncTask(key, task.TaskTypeSet, func(taskCtx context.Context) error {
		return q.kv.Set(taskCtx, key, blob)
	})
	if err := q.lanes.Submit(ctx, t); err != nil {
		q.logger.Error("failed to queue write", "key", key, "error", err)
		return err
	}
	return nil
}

// Remove queues a delete and waits for it to complete.
func (q *QueuedKV) Remove(ctx context.Context, key string) error {
	return q.wait(ctx, key, task.TaskTypeRemove, func(taskCtx context.Context) error {
		return q.kv.Remove(taskCtx, key)
	})
}

// Flush waits for every queued operation and returns the write failures
// recorded since the previous Flush.
func (q *QueuedKV) Flush(ctx context.Context) error {
	return q.lanes.Flush(ctx)
}

func (q *QueuedKV) wait(ctx context.Context, key, taskType string, fn func(context.Context) error) error {
	results := make(chan error, 1)
	t := task.NewFuncTask(key, taskType, func(taskCtx context.Context) error {
		// The caller receives the error; only async writes count as
		// lane failures.
		results <- fn(taskCtx)
		return nil
	})
	if err := q.lanes.Submit(ctx, t); err != nil {
		return err
	}

	select {
	case err := <-results:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
