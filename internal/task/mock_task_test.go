package task

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"
)

// mockTask is a Task whose behavior is supplied by the test.
type mockTask struct {
	id        uuid.UUID
	key       string
	taskType  string
	executeFn func(ctx context.Context) error
}

func newMockTask(key string, fn func(ctx context.Context) error) *mockTask {
	if fn == nil {
		fn = func(context.Context) error { return nil }
	}
	return &mockTask{
		id:        uuid.New(),
		key:       key,
		taskType:  TaskTypeSet,
		executeFn: fn,
	}
}

func (t *mockTask) ID() uuid.UUID                     { return t.id }
func (t *mockTask) Key() string                       { return t.key }
func (t *mockTask) Type() string                      { return t.taskType }
func (t *mockTask) Execute(ctx context.Context) error { return t.executeFn(ctx) }

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
