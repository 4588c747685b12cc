package task

import (
	"context"

	"github.com/google/uuid"
)

// Task types used by the storage layer.
const (
	TaskTypeGet    = "get"
	TaskTypeSet    = "set"
	TaskTypeRemove = "remove"

	taskTypeBarrier = "barrier"
)

// Task is a unit of work bound to a key. Tasks sharing a key run one at a
// time, in the order they were submitted.
type Task interface {
	// ID returns the task's unique identifier
	ID() uuid.UUID

	// Key returns the key that selects the task's lane
	Key() string

	// Type returns the task type identifier
	Type() string

	// Execute runs the task logic
	Execute(ctx context.Context) error
}

// FuncTask adapts a function to the Task interface.
type FuncTask struct {
	id       uuid.UUID
	key      string
	taskType string
	fn       func(ctx context.Context) error
}

// NewFuncTask creates a task that runs fn on the lane for key.
func NewFuncTask(key, taskType string, fn func(ctx context.Context) error) *FuncTask {
	return &FuncTask{
		id:       uuid.New(),
		key:      key,
		taskType: taskType,
		fn:       fn,
	}
}

// ID returns the task's unique identifier
func (t *FuncTask) ID() uuid.UUID {
	return t.id
}

// Key returns the lane key
func (t *FuncTask) Key() string {
	return t.key
}

// Type returns the task type identifier
func (t *FuncTask) Type() string {
	return t.taskType
}

// Execute runs the wrapped function
func (t *FuncTask) Execute(ctx context.Context) error {
	return t.fn(ctx)
}
