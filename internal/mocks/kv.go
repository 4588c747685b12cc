package mocks

import (
	"bytes"
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/phrazzld/storefront/internal/store"
)

// MockKV implements store.KV for testing. Without function fields it behaves
// like an in-memory store; the *Err fields inject failures.
type MockKV struct {
	// Function fields for customizable behavior
	GetFn    func(ctx context.Context, key string) ([]byte, error)
	SetFn    func(ctx context.Context, key string, blob []byte) error
	RemoveFn func(ctx context.Context, key string) error

	// Errors returned by the default implementation
	GetErr    error
	SetErr    error
	RemoveErr error

	mu       sync.Mutex
	data     map[string][]byte
	setCalls map[string]int
}

var _ store.KV = (*MockKV)(nil)

// NewMockKV creates a new mock store with initialized defaults
func NewMockKV() *MockKV {
	return &MockKV{
		data:     make(map[string][]byte),
		setCalls: make(map[string]int),
	}
}

// Get implements store.KV
func (m *MockKV) Get(ctx context.Context, key string) ([]byte, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, key)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	blob, ok := m.data[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return bytes.Clone(blob), nil
}

// Set implements store.KV
func (m *MockKV) Set(ctx context.Context, key string, blob []byte) error {
	if m.SetFn != nil {
		return m.SetFn(ctx, key, blob)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalls[key]++
	if m.SetErr != nil {
		return m.SetErr
	}
	m.data[key] = bytes.Clone(blob)
	return nil
}

// Remove implements store.KV
func (m *MockKV) Remove(ctx context.Context, key string) error {
	if m.RemoveFn != nil {
		return m.RemoveFn(ctx, key)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RemoveErr != nil {
		return m.RemoveErr
	}
	delete(m.data, key)
	return nil
}

// Put seeds a value without counting it as a Set call.
func (m *MockKV) Put(key string, blob []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = bytes.Clone(blob)
}

// Value returns the stored blob for key, if any.
func (m *MockKV) Value(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	blob, ok := m.data[key]
	return bytes.Clone(blob), ok
}

// SetCalls reports how many times Set was called for key.
func (m *MockKV) SetCalls(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setCalls[key]
}

// SetFailure switches injected Set and Remove failures on or off while the
// store is in use.
func (m *MockKV) SetFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SetErr = err
	m.RemoveErr = err
}

// TestifyMockKV is a mock of store.KV for use with testify/mock
type TestifyMockKV struct {
	mock.Mock
}

var _ store.KV = (*TestifyMockKV)(nil)

// Get is a mock implementation of store.KV.Get
func (m *TestifyMockKV) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if blob, ok := args.Get(0).([]byte); ok {
		return blob, args.Error(1)
	}
	return nil, args.Error(1)
}

// Set is a mock implementation of store.KV.Set
func (m *TestifyMockKV) Set(ctx context.Context, key string, blob []byte) error {
	args := m.Called(ctx, key, blob)
	return args.Error(0)
}

// Remove is a mock implementation of store.KV.Remove
func (m *TestifyMockKV) Remove(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}
