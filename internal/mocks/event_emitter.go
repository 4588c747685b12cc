package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/storefront/internal/events"
)

// MockEventEmitter records every emitted identity event.
type MockEventEmitter struct {
	// EmitFn overrides the default recording behavior when set
	EmitFn func(ctx context.Context, event *events.IdentityEvent) error

	mu     sync.Mutex
	events []*events.IdentityEvent
}

var _ events.EventEmitter = (*MockEventEmitter)(nil)

// EmitEvent implements events.EventEmitter
func (m *MockEventEmitter) EmitEvent(ctx context.Context, event *events.IdentityEvent) error {
	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()

	if m.EmitFn != nil {
		return m.EmitFn(ctx, event)
	}
	return nil
}

// Events returns the recorded events in emission order.
func (m *MockEventEmitter) Events() []*events.IdentityEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*events.IdentityEvent, len(m.events))
	copy(out, m.events)
	return out
}

// Types returns the type of every recorded event in emission order.
func (m *MockEventEmitter) Types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Type)
	}
	return out
}
