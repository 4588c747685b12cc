package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Identity event types.
const (
	TypeUserRegistered  = "user_registered"
	TypeUserLoggedIn    = "user_logged_in"
	TypeUserLoggedOut   = "user_logged_out"
	TypeSessionRestored = "session_restored"
)

// IdentityEvent describes a change of the current session user.
type IdentityEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type is one of the Type* constants
	Type string `json:"type"`

	// UserID is the user the session now belongs to, or the user who left it
	// for TypeUserLoggedOut. It is uuid.Nil when a logout found no session.
	UserID uuid.UUID `json:"user_id"`

	// Email of the user; empty when UserID is uuid.Nil
	Email string `json:"email,omitempty"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// NewIdentityEvent creates an event of the given type for a user.
func NewIdentityEvent(eventType string, userID uuid.UUID, email string) *IdentityEvent {
	return &IdentityEvent{
		ID:        uuid.New(),
		Type:      eventType,
		UserID:    userID,
		Email:     email,
		CreatedAt: time.Now(),
	}
}

// StartsSession reports whether the event leaves a user signed in.
func (e *IdentityEvent) StartsSession() bool {
	switch e.Type {
	case TypeUserRegistered, TypeUserLoggedIn, TypeSessionRestored:
		return true
	default:
		return false
	}
}

// EventHandler defines an interface for components that react to identity
// changes.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *IdentityEvent) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *IdentityEvent) error
}

// NoopEmitter drops every event.
type NoopEmitter struct{}

// EmitEvent implements EventEmitter.
func (NoopEmitter) EmitEvent(context.Context, *IdentityEvent) error {
	return nil
}
