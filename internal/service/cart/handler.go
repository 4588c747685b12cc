package cart

import (
	"context"
	"errors"
	"log/slog"

	"github.com/phrazzld/storefront/internal/events"
)

// IdentityHandler keeps the cart store attached to the session user.
type IdentityHandler struct {
	carts  *Store
	logger *slog.Logger
}

var _ events.EventHandler = (*IdentityHandler)(nil)

// NewIdentityHandler creates a handler to register with the identity
// store's event emitter.
func NewIdentityHandler(carts *Store, logger *slog.Logger) *IdentityHandler {
	return &IdentityHandler{
		carts:  carts,
		logger: logger.With("component", "cart_identity_handler"),
	}
}

// HandleEvent attaches the cart of a user who starts a session and detaches
// on logout. A load superseded by a later transition is not an error.
func (h *IdentityHandler) HandleEvent(ctx context.Context, event *events.IdentityEvent) error {
	switch {
	case event.StartsSession():
		err := h.carts.Attach(ctx, event.UserID)
		if errors.Is(err, ErrSuperseded) {
			return nil
		}
		return err
	case event.Type == events.TypeUserLoggedOut:
		h.carts.Detach()
		return nil
	default:
		h.logger.Debug("ignoring event", "event_type", event.Type)
		return nil
	}
}
