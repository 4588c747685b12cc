// Package cart owns the live shopping cart of the attached identity.
//
// All reads and mutations act on memory and return immediately. Each mutation
// also queues a write of the whole cart under the owner's key; writes for one
// owner land in the order they were made. Storage is read only when a cart is
// attached.
package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/phrazzld/storefront/internal/domain"
	"github.com/phrazzld/storefront/internal/redact"
	"github.com/phrazzld/storefront/internal/session"
	"github.com/phrazzld/storefront/internal/store"
)

// Persister is the storage the cart store needs. *store.QueuedKV satisfies it.
type Persister interface {
	// Get waits for earlier writes to key and returns its blob.
	Get(ctx context.Context, key string) ([]byte, error)

	// SetAsync queues a write of blob under key.
	SetAsync(ctx context.Context, key string, blob []byte) error
}

// Store holds at most one live cart.
type Store struct {
	kv     Persister
	logger *slog.Logger

	mu   sync.Mutex
	cart *domain.Cart
	gen  session.Generation
}

// NewStore creates a detached cart store.
func NewStore(kv Persister, logger *slog.Logger) *Store {
	return &Store{
		kv:     kv,
		logger: logger.With("component", "cart_store"),
	}
}

// Attach replaces the live cart with the one persisted for ownerID, or an
// empty cart when none is stored or the stored value is unreadable.
//
// The store is detached while the load is in flight. If another Attach or a
// Detach happens meanwhile, this load is discarded and ErrSuperseded is
// returned. A storage failure attaches an empty cart and returns an error
// matching store.ErrStorageFailure. If ctx ends first the store stays
// detached.
func (s *Store) Attach(ctx context.Context, ownerID uuid.UUID) error {
	s.mu.Lock()
	gen := s.gen.Advance()
	s.cart = nil
	s.mu.Unlock()

	key := store.CartKey(ownerID)
	blob, err := s.kv.Get(ctx, key)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.gen.IsCurrent(gen) {
		s.logger.Debug("discarding superseded cart load", "owner_id", ownerID)
		return ErrSuperseded
	}

	switch {
	case err == nil:
		items, decErr := store.DecodeCartItems(blob)
		if decErr != nil {
			s.logger.Warn("stored cart is corrupt, starting empty",
				"owner_id", ownerID,
				"error", decErr)
		}
		s.cart = domain.RestoreCart(ownerID, items)
	case store.IsNotFoundError(err):
		s.cart = domain.NewCart(ownerID)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("attach cart: %w", err)
	default:
		s.cart = domain.NewCart(ownerID)
		s.logger.Error("failed to load cart, starting empty",
			"owner_id", ownerID,
			"error", redact.Error(err))
		return fmt.Errorf("attach cart: %w", err)
	}

	s.logger.Debug("cart attached",
		"owner_id", ownerID,
		"item_count", s.cart.Len())
	return nil
}

// Detach drops the live cart without touching its persisted copy and
// invalidates any load in flight. Writes already queued still complete.
func (s *Store) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen.Advance()
	if s.cart != nil {
		s.logger.Debug("cart detached", "owner_id", s.cart.OwnerID)
	}
	s.cart = nil
}

// AddToCart merges item into the cart: an existing line for the product
// gains item.Quantity and keeps its recorded title and price.
func (s *Store) AddToCart(ctx context.Context, item domain.CartItem) error {
	return s.mutate(ctx, anyOwner, addItem(item))
}

// RemoveFromCart deletes the line for productID. Removing an absent product
// is a no-op.
func (s *Store) RemoveFromCart(ctx context.Context, productID int64) error {
	return s.mutate(ctx, anyOwner, removeItem(productID))
}

// SetQuantity sets the quantity of a product already in the cart. A quantity
// of zero or less removes the line.
func (s *Store) SetQuantity(ctx context.Context, productID int64, qty int) error {
	return s.mutate(ctx, anyOwner, setQuantity(productID, qty))
}

// ClearCart empties the cart. The persisted copy becomes an empty list.
func (s *Store) ClearCart(ctx context.Context) error {
	return s.mutate(ctx, anyOwner, clearItems)
}

// For returns a view of the store bound to ownerID. Its operations act only
// while ownerID's cart is the live one and fail with ErrNotAttached
// otherwise.
func (s *Store) For(ownerID uuid.UUID) Scoped {
	return Scoped{s: s, owner: ownerFilter{id: ownerID, bound: true}}
}

// Scoped is the cart store as seen by one owner.
type Scoped struct {
	s     *Store
	owner ownerFilter
}

// AddToCart is Store.AddToCart for the bound owner.
func (c Scoped) AddToCart(ctx context.Context, item domain.CartItem) error {
	return c.s.mutate(ctx, c.owner, addItem(item))
}

// RemoveFromCart is Store.RemoveFromCart for the bound owner.
func (c Scoped) RemoveFromCart(ctx context.Context, productID int64) error {
	return c.s.mutate(ctx, c.owner, removeItem(productID))
}

// SetQuantity is Store.SetQuantity for the bound owner.
func (c Scoped) SetQuantity(ctx context.Context, productID int64, qty int) error {
	return c.s.mutate(ctx, c.owner, setQuantity(productID, qty))
}

// ClearCart is Store.ClearCart for the bound owner.
func (c Scoped) ClearCart(ctx context.Context) error {
	return c.s.mutate(ctx, c.owner, clearItems)
}

// Snapshot returns the lines and total of the bound owner's cart, read
// together.
func (c Scoped) Snapshot() ([]domain.CartItem, decimal.Decimal, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	if !c.owner.matches(c.s.cart) {
		return nil, decimal.Zero, ErrNotAttached
	}
	return c.s.cart.Items(), c.s.cart.Total(), nil
}

type ownerFilter struct {
	id    uuid.UUID
	bound bool
}

var anyOwner = ownerFilter{}

func (f ownerFilter) matches(c *domain.Cart) bool {
	return c != nil && (!f.bound || c.OwnerID == f.id)
}

// mutation changes the live cart and reports whether it needs writing.
type mutation func(c *domain.Cart) (bool, error)

func addItem(item domain.CartItem) mutation {
	return func(c *domain.Cart) (bool, error) {
		if err := c.Add(item); err != nil {
			return false, err
		}
		return true, nil
	}
}

func removeItem(productID int64) mutation {
	return func(c *domain.Cart) (bool, error) {
		return c.Remove(productID), nil
	}
}

func setQuantity(productID int64, qty int) mutation {
	return func(c *domain.Cart) (bool, error) {
		if _, ok := c.Item(productID); !ok {
			if qty <= 0 {
				return false, nil
			}
			return false, fmt.Errorf("%w: %d", ErrNotInCart, productID)
		}
		return c.SetQuantity(productID, qty), nil
	}
}

func clearItems(c *domain.Cart) (bool, error) {
	c.Clear()
	return true, nil
}

// mutate applies fn to the live cart if it belongs to owner and queues the
// write under the same lock.
func (s *Store) mutate(ctx context.Context, owner ownerFilter, fn mutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !owner.matches(s.cart) {
		if s.cart != nil {
			s.logger.Debug("rejecting change to another owner's cart",
				"owner_id", s.cart.OwnerID,
				"requested_owner_id", owner.id)
		}
		return ErrNotAttached
	}
	changed, err := fn(s.cart)
	if err != nil || !changed {
		return err
	}
	return s.persistLocked(ctx)
}

// GetTotal returns the sum of unit price × quantity over all lines, or zero
// when detached.
func (s *Store) GetTotal() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cart == nil {
		return decimal.Zero
	}
	return s.cart.Total()
}

// Items returns the lines of the live cart ordered by product ID.
func (s *Store) Items() []domain.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cart == nil {
		return []domain.CartItem{}
	}
	return s.cart.Items()
}

// Owner returns the owner of the live cart, if one is attached.
func (s *Store) Owner() (uuid.UUID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cart == nil {
		return uuid.Nil, false
	}
	return s.cart.OwnerID, true
}

// persistLocked queues a write of the whole cart. It is called with mu held
// so writes are queued in mutation order.
func (s *Store) persistLocked(ctx context.Context) error {
	blob, err := store.EncodeCartItems(s.cart.Items())
	if err != nil {
		return err
	}
	if err := s.kv.SetAsync(ctx, store.CartKey(s.cart.OwnerID), blob); err != nil {
		s.logger.Error("failed to queue cart write",
			"owner_id", s.cart.OwnerID,
			"error", err)
		return fmt.Errorf("queue cart write: %w", err)
	}
	return nil
}
