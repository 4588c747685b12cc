package domain

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItem is one product line in a cart.
type CartItem struct {
	ProductID int64           `json:"productId"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	ImageRefs []string        `json:"images,omitempty"`
}

// Validate checks the invariants a stored item must satisfy.
func (i CartItem) Validate() error {
	if i.ProductID <= 0 {
		return ErrInvalidProductID
	}
	if i.Quantity < 1 {
		return ErrInvalidQuantity
	}
	if i.UnitPrice.IsNegative() {
		return ErrNegativePrice
	}
	return nil
}

// Subtotal is UnitPrice × Quantity.
func (i CartItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (i CartItem) clone() CartItem {
	i.ImageRefs = slices.Clone(i.ImageRefs)
	return i
}

// Cart is the set of items owned by one user, keyed by product ID.
// The zero value is not usable; build carts with NewCart.
type Cart struct {
	OwnerID uuid.UUID
	items   map[int64]CartItem
}

// NewCart returns an empty cart for owner.
func NewCart(owner uuid.UUID) *Cart {
	return &Cart{
		OwnerID: owner,
		items:   make(map[int64]CartItem),
	}
}

// RestoreCart rebuilds a cart from persisted items.
// Entries that would violate an invariant are dropped and duplicate product
// IDs are merged, so a damaged blob still yields a usable cart.
func RestoreCart(owner uuid.UUID, items []CartItem) *Cart {
	c := NewCart(owner)
	for _, it := range items {
		_ = c.Add(it)
	}
	return c
}

// Add merges item into the cart. An existing line for the same product keeps
// its recorded title, price and images; only the quantity accumulates.
func (c *Cart) Add(item CartItem) error {
	if err := item.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	if existing, ok := c.items[item.ProductID]; ok {
		existing.Quantity += item.Quantity
		c.items[item.ProductID] = existing
		return nil
	}

	c.items[item.ProductID] = item.clone()
	return nil
}

// SetQuantity sets an absolute quantity for a product already in the cart.
// A quantity of zero or less removes the line. It reports whether the cart changed.
func (c *Cart) SetQuantity(productID int64, qty int) bool {
	existing, ok := c.items[productID]
	if !ok {
		return false
	}
	if qty <= 0 {
		delete(c.items, productID)
		return true
	}
	if existing.Quantity == qty {
		return false
	}
	existing.Quantity = qty
	c.items[productID] = existing
	return true
}

// Remove deletes the line for productID and reports whether it existed.
func (c *Cart) Remove(productID int64) bool {
	if _, ok := c.items[productID]; !ok {
		return false
	}
	delete(c.items, productID)
	return true
}

// Clear empties the cart.
func (c *Cart) Clear() {
	clear(c.items)
}

// Total sums the subtotal of every line.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// Len is the number of distinct products in the cart.
func (c *Cart) Len() int {
	return len(c.items)
}

// Item returns the line for productID, if any.
func (c *Cart) Item(productID int64) (CartItem, bool) {
	it, ok := c.items[productID]
	if !ok {
		return CartItem{}, false
	}
	return it.clone(), true
}

// Items returns a copy of every line ordered by product ID.
func (c *Cart) Items() []CartItem {
	out := make([]CartItem, 0, len(c.items))
	for _, it := range c.items {
		out = append(out, it.clone())
	}
	slices.SortFunc(out, func(a, b CartItem) int {
		return cmp.Compare(a.ProductID, b.ProductID)
	})
	return out
}
