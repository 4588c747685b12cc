package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/phrazzld/storefront/internal/domain"
)

// ErrCorruptValue is returned by the decoders when a stored blob cannot be
// parsed. The accompanying value is always the empty state, so callers may log
// the error and carry on.
var ErrCorruptValue = errors.New("corrupt stored value")

// EncodeUsers serializes the identity registry.
func EncodeUsers(users []domain.User) ([]byte, error) {
	if users == nil {
		users = []domain.User{}
	}
	data, err := json.Marshal(users)
	if err != nil {
		return nil, fmt.Errorf("marshal users: %w", err)
	}
	return data, nil
}

// DecodeUsers parses a registry blob. Records failing validation are dropped
// and, of two records sharing an email, only the first is kept.
func DecodeUsers(data []byte) ([]domain.User, error) {
	var raw []domain.User
	if err := json.Unmarshal(data, &raw); err != nil {
		return []domain.User{}, fmt.Errorf("%w: users: %v", ErrCorruptValue, err)
	}

	users := make([]domain.User, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, u := range raw {
		if u.Validate() != nil {
			continue
		}
		if _, dup := seen[u.Email]; dup {
			continue
		}
		seen[u.Email] = struct{}{}
		users = append(users, u)
	}
	return users, nil
}

// EncodeUser serializes the current-session user.
func EncodeUser(user domain.User) ([]byte, error) {
	data, err := json.Marshal(user)
	if err != nil {
		return nil, fmt.Errorf("marshal user: %w", err)
	}
	return data, nil
}

// DecodeUser parses a current-session blob.
func DecodeUser(data []byte) (domain.User, error) {
	var user domain.User
	if err := json.Unmarshal(data, &user); err != nil {
		return domain.User{}, fmt.Errorf("%w: current user: %v", ErrCorruptValue, err)
	}
	if err := user.Validate(); err != nil {
		return domain.User{}, fmt.Errorf("%w: current user: %v", ErrCorruptValue, err)
	}
	return user, nil
}

// cartItemRecord is the stored shape of a cart line. Prices are written as
// JSON numbers; decimal.Decimal would quote them.
type cartItemRecord struct {
	ProductID int64       `json:"productId"`
	Title     string      `json:"title"`
	Price     json.Number `json:"price"`
	Quantity  int         `json:"quantity"`
	Images    []string    `json:"images,omitempty"`
}

// EncodeCartItems serializes cart lines as a JSON array in the given order.
// An empty cart is written as [] rather than removed.
func EncodeCartItems(items []domain.CartItem) ([]byte, error) {
	records := make([]cartItemRecord, 0, len(items))
	for _, it := range items {
		records = append(records, cartItemRecord{
			ProductID: it.ProductID,
			Title:     it.Title,
			Price:     json.Number(it.UnitPrice.String()),
			Quantity:  it.Quantity,
			Images:    it.ImageRefs,
		})
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("marshal cart items: %w", err)
	}
	return data, nil
}

// storedCartLine accepts both cart layouts: the current one, and the older
// {productId, name, price, quantity, image} lines with a single image string.
type storedCartLine struct {
	ProductID int64           `json:"productId"`
	Title     string          `json:"title"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Images    []string        `json:"images"`
	Image     string          `json:"image"`
}

func (l storedCartLine) item() domain.CartItem {
	title := l.Title
	if title == "" {
		title = l.Name
	}
	images := l.Images
	if l.Image != "" && !slices.Contains(images, l.Image) {
		images = append(slices.Clone(images), l.Image)
	}
	return domain.CartItem{
		ProductID: l.ProductID,
		Title:     title,
		UnitPrice: l.Price,
		Quantity:  l.Quantity,
		ImageRefs: images,
	}
}

// DecodeCartItems parses a cart blob. Prices may be numbers or numeric
// strings. Normalization (merging duplicates,
// dropping invalid lines) is left to domain.RestoreCart.
func DecodeCartItems(data []byte) ([]domain.CartItem, error) {
	var lines []storedCartLine
	if err := json.Unmarshal(data, &lines); err != nil {
		return []domain.CartItem{}, fmt.Errorf("%w: cart: %v", ErrCorruptValue, err)
	}
	items := make([]domain.CartItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, l.item())
	}
	return items, nil
}
