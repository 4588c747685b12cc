package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/storefront/internal/domain"
)

// CredentialsRequest is the payload of the register and login endpoints.
type CredentialsRequest struct {
	Email    string `json:"email"    validate:"required,max=254"`
	Password string `json:"password" validate:"required,max=72"`
}

// AuthResponse is returned by the register and login endpoints.
type AuthResponse struct {
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionResponse describes the live session.
type SessionResponse struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
}

// AddItemRequest is the payload of the add-to-cart endpoint. Price is a
// decimal string so no precision is lost in transit.
type AddItemRequest struct {
	ProductID int64    `json:"product_id" validate:"required,gt=0"`
	Title     string   `json:"title"      validate:"max=512"`
	Price     string   `json:"price"      validate:"required,numeric"`
	Quantity  int      `json:"quantity"   validate:"required,gte=1"`
	Images    []string `json:"images"     validate:"omitempty,dive,required"`
}

// SetQuantityRequest is the payload of the set-quantity endpoint.
type SetQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

// CartItemResponse is one line of a CartResponse.
type CartItemResponse struct {
	ProductID int64    `json:"product_id"`
	Title     string   `json:"title"`
	Price     string   `json:"price"`
	Quantity  int      `json:"quantity"`
	Subtotal  string   `json:"subtotal"`
	Images    []string `json:"images,omitempty"`
}

// CartResponse is the state of the attached cart.
type CartResponse struct {
	Items []CartItemResponse `json:"items"`
	Total string             `json:"total"`
}

func newCartResponse(items []domain.CartItem, total string) CartResponse {
	resp := CartResponse{
		Items: make([]CartItemResponse, 0, len(items)),
		Total: total,
	}
	for _, it := range items {
		resp.Items = append(resp.Items, CartItemResponse{
			ProductID: it.ProductID,
			Title:     it.Title,
			Price:     it.UnitPrice.StringFixed(2),
			Quantity:  it.Quantity,
			Subtotal:  it.Subtotal().StringFixed(2),
			Images:    it.ImageRefs,
		})
	}
	return resp
}
