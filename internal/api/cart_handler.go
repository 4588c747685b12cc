package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/phrazzld/storefront/internal/api/shared"
	"github.com/phrazzld/storefront/internal/domain"
	"github.com/phrazzld/storefront/internal/service/cart"
)

// CartService is the part of the cart store the handlers use.
type CartService interface {
	For(ownerID uuid.UUID) cart.Scoped
}

// CartHandler handles the cart endpoints. Every route sits behind the auth
// middleware and acts on the cart of the token's user only, so a request
// racing a session switch cannot reach the previous user's cart.
type CartHandler struct {
	carts CartService
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(carts CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

// GetCart handles GET /api/cart.
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	c, ok := h.cartFor(w, r)
	if !ok {
		return
	}
	h.respondWithCart(w, r, c)
}

// AddItem handles POST /api/cart/items.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	c, ok := h.cartFor(w, r)
	if !ok {
		return
	}

	var req AddItemRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, shared.ValidationMessage(err))
		return
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid price")
		return
	}

	item := domain.CartItem{
		ProductID: req.ProductID,
		Title:     req.Title,
		UnitPrice: price,
		Quantity:  req.Quantity,
		ImageRefs: req.Images,
	}
	if err := c.AddToCart(r.Context(), item); err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondWithCart(w, r, c)
}

// SetQuantity handles PUT /api/cart/items/{productID}.
func (h *CartHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	c, ok := h.cartFor(w, r)
	if !ok {
		return
	}
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	var req SetQuantityRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, shared.ValidationMessage(err))
		return
	}

	if err := c.SetQuantity(r.Context(), productID, *req.Quantity); err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondWithCart(w, r, c)
}

// RemoveItem handles DELETE /api/cart/items/{productID}.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	c, ok := h.cartFor(w, r)
	if !ok {
		return
	}
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}
	if err := c.RemoveFromCart(r.Context(), productID); err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondWithCart(w, r, c)
}

// ClearCart handles DELETE /api/cart.
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	c, ok := h.cartFor(w, r)
	if !ok {
		return
	}
	if err := c.ClearCart(r.Context()); err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondWithCart(w, r, c)
}

func (h *CartHandler) cartFor(w http.ResponseWriter, r *http.Request) (cart.Scoped, bool) {
	userID, ok := shared.GetUserID(r.Context())
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return cart.Scoped{}, false
	}
	return h.carts.For(userID), true
}

func (h *CartHandler) respondWithCart(w http.ResponseWriter, r *http.Request, c cart.Scoped) {
	items, total, err := c.Snapshot()
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, newCartResponse(items, total.StringFixed(2)))
}

func (h *CartHandler) respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
}

func productIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil || id <= 0 {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid product id")
		return 0, false
	}
	return id, true
}
