package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/phrazzld/storefront/internal/api/middleware"
	"github.com/phrazzld/storefront/internal/service/auth"
)

// RouterDeps are the collaborators the HTTP surface needs.
type RouterDeps struct {
	Identity IdentityService
	Carts    CartService
	Tokens   auth.JWTService
	Logger   *slog.Logger
}

// NewRouter builds the HTTP handler of the session daemon.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewTraceMiddleware(deps.Logger))

	authHandler := NewAuthHandler(deps.Identity, deps.Tokens, deps.Logger)
	cartHandler := NewCartHandler(deps.Carts)
	authMiddleware := middleware.NewAuthMiddleware(deps.Tokens, deps.Identity)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Post("/auth/logout", authHandler.Logout)
			r.Get("/session", authHandler.Session)

			r.Get("/cart", cartHandler.GetCart)
			r.Delete("/cart", cartHandler.ClearCart)
			r.Post("/cart/items", cartHandler.AddItem)
			r.Put("/cart/items/{productID}", cartHandler.SetQuantity)
			r.Delete("/cart/items/{productID}", cartHandler.RemoveItem)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			deps.Logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
