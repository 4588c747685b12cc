// Package middleware holds the HTTP middleware of the session daemon.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/phrazzld/storefront/internal/api/shared"
	"github.com/phrazzld/storefront/internal/domain"
	"github.com/phrazzld/storefront/internal/platform/logger"
	"github.com/phrazzld/storefront/internal/redact"
	"github.com/phrazzld/storefront/internal/service/auth"
)

// SessionSource reports the user holding the live session.
type SessionSource interface {
	Current() (domain.User, bool)
}

// AuthMiddleware provides JWT authentication for routes. A valid token is
// only accepted while its user holds the session.
type AuthMiddleware struct {
	jwtService auth.JWTService
	sessions   SessionSource
}

// NewAuthMiddleware creates a new AuthMiddleware with the given dependencies.
func NewAuthMiddleware(jwtService auth.JWTService, sessions SessionSource) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		sessions:   sessions,
	}
}

// Authenticate validates the bearer token and adds the user ID to the
// request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Authorization header required")
			return
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || scheme != "Bearer" || token == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid authorization format")
			return
		}

		claims, err := m.jwtService.ValidateToken(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrExpiredToken):
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Token expired")
			case errors.Is(err, auth.ErrInvalidToken),
				errors.Is(err, auth.ErrTokenNotYetValid),
				errors.Is(err, auth.ErrMissingToken):
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid token")
			default:
				logger.FromContextOrDefault(r.Context()).Error("failed to validate token",
					"error", redact.Error(err))
				shared.RespondWithError(w, r, http.StatusInternalServerError, "Authentication error")
			}
			return
		}

		current, ok := m.sessions.Current()
		if !ok || current.ID != claims.UserID {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Session ended")
			return
		}

		next.ServeHTTP(w, r.WithContext(shared.WithUserID(r.Context(), claims.UserID)))
	})
}
