package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/phrazzld/storefront/internal/api/shared"
	"github.com/phrazzld/storefront/internal/domain"
	"github.com/phrazzld/storefront/internal/platform/logger"
	"github.com/phrazzld/storefront/internal/redact"
	"github.com/phrazzld/storefront/internal/service/auth"
)

// IdentityService is the part of the identity store the handlers use.
type IdentityService interface {
	Register(ctx context.Context, email, secret string) (domain.User, error)
	Login(ctx context.Context, email, secret string) (domain.User, error)
	Logout(ctx context.Context) error
	Current() (domain.User, bool)
}

// AuthHandler handles the session endpoints.
type AuthHandler struct {
	identity   IdentityService
	jwtService auth.JWTService
	logger     *slog.Logger
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(identity IdentityService, jwtService auth.JWTService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		identity:   identity,
		jwtService: jwtService,
		logger:     logger.With("component", "auth_handler"),
	}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeCredentials(w, r)
	if !ok {
		return
	}

	user, err := h.identity.Register(r.Context(), req.Email, req.Password)
	if !h.sessionChanged(w, r, user, err, "register") {
		return
	}
	h.respondWithToken(w, r, http.StatusCreated, user)
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeCredentials(w, r)
	if !ok {
		return
	}

	user, err := h.identity.Login(r.Context(), req.Email, req.Password)
	if !h.sessionChanged(w, r, user, err, "login") {
		return
	}
	h.respondWithToken(w, r, http.StatusOK, user)
}

// Logout handles POST /api/auth/logout. The in-memory session always ends;
// a failure to clear the persisted copy is only logged.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.identity.Logout(r.Context()); err != nil {
		h.log(r).Warn("logout completed with errors", "error", redact.Error(err))
	}
	w.WriteHeader(http.StatusNoContent)
}

// Session handles GET /api/session.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	user, ok := h.identity.Current()
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Session ended")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, SessionResponse{UserID: user.ID, Email: user.Email})
}

func (h *AuthHandler) decodeCredentials(w http.ResponseWriter, r *http.Request) (CredentialsRequest, bool) {
	var req CredentialsRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return req, false
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, shared.ValidationMessage(err))
		return req, false
	}
	return req, true
}

// sessionChanged reports whether the identity transition took effect. A
// transition that happened in memory but failed to persist or to notify
// still counts; its error is logged.
func (h *AuthHandler) sessionChanged(w http.ResponseWriter, r *http.Request, user domain.User, err error, op string) bool {
	if err == nil {
		return true
	}
	if user.ID != uuid.Nil {
		h.log(r).Warn(op+" completed with errors",
			"user_id", user.ID,
			"error", redact.Error(err))
		return true
	}
	shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
	return false
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, r *http.Request, status int, user domain.User) {
	token, err := h.jwtService.GenerateToken(r.Context(), user.ID, user.Email)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to generate authentication token", err)
		return
	}

	shared.RespondWithJSON(w, r, status, AuthResponse{
		UserID:    user.ID,
		Email:     user.Email,
		Token:     token.Value,
		ExpiresAt: token.ExpiresAt,
	})
}

func (h *AuthHandler) log(r *http.Request) *slog.Logger {
	if log, ok := logger.FromContext(r.Context()); ok {
		return log.With("component", "auth_handler")
	}
	return h.logger
}
