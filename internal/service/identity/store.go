// Package identity owns the registered-user registry and the current session.
//
// The registry and the session live in memory; every change is mirrored to
// the "users" and "currentUser" keys of a store.KV. After each successful
// transition the Store emits an events.IdentityEvent, which is how the cart
// follows the session.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/phrazzld/storefront/internal/domain"
	"github.com/phrazzld/storefront/internal/events"
	"github.com/phrazzld/storefront/internal/redact"
	"github.com/phrazzld/storefront/internal/session"
	"github.com/phrazzld/storefront/internal/store"
)

// Store is the identity registry plus the session of this process.
type Store struct {
	kv      store.KV
	hasher  SecretHasher
	emitter events.EventEmitter
	logger  *slog.Logger

	// mu is held across check-and-append and across the writes that mirror
	// the change, so registry snapshots reach storage in the order they were
	// taken.
	mu      sync.Mutex
	users   []domain.User
	current *domain.User
	loaded  bool

	// degraded is set while the registry could not be read from storage.
	// Nothing writes the registry in that state.
	degraded bool
	gen      session.Generation

	// emitMu is taken before mu is released and held until the event is
	// delivered, so handlers see transitions in the order they happened.
	emitMu sync.Mutex
}

// NewStore creates an identity store. A nil hasher means PlaintextHasher; a
// nil emitter drops events.
func NewStore(kv store.KV, hasher SecretHasher, emitter events.EventEmitter, logger *slog.Logger) *Store {
	if hasher == nil {
		hasher = PlaintextHasher{}
	}
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	return &Store{
		kv:      kv,
		hasher:  hasher,
		emitter: emitter,
		logger:  logger.With("component", "identity_store"),
	}
}

// Load reads the registry from storage. A missing registry is an empty one.
// A corrupt or unreadable registry also leaves the store empty and usable;
// the error is returned so the caller can report the degraded start.
//
// After a read failure the store is degraded: Register, Login and Restore
// retry the read first, and Register and Login fail with
// ErrRegistryUnavailable until a read succeeds, so the stored registry is
// never replaced by a partial one.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

// readyLocked loads the registry on first use and retries a failed read.
// It returns an error only while the registry stays unreadable.
func (s *Store) readyLocked(ctx context.Context) error {
	if s.loaded && !s.degraded {
		return nil
	}
	if err := s.loadLocked(ctx); err != nil && s.degraded {
		return fmt.Errorf("%w: %w", ErrRegistryUnavailable, err)
	}
	return nil
}

func (s *Store) loadLocked(ctx context.Context) error {
	s.loaded = true
	s.degraded = false
	s.users = []domain.User{}

	blob, err := s.kv.Get(ctx, store.UsersKey)
	if err != nil {
		if store.IsNotFoundError(err) {
			s.logger.Debug("no registry stored, starting empty")
			return nil
		}
		s.degraded = true
		s.logger.Warn("failed to read registry, starting empty",
			"error", redact.Error(err))
		return fmt.Errorf("load registry: %w", err)
	}

	users, err := store.DecodeUsers(blob)
	if err != nil {
		s.logger.Warn("stored registry is corrupt, starting empty",
			"error", err)
		return fmt.Errorf("load registry: %w", err)
	}

	s.users = users
	s.logger.Debug("registry loaded", "user_count", len(users))
	return nil
}

// Register creates a user, makes it the current session and persists both.
//
// If the user was created but could not be persisted, the user is returned
// together with an error matching store.ErrStorageFailure; the in-memory
// registry and session keep the change.
func (s *Store) Register(ctx context.Context, email, secret string) (domain.User, error) {
	if email == "" {
		return domain.User{}, fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrEmptyEmail)
	}
	if secret == "" {
		return domain.User{}, fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrEmptySecret)
	}

	s.mu.Lock()
	if err := s.readyLocked(ctx); err != nil {
		s.mu.Unlock()
		return domain.User{}, err
	}

	if s.indexOfEmail(email) >= 0 {
		s.mu.Unlock()
		s.logger.Debug("attempted to register existing email",
			"email", redact.Email(email))
		return domain.User{}, ErrAlreadyExists
	}

	stored, err := s.hasher.Hash(secret)
	if err != nil {
		s.mu.Unlock()
		return domain.User{}, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	newUser, err := domain.NewUser(email, stored)
	if err != nil {
		s.mu.Unlock()
		return domain.User{}, fmt.Errorf("failed to create user: %w", err)
	}
	user := *newUser

	s.users = append(s.users, user)
	s.current = &user
	s.gen.Advance()

	persistErr := errors.Join(
		s.persistUsersLocked(ctx),
		s.persistCurrentLocked(ctx, user),
	)
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	s.mu.Unlock()

	if persistErr != nil {
		s.logger.Error("failed to persist registration",
			"error", redact.Error(persistErr),
			"user_id", user.ID)
		persistErr = fmt.Errorf("persist registration: %w", persistErr)
	} else {
		s.logger.Info("user registered", "user_id", user.ID)
	}

	return user, errors.Join(persistErr, s.emit(ctx, events.TypeUserRegistered, user))
}

// Login makes the user whose email and secret both match the current
// session. Any mismatch yields ErrInvalidCredentials and leaves the session
// as it was.
func (s *Store) Login(ctx context.Context, email, secret string) (domain.User, error) {
	s.mu.Lock()
	if err := s.readyLocked(ctx); err != nil {
		s.mu.Unlock()
		return domain.User{}, err
	}

	i := s.indexOfEmail(email)
	if i < 0 || s.hasher.Compare(s.users[i].Secret, secret) != nil {
		s.mu.Unlock()
		s.logger.Info("login failed", "email", redact.Email(email))
		return domain.User{}, ErrInvalidCredentials
	}

	user := s.users[i]
	s.current = &user
	s.gen.Advance()
	persistErr := s.persistCurrentLocked(ctx, user)
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	s.mu.Unlock()

	if persistErr != nil {
		s.logger.Error("failed to persist session",
			"error", redact.Error(persistErr),
			"user_id", user.ID)
		persistErr = fmt.Errorf("persist session: %w", persistErr)
	} else {
		s.logger.Info("user logged in", "user_id", user.ID)
	}

	return user, errors.Join(persistErr, s.emit(ctx, events.TypeUserLoggedIn, user))
}

// Logout clears the session. The registry and any persisted cart are left
// untouched. Logging out with no session is not an error.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	var prev domain.User
	if s.current != nil {
		prev = *s.current
	}
	s.current = nil
	s.gen.Advance()

	persistErr := s.kv.Remove(ctx, store.CurrentUserKey)
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	s.mu.Unlock()

	if persistErr != nil {
		s.logger.Error("failed to clear persisted session",
			"error", redact.Error(persistErr),
			"user_id", prev.ID)
		persistErr = fmt.Errorf("clear session: %w", persistErr)
	} else {
		s.logger.Info("user logged out", "user_id", prev.ID)
	}

	return errors.Join(persistErr, s.emit(ctx, events.TypeUserLoggedOut, prev))
}

// Restore re-establishes the session saved by an earlier process. It only
// succeeds when the saved user still exists in the registry with the same ID
// and email, and when no register, login or logout happened while the saved
// session was being read.
func (s *Store) Restore(ctx context.Context) (domain.User, bool, error) {
	s.mu.Lock()
	if err := s.readyLocked(ctx); err != nil {
		s.mu.Unlock()
		return domain.User{}, false, fmt.Errorf("restore session: %w", err)
	}
	gen := s.gen.Current()
	s.mu.Unlock()

	blob, err := s.kv.Get(ctx, store.CurrentUserKey)

	s.mu.Lock()
	if !s.gen.IsCurrent(gen) {
		s.mu.Unlock()
		s.logger.Debug("session restore superseded")
		return domain.User{}, false, nil
	}

	if err != nil {
		s.mu.Unlock()
		if store.IsNotFoundError(err) {
			return domain.User{}, false, nil
		}
		s.logger.Warn("failed to read saved session", "error", redact.Error(err))
		return domain.User{}, false, fmt.Errorf("restore session: %w", err)
	}

	saved, err := store.DecodeUser(blob)
	if err != nil {
		s.mu.Unlock()
		s.logger.Warn("saved session is corrupt, ignoring it", "error", err)
		return domain.User{}, false, nil
	}

	i := slices.IndexFunc(s.users, func(u domain.User) bool {
		return u.ID == saved.ID && u.Email == saved.Email
	})
	if i < 0 {
		s.mu.Unlock()
		s.logger.Info("saved session names an unknown user, ignoring it",
			"user_id", saved.ID)
		return domain.User{}, false, nil
	}

	user := s.users[i]
	s.current = &user
	s.gen.Advance()
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	s.mu.Unlock()

	s.logger.Info("session restored", "user_id", user.ID)
	return user, true, s.emit(ctx, events.TypeSessionRestored, user)
}

// Current returns the user of the live session, if any.
func (s *Store) Current() (domain.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return domain.User{}, false
	}
	return *s.current, true
}

// Users returns a copy of the registry in registration order.
func (s *Store) Users() []domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.users)
}

func (s *Store) indexOfEmail(email string) int {
	return slices.IndexFunc(s.users, func(u domain.User) bool {
		return u.Email == email
	})
}

func (s *Store) persistUsersLocked(ctx context.Context) error {
	blob, err := store.EncodeUsers(s.users)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, store.UsersKey, blob)
}

func (s *Store) persistCurrentLocked(ctx context.Context, user domain.User) error {
	blob, err := store.EncodeUser(user)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, store.CurrentUserKey, blob)
}

func (s *Store) emit(ctx context.Context, eventType string, user domain.User) error {
	event := events.NewIdentityEvent(eventType, user.ID, user.Email)
	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		return fmt.Errorf("notify %s: %w", eventType, err)
	}
	return nil
}
