package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/storefront/internal/config"
	"github.com/phrazzld/storefront/internal/events"
	"github.com/phrazzld/storefront/internal/platform/storage"
	"github.com/phrazzld/storefront/internal/redact"
	"github.com/phrazzld/storefront/internal/service/cart"
	"github.com/phrazzld/storefront/internal/service/identity"
	"github.com/phrazzld/storefront/internal/store"
	"github.com/phrazzld/storefront/internal/task"
)

// app owns every long-lived component of one CLI invocation.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	backend  storage.Backend
	pool     *task.WorkerPool
	kv       *store.QueuedKV
	identity *identity.Store
	carts    *cart.Store
}

// newApp opens storage and wires the stores together. The cart follows the
// session through the identity handler registered on the emitter.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	hasher, err := identity.NewHasher(cfg.Identity)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret hasher: %w", err)
	}

	backend, err := storage.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, err
	}

	pool := task.NewWorkerPool(task.WorkerPoolConfig{
		MaxConcurrency: cfg.Queue.MaxConcurrency,
		LaneBuffer:     cfg.Queue.LaneBuffer,
		TaskTimeout:    cfg.Queue.TaskTimeout,
	}, logger)
	kv := store.NewQueuedKV(backend, pool, logger)

	carts := cart.NewStore(kv, logger)
	emitter := events.NewInMemoryEventEmitter(logger)
	emitter.RegisterHandler(cart.NewIdentityHandler(carts, logger))

	return &app{
		cfg:      cfg,
		logger:   logger,
		backend:  backend,
		pool:     pool,
		kv:       kv,
		identity: identity.NewStore(kv, hasher, emitter, logger),
		carts:    carts,
	}, nil
}

// start loads the registry and restores the previous session. Storage
// faults degrade to an empty registry or no session and are only logged.
func (a *app) start(ctx context.Context) error {
	if err := a.identity.Load(ctx); err != nil {
		a.logger.Warn("continuing with an empty registry", "error", redact.Error(err))
	}

	user, ok, err := a.identity.Restore(ctx)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case err != nil:
		a.logger.Warn("session restore incomplete",
			"restored", ok,
			"error", redact.Error(err))
	case ok:
		a.logger.Debug("session restored", "user_id", user.ID)
	}
	return nil
}

// sessionCart is the cart store bound to the session user. Callers check
// that a session exists first.
func (a *app) sessionCart() cart.Scoped {
	user, _ := a.identity.Current()
	return a.carts.For(user.ID)
}

// close waits for pending writes, stops the lanes and closes storage.
// Every failure is returned, joined.
func (a *app) close(ctx context.Context) error {
	flushErr := a.kv.Flush(ctx)
	if flushErr != nil {
		a.logger.Error("pending writes failed", "error", redact.Error(flushErr))
	}
	return errors.Join(flushErr, a.pool.Stop(ctx), a.backend.Close())
}
