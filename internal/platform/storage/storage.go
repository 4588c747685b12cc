// Package storage opens the store.KV backend named by the configuration.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/phrazzld/storefront/internal/config"
	"github.com/phrazzld/storefront/internal/platform/bolt"
	"github.com/phrazzld/storefront/internal/platform/memory"
	"github.com/phrazzld/storefront/internal/platform/postgres"
	"github.com/phrazzld/storefront/internal/platform/redis"
	"github.com/phrazzld/storefront/internal/platform/sqlite"
	"github.com/phrazzld/storefront/internal/redact"
	"github.com/phrazzld/storefront/internal/store"
)

// Backend is an open key-value store that must be closed when done.
type Backend interface {
	store.KV
	io.Closer
}

// Open opens the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (Backend, error) {
	log := logger.With("component", "storage", "driver", cfg.Driver)

	var (
		backend Backend
		err     error
	)
	switch cfg.Driver {
	case config.DriverMemory:
		backend = memory.New()
		log.Warn("using in-memory storage; nothing will persist across runs")
	case config.DriverBolt:
		backend, err = bolt.Open(cfg.Path)
		log = log.With("path", redact.String(cfg.Path))
	case config.DriverSQLite:
		backend, err = sqlite.Open(ctx, cfg.Path, logger)
		log = log.With("path", redact.String(cfg.Path))
	case config.DriverPostgres:
		backend, err = postgres.Open(ctx, cfg.URL, logger)
		log = log.With("url", redact.String(cfg.URL))
	case config.DriverRedis:
		backend, err = redis.Open(ctx, redis.Options{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.KeyPrefix,
		})
		log = log.With("addr", cfg.RedisAddr, "key_prefix", cfg.KeyPrefix)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
	if err != nil {
		log.Error("failed to open storage", "error", redact.Error(err))
		return nil, fmt.Errorf("open %s storage: %w", cfg.Driver, err)
	}

	log.Info("storage opened")
	return backend, nil
}
