// Package sqlite provides a store.KV kept in a single SQLite table, using the
// pure-Go modernc.org/sqlite driver. The schema is managed by embedded goose
// migrations applied on Open.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/phrazzld/storefront/internal/store"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

const (
	getQuery    = `SELECT value FROM kv_entries WHERE key = ?`
	upsertQuery = `INSERT INTO kv_entries (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	deleteQuery = `DELETE FROM kv_entries WHERE key = ?`
)

// Store is a SQLite-backed store.KV.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ store.KV = (*Store)(nil)

// Open opens the database file at path, applies pending migrations and
// returns the store.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, store.NewStoreError("sqlite", "open", "open database", err)
	}
	// One connection serializes writers and keeps pragmas in effect.
	db.SetMaxOpenConns(1)

	s := &Store{
		db:     db,
		logger: logger.With("component", "sqlite_store"),
	}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate applies every pending migration.
func (s *Store) Migrate(ctx context.Context) error {
	migrations, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, s.db, migrations)
	if err != nil {
		return store.NewStoreError("kv_entries", "migrate", "create migration provider", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return store.NewStoreError("kv_entries", "migrate", "apply migrations", err)
	}
	for _, r := range results {
		s.logger.Info("migration applied",
			"version", r.Source.Version,
			"duration_ms", r.Duration.Milliseconds())
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get implements store.KV.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, getQuery, key).Scan(&blob)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, store.NewStoreError(key, "get", "query failed", err)
	}
	if blob == nil {
		blob = []byte{}
	}
	return blob, nil
}

// Set implements store.KV.
func (s *Store) Set(ctx context.Context, key string, blob []byte) error {
	if blob == nil {
		blob = []byte{}
	}
	if _, err := s.db.ExecContext(ctx, upsertQuery, key, blob); err != nil {
		return store.NewStoreError(key, "set", "upsert failed", err)
	}
	return nil
}

// Remove implements store.KV.
func (s *Store) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, deleteQuery, key); err != nil {
		return store.NewStoreError(key, "remove", "delete failed", err)
	}
	return nil
}
