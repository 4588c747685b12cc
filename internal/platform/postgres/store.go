package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/pressly/goose/v3"

	"github.com/phrazzld/storefront/internal/store"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

const (
	getQuery    = `SELECT value FROM kv_entries WHERE key = $1`
	upsertQuery = `INSERT INTO kv_entries (key, value, updated_at) VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
	deleteQuery = `DELETE FROM kv_entries WHERE key = $1`
)

// Store is a PostgreSQL-backed store.KV.
type Store struct {
	db *sql.DB
}

var _ store.KV = (*Store)(nil)

// New wraps an existing connection pool. The schema must already exist.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to url, verifies the connection and applies pending
// migrations.
func Open(ctx context.Context, url string, logger *slog.Logger) (*Store, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("database url is required")
	}

	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, MapError(err, "kv_entries", "open")
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, MapError(err, "kv_entries", "ping")
	}

	if err := Migrate(ctx, db, logger); err != nil {
		_ = db.Close()
		return nil, err
	}
	return New(db), nil
}

// Migrate applies every pending migration to db.
func Migrate(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	log := logger.With("component", "postgres_migrations")

	migrations, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations)
	if err != nil {
		return store.NewStoreError("kv_entries", "migrate", "create migration provider", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return store.NewStoreError("kv_entries", "migrate", "apply migrations", err)
	}
	for _, r := range results {
		log.Info("migration applied",
			"version", r.Source.Version,
			"duration_ms", r.Duration.Milliseconds())
	}
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get implements store.KV.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var blob []byte
	if err := s.db.QueryRowContext(ctx, getQuery, key).Scan(&blob); err != nil {
		return nil, MapError(err, key, "get")
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
	_, err := s.db.ExecContext(ctx, upsertQuery, key, blob)
	return MapError(err, key, "set")
}

// Remove implements store.KV.
func (s *Store) Remove(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, deleteQuery, key)
	return MapError(err, key, "remove")
}
