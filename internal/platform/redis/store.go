// Package redis provides a store.KV on top of a Redis server. Every store key
// is namespaced with a configurable prefix so several storefronts can share
// one database.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/phrazzld/storefront/internal/store"
)

// Options configures the connection.
type Options struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// Store is a Redis-backed store.KV.
type Store struct {
	client *goredis.Client
	prefix string
}

var _ store.KV = (*Store)(nil)

// New wraps an existing client.
func New(client *goredis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

// Open connects to the server described by opts and pings it.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if strings.TrimSpace(opts.Addr) == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, store.NewStoreError(opts.Addr, "ping", "redis unreachable", err)
	}
	return New(client, opts.KeyPrefix), nil
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(key string) string {
	return s.prefix + key
}

// Get implements store.KV.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, store.NewStoreError(key, "get", "context done", err)
	}

	blob, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, store.ErrNotFound
		}
		return nil, store.NewStoreError(key, "get", "redis GET failed", err)
	}
	return blob, nil
}

// Set implements store.KV.
func (s *Store) Set(ctx context.Context, key string, blob []byte) error {
	if err := ctx.Err(); err != nil {
		return store.NewStoreError(key, "set", "context done", err)
	}

	if err := s.client.Set(ctx, s.key(key), blob, 0).Err(); err != nil {
		return store.NewStoreError(key, "set", "redis SET failed", err)
	}
	return nil
}

// Remove implements store.KV.
func (s *Store) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return store.NewStoreError(key, "remove", "context done", err)
	}

	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return store.NewStoreError(key, "remove", "redis DEL failed", err)
	}
	return nil
}
