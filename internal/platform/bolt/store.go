// Package bolt provides a store.KV backed by a single bbolt file, the
// default driver: embedded, durable and single-process like device storage.
package bolt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/phrazzld/storefront/internal/store"
)

const bucketName = "kv"

var errBucketMissing = errors.New("kv bucket is missing")

// Store is a bbolt-backed store.KV.
type Store struct {
	db *bbolt.DB
}

var _ store.KV = (*Store)(nil)

// Open opens or creates the database file at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	db, err := bbolt.Open(cleanPath, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, store.NewStoreError(bucketName, "open", "open storage db", err)
	}

	s := &Store{db: db}
	if err := s.ensureBucket(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get implements store.KV.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var blob []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket == nil {
			return errBucketMissing
		}
		v := bucket.Get([]byte(key))
		if v == nil {
			return store.ErrNotFound
		}
		// v is only valid for the life of the transaction.
		blob = bytes.Clone(v)
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, store.NewStoreError(key, "get", "bolt view failed", err)
	}

	return blob, nil
}

// Set implements store.KV.
func (s *Store) Set(ctx context.Context, key string, blob []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if blob == nil {
		blob = []byte{}
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket == nil {
			return errBucketMissing
		}
		return bucket.Put([]byte(key), blob)
	})
	if err != nil {
		return store.NewStoreError(key, "set", "bolt update failed", err)
	}
	return nil
}

// Remove implements store.KV.
func (s *Store) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket == nil {
			return errBucketMissing
		}
		return bucket.Delete([]byte(key))
	})
	if err != nil {
		return store.NewStoreError(key, "remove", "bolt update failed", err)
	}
	return nil
}

func (s *Store) ensureBucket() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(bucketName)); err != nil {
			return store.NewStoreError(bucketName, "open", "create bucket", err)
		}
		return nil
	})
}
