package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/phrazzld/storefront/internal/store"
)

// PostgreSQL error codes
const (
	uniqueViolationCode   = "23505"
	tooManyConnectionCode = "53300"
	adminShutdownCode     = "57P01"
)

// MapError maps a database error raised while operating on key to a store
// error. sql.ErrNoRows becomes store.ErrNotFound; every other error is
// wrapped in a store.StoreError so callers can match store.ErrStorageFailure.
func MapError(err error, key, operation string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}

	message := "database error"
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &pgErr):
		message = fmt.Sprintf("postgres error %s", pgErr.Code)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		message = "operation interrupted"
	}
	return store.NewStoreError(key, operation, message, err)
}

// IsUniqueViolation checks if the given error is a PostgreSQL unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

// IsUnavailable reports whether the server refused or dropped the connection.
func IsUnavailable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == tooManyConnectionCode || pgErr.Code == adminShutdownCode
}
