// Package postgres provides a store.KV backed by a PostgreSQL table.
//
// Connections go through the pgx stdlib driver so the store works against a
// plain *sql.DB. The kv_entries schema is managed by embedded goose migrations;
// Open applies them, and Migrate can be called directly on an existing pool.
// Driver errors are translated by MapError into the store package's sentinels.
package postgres
