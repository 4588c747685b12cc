// Package logger configures the application's structured slog logger and
// carries it through contexts. It also provides capture helpers for tests
// that assert on log output.
package logger
