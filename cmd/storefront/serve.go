package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/phrazzld/storefront/internal/api"
	"github.com/phrazzld/storefront/internal/service/auth"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the session over HTTP until interrupted",
		Args:  cobra.NoArgs,
		RunE: withApp(configPath, func(ctx context.Context, _ *cobra.Command, a *app, _ []string) error {
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			ln, err := net.Listen("tcp", a.cfg.Server.Addr)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", a.cfg.Server.Addr, err)
			}
			return a.serve(ctx, ln)
		}),
	}
}

// serve answers HTTP requests on ln until ctx ends, then shuts the server
// down gracefully. The listener is closed on return.
func (a *app) serve(ctx context.Context, ln net.Listener) error {
	tokens, err := auth.NewJWTService(a.cfg.Auth)
	if err != nil {
		_ = ln.Close()
		return fmt.Errorf("failed to create token service: %w", err)
	}

	server := &http.Server{
		Handler: api.NewRouter(api.RouterDeps{
			Identity: a.identity,
			Carts:    a.carts,
			Tokens:   tokens,
			Logger:   a.logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(ln)
	}()
	a.logger.Info("serving session", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("server failed", "error", err)
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		a.logger.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown failed", "error", err)
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.logger.Info("server stopped")
	return nil
}
