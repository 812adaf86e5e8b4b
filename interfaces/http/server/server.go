// Package server runs the HTTP router until its context ends.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"kaku/infrastructure/config"
	"kaku/infrastructure/di"
)

// Run rebuilds the indices, optionally watches the config file, and serves
// until ctx is cancelled. In-flight requests get cfg.ShutdownTimeout to
// finish.
func Run(ctx context.Context, c *di.Container) error {
	cfg := c.Config
	logger := c.Logger

	start := time.Now()
	if err := c.Start(ctx); err != nil {
		return err
	}
	logger.Info("Indices ready", zap.Duration("took", time.Since(start)))

	if cfg.ConfigFile != "" {
		w, err := config.NewWatcher(cfg, logger)
		if err != nil {
			logger.Warn("Configuration hot reloading disabled", zap.Error(err))
		} else {
			w.OnChange(c.Reload)
			defer w.Stop()
		}
	}

	srv := &http.Server{
		Addr:              cfg.Address(),
		Handler:           c.Router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server",
			zap.String("address", srv.Addr),
			zap.String("environment", cfg.Environment),
			zap.String("store", cfg.StoreBackend),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
