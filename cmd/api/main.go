package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ewilliams-labs/rockdj/internal/adapters/rest"
	"github.com/ewilliams-labs/rockdj/internal/app"
	"github.com/ewilliams-labs/rockdj/internal/config"
	"github.com/ewilliams-labs/rockdj/internal/log"
)

func main() {
	logger := log.Default()

	// 1. Configuration: crash early if Spotify credentials are missing.
	cfg, err := config.Load()
	if err != nil {
		logger.Errorf("FATAL: %v", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Errorf("FATAL: %v", err)
		os.Exit(1)
	}
	logger.SetLevel(log.LevelFromString(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Driven adapters and the core service.
	backend, err := app.NewBackend(ctx, cfg, logger)
	if err != nil {
		logger.Errorf("FATAL: %v", err)
		os.Exit(1)
	}
	defer backend.Close()

	// 3. Driving adapter.
	handler := rest.NewHandler(backend.Service, logger)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()
	logger.Infof("rockdj api listening on %s", cfg.Addr)

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Errorf("server: %v", err)
		}
	case <-ctx.Done():
		logger.Infof("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("shutdown: %v", err)
		}
	}
}
