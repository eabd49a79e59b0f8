// Package app wires the storage, Spotify and service layers shared by the
// API server and the deck.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ewilliams-labs/rockdj/internal/adapters/spotify"
	"github.com/ewilliams-labs/rockdj/internal/adapters/sqlite"
	"github.com/ewilliams-labs/rockdj/internal/config"
	"github.com/ewilliams-labs/rockdj/internal/core/services"
	"github.com/ewilliams-labs/rockdj/internal/log"
	"github.com/ewilliams-labs/rockdj/internal/worker"
)

const (
	httpTimeout    = 15 * time.Second
	envelopeQueue  = 100
	envelopeWorker = 2
)

// Backend is the wired service layer.
type Backend struct {
	Service *services.Orchestrator
	Spotify *spotify.Client

	db   *sqlite.Adapter
	pool *worker.Pool
}

// NewBackend opens storage, authenticates against Spotify and starts the
// envelope workers.
func NewBackend(ctx context.Context, cfg config.Config, logger *log.Logger) (*Backend, error) {
	if cfg.StorageDriver != "sqlite" {
		return nil, fmt.Errorf("app: unknown storage driver %q", cfg.StorageDriver)
	}
	db, err := sqlite.NewAdapter(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	transport := spotify.NewRetryTransport(http.DefaultTransport, cfg.MaxRetries, cfg.RetryBackoff, logger)
	httpClient, err := spotify.HTTPClient(ctx, spotify.Credentials{
		ClientID:     cfg.SpotifyClientID,
		ClientSecret: cfg.SpotifyClientSecret,
		RefreshToken: cfg.SpotifyRefreshToken,
	}, transport, httpTimeout)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("app: %w", err)
	}
	client := spotify.NewClient(httpClient, cfg.SpotifyBaseURL, logger)

	pool := worker.NewPool(db, logger, envelopeQueue)
	pool.Start(envelopeWorker)

	return &Backend{
		Service: services.NewOrchestrator(client, db, pool, logger),
		Spotify: client,
		db:      db,
		pool:    pool,
	}, nil
}

// Close drains the workers and closes storage.
func (b *Backend) Close() error {
	b.pool.Stop()
	return b.db.Close()
}
