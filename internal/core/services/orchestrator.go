// Package services holds the backend use cases behind the REST surface.
package services

import (
	"context"
	"fmt"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/ewilliams-labs/rockdj/internal/core/domain"
	"github.com/ewilliams-labs/rockdj/internal/core/ports"
	"github.com/ewilliams-labs/rockdj/internal/log"
	"github.com/ewilliams-labs/rockdj/internal/worker"
)

const (
	// playlistChunk is the most tracks the Web API accepts per playlist edit
	// and per audio-features request.
	playlistChunk     = 100
	analysisCacheSize = 256
)

// EnvelopeQueue receives preview envelope jobs. Submit must not block.
type EnvelopeQueue interface {
	Submit(job worker.Job)
}

// Orchestrator coordinates the Spotify provider and the track repository.
type Orchestrator struct {
	spotify ports.SpotifyProvider
	repo    ports.TrackRepository
	queue   EnvelopeQueue
	logger  *log.Logger

	analyses *lru.Cache[string, domain.TrackAnalysis]
	inflight singleflight.Group
}

// NewOrchestrator constructs an Orchestrator. queue may be nil.
func NewOrchestrator(spotify ports.SpotifyProvider, repo ports.TrackRepository, queue EnvelopeQueue, logger *log.Logger) *Orchestrator {
	cache, err := lru.New[string, domain.TrackAnalysis](analysisCacheSize)
	if err != nil {
		panic(err)
	}
	return &Orchestrator{
		spotify:  spotify,
		repo:     repo,
		queue:    queue,
		logger:   logger,
		analyses: cache,
	}
}

// Playlists returns one page of the user's own playlists.
func (o *Orchestrator) Playlists(ctx context.Context, cursor int) (domain.Page[domain.Playlist], error) {
	if cursor < 0 {
		return domain.Page[domain.Playlist]{}, fmt.Errorf("service: cursor %d: %w", cursor, domain.ErrInvalidArgument)
	}
	page, err := o.spotify.Playlists(ctx, cursor)
	if err != nil {
		return domain.Page[domain.Playlist]{}, fmt.Errorf("service: failed to list playlists: %w", err)
	}
	return page, nil
}

// PlaylistTracks returns one page of tracks merged with their audio features
// and stored tempo. Tracks with a preview are queued for envelope analysis.
func (o *Orchestrator) PlaylistTracks(ctx context.Context, playlistID string, cursor int) (domain.Page[domain.Track], error) {
	if playlistID == "" {
		return domain.Page[domain.Track]{Items: []domain.Track{}}, nil
	}
	if cursor < 0 {
		return domain.Page[domain.Track]{}, fmt.Errorf("service: cursor %d: %w", cursor, domain.ErrInvalidArgument)
	}

	page, err := o.spotify.PlaylistTracks(ctx, playlistID, cursor)
	if err != nil {
		return domain.Page[domain.Track]{}, fmt.Errorf("service: failed to list playlist tracks: %w", err)
	}
	if err := o.mergeTracks(ctx, page.Items); err != nil {
		return domain.Page[domain.Track]{}, err
	}

	if o.queue != nil {
		for _, t := range page.Items {
			if t.PreviewURL != "" {
				o.queue.Submit(worker.Job{TrackID: t.ID, PreviewURL: t.PreviewURL})
			}
		}
	}
	return page, nil
}

// mergeTracks fills features and stored tempo into tracks in place.
func (o *Orchestrator) mergeTracks(ctx context.Context, tracks []domain.Track) error {
	if len(tracks) == 0 {
		return nil
	}
	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
	}

	features, err := o.features(ctx, ids)
	if err != nil {
		return err
	}
	tempos, err := o.repo.GetTrackTempos(ctx, ids)
	if err != nil {
		return fmt.Errorf("service: failed to load track tempos: %w", err)
	}

	for i := range tracks {
		if f, ok := features[tracks[i].ID]; ok {
			tracks[i].Features = f
		}
		if tt, ok := tempos[tracks[i].ID]; ok {
			tracks[i].TapTempoBpm = tt.TapTempoBpm
			tracks[i].BeatOffsetMs = tt.BeatOffsetMs
		}
	}
	return nil
}

// features looks up audio features in parallel chunks.
func (o *Orchestrator) features(ctx context.Context, ids []string) (map[string]domain.AudioFeatures, error) {
	chunks := slices.Collect(slices.Chunk(ids, playlistChunk))
	results := make([]map[string]domain.AudioFeatures, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	for i, chunk := range chunks {
		g.Go(func() error {
			f, err := o.spotify.AudioFeatures(gctx, chunk)
			if err != nil {
				return err
			}
			results[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("service: failed to load audio features: %w", err)
	}

	out := make(map[string]domain.AudioFeatures, len(ids))
	for _, r := range results {
		for id, f := range r {
			out[id] = f
		}
	}
	return out, nil
}

// PlayOnDevice starts a playlist on the given device.
func (o *Orchestrator) PlayOnDevice(ctx context.Context, req domain.PlayRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("service: invalid play request: %w", err)
	}
	if err := o.spotify.PlayOnDevice(ctx, req); err != nil {
		return fmt.Errorf("service: failed to start playback: %w", err)
	}
	return nil
}

// AddToQueue queues a track on the given device.
func (o *Orchestrator) AddToQueue(ctx context.Context, deviceID, trackURI string) error {
	if deviceID == "" {
		return fmt.Errorf("service: queue: %w", domain.ErrNoDevice)
	}
	if trackURI == "" {
		return fmt.Errorf("service: queue: %w", domain.ErrInvalidArgument)
	}
	if err := o.spotify.AddToQueue(ctx, deviceID, trackURI); err != nil {
		return fmt.Errorf("service: failed to queue track: %w", err)
	}
	return nil
}

// RemoveTrack removes a track from a playlist.
func (o *Orchestrator) RemoveTrack(ctx context.Context, playlistID, trackID string) error {
	if playlistID == "" || trackID == "" {
		return fmt.Errorf("service: remove track: %w", domain.ErrInvalidArgument)
	}
	if err := o.spotify.RemoveTrack(ctx, playlistID, trackID); err != nil {
		return fmt.Errorf("service: failed to remove track: %w", err)
	}
	return nil
}

// SortByTempo reorders a playlist by ascending tempo. The tap tempo wins
// over the analysis tempo; tracks without either sort first. Equal tempos
// keep their playlist order.
func (o *Orchestrator) SortByTempo(ctx context.Context, playlistID string) ([]domain.Track, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("service: sort: %w", domain.ErrInvalidArgument)
	}
	tracks, err := o.spotify.AllPlaylistTracks(ctx, playlistID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to load playlist: %w", err)
	}
	if err := o.mergeTracks(ctx, tracks); err != nil {
		return nil, err
	}

	slices.SortStableFunc(tracks, func(a, b domain.Track) int {
		switch ta, tb := a.Tempo(), b.Tempo(); {
		case ta < tb:
			return -1
		case ta > tb:
			return 1
		default:
			return 0
		}
	})

	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
	}
	for i, chunk := range slices.Collect(slices.Chunk(ids, playlistChunk)) {
		if i == 0 {
			err = o.spotify.ReplacePlaylistTracks(ctx, playlistID, chunk)
		} else {
			err = o.spotify.AppendPlaylistTracks(ctx, playlistID, chunk)
		}
		if err != nil {
			return nil, fmt.Errorf("service: failed to write sorted playlist: %w", err)
		}
	}
	o.logger.Infof("service: sorted playlist %s by tempo (%d tracks)", playlistID, len(tracks))
	return tracks, nil
}
