// Package spotify adapts the Spotify Web API to the core ports.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/zmb3/spotify/v2"

	"github.com/ewilliams-labs/rockdj/internal/core/domain"
	"github.com/ewilliams-labs/rockdj/internal/core/ports"
	"github.com/ewilliams-labs/rockdj/internal/log"
)

// Web API batch limits.
const (
	maxFeatureIDs = 100
)

// Client wraps the Web API client for the backend ports.
type Client struct {
	api    *spotify.Client
	logger *log.Logger

	mu     sync.Mutex
	userID string
}

// compile-time interface assertion
var _ ports.SpotifyProvider = (*Client)(nil)

// NewClient constructs a new Spotify client. httpClient must attach
// authorization; baseURL overrides the Web API root when non-empty.
func NewClient(httpClient *http.Client, baseURL string, logger *log.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	var opts []spotify.ClientOption
	if baseURL != "" {
		opts = append(opts, spotify.WithBaseURL(strings.TrimRight(baseURL, "/")+"/"))
	}
	return &Client{api: spotify.New(httpClient, opts...), logger: logger}
}

// API exposes the underlying Web API client.
func (c *Client) API() *spotify.Client { return c.api }

func (c *Client) currentUserID(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.userID != "" {
		return c.userID, nil
	}
	u, err := c.api.CurrentUser(ctx)
	if err != nil {
		return "", wrap("current user", err)
	}
	c.userID = u.ID
	return c.userID, nil
}

// Playlists returns one page of the playlists the current user owns.
func (c *Client) Playlists(ctx context.Context, cursor int) (domain.Page[domain.Playlist], error) {
	userID, err := c.currentUserID(ctx)
	if err != nil {
		return domain.Page[domain.Playlist]{}, err
	}
	page, err := c.api.CurrentUsersPlaylists(ctx, spotify.Limit(domain.PageSize), spotify.Offset(cursor))
	if err != nil {
		return domain.Page[domain.Playlist]{}, wrap("list playlists", err)
	}

	items := make([]domain.Playlist, 0, len(page.Playlists))
	for _, p := range page.Playlists {
		if p.Owner.ID != userID {
			continue
		}
		items = append(items, mapPlaylistToDomain(p))
	}
	return domain.Page[domain.Playlist]{Items: items, NextCursor: domain.NextCursor(cursor, page.Next != "")}, nil
}

// PlaylistTracks returns one page of a playlist's tracks. Episodes and
// local files without an id are skipped.
func (c *Client) PlaylistTracks(ctx context.Context, playlistID string, cursor int) (domain.Page[domain.Track], error) {
	page, err := c.api.GetPlaylistItems(ctx, spotify.ID(playlistID), spotify.Limit(domain.PageSize), spotify.Offset(cursor))
	if err != nil {
		return domain.Page[domain.Track]{}, wrap("list playlist tracks", err)
	}
	return domain.Page[domain.Track]{
		Items:      tracksOf(page.Items),
		NextCursor: domain.NextCursor(cursor, page.Next != ""),
	}, nil
}

// AllPlaylistTracks walks every page of a playlist.
func (c *Client) AllPlaylistTracks(ctx context.Context, playlistID string) ([]domain.Track, error) {
	var out []domain.Track
	for cursor := 0; ; cursor += domain.PageSize {
		page, err := c.api.GetPlaylistItems(ctx, spotify.ID(playlistID), spotify.Limit(domain.PageSize), spotify.Offset(cursor))
		if err != nil {
			return nil, wrap("list playlist tracks", err)
		}
		out = append(out, tracksOf(page.Items)...)
		if page.Next == "" {
			return out, nil
		}
	}
}

func tracksOf(items []spotify.PlaylistItem) []domain.Track {
	out := make([]domain.Track, 0, len(items))
	for _, item := range items {
		ft := item.Track.Track
		if ft == nil || ft.ID == "" {
			continue
		}
		out = append(out, mapTrackToDomain(ft))
	}
	return out
}

// AudioFeatures fetches features in batches of 100 ids. Tracks the API has
// no features for are absent from the result.
func (c *Client) AudioFeatures(ctx context.Context, trackIDs []string) (map[string]domain.AudioFeatures, error) {
	out := make(map[string]domain.AudioFeatures, len(trackIDs))
	for start := 0; start < len(trackIDs); start += maxFeatureIDs {
		end := min(start+maxFeatureIDs, len(trackIDs))
		ids := make([]spotify.ID, 0, end-start)
		for _, id := range trackIDs[start:end] {
			ids = append(ids, spotify.ID(id))
		}
		features, err := c.api.GetAudioFeatures(ctx, ids...)
		if err != nil {
			return nil, wrap("audio features", err)
		}
		for _, f := range features {
			if f == nil {
				continue
			}
			out[string(f.ID)] = mapFeaturesToDomain(f)
		}
	}
	return out, nil
}

// AudioAnalysis fetches the beat and segment analysis of a track.
func (c *Client) AudioAnalysis(ctx context.Context, trackID string) (ports.RawAnalysis, error) {
	a, err := c.api.GetAudioAnalysis(ctx, spotify.ID(trackID))
	if err != nil {
		return ports.RawAnalysis{}, wrap("audio analysis", err)
	}
	return mapAnalysis(a), nil
}

// RemoveTrack removes every occurrence of a track from a playlist.
func (c *Client) RemoveTrack(ctx context.Context, playlistID, trackID string) error {
	if _, err := c.api.RemoveTracksFromPlaylist(ctx, spotify.ID(playlistID), spotify.ID(trackID)); err != nil {
		return wrap("remove track", err)
	}
	return nil
}

// ReplacePlaylistTracks replaces the playlist's contents with at most 100
// tracks.
func (c *Client) ReplacePlaylistTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	if err := c.api.ReplacePlaylistTracks(ctx, spotify.ID(playlistID), toIDs(trackIDs)...); err != nil {
		return wrap("replace playlist tracks", err)
	}
	return nil
}

// AppendPlaylistTracks appends at most 100 tracks to the playlist.
func (c *Client) AppendPlaylistTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	if _, err := c.api.AddTracksToPlaylist(ctx, spotify.ID(playlistID), toIDs(trackIDs)...); err != nil {
		return wrap("append playlist tracks", err)
	}
	return nil
}

func toIDs(ids []string) []spotify.ID {
	out := make([]spotify.ID, len(ids))
	for i, id := range ids {
		out[i] = spotify.ID(id)
	}
	return out
}

// StatusOf returns the HTTP status of a Web API error, or 0.
func StatusOf(err error) int {
	var se spotify.Error
	if errors.As(err, &se) {
		return se.Status
	}
	var sp *spotify.Error
	if errors.As(err, &sp) && sp != nil {
		return sp.Status
	}
	return 0
}

func wrap(op string, err error) error {
	if StatusOf(err) == http.StatusNotFound {
		return fmt.Errorf("spotify adapter: %s: %w: %w", op, domain.ErrNotFound, err)
	}
	return fmt.Errorf("spotify adapter: %s: %w", op, err)
}
