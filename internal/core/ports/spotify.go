package ports

import (
	"context"

	"github.com/ewilliams-labs/rockdj/internal/core/domain"
)

// Interval is a timed marker from the Web API audio analysis, in seconds.
type Interval struct {
	Start    float64
	Duration float64
}

// Segment is an analysis segment with its timbre vector. Timbre[0] is the
// average loudness of the segment.
type Segment struct {
	Interval
	Timbre []float64
}

// RawAnalysis is the subset of the Web API audio analysis the waveform uses.
type RawAnalysis struct {
	Beats    []Interval
	Segments []Segment
}

// SpotifyProvider is the Playlist/Track Query and Track Analysis service.
type SpotifyProvider interface {
	Playlists(ctx context.Context, cursor int) (domain.Page[domain.Playlist], error)
	PlaylistTracks(ctx context.Context, playlistID string, cursor int) (domain.Page[domain.Track], error)
	AllPlaylistTracks(ctx context.Context, playlistID string) ([]domain.Track, error)
	AudioFeatures(ctx context.Context, trackIDs []string) (map[string]domain.AudioFeatures, error)
	AudioAnalysis(ctx context.Context, trackID string) (RawAnalysis, error)

	PlaybackStarter
	AddToQueue(ctx context.Context, deviceID, trackURI string) error
	RemoveTrack(ctx context.Context, playlistID, trackID string) error
	ReplacePlaylistTracks(ctx context.Context, playlistID string, trackIDs []string) error
	AppendPlaylistTracks(ctx context.Context, playlistID string, trackIDs []string) error
}

// PlaybackStarter starts a playlist (optionally at a track) on a device.
type PlaybackStarter interface {
	PlayOnDevice(ctx context.Context, req domain.PlayRequest) error
}
