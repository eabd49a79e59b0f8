package ports

import (
	"context"

	"github.com/ewilliams-labs/rockdj/internal/core/domain"
)

// SliceStore is the Slice/Tempo Persistence service the core consumes.
// UpsertSlices replaces the whole set for the track.
type SliceStore interface {
	GetSlices(ctx context.Context, trackID string) ([]domain.Slice, error)
	UpsertSlices(ctx context.Context, trackID string, slices []domain.Slice) error
	SetTrackTempo(ctx context.Context, trackID string, tapTempoBpm, beatOffsetMs *float64) error
}

// TrackRepository is the backend's persistence port.
type TrackRepository interface {
	SliceStore
	GetTrackTempos(ctx context.Context, trackIDs []string) (map[string]domain.TrackTempo, error)
	SaveEnvelope(ctx context.Context, trackID string, beats []domain.Beat) error
	GetEnvelope(ctx context.Context, trackID string) ([]domain.Beat, error)
}
