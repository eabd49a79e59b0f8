package deck

import (
	"context"

	"github.com/ewilliams-labs/rockdj/internal/core/domain"
	"github.com/ewilliams-labs/rockdj/internal/core/ports"
)

// Service is the backend the deck reads playlists and waveforms from and
// persists slices and tempo through.
type Service interface {
	Playlists(ctx context.Context, cursor int) (domain.Page[domain.Playlist], error)
	Analysis(ctx context.Context, trackID string) (domain.TrackAnalysis, error)
	PlayOnDevice(ctx context.Context, req domain.PlayRequest) error
	GetSlices(ctx context.Context, trackID string) ([]domain.Slice, error)
	UpsertSlices(ctx context.Context, trackID string, set []domain.Slice) ([]domain.Slice, error)
	SetTrackTempo(ctx context.Context, trackID string, tapTempoBpm, beatOffsetMs *float64) (domain.TrackTempo, error)
}

// sliceStore narrows Service to the session's persistence port.
type sliceStore struct {
	svc Service
}

// SliceStore returns svc as a ports.SliceStore.
func SliceStore(svc Service) ports.SliceStore { return sliceStore{svc: svc} }

func (s sliceStore) GetSlices(ctx context.Context, trackID string) ([]domain.Slice, error) {
	return s.svc.GetSlices(ctx, trackID)
}

func (s sliceStore) UpsertSlices(ctx context.Context, trackID string, set []domain.Slice) error {
	_, err := s.svc.UpsertSlices(ctx, trackID, set)
	return err
}

func (s sliceStore) SetTrackTempo(ctx context.Context, trackID string, tapTempoBpm, beatOffsetMs *float64) error {
	_, err := s.svc.SetTrackTempo(ctx, trackID, tapTempoBpm, beatOffsetMs)
	return err
}
