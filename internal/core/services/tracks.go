package services

import (
	"context"
	"fmt"
	"math"

	"github.com/ewilliams-labs/rockdj/internal/core/domain"
)

// GetSlices returns the stored slices of a track.
func (o *Orchestrator) GetSlices(ctx context.Context, trackID string) ([]domain.Slice, error) {
	if trackID == "" {
		return nil, fmt.Errorf("service: get slices: %w", domain.ErrInvalidArgument)
	}
	out, err := o.repo.GetSlices(ctx, trackID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to load slices: %w", err)
	}
	return out, nil
}

// UpsertSlices replaces the slice set of a track. Positions are rounded to
// whole milliseconds; any invalid slice rejects the whole set.
func (o *Orchestrator) UpsertSlices(ctx context.Context, trackID string, set []domain.Slice) ([]domain.Slice, error) {
	if trackID == "" {
		return nil, fmt.Errorf("service: upsert slices: %w", domain.ErrInvalidArgument)
	}
	rounded := make([]domain.Slice, 0, len(set))
	seen := make(map[string]struct{}, len(set))
	for _, s := range set {
		r := s.Rounded()
		if !r.Valid() {
			return nil, fmt.Errorf("service: slice %q [%v, %v]: %w", s.ID, s.StartPositionMs, s.EndPositionMs, domain.ErrInvalidSlice)
		}
		if _, dup := seen[r.ID]; dup {
			return nil, fmt.Errorf("service: duplicate slice id %q: %w", r.ID, domain.ErrInvalidSlice)
		}
		seen[r.ID] = struct{}{}
		rounded = append(rounded, r)
	}
	if err := o.repo.UpsertSlices(ctx, trackID, rounded); err != nil {
		return nil, fmt.Errorf("service: failed to save slices: %w", err)
	}
	return rounded, nil
}

// SetTrackTempo stores a tap tempo and beat offset rounded to integers. A
// nil value clears it.
func (o *Orchestrator) SetTrackTempo(ctx context.Context, trackID string, tapTempoBpm, beatOffsetMs *float64) (domain.TrackTempo, error) {
	if trackID == "" {
		return domain.TrackTempo{}, fmt.Errorf("service: set tempo: %w", domain.ErrInvalidArgument)
	}
	tt := domain.TrackTempo{TrackID: trackID, TapTempoBpm: roundPtr(tapTempoBpm), BeatOffsetMs: roundPtr(beatOffsetMs)}
	if tt.TapTempoBpm != nil && *tt.TapTempoBpm <= 0 {
		return domain.TrackTempo{}, fmt.Errorf("service: tempo %v: %w", *tapTempoBpm, domain.ErrInvalidArgument)
	}
	if err := o.repo.SetTrackTempo(ctx, trackID, tt.TapTempoBpm, tt.BeatOffsetMs); err != nil {
		return domain.TrackTempo{}, fmt.Errorf("service: failed to save track tempo: %w", err)
	}
	return tt, nil
}

func roundPtr(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	r := math.Round(*v)
	return &r
}
