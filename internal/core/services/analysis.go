package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/ewilliams-labs/rockdj/internal/core/domain"
	"github.com/ewilliams-labs/rockdj/internal/core/ports"
)

// Analysis returns the waveform of a track: one normalized loudness value
// per beat, merged with the stored tempo. When the Web API has no analysis
// for the track the stored preview envelope is used instead.
func (o *Orchestrator) Analysis(ctx context.Context, trackID string) (domain.TrackAnalysis, error) {
	if trackID == "" {
		return domain.TrackAnalysis{}, fmt.Errorf("service: analysis: %w", domain.ErrInvalidArgument)
	}

	base, ok := o.analyses.Get(trackID)
	if !ok {
		v, err, _ := o.inflight.Do(trackID, func() (any, error) {
			a, err := o.loadAnalysis(ctx, trackID)
			if err != nil {
				return domain.TrackAnalysis{}, err
			}
			// envelope fallbacks are not cached
			if !a.Envelope {
				o.analyses.Add(trackID, a)
			}
			return a, nil
		})
		if err != nil {
			return domain.TrackAnalysis{}, err
		}
		base = v.(domain.TrackAnalysis)
	}

	tempos, err := o.repo.GetTrackTempos(ctx, []string{trackID})
	if err != nil {
		return domain.TrackAnalysis{}, fmt.Errorf("service: failed to load track tempo: %w", err)
	}
	if tt, ok := tempos[trackID]; ok {
		base.TapTempoBpm = tt.TapTempoBpm
		base.BeatOffsetMs = tt.BeatOffsetMs
	}
	return base, nil
}

func (o *Orchestrator) loadAnalysis(ctx context.Context, trackID string) (domain.TrackAnalysis, error) {
	features, err := o.spotify.AudioFeatures(ctx, []string{trackID})
	if err != nil {
		return domain.TrackAnalysis{}, fmt.Errorf("service: failed to load audio features: %w", err)
	}
	f, ok := features[trackID]
	if !ok {
		return domain.TrackAnalysis{}, fmt.Errorf("service: audio features of %s: %w", trackID, domain.ErrNotFound)
	}

	out := domain.TrackAnalysis{
		TrackID:       trackID,
		Tempo:         f.Tempo,
		TimeSignature: f.TimeSignature,
		DurationMs:    f.DurationMs,
		NumBeats:      domain.CountBeats(f.DurationMs, f.Tempo),
	}

	raw, err := o.spotify.AudioAnalysis(ctx, trackID)
	if err == nil {
		out.Beats = domain.NormalizeBeats(beatLoudness(raw))
		return out, nil
	}

	envelope, envErr := o.repo.GetEnvelope(ctx, trackID)
	if envErr != nil || envelope == nil {
		return domain.TrackAnalysis{}, fmt.Errorf("service: failed to load audio analysis: %w", errors.Join(err, envErr))
	}
	o.logger.Warnf("service: analysis of %s unavailable, using preview envelope: %v", trackID, err)
	out.Beats = envelope
	out.Envelope = true
	return out, nil
}

// beatLoudness values each beat by the average loudness (timbre[0]) of the
// earliest segment overlapping it. Beats no segment overlaps are dropped.
func beatLoudness(raw ports.RawAnalysis) []domain.Beat {
	segments := make([]ports.Segment, len(raw.Segments))
	copy(segments, raw.Segments)
	sort.SliceStable(segments, func(i, j int) bool { return segments[i].Start < segments[j].Start })

	beats := make([]domain.Beat, 0, len(raw.Beats))
	for _, b := range raw.Beats {
		end := b.Start + b.Duration
		i := sort.Search(len(segments), func(i int) bool {
			return segments[i].Start+segments[i].Duration >= b.Start
		})
		if i == len(segments) || segments[i].Start > end {
			continue
		}
		value := 0.0
		if len(segments[i].Timbre) > 0 {
			value = segments[i].Timbre[0]
		}
		beats = append(beats, domain.Beat{PositionMs: b.Start * 1000, Value: value})
	}
	return beats
}
