package domain

import "math"

// Beat is one point of the loudness waveform. Value is normalized to [0,1].
type Beat struct {
	PositionMs float64 `json:"position"`
	Value      float64 `json:"value"`
}

// TrackAnalysis is what the waveform view needs to render a track.
type TrackAnalysis struct {
	TrackID       string   `json:"trackId"`
	Tempo         float64  `json:"tempo"`
	TimeSignature int      `json:"timeSignature"`
	DurationMs    int      `json:"durationMs"`
	NumBeats      int      `json:"numBeats"`
	Beats         []Beat   `json:"beats"`
	TapTempoBpm   *float64 `json:"tapTempo,omitempty"`
	BeatOffsetMs  *float64 `json:"beatOffset,omitempty"`
	// Envelope is set when the beats come from the preview envelope instead
	// of the Web API analysis.
	Envelope bool `json:"envelope,omitempty"`
}

// EffectiveTempo returns the tap tempo override or the analysis tempo.
func (a TrackAnalysis) EffectiveTempo() float64 {
	if a.TapTempoBpm != nil && *a.TapTempoBpm > 0 {
		return *a.TapTempoBpm
	}
	return a.Tempo
}

// EffectiveBeatOffset returns the stored beat offset or 0.
func (a TrackAnalysis) EffectiveBeatOffset() float64 {
	if a.BeatOffsetMs == nil {
		return 0
	}
	return *a.BeatOffsetMs
}

// CountBeats estimates the number of beats in a track of durationMs at tempo.
func CountBeats(durationMs int, tempo float64) int {
	return int(math.Round(float64(durationMs) / 60000 * math.Round(tempo)))
}

// NormalizeBeats rescales beat values to (v-min)/(max-min). When every value
// is equal all beats normalize to 0.
func NormalizeBeats(beats []Beat) []Beat {
	if len(beats) == 0 {
		return []Beat{}
	}
	lo, hi := beats[0].Value, beats[0].Value
	for _, b := range beats[1:] {
		lo = math.Min(lo, b.Value)
		hi = math.Max(hi, b.Value)
	}
	out := make([]Beat, len(beats))
	span := hi - lo
	for i, b := range beats {
		out[i] = Beat{PositionMs: b.PositionMs}
		if span > 0 {
			out[i].Value = (b.Value - lo) / span
		}
	}
	return out
}
