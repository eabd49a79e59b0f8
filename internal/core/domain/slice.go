package domain

import "math"

// MinSliceWidthMs is the narrowest slice that may exist. Narrower slices are
// deleted rather than persisted.
const MinSliceWidthMs = 1.0

// Slice is a user-defined time range of a track. ShouldPlay=false marks a
// mute zone that playback skips past.
type Slice struct {
	ID              string  `json:"id"`
	StartPositionMs float64 `json:"startPosition"`
	EndPositionMs   float64 `json:"endPosition"`
	ShouldPlay      bool    `json:"shouldPlay"`
}

// Width is the length of the slice in milliseconds.
func (s Slice) Width() float64 { return s.EndPositionMs - s.StartPositionMs }

// Valid reports whether the slice satisfies 0 <= start < end and the
// minimum width.
func (s Slice) Valid() bool {
	if s.ID == "" {
		return false
	}
	if math.IsNaN(s.StartPositionMs) || math.IsNaN(s.EndPositionMs) {
		return false
	}
	return s.StartPositionMs >= 0 && s.Width() >= MinSliceWidthMs
}

// Contains reports whether positionMs lies in [start, end].
func (s Slice) Contains(positionMs float64) bool {
	return s.StartPositionMs <= positionMs && positionMs <= s.EndPositionMs
}

// Rounded returns the slice with both boundaries rounded to whole
// milliseconds, as stored.
func (s Slice) Rounded() Slice {
	s.StartPositionMs = math.Round(s.StartPositionMs)
	s.EndPositionMs = math.Round(s.EndPositionMs)
	return s
}

// CloneSlices copies a slice set so snapshots never share backing arrays.
func CloneSlices(in []Slice) []Slice {
	if in == nil {
		return nil
	}
	out := make([]Slice, len(in))
	copy(out, in)
	return out
}

// SlicesEqual compares two slice sets element-wise.
func SlicesEqual(a, b []Slice) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
