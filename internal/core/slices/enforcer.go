package slices

import (
	"math"
	"sync"

	"github.com/ewilliams-labs/rockdj/internal/core/store"
)

// Enforcer skips playback past mute slices. It seeks once per entry into a
// mute slice and re-arms when the position leaves every mute slice.
type Enforcer struct {
	seek func(positionMs float64)

	mu       sync.Mutex
	skipping string
}

// NewEnforcer creates an enforcer that calls seek to jump past a slice.
func NewEnforcer(seek func(positionMs float64)) *Enforcer {
	return &Enforcer{seek: seek}
}

// Check inspects a snapshot and seeks when the playhead sits in a mute
// slice of the current track.
func (e *Enforcer) Check(s store.State) {
	p := s.Player
	if !p.HasDevice() || p.TrackID() == "" || s.SliceTrackID != p.TrackID() {
		e.disarm()
		return
	}
	hit, ok := At(s.Slices, p.PositionMs)
	if !ok || hit.ShouldPlay {
		e.disarm()
		return
	}

	e.mu.Lock()
	if e.skipping == hit.ID {
		e.mu.Unlock()
		return
	}
	e.skipping = hit.ID
	e.mu.Unlock()

	target := hit.EndPositionMs + 1
	if p.DurationMs > 0 {
		target = math.Min(target, p.DurationMs)
	}
	e.seek(target)
}

func (e *Enforcer) disarm() {
	e.mu.Lock()
	e.skipping = ""
	e.mu.Unlock()
}
