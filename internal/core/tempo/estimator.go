// Package tempo estimates a track's tempo and beat phase from user taps.
package tempo

import (
	"math"
	"time"
)

const (
	// DefaultAlpha weights the newest interval in the moving average.
	DefaultAlpha = 0.5
	// DefaultResetAfter is the longest gap between taps of one session.
	DefaultResetAfter = 2000 * time.Millisecond
)

// Estimate is the state of a tap session after one tap.
type Estimate struct {
	Bpm          float64
	BeatOffsetMs float64
	Taps         int
	// Reset is set when the tap started a new session because the gap since
	// the previous tap exceeded the reset timeout.
	Reset bool
	// Ignored is set when the tap was not later than the previous one and
	// left the session unchanged.
	Ignored bool
}

// HasTempo reports whether at least two taps produced an interval.
func (e Estimate) HasTempo() bool { return e.Bpm > 0 }

// Estimator smooths inter-tap intervals with an exponentially weighted
// moving average seeded by the first interval.
type Estimator struct {
	Alpha      float64
	ResetAfter time.Duration

	last time.Time
	ewma float64
	taps int
}

func NewEstimator() *Estimator {
	return &Estimator{Alpha: DefaultAlpha, ResetAfter: DefaultResetAfter}
}

// Tap records a tap at wall time now while playback was at positionMs.
func (e *Estimator) Tap(now time.Time, positionMs float64) Estimate {
	var reset bool
	if e.taps > 0 {
		gap := now.Sub(e.last)
		if gap <= 0 {
			est := e.estimate(positionMs)
			est.Ignored = true
			return est
		}
		if gap > e.ResetAfter {
			reset = true
			e.clear()
		}
	}

	if e.taps > 0 {
		interval := float64(now.Sub(e.last)) / float64(time.Millisecond)
		if e.taps == 1 {
			e.ewma = interval
		} else {
			e.ewma = e.Alpha*interval + (1-e.Alpha)*e.ewma
		}
	}
	e.last = now
	e.taps++

	est := e.estimate(positionMs)
	est.Reset = reset
	return est
}

func (e *Estimator) estimate(positionMs float64) Estimate {
	est := Estimate{Taps: e.taps}
	if e.ewma > 0 {
		est.Bpm = 60000 / e.ewma
		est.BeatOffsetMs = BeatOffset(positionMs, est.Bpm)
	}
	return est
}

// Reset discards the current session.
func (e *Estimator) Reset() { e.clear() }

func (e *Estimator) clear() {
	e.last = time.Time{}
	e.ewma = 0
	e.taps = 0
}

// BeatOffset is the phase of positionMs within one beat period at bpm.
func BeatOffset(positionMs, bpm float64) float64 {
	if bpm <= 0 {
		return 0
	}
	return math.Mod(positionMs, 60000/bpm)
}
