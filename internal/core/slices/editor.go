// Package slices implements slice creation, resizing, persistence and the
// client-side auto-skip of mute slices.
package slices

import (
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/ewilliams-labs/rockdj/internal/core/domain"
)

// Draft is the state of the slice-creation gesture: Idle or AnchorPlaced.
type Draft interface {
	isDraft()
}

// Idle has no draft anchor.
type Idle struct{}

// AnchorPlaced holds the first tap of a slice being created.
type AnchorPlaced struct {
	AnchorMs float64
}

func (Idle) isDraft()         {}
func (AnchorPlaced) isDraft() {}

// Handle is a slice boundary that can be dragged.
type Handle int

const (
	StartHandle Handle = iota
	EndHandle
)

func (h Handle) String() string {
	if h == EndHandle {
		return "end"
	}
	return "start"
}

// TapResult describes what a tap in slicing mode did.
type TapResult struct {
	Slices []domain.Slice
	// Committed is set when the tap completed a slice; slicing mode ends.
	Committed bool
	// Created is the new slice when one was committed.
	Created *domain.Slice
}

// Editor owns the drafting state machine.
type Editor struct {
	mu    sync.Mutex
	draft Draft
	newID func() string
}

func NewEditor() *Editor {
	return &Editor{draft: Idle{}, newID: uuid.NewString}
}

// Draft returns the current drafting state.
func (e *Editor) Draft() Draft {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft
}

// Cancel drops any placed anchor.
func (e *Editor) Cancel() {
	e.mu.Lock()
	e.draft = Idle{}
	e.mu.Unlock()
}

// Tap advances the drafting state with a tap at positionMs. The second tap
// closes the draft: a wide enough range is appended to set as a mute slice,
// a narrower one is discarded. Either way the editor returns to Idle.
func (e *Editor) Tap(positionMs float64, set []domain.Slice) TapResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch d := e.draft.(type) {
	case AnchorPlaced:
		e.draft = Idle{}
		start := math.Max(0, math.Min(d.AnchorMs, positionMs))
		end := math.Max(d.AnchorMs, positionMs)
		res := TapResult{Slices: set, Committed: true}
		if end-start < domain.MinSliceWidthMs {
			return res
		}
		s := domain.Slice{ID: e.newID(), StartPositionMs: start, EndPositionMs: end}
		out := append(domain.CloneSlices(set), s)
		res.Slices = out
		res.Created = &s
		return res
	default:
		e.draft = AnchorPlaced{AnchorMs: positionMs}
		return TapResult{Slices: set}
	}
}

// Resize moves one boundary of slice id to positionMs. The start handle is
// clamped into [0, end] and the end handle into [start, duration]. A slice
// left narrower than the minimum width is removed. Unknown ids leave the set
// unchanged.
func Resize(set []domain.Slice, id string, h Handle, positionMs, durationMs float64) []domain.Slice {
	out := make([]domain.Slice, 0, len(set))
	for _, s := range set {
		if s.ID != id {
			out = append(out, s)
			continue
		}
		switch h {
		case StartHandle:
			s.StartPositionMs = clamp(positionMs, 0, s.EndPositionMs)
			s.StartPositionMs = clamp(s.StartPositionMs, 0, durationMs)
		case EndHandle:
			s.EndPositionMs = clamp(positionMs, s.StartPositionMs, durationMs)
		}
		if s.Width() < domain.MinSliceWidthMs {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Remove drops slice id from set.
func Remove(set []domain.Slice, id string) []domain.Slice {
	out := make([]domain.Slice, 0, len(set))
	for _, s := range set {
		if s.ID != id {
			out = append(out, s)
		}
	}
	return out
}

// Toggle flips ShouldPlay of slice id.
func Toggle(set []domain.Slice, id string) []domain.Slice {
	out := domain.CloneSlices(set)
	for i := range out {
		if out[i].ID == id {
			out[i].ShouldPlay = !out[i].ShouldPlay
		}
	}
	return out
}

// Sanitize removes every slice that violates the slice invariants.
func Sanitize(set []domain.Slice) []domain.Slice {
	out := make([]domain.Slice, 0, len(set))
	for _, s := range set {
		if s.Valid() {
			out = append(out, s)
		}
	}
	return out
}

// At returns the slice containing positionMs. When slices overlap, mute
// slices win over play slices, then the earliest start, then the lowest id.
func At(set []domain.Slice, positionMs float64) (domain.Slice, bool) {
	var hits []domain.Slice
	for _, s := range set {
		if s.Contains(positionMs) {
			hits = append(hits, s)
		}
	}
	if len(hits) == 0 {
		return domain.Slice{}, false
	}
	sort.Slice(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.ShouldPlay != b.ShouldPlay {
			return !a.ShouldPlay
		}
		if a.StartPositionMs != b.StartPositionMs {
			return a.StartPositionMs < b.StartPositionMs
		}
		return a.ID < b.ID
	})
	return hits[0], true
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	return math.Max(lo, math.Min(v, hi))
}
