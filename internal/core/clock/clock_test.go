package clock

import (
	"testing"
	"time"

	"github.com/ewilliams-labs/rockdj/internal/core/domain"
	"github.com/ewilliams-labs/rockdj/internal/core/store"
)

func playingStore(position, duration float64) *store.Store[store.State] {
	st := store.NewState()
	st.Player = domain.PlaybackState{
		DeviceID:     "dev-1",
		CurrentTrack: &domain.TrackRef{ID: "t1"},
		DurationMs:   duration,
		PositionMs:   position,
	}
	return store.New(st)
}

func TestTick_FirstTickDoesNotAdvance(t *testing.T) {
	s := playingStore(100, 10_000)
	c := New(s)
	t0 := time.Unix(1000, 0)

	c.Tick(t0)
	if got := s.Get().Player.PositionMs; got != 100 {
		t.Fatalf("position after first tick = %v, want 100", got)
	}

	c.Tick(t0.Add(250 * time.Millisecond))
	if got := s.Get().Player.PositionMs; got != 350 {
		t.Fatalf("position after 250ms = %v, want 350", got)
	}

	c.Reset()
	c.Tick(t0.Add(10 * time.Second))
	if got := s.Get().Player.PositionMs; got != 350 {
		t.Fatalf("position after reset tick = %v, want 350", got)
	}
}

func TestTick_ClampsToDuration(t *testing.T) {
	s := playingStore(9_900, 10_000)
	c := New(s)
	t0 := time.Unix(1000, 0)
	c.Tick(t0)
	c.Tick(t0.Add(time.Second))
	if got := s.Get().Player.PositionMs; got != 10_000 {
		t.Fatalf("position = %v, want 10000", got)
	}
}

func TestTick_Guards(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.PlaybackState)
	}{
		{name: "paused", mutate: func(p *domain.PlaybackState) { p.Paused = true }},
		{name: "no device", mutate: func(p *domain.PlaybackState) { p.DeviceID = "" }},
		{name: "no track", mutate: func(p *domain.PlaybackState) { p.CurrentTrack = nil }},
		{name: "zero duration", mutate: func(p *domain.PlaybackState) { p.DurationMs = 0; p.PositionMs = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := playingStore(0, 10_000)
			s.Update(func(st store.State) store.State {
				tt.mutate(&st.Player)
				return st
			})
			c := New(s)
			t0 := time.Unix(1000, 0)
			c.Tick(t0)
			c.Tick(t0.Add(time.Second))
			if got := s.Get().Player.PositionMs; got != 0 {
				t.Fatalf("position = %v, want 0", got)
			}
		})
	}
}

func TestTick_IgnoresNegativeDelta(t *testing.T) {
	s := playingStore(500, 10_000)
	c := New(s)
	t0 := time.Unix(1000, 0)
	c.Tick(t0)
	c.Tick(t0.Add(-time.Second))
	if got := s.Get().Player.PositionMs; got != 500 {
		t.Fatalf("position = %v, want 500", got)
	}
}
