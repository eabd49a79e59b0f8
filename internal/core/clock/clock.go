// Package clock advances the playhead between authoritative player pushes.
package clock

import (
	"context"
	"sync"
	"time"

	"github.com/ewilliams-labs/rockdj/internal/core/store"
)

// Clock extrapolates the playback position from frame timestamps.
type Clock struct {
	store *store.Store[store.State]

	mu   sync.Mutex
	last time.Time
}

func New(s *store.Store[store.State]) *Clock {
	return &Clock{store: s}
}

// Tick advances the position by the time elapsed since the previous tick.
// The first tick after construction or Reset only records now.
func (c *Clock) Tick(now time.Time) {
	c.mu.Lock()
	last := c.last
	c.last = now
	c.mu.Unlock()

	if last.IsZero() {
		return
	}
	delta := float64(now.Sub(last)) / float64(time.Millisecond)
	if delta <= 0 {
		return
	}

	st := c.store.Get().Player
	if st.Paused || !st.HasDevice() || st.CurrentTrack == nil || st.DurationMs <= 0 {
		return
	}
	c.store.Update(func(s store.State) store.State {
		// Re-check under the store lock; a push may have landed since Get.
		p := s.Player
		if p.Paused || !p.HasDevice() || p.CurrentTrack == nil || p.DurationMs <= 0 {
			return s
		}
		return store.AdvancePosition(delta)(s)
	})
}

// Reset forgets the previous tick so the next one does not advance.
func (c *Clock) Reset() {
	c.mu.Lock()
	c.last = time.Time{}
	c.mu.Unlock()
}

// Run ticks every interval until ctx is done.
func (c *Clock) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	c.Tick(time.Now())
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			c.Tick(now)
		}
	}
}
