package tempo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ewilliams-labs/rockdj/internal/core/coalesce"
	"github.com/ewilliams-labs/rockdj/internal/core/domain"
	"github.com/ewilliams-labs/rockdj/internal/core/ports"
	"github.com/ewilliams-labs/rockdj/internal/core/store"
	"github.com/ewilliams-labs/rockdj/internal/log"
)

// Recorder runs tap sessions against the current track and stores the
// resulting tap tempo and beat offset.
type Recorder struct {
	store  *store.Store[store.State]
	logger *log.Logger
	saves  *coalesce.Coalescer[string, domain.TrackTempo]

	mu      sync.Mutex
	est     *Estimator
	trackID string
	last    Estimate
}

func NewRecorder(ctx context.Context, st *store.Store[store.State], repo ports.SliceStore, logger *log.Logger) *Recorder {
	r := &Recorder{store: st, logger: logger, est: NewEstimator()}
	r.saves = coalesce.New(ctx,
		func(ctx context.Context, trackID string, t domain.TrackTempo) error {
			if err := repo.SetTrackTempo(ctx, trackID, t.TapTempoBpm, t.BeatOffsetMs); err != nil {
				return fmt.Errorf("tempo: save %s: %w", trackID, err)
			}
			return nil
		},
		func(res coalesce.Result[string, domain.TrackTempo]) {
			if res.Err != nil {
				logger.Errorf("%v", res.Err)
			}
		})
	return r
}

// Tap records a tap at now against the current playback position. It
// reports false when no track is loaded.
func (r *Recorder) Tap(now time.Time) (Estimate, bool) {
	s := r.store.Get()
	trackID := store.TrackID(s)
	if trackID == "" {
		return Estimate{}, false
	}

	r.mu.Lock()
	if trackID != r.trackID {
		r.est.Reset()
		r.trackID = trackID
	}
	e := r.est.Tap(now, s.Player.PositionMs)
	r.last = e
	r.mu.Unlock()

	switch {
	case e.Ignored:
	case e.HasTempo():
		bpm, offset := e.Bpm, e.BeatOffsetMs
		r.saves.Submit(trackID, domain.TrackTempo{TrackID: trackID, TapTempoBpm: &bpm, BeatOffsetMs: &offset})
	case e.Reset:
		r.saves.Submit(trackID, domain.TrackTempo{TrackID: trackID})
	}
	return e, true
}

// Reset discards the session and clears the stored override of the current
// track.
func (r *Recorder) Reset() {
	trackID := store.TrackID(r.store.Get())
	r.mu.Lock()
	r.est.Reset()
	r.last = Estimate{}
	r.trackID = trackID
	r.mu.Unlock()
	if trackID == "" {
		return
	}
	r.saves.Submit(trackID, domain.TrackTempo{TrackID: trackID})
}

// Current returns the estimate of the last tap on the current track. It is
// empty once the track has changed.
func (r *Recorder) Current() Estimate {
	trackID := store.TrackID(r.store.Get())
	r.mu.Lock()
	defer r.mu.Unlock()
	if trackID != r.trackID {
		return Estimate{}
	}
	return r.last
}

// Wait blocks until pending saves have finished.
func (r *Recorder) Wait() { r.saves.Wait() }
