// Package session composes the deck core: player events flow through the
// bridge into the store, the clock advances the playhead, pointer input is
// interpreted into seeks, viewport changes and slice edits, and the
// enforcer seeks past mute slices.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/ewilliams-labs/rockdj/internal/core/bridge"
	"github.com/ewilliams-labs/rockdj/internal/core/clock"
	"github.com/ewilliams-labs/rockdj/internal/core/domain"
	"github.com/ewilliams-labs/rockdj/internal/core/gesture"
	"github.com/ewilliams-labs/rockdj/internal/core/ports"
	"github.com/ewilliams-labs/rockdj/internal/core/slices"
	"github.com/ewilliams-labs/rockdj/internal/core/store"
	"github.com/ewilliams-labs/rockdj/internal/core/tempo"
	"github.com/ewilliams-labs/rockdj/internal/core/timeline"
	"github.com/ewilliams-labs/rockdj/internal/log"
)

// Deps are the collaborators a session drives.
type Deps struct {
	Player  ports.Player
	Starter ports.PlaybackStarter
	Slices  ports.SliceStore
	Logger  *log.Logger
	Bridge  []bridge.Option
}

type Session struct {
	ctx    context.Context
	logger *log.Logger

	store    *store.Store[store.State]
	clock    *clock.Clock
	bridge   *bridge.Bridge
	editor   *slices.Editor
	slices   *slices.Manager
	enforcer *slices.Enforcer
	tempo    *tempo.Recorder
	gestures gesture.Controller

	wg          sync.WaitGroup
	unsubscribe []func()
}

// New wires a session. Background work runs with ctx.
func New(ctx context.Context, deps Deps) *Session {
	st := store.New(store.NewState())
	s := &Session{
		ctx:      ctx,
		logger:   deps.Logger,
		store:    st,
		clock:    clock.New(st),
		editor:   slices.NewEditor(),
		slices:   slices.NewManager(ctx, st, deps.Slices, deps.Logger),
		tempo:    tempo.NewRecorder(ctx, st, deps.Slices, deps.Logger),
		gestures: gesture.NewController(),
	}
	s.bridge = bridge.New(ctx, deps.Player, deps.Starter, st, deps.Logger, deps.Bridge...)
	s.enforcer = slices.NewEnforcer(s.seekAsync)

	s.unsubscribe = append(s.unsubscribe,
		store.Select(st, store.TrackID, s.trackChanged),
		st.Subscribe(s.enforcer.Check),
	)
	return s
}

// Store exposes the shared state for rendering.
func (s *Session) Store() *store.Store[store.State] { return s.store }

// Bridge exposes the player command surface.
func (s *Session) Bridge() *bridge.Bridge { return s.bridge }

// Draft returns the slice-creation state.
func (s *Session) Draft() slices.Draft { return s.editor.Draft() }

// Tempo returns the last tap-tempo estimate.
func (s *Session) Tempo() tempo.Estimate { return s.tempo.Current() }

// Mapper returns the coordinate mapper of the current frame.
func (s *Session) Mapper() timeline.Mapper { return s.store.Get().Mapper() }

// Frame advances the playhead to now.
func (s *Session) Frame(now time.Time) { s.clock.Tick(now) }

// SetViewportWidth records the width of the waveform in pixels.
func (s *Session) SetViewportWidth(px float64) {
	s.store.Update(store.SetViewportWidth(px))
}

// Pointer interprets ev and applies the resulting action.
func (s *Session) Pointer(ev gesture.Event) gesture.Action {
	st := s.store.Get()
	action := s.gestures.Interpret(ev, gesture.Context{Slicing: st.Slicing, Mapper: st.Mapper()})

	switch a := action.(type) {
	case gesture.Seek:
		s.seekAsync(a.Ms)
	case gesture.Pan:
		s.Pan(a.DX)
	case gesture.Zoom:
		s.Zoom(a.Scale, a.AnchorX)
	case gesture.Cursor:
		s.store.Update(store.SetCursor(a.Ms))
	case gesture.SliceTap:
		s.sliceTap(a.Ms)
	case gesture.Resize:
		cur, ok := s.currentSlices()
		if !ok {
			break
		}
		s.slices.Apply(slices.Resize(cur, a.SliceID, a.Handle, a.Ms, st.Player.DurationMs))
	}
	return action
}

// HitHandle reports the slice boundary under x, if any.
func (s *Session) HitHandle(x float64) (string, slices.Handle, bool) {
	cur, ok := s.currentSlices()
	if !ok {
		return "", 0, false
	}
	return gesture.HitHandle(x, cur, s.Mapper())
}

// Zoom sets the zoom factor keeping the time under anchorX fixed.
func (s *Session) Zoom(scale, anchorX float64) {
	s.store.Update(func(st store.State) store.State {
		st.Viewport = st.Viewport.ZoomAt(scale, anchorX, st.ViewportWidthPx, st.Player.DurationMs)
		return st
	})
}

// Pan moves the viewport by dx pixels.
func (s *Session) Pan(dx float64) {
	s.store.Update(func(st store.State) store.State {
		st.Viewport = st.Viewport.Pan(dx, st.ViewportWidthPx)
		return st
	})
}

// ToggleSlicing enters or leaves slicing mode. Leaving drops a placed anchor.
// Slicing cannot start before the current track's slices have loaded.
func (s *Session) ToggleSlicing() {
	if st := s.store.Get(); !st.Slicing {
		if _, ok := s.currentSlices(); !ok {
			return
		}
	}
	st := s.store.Update(func(st store.State) store.State {
		return store.SetSlicing(!st.Slicing)(st)
	})
	if !st.Slicing {
		s.editor.Cancel()
	}
}

// ToggleSliceAt flips play/mute of the slice under positionMs.
func (s *Session) ToggleSliceAt(positionMs float64) {
	cur, ok := s.currentSlices()
	if !ok {
		return
	}
	if hit, found := slices.At(cur, positionMs); found {
		s.slices.Apply(slices.Toggle(cur, hit.ID))
	}
}

// RemoveSliceAt deletes the slice under positionMs.
func (s *Session) RemoveSliceAt(positionMs float64) {
	cur, ok := s.currentSlices()
	if !ok {
		return
	}
	if hit, found := slices.At(cur, positionMs); found {
		s.slices.Apply(slices.Remove(cur, hit.ID))
	}
}

// TapTempo feeds a tap-tempo tap.
func (s *Session) TapTempo(now time.Time) tempo.Estimate {
	e, _ := s.tempo.Tap(now)
	return e
}

// ResetTempo discards the tap session and clears the stored override.
func (s *Session) ResetTempo() { s.tempo.Reset() }

func (s *Session) TogglePlay(ctx context.Context) error {
	if err := s.bridge.ActivateElement(ctx); err != nil {
		return err
	}
	return s.bridge.TogglePlay(ctx)
}

func (s *Session) Next(ctx context.Context) error     { return s.bridge.NextTrack(ctx) }
func (s *Session) Previous(ctx context.Context) error { return s.bridge.PreviousTrack(ctx) }

// Play starts intent on the ready device and remembers it for reconnects.
func (s *Session) Play(ctx context.Context, intent domain.PlaybackIntent) error {
	return s.bridge.Play(ctx, intent)
}

// Wait blocks until all background loads, seeks and saves have finished.
func (s *Session) Wait() {
	s.wg.Wait()
	s.bridge.Wait()
	s.slices.Wait()
	s.tempo.Wait()
}

// Close detaches the session from the store and waits for background work.
func (s *Session) Close() {
	for _, u := range s.unsubscribe {
		u()
	}
	s.Wait()
}

// currentSlices returns the slices of the current track. ok is false while
// they are still loading, so edits never replace a stored set unseen.
func (s *Session) currentSlices() ([]domain.Slice, bool) {
	st := s.store.Get()
	trackID := st.Player.TrackID()
	if trackID == "" || st.SliceTrackID != trackID {
		return nil, false
	}
	return st.Slices, true
}

func (s *Session) sliceTap(ms float64) {
	cur, ok := s.currentSlices()
	if !ok {
		return
	}
	res := s.editor.Tap(ms, cur)
	if res.Created != nil {
		s.slices.Apply(res.Slices)
	}
	if res.Committed {
		s.store.Update(store.SetSlicing(false))
	}
}

func (s *Session) trackChanged(trackID string) {
	s.editor.Cancel()
	if trackID == "" {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.slices.Load(s.ctx, trackID); err != nil {
			s.logger.Errorf("%v", err)
		}
	}()
}

func (s *Session) seekAsync(positionMs float64) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.bridge.Seek(s.ctx, positionMs); err != nil {
			s.logger.Warnf("session: seek to %.0fms: %v", positionMs, err)
		}
	}()
}
