package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ewilliams-labs/rockdj/internal/core/domain"
	"github.com/ewilliams-labs/rockdj/internal/core/ports"
	"github.com/ewilliams-labs/rockdj/internal/core/store"
	"github.com/ewilliams-labs/rockdj/internal/log"
)

type fakePlayer struct {
	mu        sync.Mutex
	calls     []string
	seeks     []int
	listeners []ports.PlayerListener
	failSeek  error
	connectOK bool
}

func (p *fakePlayer) record(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, name)
}

func (p *fakePlayer) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func (p *fakePlayer) AddListener(l ports.PlayerListener) { p.listeners = append(p.listeners, l) }
func (p *fakePlayer) Connect(context.Context) (bool, error) {
	p.record("connect")
	return p.connectOK, nil
}
func (p *fakePlayer) Disconnect(context.Context) error { p.record("disconnect"); return nil }
func (p *fakePlayer) Resume(context.Context) error     { p.record("resume"); return nil }
func (p *fakePlayer) Pause(context.Context) error      { p.record("pause"); return nil }
func (p *fakePlayer) Seek(_ context.Context, ms int) error {
	p.record("seek")
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seeks = append(p.seeks, ms)
	err := p.failSeek
	p.failSeek = nil
	return err
}
func (p *fakePlayer) NextTrack(context.Context) error       { p.record("next"); return nil }
func (p *fakePlayer) PreviousTrack(context.Context) error   { p.record("previous"); return nil }
func (p *fakePlayer) ActivateElement(context.Context) error { p.record("activate"); return nil }
func (p *fakePlayer) GetCurrentState(context.Context) (*domain.ExternalState, error) {
	return nil, nil
}

type fakeStarter struct {
	mu   sync.Mutex
	reqs []domain.PlayRequest
	err  error
}

func (s *fakeStarter) PlayOnDevice(_ context.Context, req domain.PlayRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqs = append(s.reqs, req)
	return s.err
}

type fakeTimer struct {
	mu      sync.Mutex
	waited  []time.Duration
	fire    chan time.Time
	started chan struct{}
}

func newFakeTimer() *fakeTimer {
	return &fakeTimer{fire: make(chan time.Time), started: make(chan struct{}, 1)}
}

func (f *fakeTimer) After(d time.Duration) <-chan time.Time {
	f.mu.Lock()
	f.waited = append(f.waited, d)
	f.mu.Unlock()
	f.started <- struct{}{}
	return f.fire
}

func newBridge(t *testing.T, p *fakePlayer, starter *fakeStarter, timer *fakeTimer) (*Bridge, *store.Store[store.State]) {
	t.Helper()
	s := store.New(store.NewState())
	b := New(context.Background(), p, starter, s, log.Discard(), WithReconnectDelay(5*time.Second), WithAfter(timer.After))
	return b, s
}

func TestBridge_DeviceLifecycle(t *testing.T) {
	p := &fakePlayer{}
	b, s := newBridge(t, p, &fakeStarter{}, newFakeTimer())
	if len(p.listeners) != 1 {
		t.Fatal("bridge did not register as a listener")
	}

	b.OnReady("dev-1")
	if got := store.DeviceID(s.Get()); got != "dev-1" {
		t.Fatalf("device = %q, want dev-1", got)
	}
	b.OnNotReady("other")
	if got := store.DeviceID(s.Get()); got != "dev-1" {
		t.Fatalf("unrelated not_ready cleared the device")
	}
	b.OnNotReady("dev-1")
	if got := store.DeviceID(s.Get()); got != "" {
		t.Fatalf("device = %q, want cleared", got)
	}
}

func TestBridge_StateNormalization(t *testing.T) {
	b, s := newBridge(t, &fakePlayer{}, &fakeStarter{}, newFakeTimer())

	b.OnStateChanged(nil)
	if got := s.Get().Player; got.CurrentTrack != nil || !got.Paused {
		t.Fatalf("nil state changed the store: %+v", got)
	}

	b.OnStateChanged(&domain.ExternalState{
		Paused:     false,
		PositionMs: 1500,
		DurationMs: 200000,
		Window: domain.TrackWindow{
			Current:  &domain.TrackRef{ID: "cur", URI: "spotify:track:cur"},
			Previous: []domain.TrackRef{{ID: "a"}, {ID: "b"}},
			Next:     []domain.TrackRef{{ID: "c"}, {ID: "d"}},
		},
	})
	got := s.Get().Player
	if got.Paused || got.PositionMs != 1500 || got.DurationMs != 200000 {
		t.Fatalf("state = %+v", got)
	}
	if got.CurrentTrack.ID != "cur" || got.PreviousTrack.ID != "b" || got.NextTrack.ID != "c" {
		t.Fatalf("track window = %+v / %+v / %+v", got.PreviousTrack, got.CurrentTrack, got.NextTrack)
	}
}

func TestBridge_CommandsWithoutDeviceAreNoops(t *testing.T) {
	p := &fakePlayer{}
	starter := &fakeStarter{}
	b, _ := newBridge(t, p, starter, newFakeTimer())
	ctx := context.Background()

	for name, cmd := range map[string]func() error{
		"resume":   func() error { return b.Resume(ctx) },
		"pause":    func() error { return b.Pause(ctx) },
		"seek":     func() error { return b.Seek(ctx, 100) },
		"next":     func() error { return b.NextTrack(ctx) },
		"previous": func() error { return b.PreviousTrack(ctx) },
		"play":     func() error { return b.Play(ctx, domain.PlaybackIntent{PlaylistURI: "spotify:playlist:x"}) },
	} {
		if err := cmd(); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
	}
	if calls := p.Calls(); len(calls) != 0 {
		t.Fatalf("player calls = %v, want none", calls)
	}
	if len(starter.reqs) != 0 {
		t.Fatal("play reached the starter without a device")
	}
	if b.Intent().PlaylistURI != "spotify:playlist:x" {
		t.Fatal("intent was not recorded")
	}
}

func TestBridge_ReconnectSequence(t *testing.T) {
	p := &fakePlayer{connectOK: true, failSeek: errors.New("device gone")}
	starter := &fakeStarter{}
	timer := newFakeTimer()
	b, s := newBridge(t, p, starter, timer)
	ctx := context.Background()

	b.OnReady("dev-1")
	if err := b.Play(ctx, domain.PlaybackIntent{PlaylistURI: "spotify:playlist:x", TrackURI: "spotify:track:t"}); err != nil {
		t.Fatalf("Play: %v", err)
	}
	b.OnStateChanged(&domain.ExternalState{
		PositionMs: 42000,
		DurationMs: 200000,
		Window:     domain.TrackWindow{Current: &domain.TrackRef{ID: "t", URI: "spotify:track:t"}},
	})

	if err := b.Seek(ctx, 50000); err == nil {
		t.Fatal("expected the failed seek to be reported")
	}
	if got := s.Get(); got.Player.DeviceID != "" || !got.Reconnecting {
		t.Fatalf("state during reconnect = device %q reconnecting %v", got.Player.DeviceID, got.Reconnecting)
	}

	<-timer.started
	if calls := p.Calls(); !equal(calls, []string{"seek", "pause", "disconnect"}) {
		t.Fatalf("calls before delay = %v", calls)
	}
	if len(timer.waited) != 1 || timer.waited[0] < 5*time.Second {
		t.Fatalf("waited %v, want at least 5s", timer.waited)
	}

	// A second failure while reconnecting must not start another reconnect.
	b.reconnect()

	timer.fire <- time.Now()
	b.Wait()
	if calls := p.Calls(); !equal(calls, []string{"seek", "pause", "disconnect", "connect"}) {
		t.Fatalf("calls = %v", calls)
	}

	b.OnReady("dev-2")
	b.Wait()
	if got := s.Get(); got.Reconnecting || got.Player.DeviceID != "dev-2" {
		t.Fatalf("state after ready = %+v", got)
	}
	if len(starter.reqs) != 2 {
		t.Fatalf("play requests = %d, want the intent replayed", len(starter.reqs))
	}
	replay := starter.reqs[1]
	if replay.DeviceID != "dev-2" || replay.PlaylistURI != "spotify:playlist:x" || replay.TrackURI != "spotify:track:t" {
		t.Fatalf("replayed request = %+v", replay)
	}
	if last := p.seeks[len(p.seeks)-1]; last != 42000 {
		t.Fatalf("replay seek = %d, want 42000", last)
	}
}

func TestBridge_ReadyWithoutReconnectDoesNotReplay(t *testing.T) {
	starter := &fakeStarter{}
	b, _ := newBridge(t, &fakePlayer{}, starter, newFakeTimer())
	b.OnReady("dev-1")
	_ = b.Play(context.Background(), domain.PlaybackIntent{PlaylistURI: "spotify:playlist:x"})
	b.OnReady("dev-1")
	b.Wait()
	if len(starter.reqs) != 1 {
		t.Fatalf("play requests = %d, want 1", len(starter.reqs))
	}
}

func TestBridge_ErrorEventsDoNotReconnect(t *testing.T) {
	p := &fakePlayer{}
	b, s := newBridge(t, p, &fakeStarter{}, newFakeTimer())
	b.OnReady("dev-1")
	b.OnError(ports.AuthenticationError, "token expired")
	if s.Get().Reconnecting || len(p.Calls()) != 0 {
		t.Fatal("an error event started a reconnect")
	}
}

func equal(a, b []string) bool {
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
