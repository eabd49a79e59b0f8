// Package bridge adapts the external player's push events into the store
// and owns reconnect-on-failure.
package bridge

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ewilliams-labs/rockdj/internal/core/domain"
	"github.com/ewilliams-labs/rockdj/internal/core/ports"
	"github.com/ewilliams-labs/rockdj/internal/core/store"
	"github.com/ewilliams-labs/rockdj/internal/log"
)

// DefaultReconnectDelay is the wait between disconnect and connect when
// recovering from a failed command.
const DefaultReconnectDelay = 5 * time.Second

// Option configures a Bridge.
type Option func(*Bridge)

// WithReconnectDelay overrides DefaultReconnectDelay.
func WithReconnectDelay(d time.Duration) Option {
	return func(b *Bridge) { b.delay = d }
}

// WithAfter replaces time.After, for tests.
func WithAfter(after func(time.Duration) <-chan time.Time) Option {
	return func(b *Bridge) { b.after = after }
}

// Bridge is the command surface over a ports.Player and its listener.
type Bridge struct {
	ctx     context.Context
	player  ports.Player
	starter ports.PlaybackStarter
	store   *store.Store[store.State]
	logger  *log.Logger
	delay   time.Duration
	after   func(time.Duration) <-chan time.Time

	mu           sync.Mutex
	intent       domain.PlaybackIntent
	reconnecting bool
	wg           sync.WaitGroup
}

var _ ports.PlayerListener = (*Bridge)(nil)

// New creates a bridge and registers it as a listener of player. Reconnects
// and intent replays run with ctx.
func New(ctx context.Context, player ports.Player, starter ports.PlaybackStarter, st *store.Store[store.State], logger *log.Logger, opts ...Option) *Bridge {
	b := &Bridge{
		ctx:     ctx,
		player:  player,
		starter: starter,
		store:   st,
		logger:  logger,
		delay:   DefaultReconnectDelay,
		after:   time.After,
	}
	for _, opt := range opts {
		opt(b)
	}
	player.AddListener(b)
	return b
}

// OnReady records the device. During a reconnect it replays the last intent.
func (b *Bridge) OnReady(deviceID string) {
	b.logger.Infof("bridge: device ready id=%s", deviceID)
	b.store.Update(store.SetDeviceID(deviceID))

	b.mu.Lock()
	wasReconnecting := b.reconnecting
	b.reconnecting = false
	intent := b.intent
	b.mu.Unlock()

	if !wasReconnecting {
		return
	}
	b.store.Update(store.SetReconnecting(false))
	if intent.IsZero() {
		return
	}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.replay(deviceID, intent)
	}()
}

// OnNotReady clears the device when it is the one that went away.
func (b *Bridge) OnNotReady(deviceID string) {
	b.logger.Warnf("bridge: device not ready id=%s", deviceID)
	b.store.Update(func(s store.State) store.State {
		if s.Player.DeviceID != deviceID && s.Player.DeviceID != "" {
			return s
		}
		return store.SetDeviceID("")(s)
	})
}

// OnStateChanged normalizes a state push into the store. nil is ignored.
func (b *Bridge) OnStateChanged(state *domain.ExternalState) {
	if state == nil {
		return
	}
	b.store.Update(store.ApplyExternalState(*state))
}

// OnError reports player errors. They never trigger a reconnect.
func (b *Bridge) OnError(kind ports.ErrorKind, message string) {
	b.logger.Errorf("bridge: player event=%s message=%q", kind, message)
}

// Intent returns the last explicit playback request.
func (b *Bridge) Intent() domain.PlaybackIntent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.intent
}

// Reconnecting reports whether a reconnect is in progress.
func (b *Bridge) Reconnecting() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reconnecting
}

// Wait blocks until background reconnects and replays have finished.
func (b *Bridge) Wait() { b.wg.Wait() }

func (b *Bridge) deviceID() string { return store.DeviceID(b.store.Get()) }

// command runs fn when a device is ready and reconnects when it fails.
func (b *Bridge) command(name string, fn func() error) error {
	if b.deviceID() == "" {
		return nil
	}
	if err := fn(); err != nil {
		b.logger.Warnf("bridge: %s failed: %v", name, err)
		b.reconnect()
		return fmt.Errorf("bridge: %s: %w", name, err)
	}
	return nil
}

func (b *Bridge) Resume(ctx context.Context) error {
	return b.command("resume", func() error {
		if err := b.player.Resume(ctx); err != nil {
			return err
		}
		b.store.Update(func(s store.State) store.State {
			s.Player.Paused = false
			return s
		})
		return nil
	})
}

func (b *Bridge) Pause(ctx context.Context) error {
	return b.command("pause", func() error {
		if err := b.player.Pause(ctx); err != nil {
			return err
		}
		b.store.Update(func(s store.State) store.State {
			s.Player.Paused = true
			return s
		})
		return nil
	})
}

// TogglePlay resumes when paused and pauses otherwise.
func (b *Bridge) TogglePlay(ctx context.Context) error {
	if store.Paused(b.store.Get()) {
		return b.Resume(ctx)
	}
	return b.Pause(ctx)
}

// Seek moves playback to positionMs and updates the local position.
func (b *Bridge) Seek(ctx context.Context, positionMs float64) error {
	return b.command("seek", func() error {
		if err := b.player.Seek(ctx, int(math.Round(math.Max(positionMs, 0)))); err != nil {
			return err
		}
		b.store.Update(store.SetPosition(positionMs))
		return nil
	})
}

func (b *Bridge) NextTrack(ctx context.Context) error {
	return b.command("next track", func() error { return b.player.NextTrack(ctx) })
}

func (b *Bridge) PreviousTrack(ctx context.Context) error {
	return b.command("previous track", func() error { return b.player.PreviousTrack(ctx) })
}

func (b *Bridge) ActivateElement(ctx context.Context) error {
	return b.player.ActivateElement(ctx)
}

func (b *Bridge) Connect(ctx context.Context) (bool, error) {
	return b.player.Connect(ctx)
}

func (b *Bridge) Disconnect(ctx context.Context) error {
	return b.player.Disconnect(ctx)
}

func (b *Bridge) GetCurrentState(ctx context.Context) (*domain.ExternalState, error) {
	return b.player.GetCurrentState(ctx)
}

// Play records intent and starts it on the ready device. Without a device
// only the intent is recorded.
func (b *Bridge) Play(ctx context.Context, intent domain.PlaybackIntent) error {
	b.mu.Lock()
	b.intent = intent
	b.mu.Unlock()

	return b.command("play", func() error {
		return b.starter.PlayOnDevice(ctx, domain.PlayRequest{
			DeviceID:    b.deviceID(),
			PlaylistURI: intent.PlaylistURI,
			TrackURI:    intent.TrackURI,
		})
	})
}

// reconnect clears the device, pauses, disconnects, waits the reconnect
// delay and connects again. Only one reconnect runs at a time.
func (b *Bridge) reconnect() {
	st := b.store.Get()

	b.mu.Lock()
	if b.reconnecting {
		b.mu.Unlock()
		return
	}
	b.reconnecting = true
	if cur := st.Player.CurrentTrack; cur != nil && !b.intent.IsZero() {
		if b.intent.TrackURI == "" || b.intent.TrackURI == cur.URI {
			b.intent.TrackURI = cur.URI
			b.intent.PositionMs = st.Player.PositionMs
		}
	}
	b.mu.Unlock()

	b.store.Update(func(s store.State) store.State {
		return store.SetReconnecting(true)(store.SetDeviceID("")(s))
	})

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ctx := b.ctx
		if err := b.player.Pause(ctx); err != nil {
			b.logger.Warnf("bridge: reconnect pause: %v", err)
		}
		if err := b.player.Disconnect(ctx); err != nil {
			b.logger.Warnf("bridge: reconnect disconnect: %v", err)
		}
		select {
		case <-ctx.Done():
			b.abortReconnect()
			return
		case <-b.after(b.delay):
		}
		ok, err := b.player.Connect(ctx)
		if err != nil || !ok {
			b.logger.Errorf("bridge: reconnect failed ok=%t err=%v", ok, err)
			b.abortReconnect()
		}
	}()
}

func (b *Bridge) abortReconnect() {
	b.mu.Lock()
	b.reconnecting = false
	b.mu.Unlock()
	b.store.Update(store.SetReconnecting(false))
}

func (b *Bridge) replay(deviceID string, intent domain.PlaybackIntent) {
	ctx := b.ctx
	err := b.starter.PlayOnDevice(ctx, domain.PlayRequest{
		DeviceID:    deviceID,
		PlaylistURI: intent.PlaylistURI,
		TrackURI:    intent.TrackURI,
	})
	if err != nil {
		b.logger.Errorf("bridge: replay intent playlist=%s: %v", intent.PlaylistURI, err)
		return
	}
	if intent.PositionMs <= 0 {
		return
	}
	if err := b.player.Seek(ctx, int(math.Round(intent.PositionMs))); err != nil {
		b.logger.Errorf("bridge: replay seek: %v", err)
		return
	}
	b.store.Update(store.SetPosition(intent.PositionMs))
}
