// Package connect drives a Spotify Connect device through the Web API
// player endpoints and reports it as an external player.
package connect

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"

	spotifyadapter "github.com/ewilliams-labs/rockdj/internal/adapters/spotify"
	"github.com/ewilliams-labs/rockdj/internal/core/domain"
	"github.com/ewilliams-labs/rockdj/internal/core/ports"
	"github.com/ewilliams-labs/rockdj/internal/log"
)

// DefaultPollInterval is how often devices and playback state are polled.
const DefaultPollInterval = time.Second

// remote is the subset of the Web API client the player uses.
type remote interface {
	PlayerDevices(ctx context.Context) ([]spotify.PlayerDevice, error)
	PlayerState(ctx context.Context, opts ...spotify.RequestOption) (*spotify.PlayerState, error)
	PlayOpt(ctx context.Context, opt *spotify.PlayOptions) error
	PauseOpt(ctx context.Context, opt *spotify.PlayOptions) error
	NextOpt(ctx context.Context, opt *spotify.PlayOptions) error
	PreviousOpt(ctx context.Context, opt *spotify.PlayOptions) error
	SeekOpt(ctx context.Context, position int, opt *spotify.PlayOptions) error
}

// Player implements ports.Player by polling a Connect device.
type Player struct {
	api        remote
	logger     *log.Logger
	deviceName string
	interval   time.Duration

	mu        sync.Mutex
	listeners []ports.PlayerListener
	deviceID  string
	cancel    context.CancelFunc
	done      chan struct{}
}

var _ ports.Player = (*Player)(nil)

// Option configures a Player.
type Option func(*Player)

// WithDeviceName selects the device by name instead of the active device.
func WithDeviceName(name string) Option {
	return func(p *Player) { p.deviceName = name }
}

// WithPollInterval overrides DefaultPollInterval.
func WithPollInterval(d time.Duration) Option {
	return func(p *Player) {
		if d > 0 {
			p.interval = d
		}
	}
}

// New returns a disconnected player backed by api.
func New(api remote, logger *log.Logger, opts ...Option) *Player {
	p := &Player{api: api, logger: logger, interval: DefaultPollInterval}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Player) AddListener(l ports.PlayerListener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, l)
}

// Connect polls once and starts the poll loop. It reports false when the
// device list cannot be read.
func (p *Player) Connect(ctx context.Context) (bool, error) {
	p.mu.Lock()
	running := p.cancel != nil
	p.mu.Unlock()
	if running {
		return true, nil
	}

	if _, err := p.api.PlayerDevices(ctx); err != nil {
		kind := classify(err)
		if kind == ports.PlaybackError {
			kind = ports.InitializationError
		}
		p.emitError(kind, err)
		return false, fmt.Errorf("connect: list devices: %w", err)
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	p.mu.Lock()
	p.cancel, p.done = cancel, done
	p.mu.Unlock()

	p.poll(loopCtx)
	go p.run(loopCtx, done)
	p.logger.Infof("connect: polling every %s", p.interval)
	return true, nil
}

// Disconnect stops polling and forgets the device, so the next Connect
// reports it ready again.
func (p *Player) Disconnect(ctx context.Context) error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.deviceID = ""
	if cancel != nil {
		cancel()
	}
	p.mu.Unlock()

	if cancel == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("connect: disconnect: %w", ctx.Err())
	}
}

func (p *Player) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// poll synthesizes ready, not_ready and state events from one round of
// device and playback state requests.
func (p *Player) poll(ctx context.Context) {
	devices, err := p.api.PlayerDevices(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.emitError(classify(err), err)
		}
		return
	}

	found := p.pick(devices)

	p.mu.Lock()
	if ctx.Err() != nil {
		p.mu.Unlock()
		return
	}
	prev := p.deviceID
	p.deviceID = found
	listeners := p.snapshot()
	p.mu.Unlock()

	if prev != found {
		if prev != "" {
			for _, l := range listeners {
				l.OnNotReady(prev)
			}
		}
		if found != "" {
			p.logger.Infof("connect: device %s ready", found)
			for _, l := range listeners {
				l.OnReady(found)
			}
		}
	}
	if found == "" {
		return
	}

	state, err := p.state(ctx, found)
	if err != nil {
		if ctx.Err() == nil {
			p.emitError(classify(err), err)
		}
		return
	}
	for _, l := range listeners {
		l.OnStateChanged(state)
	}
}

func (p *Player) pick(devices []spotify.PlayerDevice) string {
	for _, d := range devices {
		if p.deviceName != "" && d.Name == p.deviceName {
			return string(d.ID)
		}
		if p.deviceName == "" && d.Active {
			return string(d.ID)
		}
	}
	return ""
}

func (p *Player) state(ctx context.Context, deviceID string) (*domain.ExternalState, error) {
	ps, err := p.api.PlayerState(ctx)
	if err != nil {
		return nil, err
	}
	if ps == nil || ps.Item == nil || string(ps.Device.ID) != deviceID {
		return nil, nil
	}
	return &domain.ExternalState{
		Paused:     !ps.Playing,
		PositionMs: float64(ps.Progress),
		DurationMs: float64(ps.Item.Duration),
		ContextURI: string(ps.PlaybackContext.URI),
		Window:     domain.TrackWindow{Current: trackRef(ps.Item)},
	}, nil
}

func trackRef(ft *spotify.FullTrack) *domain.TrackRef {
	ref := &domain.TrackRef{ID: string(ft.ID), URI: string(ft.URI), Name: ft.Name}
	if len(ft.Album.Images) > 0 {
		ref.AlbumArtURL = ft.Album.Images[0].URL
	}
	for _, a := range ft.Artists {
		ref.Artists = append(ref.Artists, a.Name)
	}
	return ref
}

func (p *Player) snapshot() []ports.PlayerListener {
	out := make([]ports.PlayerListener, len(p.listeners))
	copy(out, p.listeners)
	return out
}

func (p *Player) emitError(kind ports.ErrorKind, err error) {
	p.mu.Lock()
	listeners := p.snapshot()
	p.mu.Unlock()
	for _, l := range listeners {
		l.OnError(kind, err.Error())
	}
}

// classify maps a Web API failure to a player error category.
func classify(err error) ports.ErrorKind {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		return ports.AuthenticationError
	}
	switch spotifyadapter.StatusOf(err) {
	case http.StatusUnauthorized:
		return ports.AuthenticationError
	case http.StatusForbidden:
		return ports.AccountError
	default:
		return ports.PlaybackError
	}
}

func (p *Player) device() (*spotify.PlayOptions, error) {
	p.mu.Lock()
	id := spotify.ID(p.deviceID)
	p.mu.Unlock()
	if id == "" {
		return nil, fmt.Errorf("connect: %w", domain.ErrNoDevice)
	}
	return &spotify.PlayOptions{DeviceID: &id}, nil
}

func (p *Player) Resume(ctx context.Context) error {
	opts, err := p.device()
	if err != nil {
		return err
	}
	if err := p.api.PlayOpt(ctx, opts); err != nil {
		return fmt.Errorf("connect: resume: %w", err)
	}
	return nil
}

func (p *Player) Pause(ctx context.Context) error {
	opts, err := p.device()
	if err != nil {
		return err
	}
	if err := p.api.PauseOpt(ctx, opts); err != nil {
		return fmt.Errorf("connect: pause: %w", err)
	}
	return nil
}

func (p *Player) Seek(ctx context.Context, positionMs int) error {
	opts, err := p.device()
	if err != nil {
		return err
	}
	if err := p.api.SeekOpt(ctx, positionMs, opts); err != nil {
		return fmt.Errorf("connect: seek: %w", err)
	}
	return nil
}

func (p *Player) NextTrack(ctx context.Context) error {
	opts, err := p.device()
	if err != nil {
		return err
	}
	if err := p.api.NextOpt(ctx, opts); err != nil {
		return fmt.Errorf("connect: next: %w", err)
	}
	return nil
}

func (p *Player) PreviousTrack(ctx context.Context) error {
	opts, err := p.device()
	if err != nil {
		return err
	}
	if err := p.api.PreviousOpt(ctx, opts); err != nil {
		return fmt.Errorf("connect: previous: %w", err)
	}
	return nil
}

// ActivateElement is a no-op: a Connect device needs no user gesture.
func (p *Player) ActivateElement(context.Context) error { return nil }

func (p *Player) GetCurrentState(ctx context.Context) (*domain.ExternalState, error) {
	p.mu.Lock()
	id := p.deviceID
	p.mu.Unlock()
	if id == "" {
		return nil, nil
	}
	state, err := p.state(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("connect: current state: %w", err)
	}
	return state, nil
}
