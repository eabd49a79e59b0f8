package deck

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ewilliams-labs/rockdj/internal/core/domain"
	"github.com/ewilliams-labs/rockdj/internal/core/ports"
	"github.com/ewilliams-labs/rockdj/internal/core/session"
	"github.com/ewilliams-labs/rockdj/internal/log"
)

type fakePlayer struct {
	listeners []ports.PlayerListener
}

func (p *fakePlayer) AddListener(l ports.PlayerListener)                             { p.listeners = append(p.listeners, l) }
func (p *fakePlayer) Connect(context.Context) (bool, error)                          { return true, nil }
func (p *fakePlayer) Disconnect(context.Context) error                               { return nil }
func (p *fakePlayer) Resume(context.Context) error                                   { return nil }
func (p *fakePlayer) Pause(context.Context) error                                    { return nil }
func (p *fakePlayer) Seek(context.Context, int) error                                { return nil }
func (p *fakePlayer) NextTrack(context.Context) error                                { return nil }
func (p *fakePlayer) PreviousTrack(context.Context) error                            { return nil }
func (p *fakePlayer) ActivateElement(context.Context) error                          { return nil }
func (p *fakePlayer) GetCurrentState(context.Context) (*domain.ExternalState, error) { return nil, nil }

type fakeService struct {
	mu        sync.Mutex
	pages     map[int]domain.Page[domain.Playlist]
	plays     []domain.PlayRequest
	slices    map[string][]domain.Slice
	analysisE error
}

func (f *fakeService) Playlists(_ context.Context, cursor int) (domain.Page[domain.Playlist], error) {
	page, ok := f.pages[cursor]
	if !ok {
		return domain.Page[domain.Playlist]{}, errors.New("unexpected cursor")
	}
	return page, nil
}

func (f *fakeService) Analysis(_ context.Context, trackID string) (domain.TrackAnalysis, error) {
	if f.analysisE != nil {
		return domain.TrackAnalysis{}, f.analysisE
	}
	return domain.TrackAnalysis{TrackID: trackID, Tempo: 120}, nil
}

func (f *fakeService) PlayOnDevice(_ context.Context, req domain.PlayRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plays = append(f.plays, req)
	return nil
}

func (f *fakeService) GetSlices(_ context.Context, trackID string) ([]domain.Slice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return domain.CloneSlices(f.slices[trackID]), nil
}

func (f *fakeService) UpsertSlices(_ context.Context, trackID string, set []domain.Slice) ([]domain.Slice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.slices == nil {
		f.slices = map[string][]domain.Slice{}
	}
	f.slices[trackID] = domain.CloneSlices(set)
	return set, nil
}

func (f *fakeService) SetTrackTempo(_ context.Context, trackID string, bpm, offset *float64) (domain.TrackTempo, error) {
	return domain.TrackTempo{TrackID: trackID, TapTempoBpm: bpm, BeatOffsetMs: offset}, nil
}

func (f *fakeService) Plays() []domain.PlayRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.PlayRequest(nil), f.plays...)
}

func newModel(t *testing.T, svc *fakeService) (Model, *fakePlayer, *session.Session) {
	t.Helper()
	p := &fakePlayer{}
	s := session.New(context.Background(), session.Deps{
		Player:  p,
		Starter: svc,
		Slices:  SliceStore(svc),
		Logger:  log.Discard(),
	})
	t.Cleanup(s.Close)
	return New(context.Background(), s, svc, log.Discard()), p, s
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func TestModel_LoadPlaylistsFollowsCursor(t *testing.T) {
	second := domain.PageSize
	svc := &fakeService{pages: map[int]domain.Page[domain.Playlist]{
		0:      {Items: []domain.Playlist{{ID: "p1", Name: "Warmup"}}, NextCursor: &second},
		second: {Items: []domain.Playlist{{ID: "p2", Name: "Peak"}}},
	}}
	m, _, _ := newModel(t, svc)

	msg := m.loadPlaylists()().(playlistsMsg)
	if msg.err != nil {
		t.Fatalf("load: %v", msg.err)
	}
	if len(msg.items) != 2 || msg.items[1].ID != "p2" {
		t.Fatalf("playlists = %+v", msg.items)
	}
}

func TestModel_WindowSizeSetsViewport(t *testing.T) {
	m, _, s := newModel(t, &fakeService{})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	if got := s.Store().Get().ViewportWidthPx; got != 120 {
		t.Fatalf("viewport width = %v, want 120", got)
	}
	if view := m.View(); !strings.Contains(view, "nothing playing") || !strings.Contains(view, "no playlists") {
		t.Fatalf("view = %q", view)
	}
}

func TestModel_EnterPlaysSelectedPlaylist(t *testing.T) {
	svc := &fakeService{}
	m, p, _ := newModel(t, svc)
	for _, l := range p.listeners {
		l.OnReady("dev-1")
	}

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	m, _ = update(t, m, playlistsMsg{items: []domain.Playlist{
		{ID: "p1", Name: "Warmup", URI: "spotify:playlist:p1"},
		{ID: "p2", Name: "Peak", URI: "spotify:playlist:p2"},
	}})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if m.selected != 1 {
		t.Fatalf("selected = %d, want the last playlist", m.selected)
	}

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("enter returned no command")
	}
	if msg := cmd(); msg != nil {
		t.Fatalf("play command reported %#v", msg)
	}
	plays := svc.Plays()
	if len(plays) != 1 || plays[0].DeviceID != "dev-1" || plays[0].PlaylistURI != "spotify:playlist:p2" {
		t.Fatalf("plays = %+v", plays)
	}
	if !strings.Contains(m.status, "Peak") {
		t.Fatalf("status = %q", m.status)
	}
}

func TestModel_SlicingKeyTogglesMode(t *testing.T) {
	m, _, s := newModel(t, &fakeService{})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
	if !s.Store().Get().Slicing {
		t.Fatal("s did not enter slicing mode")
	}
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("q did not quit")
	}
}

func TestModel_IgnoresStaleAnalysis(t *testing.T) {
	m, _, _ := newModel(t, &fakeService{})
	m.analysisFor = "t2"
	m, _ = update(t, m, analysisMsg{trackID: "t1", analysis: domain.TrackAnalysis{TrackID: "t1"}})
	if m.analysis != nil {
		t.Fatal("analysis of a previous track was kept")
	}
	m, _ = update(t, m, analysisMsg{trackID: "t2", analysis: domain.TrackAnalysis{TrackID: "t2", Tempo: 128}})
	if m.analysis == nil || m.analysis.Tempo != 128 {
		t.Fatalf("analysis = %+v", m.analysis)
	}
}

func TestModel_AnalysisErrorIsShown(t *testing.T) {
	m, _, _ := newModel(t, &fakeService{})
	m.analysisFor = "t1"
	m, _ = update(t, m, analysisMsg{trackID: "t1", err: domain.ErrNotFound})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	if !strings.Contains(m.View(), domain.ErrNotFound.Error()) {
		t.Fatal("analysis error not rendered")
	}
}

func TestModel_ResetTempoDropsCachedOverride(t *testing.T) {
	m, _, _ := newModel(t, &fakeService{})
	tap, offset := 140.0, 120.0
	m.analysisFor = "t1"
	m, _ = update(t, m, analysisMsg{trackID: "t1", analysis: domain.TrackAnalysis{
		TrackID: "t1", Tempo: 120, TapTempoBpm: &tap, BeatOffsetMs: &offset,
	}})
	if got := m.analysis.EffectiveTempo(); got != 140 {
		t.Fatalf("tempo before reset = %v, want 140", got)
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	if got := m.analysis.EffectiveTempo(); got != 120 {
		t.Fatalf("tempo after reset = %v, want the analysis tempo 120", got)
	}
	if got := m.analysis.EffectiveBeatOffset(); got != 0 {
		t.Fatalf("offset after reset = %v, want 0", got)
	}
	if tap != 140 {
		t.Fatal("reset mutated the loaded analysis")
	}
}
