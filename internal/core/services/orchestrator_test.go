package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/ewilliams-labs/rockdj/internal/core/domain"
	"github.com/ewilliams-labs/rockdj/internal/core/ports"
	"github.com/ewilliams-labs/rockdj/internal/log"
	"github.com/ewilliams-labs/rockdj/internal/worker"
)

// --- Mocks ---

// mockSpotify is a lightweight mock of the spotify provider.
type mockSpotify struct {
	mu sync.Mutex

	tracks      []domain.Track
	features    map[string]domain.AudioFeatures
	analysis    ports.RawAnalysis
	analysisErr error
	playErr     error

	analysisCalls int
	played        []domain.PlayRequest
	replaced      [][]string
	appended      [][]string
}

func (m *mockSpotify) Playlists(context.Context, int) (domain.Page[domain.Playlist], error) {
	return domain.Page[domain.Playlist]{Items: []domain.Playlist{{ID: "p1"}}}, nil
}

func (m *mockSpotify) PlaylistTracks(_ context.Context, _ string, cursor int) (domain.Page[domain.Track], error) {
	return domain.Page[domain.Track]{Items: append([]domain.Track(nil), m.tracks...), NextCursor: domain.NextCursor(cursor, false)}, nil
}

func (m *mockSpotify) AllPlaylistTracks(context.Context, string) ([]domain.Track, error) {
	return append([]domain.Track(nil), m.tracks...), nil
}

func (m *mockSpotify) AudioFeatures(_ context.Context, ids []string) (map[string]domain.AudioFeatures, error) {
	out := map[string]domain.AudioFeatures{}
	for _, id := range ids {
		if f, ok := m.features[id]; ok {
			out[id] = f
		}
	}
	return out, nil
}

func (m *mockSpotify) AudioAnalysis(context.Context, string) (ports.RawAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.analysisCalls++
	return m.analysis, m.analysisErr
}

func (m *mockSpotify) PlayOnDevice(_ context.Context, req domain.PlayRequest) error {
	m.played = append(m.played, req)
	return m.playErr
}

func (m *mockSpotify) AddToQueue(context.Context, string, string) error  { return nil }
func (m *mockSpotify) RemoveTrack(context.Context, string, string) error { return nil }
func (m *mockSpotify) ReplacePlaylistTracks(_ context.Context, _ string, ids []string) error {
	m.replaced = append(m.replaced, ids)
	return nil
}

func (m *mockSpotify) AppendPlaylistTracks(_ context.Context, _ string, ids []string) error {
	m.appended = append(m.appended, ids)
	return nil
}

// mockRepo is a minimal in-memory TrackRepository.
type mockRepo struct {
	tempos    map[string]domain.TrackTempo
	envelopes map[string][]domain.Beat
	slices    map[string][]domain.Slice
	saveErr   error
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		tempos:    map[string]domain.TrackTempo{},
		envelopes: map[string][]domain.Beat{},
		slices:    map[string][]domain.Slice{},
	}
}

func (m *mockRepo) GetSlices(_ context.Context, id string) ([]domain.Slice, error) {
	return m.slices[id], nil
}

func (m *mockRepo) UpsertSlices(_ context.Context, id string, set []domain.Slice) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.slices[id] = set
	return nil
}

func (m *mockRepo) SetTrackTempo(_ context.Context, id string, bpm, offset *float64) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.tempos[id] = domain.TrackTempo{TrackID: id, TapTempoBpm: bpm, BeatOffsetMs: offset}
	return nil
}

func (m *mockRepo) GetTrackTempos(_ context.Context, ids []string) (map[string]domain.TrackTempo, error) {
	out := map[string]domain.TrackTempo{}
	for _, id := range ids {
		if tt, ok := m.tempos[id]; ok {
			out[id] = tt
		}
	}
	return out, nil
}

func (m *mockRepo) SaveEnvelope(_ context.Context, id string, beats []domain.Beat) error {
	m.envelopes[id] = beats
	return nil
}

func (m *mockRepo) GetEnvelope(_ context.Context, id string) ([]domain.Beat, error) {
	return m.envelopes[id], nil
}

type mockQueue struct{ jobs []worker.Job }

func (q *mockQueue) Submit(job worker.Job) { q.jobs = append(q.jobs, job) }

func f64(v float64) *float64 { return &v }

// --- Tests ---

func TestOrchestrator_PlaylistTracksMergesTempo(t *testing.T) {
	sp := &mockSpotify{
		tracks: []domain.Track{
			{ID: "t1", PreviewURL: "https://p.scdn.co/mp3/t1"},
			{ID: "t2"},
		},
		features: map[string]domain.AudioFeatures{"t1": {Tempo: 120}, "t2": {Tempo: 90}},
	}
	repo := newMockRepo()
	repo.tempos["t2"] = domain.TrackTempo{TrackID: "t2", TapTempoBpm: f64(95), BeatOffsetMs: f64(120)}
	queue := &mockQueue{}
	o := NewOrchestrator(sp, repo, queue, log.Discard())

	page, err := o.PlaylistTracks(context.Background(), "p1", 0)
	if err != nil {
		t.Fatalf("tracks: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("items = %+v", page.Items)
	}
	if page.Items[0].Features.Tempo != 120 || page.Items[0].TapTempoBpm != nil {
		t.Fatalf("t1 = %+v", page.Items[0])
	}
	if got := page.Items[1]; got.TapTempoBpm == nil || *got.TapTempoBpm != 95 || *got.BeatOffsetMs != 120 {
		t.Fatalf("t2 = %+v", got)
	}
	if len(queue.jobs) != 1 || queue.jobs[0].TrackID != "t1" {
		t.Fatalf("jobs = %+v", queue.jobs)
	}

	empty, err := o.PlaylistTracks(context.Background(), "", 0)
	if err != nil || len(empty.Items) != 0 || empty.NextCursor != nil {
		t.Fatalf("empty id page = %+v, %v", empty, err)
	}
}

func TestOrchestrator_SortByTempo(t *testing.T) {
	tests := []struct {
		name         string
		count        int
		wantReplaced int
		wantAppended []int
	}{
		{name: "single chunk", count: 3, wantReplaced: 3},
		{name: "replace then append", count: 250, wantReplaced: 100, wantAppended: []int{100, 50}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sp := &mockSpotify{features: map[string]domain.AudioFeatures{}}
			for i := 0; i < tt.count; i++ {
				id := fmt.Sprintf("t%03d", i)
				sp.tracks = append(sp.tracks, domain.Track{ID: id})
				sp.features[id] = domain.AudioFeatures{Tempo: float64(200 - i%7)}
			}
			o := NewOrchestrator(sp, newMockRepo(), nil, log.Discard())

			sorted, err := o.SortByTempo(context.Background(), "p1")
			if err != nil {
				t.Fatalf("sort: %v", err)
			}
			for i := 1; i < len(sorted); i++ {
				a, b := sorted[i-1], sorted[i]
				if a.Tempo() > b.Tempo() || (a.Tempo() == b.Tempo() && a.ID > b.ID) {
					t.Fatalf("not stable ascending at %d: %s(%v) %s(%v)", i, a.ID, a.Tempo(), b.ID, b.Tempo())
				}
			}
			if len(sp.replaced) != 1 || len(sp.replaced[0]) != tt.wantReplaced {
				t.Fatalf("replaced = %d calls", len(sp.replaced))
			}
			if len(sp.appended) != len(tt.wantAppended) {
				t.Fatalf("appended = %d calls, want %d", len(sp.appended), len(tt.wantAppended))
			}
			for i, n := range tt.wantAppended {
				if len(sp.appended[i]) != n {
					t.Fatalf("append %d = %d ids, want %d", i, len(sp.appended[i]), n)
				}
			}
		})
	}
}

func TestOrchestrator_SortByTempoPrefersTapTempo(t *testing.T) {
	sp := &mockSpotify{
		tracks:   []domain.Track{{ID: "fast"}, {ID: "slow"}, {ID: "none"}},
		features: map[string]domain.AudioFeatures{"fast": {Tempo: 170}, "slow": {Tempo: 80}},
	}
	repo := newMockRepo()
	repo.tempos["fast"] = domain.TrackTempo{TrackID: "fast", TapTempoBpm: f64(60)}
	o := NewOrchestrator(sp, repo, nil, log.Discard())

	if _, err := o.SortByTempo(context.Background(), "p1"); err != nil {
		t.Fatal(err)
	}
	got := fmt.Sprint(sp.replaced[0])
	if want := "[none fast slow]"; got != want {
		t.Fatalf("order = %s, want %s", got, want)
	}
}

func TestOrchestrator_Analysis(t *testing.T) {
	sp := &mockSpotify{
		features: map[string]domain.AudioFeatures{"t1": {Tempo: 119.6, TimeSignature: 4, DurationMs: 60000}},
		analysis: ports.RawAnalysis{
			Beats: []ports.Interval{
				{Start: 0.0, Duration: 0.5},
				{Start: 0.5, Duration: 0.5},
				{Start: 1.0, Duration: 0.5},
				{Start: 9.0, Duration: 0.5},
			},
			Segments: []ports.Segment{
				{Interval: ports.Interval{Start: 0.6, Duration: 0.6}, Timbre: []float64{30}},
				{Interval: ports.Interval{Start: 0.0, Duration: 0.6}, Timbre: []float64{10}},
			},
		},
	}
	repo := newMockRepo()
	repo.tempos["t1"] = domain.TrackTempo{TrackID: "t1", TapTempoBpm: f64(121)}
	o := NewOrchestrator(sp, repo, nil, log.Discard())

	a, err := o.Analysis(context.Background(), "t1")
	if err != nil {
		t.Fatalf("analysis: %v", err)
	}
	want := []domain.Beat{{PositionMs: 0, Value: 0}, {PositionMs: 500, Value: 0}, {PositionMs: 1000, Value: 1}}
	if fmt.Sprint(a.Beats) != fmt.Sprint(want) {
		t.Fatalf("beats = %v, want %v", a.Beats, want)
	}
	if a.NumBeats != 120 {
		t.Fatalf("numBeats = %d, want 120", a.NumBeats)
	}
	if a.TapTempoBpm == nil || *a.TapTempoBpm != 121 || a.EffectiveTempo() != 121 {
		t.Fatalf("tap tempo = %v", a.TapTempoBpm)
	}

	if _, err := o.Analysis(context.Background(), "t1"); err != nil {
		t.Fatal(err)
	}
	if sp.analysisCalls != 1 {
		t.Fatalf("analysis calls = %d, want 1 (cached)", sp.analysisCalls)
	}
}

func TestOrchestrator_AnalysisFallsBackToEnvelope(t *testing.T) {
	sp := &mockSpotify{
		features:    map[string]domain.AudioFeatures{"t1": {Tempo: 100, DurationMs: 30000}},
		analysisErr: errors.New("spotify: 403 forbidden"),
	}
	repo := newMockRepo()
	o := NewOrchestrator(sp, repo, nil, log.Discard())

	if _, err := o.Analysis(context.Background(), "t1"); err == nil {
		t.Fatal("expected an error without analysis or envelope")
	}

	repo.envelopes["t1"] = []domain.Beat{{PositionMs: 0, Value: 1}}
	a, err := o.Analysis(context.Background(), "t1")
	if err != nil {
		t.Fatalf("analysis: %v", err)
	}
	if !a.Envelope || len(a.Beats) != 1 {
		t.Fatalf("analysis = %+v", a)
	}

	if _, err := o.Analysis(context.Background(), "unknown"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown track err = %v", err)
	}
}

func TestOrchestrator_UpsertSlices(t *testing.T) {
	tests := []struct {
		name    string
		set     []domain.Slice
		wantErr error
		want    []domain.Slice
	}{
		{
			name: "rounds positions",
			set:  []domain.Slice{{ID: "a", StartPositionMs: 1999.6, EndPositionMs: 8000.4}},
			want: []domain.Slice{{ID: "a", StartPositionMs: 2000, EndPositionMs: 8000}},
		},
		{
			name: "empty set clears",
			set:  []domain.Slice{},
			want: []domain.Slice{},
		},
		{
			name:    "inverted slice rejected",
			set:     []domain.Slice{{ID: "a", StartPositionMs: 5000, EndPositionMs: 4000}},
			wantErr: domain.ErrInvalidSlice,
		},
		{
			name:    "duplicate ids rejected",
			set:     []domain.Slice{{ID: "a", StartPositionMs: 0, EndPositionMs: 10}, {ID: "a", StartPositionMs: 20, EndPositionMs: 30}},
			wantErr: domain.ErrInvalidSlice,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockRepo()
			o := NewOrchestrator(&mockSpotify{}, repo, nil, log.Discard())
			got, err := o.UpsertSlices(context.Background(), "t1", tt.set)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				if _, saved := repo.slices["t1"]; saved {
					t.Fatal("invalid set was saved")
				}
				return
			}
			if err != nil {
				t.Fatalf("upsert: %v", err)
			}
			if !domain.SlicesEqual(got, tt.want) || !domain.SlicesEqual(repo.slices["t1"], tt.want) {
				t.Fatalf("saved = %+v, want %+v", repo.slices["t1"], tt.want)
			}
		})
	}
}

func TestOrchestrator_SetTrackTempo(t *testing.T) {
	repo := newMockRepo()
	o := NewOrchestrator(&mockSpotify{}, repo, nil, log.Discard())
	ctx := context.Background()

	tt, err := o.SetTrackTempo(ctx, "t1", f64(127.6), f64(249.4))
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if *tt.TapTempoBpm != 128 || *tt.BeatOffsetMs != 249 {
		t.Fatalf("tempo = %v/%v", *tt.TapTempoBpm, *tt.BeatOffsetMs)
	}
	if _, err := o.SetTrackTempo(ctx, "", f64(120), nil); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("empty id err = %v", err)
	}
	if _, err := o.SetTrackTempo(ctx, "t1", nil, nil); err != nil || repo.tempos["t1"].TapTempoBpm != nil {
		t.Fatalf("clear = %v, %+v", err, repo.tempos["t1"])
	}
}

func TestOrchestrator_PlayOnDeviceValidates(t *testing.T) {
	sp := &mockSpotify{}
	o := NewOrchestrator(sp, newMockRepo(), nil, log.Discard())

	err := o.PlayOnDevice(context.Background(), domain.PlayRequest{PlaylistURI: "spotify:playlist:p1"})
	if !errors.Is(err, domain.ErrNoDevice) {
		t.Fatalf("err = %v, want ErrNoDevice", err)
	}
	if len(sp.played) != 0 {
		t.Fatal("invalid request reached the provider")
	}
	if err := o.PlayOnDevice(context.Background(), domain.PlayRequest{DeviceID: "dev", PlaylistURI: "spotify:playlist:p1"}); err != nil {
		t.Fatalf("play: %v", err)
	}
}
