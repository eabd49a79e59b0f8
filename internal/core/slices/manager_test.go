package slices

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ewilliams-labs/rockdj/internal/core/domain"
	"github.com/ewilliams-labs/rockdj/internal/core/store"
	"github.com/ewilliams-labs/rockdj/internal/log"
)

type fakeSliceStore struct {
	mu        sync.Mutex
	stored    map[string][]domain.Slice
	upserts   int
	upsertErr error
	getErr    error
	tempos    map[string][2]*float64
}

func newFakeSliceStore() *fakeSliceStore {
	return &fakeSliceStore{stored: map[string][]domain.Slice{}, tempos: map[string][2]*float64{}}
}

func (f *fakeSliceStore) GetSlices(ctx context.Context, trackID string) ([]domain.Slice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	return domain.CloneSlices(f.stored[trackID]), nil
}

func (f *fakeSliceStore) UpsertSlices(ctx context.Context, trackID string, set []domain.Slice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.stored[trackID] = domain.CloneSlices(set)
	return nil
}

func (f *fakeSliceStore) SetTrackTempo(ctx context.Context, trackID string, bpm, offset *float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tempos[trackID] = [2]*float64{bpm, offset}
	return nil
}

func storeOnTrack(trackID string) *store.Store[store.State] {
	st := store.NewState()
	st.Player.CurrentTrack = &domain.TrackRef{ID: trackID}
	st.Player.DurationMs = 60000
	return store.New(st)
}

func TestManager_LoadPublishesSanitizedSet(t *testing.T) {
	repo := newFakeSliceStore()
	repo.stored["t1"] = []domain.Slice{
		{ID: "ok", StartPositionMs: 100, EndPositionMs: 900},
		{ID: "bad", StartPositionMs: 500, EndPositionMs: 500},
	}
	s := storeOnTrack("t1")
	m := NewManager(context.Background(), s, repo, log.Discard())

	if err := m.Load(context.Background(), "t1"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := s.Get()
	if got.SliceTrackID != "t1" || len(got.Slices) != 1 || got.Slices[0].ID != "ok" {
		t.Fatalf("state = %+v", got)
	}
}

func TestManager_LoadIgnoresStaleTrack(t *testing.T) {
	repo := newFakeSliceStore()
	repo.stored["old"] = []domain.Slice{{ID: "x", StartPositionMs: 0, EndPositionMs: 10}}
	s := storeOnTrack("new")
	m := NewManager(context.Background(), s, repo, log.Discard())

	if err := m.Load(context.Background(), "old"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := s.Get(); got.SliceTrackID != "" || len(got.Slices) != 0 {
		t.Fatalf("stale load leaked into state: %+v", got)
	}
}

func TestManager_ApplyPersistsFullSet(t *testing.T) {
	repo := newFakeSliceStore()
	s := storeOnTrack("t1")
	m := NewManager(context.Background(), s, repo, log.Discard())

	set := []domain.Slice{{ID: "a", StartPositionMs: 2000, EndPositionMs: 8000}}
	m.Apply(set)
	m.Wait()

	if got := s.Get().Slices; !domain.SlicesEqual(got, set) {
		t.Fatalf("local slices = %+v", got)
	}
	if got := repo.stored["t1"]; !domain.SlicesEqual(got, set) {
		t.Fatalf("stored slices = %+v", got)
	}
}

func TestManager_FailedSaveRollsBack(t *testing.T) {
	repo := newFakeSliceStore()
	good := []domain.Slice{{ID: "a", StartPositionMs: 2000, EndPositionMs: 8000}}
	repo.stored["t1"] = good
	s := storeOnTrack("t1")
	m := NewManager(context.Background(), s, repo, log.Discard())
	if err := m.Load(context.Background(), "t1"); err != nil {
		t.Fatalf("Load: %v", err)
	}

	repo.mu.Lock()
	repo.upsertErr = errors.New("db down")
	repo.mu.Unlock()

	m.Apply(append(domain.CloneSlices(good), domain.Slice{ID: "b", StartPositionMs: 9000, EndPositionMs: 9500}))
	m.Wait()

	if got := s.Get().Slices; !domain.SlicesEqual(got, good) {
		t.Fatalf("slices after failed save = %+v, want rollback to %+v", got, good)
	}
}

func TestManager_ApplyWithoutTrackIsNoop(t *testing.T) {
	repo := newFakeSliceStore()
	s := store.New(store.NewState())
	m := NewManager(context.Background(), s, repo, log.Discard())

	m.Apply([]domain.Slice{{ID: "a", StartPositionMs: 0, EndPositionMs: 10}})
	m.Wait()

	if repo.upserts != 0 || len(s.Get().Slices) != 0 {
		t.Fatal("expected no edit without a current track")
	}
}

func TestManager_LoadError(t *testing.T) {
	repo := newFakeSliceStore()
	repo.getErr = errors.New("offline")
	m := NewManager(context.Background(), storeOnTrack("t1"), repo, log.Discard())
	if err := m.Load(context.Background(), "t1"); err == nil {
		t.Fatal("expected an error")
	}
}
