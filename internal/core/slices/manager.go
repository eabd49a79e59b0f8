package slices

import (
	"context"
	"fmt"
	"sync"

	"github.com/ewilliams-labs/rockdj/internal/core/coalesce"
	"github.com/ewilliams-labs/rockdj/internal/core/domain"
	"github.com/ewilliams-labs/rockdj/internal/core/ports"
	"github.com/ewilliams-labs/rockdj/internal/core/store"
	"github.com/ewilliams-labs/rockdj/internal/log"
)

// Manager keeps the slice set of the current track in the store and
// persists edits optimistically. A failed save rolls the local set back to
// the last set known to be stored.
type Manager struct {
	store  *store.Store[store.State]
	repo   ports.SliceStore
	logger *log.Logger
	saves  *coalesce.Coalescer[string, []domain.Slice]

	mu        sync.Mutex
	knownGood map[string][]domain.Slice
}

// NewManager creates a manager whose saves run with ctx.
func NewManager(ctx context.Context, st *store.Store[store.State], repo ports.SliceStore, logger *log.Logger) *Manager {
	m := &Manager{
		store:     st,
		repo:      repo,
		logger:    logger,
		knownGood: make(map[string][]domain.Slice),
	}
	m.saves = coalesce.New(ctx, m.persist, m.saved)
	return m
}

// Load fetches the stored slices of trackID and publishes them if trackID
// is still the current track.
func (m *Manager) Load(ctx context.Context, trackID string) error {
	if trackID == "" {
		return nil
	}
	set, err := m.repo.GetSlices(ctx, trackID)
	if err != nil {
		return fmt.Errorf("slices: load %s: %w", trackID, err)
	}
	set = Sanitize(set)

	m.mu.Lock()
	m.knownGood[trackID] = domain.CloneSlices(set)
	m.mu.Unlock()

	m.store.Update(func(s store.State) store.State {
		if s.Player.TrackID() != trackID {
			return s
		}
		return store.SetSlices(trackID, set)(s)
	})
	return nil
}

// Apply publishes set as the slices of the current track and schedules it
// to be stored. Without a current track it does nothing.
func (m *Manager) Apply(set []domain.Slice) {
	trackID := store.TrackID(m.store.Get())
	if trackID == "" {
		return
	}
	set = Sanitize(set)
	m.store.Update(store.SetSlices(trackID, set))
	m.saves.Submit(trackID, domain.CloneSlices(set))
}

// Wait blocks until every scheduled save has finished.
func (m *Manager) Wait() {
	m.saves.Wait()
}

func (m *Manager) persist(ctx context.Context, trackID string, set []domain.Slice) error {
	if err := m.repo.UpsertSlices(ctx, trackID, set); err != nil {
		return fmt.Errorf("slices: save %s: %w", trackID, err)
	}
	return nil
}

func (m *Manager) saved(res coalesce.Result[string, []domain.Slice]) {
	if res.Err == nil {
		m.mu.Lock()
		m.knownGood[res.Key] = res.Value
		m.mu.Unlock()
		return
	}
	m.logger.Errorf("%v", res.Err)
	if res.Superseded {
		return
	}

	m.mu.Lock()
	good, ok := m.knownGood[res.Key]
	m.mu.Unlock()
	if !ok {
		return
	}
	m.store.Update(func(s store.State) store.State {
		// Only undo the edit that failed, never a newer local one.
		if s.SliceTrackID != res.Key || !domain.SlicesEqual(s.Slices, res.Value) {
			return s
		}
		return store.SetSlices(res.Key, good)(s)
	})
}
