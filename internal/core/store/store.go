// Package store is the single source of truth read by the deck components.
//
// A Store holds an immutable snapshot. Writers replace the snapshot through
// pure actions; readers subscribe with selector functions and are notified
// only when their projection changes.
package store

import "sync"

// Store is a generic observable state container.
//
// Notifications are delivered in update order by whichever goroutine is
// currently dispatching. An Update issued from inside a subscriber is queued
// and delivered after the current round, so subscribers never observe an
// older snapshot after a newer one.
type Store[S any] struct {
	mu          sync.Mutex
	state       S
	nextID      int
	subs        map[int]func(S)
	queue       []S
	dispatching bool
}

// New creates a store holding initial.
func New[S any](initial S) *Store[S] {
	return &Store[S]{state: initial, subs: make(map[int]func(S))}
}

// Get returns the current snapshot.
func (s *Store[S]) Get() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Update applies fn to the current snapshot and stores the result. fn runs
// under the store lock and must not call back into the store.
func (s *Store[S]) Update(fn func(S) S) S {
	s.mu.Lock()
	next := fn(s.state)
	s.state = next
	s.queue = append(s.queue, next)
	if s.dispatching {
		s.mu.Unlock()
		return next
	}
	s.dispatching = true
	for len(s.queue) > 0 {
		v := s.queue[0]
		s.queue = s.queue[1:]
		subs := s.snapshotSubs()
		s.mu.Unlock()
		for _, sub := range subs {
			sub(v)
		}
		s.mu.Lock()
	}
	s.dispatching = false
	s.mu.Unlock()
	return next
}

// snapshotSubs returns subscribers in registration order. Caller holds mu.
func (s *Store[S]) snapshotSubs() []func(S) {
	subs := make([]func(S), 0, len(s.subs))
	for id := 0; id < s.nextID; id++ {
		if sub, ok := s.subs[id]; ok {
			subs = append(subs, sub)
		}
	}
	return subs
}

// Subscribe registers fn for every update. The returned func unsubscribes.
func (s *Store[S]) Subscribe(fn func(S)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Select subscribes fn to changes of selector's projection. fn is not called
// for the value current at subscription time.
func Select[S any, T comparable](s *Store[S], selector func(S) T, fn func(T)) func() {
	last := selector(s.Get())
	return s.Subscribe(func(state S) {
		v := selector(state)
		if v == last {
			return
		}
		last = v
		fn(v)
	})
}
