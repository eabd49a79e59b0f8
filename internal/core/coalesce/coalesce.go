// Package coalesce serializes writes per key so that at most one request is
// in flight and only the latest value waits behind it.
package coalesce

import (
	"context"
	"sync"
)

// SendFunc persists one value.
type SendFunc[K comparable, V any] func(ctx context.Context, key K, value V) error

// Result reports the outcome of one send. Superseded is set when a newer
// value for the same key was already waiting when the send finished.
type Result[K comparable, V any] struct {
	Key        K
	Value      V
	Err        error
	Superseded bool
}

type slot[V any] struct {
	pending    V
	hasPending bool
}

// Coalescer replaces time-based debouncing: values submitted while a send is
// in flight collapse into a single pending value, sent once the in-flight
// one resolves.
type Coalescer[K comparable, V any] struct {
	ctx      context.Context
	send     SendFunc[K, V]
	onResult func(Result[K, V])

	mu    sync.Mutex
	slots map[K]*slot[V]
	wg    sync.WaitGroup
}

// New creates a coalescer whose sends run with ctx. onResult may be nil.
func New[K comparable, V any](ctx context.Context, send SendFunc[K, V], onResult func(Result[K, V])) *Coalescer[K, V] {
	return &Coalescer[K, V]{
		ctx:      ctx,
		send:     send,
		onResult: onResult,
		slots:    make(map[K]*slot[V]),
	}
}

// Submit schedules value for key. It never blocks on the send.
func (c *Coalescer[K, V]) Submit(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, busy := c.slots[key]; busy {
		s.pending = value
		s.hasPending = true
		return
	}
	c.slots[key] = &slot[V]{}
	c.wg.Add(1)
	go c.run(key, value)
}

func (c *Coalescer[K, V]) run(key K, value V) {
	defer c.wg.Done()
	for {
		err := c.send(c.ctx, key, value)

		c.mu.Lock()
		superseded := c.slots[key].hasPending
		c.mu.Unlock()

		if c.onResult != nil {
			c.onResult(Result[K, V]{Key: key, Value: value, Err: err, Superseded: superseded})
		}

		c.mu.Lock()
		s := c.slots[key]
		if !s.hasPending {
			delete(c.slots, key)
			c.mu.Unlock()
			return
		}
		value = s.pending
		var zero V
		s.pending, s.hasPending = zero, false
		c.mu.Unlock()
	}
}

// Busy reports whether a send for key is in flight.
func (c *Coalescer[K, V]) Busy(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.slots[key]
	return ok
}

// Wait blocks until every submitted value has been sent.
func (c *Coalescer[K, V]) Wait() {
	c.wg.Wait()
}
