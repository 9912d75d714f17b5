// Package observable provides a typed publish/subscribe cell holding the latest
// value of a derived view.
package observable

import (
	"context"
	"sync"
)

// Value is the read side of a Cell.
type Value[T any] interface {
	// Get returns the latest published value and whether anything was published yet.
	Get() (T, bool)
	// Version counts publications; it starts at zero.
	Version() uint64
	// Subscribe returns a channel that always holds the most recent value.
	// Intermediate values may be skipped by slow readers. The channel is
	// closed when ctx ends.
	Subscribe(ctx context.Context) <-chan T
}

// Cell stores one value and pushes every publication to its subscribers.
// Set never blocks on readers.
type Cell[T any] struct {
	mu      sync.Mutex
	value   T
	set     bool
	version uint64
	nextID  uint64
	subs    map[uint64]chan T
}

func New[T any]() *Cell[T] {
	return &Cell[T]{subs: map[uint64]chan T{}}
}

func (c *Cell[T]) Get() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.set
}

func (c *Cell[T]) Version() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

func (c *Cell[T]) Set(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = v
	c.set = true
	c.version++
	for _, ch := range c.subs {
		offer(ch, v)
	}
}

func (c *Cell[T]) Subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, 1)
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = ch
	if c.set {
		ch <- c.value
	}
	c.mu.Unlock()

	go func() {
		<-ctx.Done()
		c.mu.Lock()
		delete(c.subs, id)
		close(ch)
		c.mu.Unlock()
	}()
	return ch
}

// offer replaces whatever is buffered in ch with v. Only the publisher sends,
// and it holds the cell lock, so the second send cannot block.
func offer[T any](ch chan T, v T) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}
