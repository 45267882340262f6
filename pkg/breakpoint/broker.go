package breakpoint

import (
	"context"
	"sync"
)

const defaultBufferSize = 16

// broker fans out values to subscribers without blocking publishers.
type broker[T any] struct {
	mu     sync.RWMutex
	subs   map[chan T]struct{}
	done   chan struct{}
	buffer int
}

func newBroker[T any](buffer int) *broker[T] {
	if buffer <= 0 {
		buffer = defaultBufferSize
	}
	return &broker[T]{
		subs:   make(map[chan T]struct{}),
		done:   make(chan struct{}),
		buffer: buffer,
	}
}

// shutdown closes the broker and all subscriber channels.
func (b *broker[T]) shutdown() {
	select {
	case <-b.done:
		return
	default:
		close(b.done)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs {
		close(ch)
	}
	clear(b.subs)
}

// subscribe registers for future values. The returned channel closes when ctx
// is done or the broker shuts down.
func (b *broker[T]) subscribe(ctx context.Context) <-chan T {
	b.mu.Lock()
	defer b.mu.Unlock()

	select {
	case <-b.done:
		ch := make(chan T)
		close(ch)
		return ch
	default:
	}

	ch := make(chan T, b.buffer)
	b.subs[ch] = struct{}{}

	go func() {
		select {
		case <-ctx.Done():
		case <-b.done:
			return
		}

		b.mu.Lock()
		defer b.mu.Unlock()

		if _, ok := b.subs[ch]; !ok {
			return
		}
		delete(b.subs, ch)
		close(ch)
	}()

	return ch
}

// publish sends v to all subscribers using best-effort delivery.
func (b *broker[T]) publish(v T) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	select {
	case <-b.done:
		return
	default:
	}

	for ch := range b.subs {
		select {
		case ch <- v:
		default:
			// Slow subscriber; skip to avoid blocking the publisher.
		}
	}
}

func (b *broker[T]) count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
