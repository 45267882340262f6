package breakpoint

import (
	"context"
	"slices"
	"sync"

	"github.com/matzehuels/gridkit/pkg/errors"
)

// Signal holds the single authoritative breakpoint of a session and
// broadcasts every change to its subscribers.
//
// A Signal is safe for concurrent use.
type Signal struct {
	mu         sync.RWMutex
	classifier Classifier
	current    Breakpoint
	broker     *broker[Breakpoint]
	observers  []func(Breakpoint)
}

// NewSignal creates a signal starting at initial. An invalid initial value
// falls back to [Desktop], matching the default view mode of a fresh session.
func NewSignal(c Classifier, initial Breakpoint) *Signal {
	if !initial.Valid() {
		initial = Desktop
	}
	return &Signal{
		classifier: c,
		current:    initial,
		broker:     newBroker[Breakpoint](defaultBufferSize),
	}
}

// Current returns the authoritative breakpoint.
func (s *Signal) Current() Breakpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update classifies width and makes the result authoritative.
// It reports whether the breakpoint changed.
func (s *Signal) Update(width int) (Breakpoint, bool) {
	b := s.classifier.Classify(width)
	return b, s.set(b)
}

// Set forces the authoritative breakpoint, as a manual view-mode switch does.
func (s *Signal) Set(b Breakpoint) error {
	if !b.Valid() {
		return errors.New(errors.ErrCodeInvalidBreakpoint, "unknown breakpoint %q", b)
	}
	s.set(b)
	return nil
}

func (s *Signal) set(b Breakpoint) bool {
	s.mu.Lock()
	if s.current == b {
		s.mu.Unlock()
		return false
	}
	s.current = b
	observers := slices.Clone(s.observers)
	s.mu.Unlock()

	for _, fn := range observers {
		fn(b)
	}
	s.broker.publish(b)
	return true
}

// OnChange registers fn to run synchronously after every change, before
// subscribers are notified. Used to persist the value.
func (s *Signal) OnChange(fn func(Breakpoint)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Subscribe returns a channel receiving every subsequent change. The channel
// closes when ctx is done or the signal is closed.
func (s *Signal) Subscribe(ctx context.Context) <-chan Breakpoint {
	return s.broker.subscribe(ctx)
}

// Subscribers returns the number of active subscriptions.
func (s *Signal) Subscribers() int { return s.broker.count() }

// Close releases all subscribers.
func (s *Signal) Close() { s.broker.shutdown() }

var _ Source = (*Signal)(nil)
