package lifecycle

import (
	"context"
	"sync"
)

// Signal is a one-shot, awaitable completion carrying a value. The zero
// value is ready to use. Completing an already completed Signal is a no-op.
type Signal[T any] struct {
	once  sync.Once
	mu    sync.Mutex
	done  chan struct{}
	value T
	set   bool
}

func (s *Signal[T]) init() {
	s.once.Do(func() { s.done = make(chan struct{}) })
}

// Complete stores v and releases every waiter. It reports whether this call
// completed the Signal.
func (s *Signal[T]) Complete(v T) bool {
	s.init()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.set {
		return false
	}
	s.value = v
	s.set = true
	close(s.done)
	return true
}

// Done returns a channel closed once the Signal completes.
func (s *Signal[T]) Done() <-chan struct{} {
	s.init()
	return s.done
}

// IsDone reports whether the Signal has completed.
func (s *Signal[T]) IsDone() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set
}

// Value returns the completion value, if any.
func (s *Signal[T]) Value() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.set
}

// Wait blocks until the Signal completes or ctx is done.
func (s *Signal[T]) Wait(ctx context.Context) (T, error) {
	if t := TrackerFromContext(ctx); t != nil {
		defer t.Enter()()
	}

	select {
	case <-s.Done():
		v, _ := s.Value()
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
