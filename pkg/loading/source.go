package loading

import (
	"context"
	"sync"
)

// Source drives a stream of State values for a view that refetches: initial
// load, pagination, refresh. Each Fetch emits Pending synchronously, then
// exactly one terminal state — unless a newer Fetch starts first, in which
// case the older fetch's context is canceled and its terminal state is
// dropped. A slow stale response can therefore never overwrite a newer one.
type Source[T any] struct {
	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	out    chan State[T]
	closed bool
}

// NewSource creates a Source. The state channel is buffered; a consumer that
// lags sees states coalesce to the most recent ones.
func NewSource[T any]() *Source[T] {
	return &Source[T]{out: make(chan State[T], 4)}
}

// States is the stream of emitted states. It is closed by Close.
func (s *Source[T]) States() <-chan State[T] {
	return s.out
}

// Fetch starts fn, preempting any fetch still in flight. Pending is emitted
// before Fetch returns, so a subscriber draining States observes the loading
// phase first.
func (s *Source[T]) Fetch(ctx context.Context, fn func(context.Context) (T, error)) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.gen++
	gen := s.gen
	s.emitLocked(Pending[T]())
	s.mu.Unlock()

	go func() {
		defer cancel()
		data, err := fn(fetchCtx)

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed || gen != s.gen {
			// A newer fetch took over; this outcome is stale.
			return
		}
		if err != nil {
			s.emitLocked(Failed[T](err))
			return
		}
		s.emitLocked(Done(data))
	}()
}

// Cancel drops interest in any in-flight fetch without starting a new one,
// for a view being navigated away from. No further state is emitted for the
// canceled fetch.
func (s *Source[T]) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
}

// Close cancels any in-flight fetch and closes the state channel.
func (s *Source[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
	close(s.out)
}

// emitLocked delivers st, evicting the oldest buffered state when the
// consumer lags. Callers hold s.mu.
func (s *Source[T]) emitLocked(st State[T]) {
	for {
		select {
		case s.out <- st:
			return
		default:
			select {
			case <-s.out:
			default:
			}
		}
	}
}
