// Package loading turns one-shot asynchronous fetches into a stream of
// loading / error / data states. Every read path in the storefront core goes
// through it, so consumers render from a single state shape and never handle
// a thrown error.
package loading

import "context"

// State is the latest outcome of an asynchronous operation. Exactly one of
// Loading, Err != nil, or a settled Data value describes it: a new fetch
// always clears stale data rather than keeping it alongside Loading.
type State[T any] struct {
	Loading bool
	Err     error
	Data    *T
}

// Pending is the state emitted immediately when a fetch starts.
func Pending[T any]() State[T] {
	return State[T]{Loading: true}
}

// Done is the terminal state of a successful fetch.
func Done[T any](data T) State[T] {
	return State[T]{Data: &data}
}

// Failed is the terminal state of a failed fetch. The error is carried as
// data; it has already been handled as far as this layer is concerned.
func Failed[T any](err error) State[T] {
	return State[T]{Err: err}
}

// Settled reports whether the state is terminal.
func (s State[T]) Settled() bool {
	return !s.Loading
}

// Run performs fn and returns its terminal state. It is the one-shot form
// for call sites that do not need preemption.
func Run[T any](ctx context.Context, fn func(context.Context) (T, error)) State[T] {
	data, err := fn(ctx)
	if err != nil {
		return Failed[T](err)
	}
	return Done(data)
}
