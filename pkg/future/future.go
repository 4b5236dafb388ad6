// Package future provides a single-settlement asynchronous result that can
// stream progress values before it settles.
package future

import (
	"context"
	"slices"
	"sync"
)

// State is the settlement state of a Future.
type State int

const (
	Pending State = iota
	Fulfilled
	Rejected
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Fulfilled:
		return "fulfilled"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Future is a value of type T that becomes available later, preceded by zero
// or more progress notifications of type P.
//
// A Future settles exactly once. Progress notifications are delivered in the
// order they were emitted and never after settlement. Settlement observers
// registered after the fact still receive the stored outcome.
type Future[P, T any] struct {
	// delivery serializes progress delivery against settlement so that no
	// notification can overtake the terminal transition.
	delivery sync.Mutex

	mu         sync.Mutex
	state      State
	value      T
	err        error
	onProgress []func(P)
	onSettle   []func(T, error)
	done       chan struct{}
}

// Resolver drives a Future. Only the holder of the Resolver can emit progress
// or settle the Future.
type Resolver[P, T any] struct {
	f *Future[P, T]
}

// New returns a pending Future and the Resolver that controls it.
func New[P, T any]() (*Future[P, T], *Resolver[P, T]) {
	f := &Future[P, T]{done: make(chan struct{})}
	return f, &Resolver[P, T]{f: f}
}

// Observe registers callbacks. onProgress is called once per progress
// notification emitted after registration; onSettle is called exactly once
// with the outcome, immediately if the Future has already settled. Either
// callback may be nil.
func (f *Future[P, T]) Observe(onProgress func(P), onSettle func(T, error)) {
	f.mu.Lock()
	if f.state != Pending {
		value, err := f.value, f.err
		f.mu.Unlock()
		if onSettle != nil {
			onSettle(value, err)
		}
		return
	}
	if onProgress != nil {
		f.onProgress = append(f.onProgress, onProgress)
	}
	if onSettle != nil {
		f.onSettle = append(f.onSettle, onSettle)
	}
	f.mu.Unlock()
}

// Done returns a channel that is closed once the Future settles.
func (f *Future[P, T]) Done() <-chan struct{} {
	return f.done
}

// State returns the current settlement state.
func (f *Future[P, T]) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Await blocks until the Future settles or ctx is done.
func (f *Future[P, T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Progress delivers value synchronously to the currently registered progress
// observers, in registration order. It reports false, and delivers nothing,
// once the Future has settled.
//
// Observers must not call back into the Resolver.
func (r *Resolver[P, T]) Progress(value P) bool {
	f := r.f
	f.delivery.Lock()
	defer f.delivery.Unlock()

	f.mu.Lock()
	if f.state != Pending {
		f.mu.Unlock()
		return false
	}
	observers := slices.Clone(f.onProgress)
	f.mu.Unlock()

	for _, observe := range observers {
		observe(value)
	}
	return true
}

// Fulfill settles the Future with value. It reports false if the Future had
// already settled.
func (r *Resolver[P, T]) Fulfill(value T) bool {
	return r.settle(Fulfilled, value, nil)
}

// Reject settles the Future with err. It reports false if the Future had
// already settled.
func (r *Resolver[P, T]) Reject(err error) bool {
	var zero T
	return r.settle(Rejected, zero, err)
}

func (r *Resolver[P, T]) settle(state State, value T, err error) bool {
	f := r.f
	f.delivery.Lock()
	f.mu.Lock()
	if f.state != Pending {
		f.mu.Unlock()
		f.delivery.Unlock()
		return false
	}
	f.state = state
	f.value = value
	f.err = err
	observers := f.onSettle
	f.onSettle = nil
	f.onProgress = nil
	close(f.done)
	f.mu.Unlock()
	f.delivery.Unlock()

	for _, observe := range observers {
		observe(value, err)
	}
	return true
}
