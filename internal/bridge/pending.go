package bridge

import (
	"context"
	"sync"
	"sync/atomic"
)

// Access is the access shape an operation asks for.
//
// The worker is the only goroutine that ever touches the resource, so Shared
// and Exclusive do not lock anything. They document intent and are counted
// separately in the logs.
type Access uint8

const (
	// Shared is read-only access to the resource.
	Shared Access = iota + 1

	// Exclusive is mutating access to the resource.
	Exclusive
)

// String returns the access name.
func (a Access) String() string {
	switch a {
	case Shared:
		return "shared"
	case Exclusive:
		return "exclusive"
	default:
		return "unknown"
	}
}

// Pending is the caller's end of a completion notifier: a one-shot slot that
// receives exactly one result, or is resolved as closed if the operation is
// dropped without running.
type Pending[T any] struct {
	once      sync.Once
	done      chan struct{}
	abandoned atomic.Bool

	// Written once, before done is closed.
	value T
	err   error
}

func newPending[T any]() *Pending[T] {
	return &Pending[T]{done: make(chan struct{})}
}

// deliver publishes the result. Reports false if the slot was already
// resolved or the caller stopped waiting.
func (p *Pending[T]) deliver(v T, err error) bool {
	delivered := false
	p.once.Do(func() {
		p.value, p.err = v, err
		close(p.done)
		delivered = true
	})
	return delivered && !p.abandoned.Load()
}

// drop resolves the slot as closed. No-op once a result has been delivered.
func (p *Pending[T]) drop() {
	p.once.Do(func() {
		p.err = closedError()
		close(p.done)
	})
}

// Done returns a channel that is closed once the result is available.
func (p *Pending[T]) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the operation's result is available or ctx ends.
//
// If ctx ends first Wait returns ctx.Err(). The operation is not cancelled:
// the worker still runs it to completion and discards the result.
func (p *Pending[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-p.done:
		return p.value, p.err
	case <-ctx.Done():
		p.abandoned.Store(true)
		select {
		case <-p.done:
			return p.value, p.err
		default:
		}
		var zero T
		return zero, ctx.Err()
	}
}

// Submit packages fn into an operation, pairs it with a fresh notifier and
// enqueues it without blocking. It fails immediately with a closed error if
// the bridge no longer accepts work.
//
// fn runs on the worker thread. It must not delegate to the same bridge:
// the worker would wait on itself.
func Submit[T, R any](b *Bridge[R], access Access, fn func(R) (T, error)) (*Pending[T], error) {
	w := b.w
	p := newPending[T]()

	msg := message[R]{
		access: access,
		run: func(res R) (bool, func() bool) {
			v, err := fn(res)
			if err != nil {
				err = w.classify(err)
			}
			return err != nil, func() bool { return p.deliver(v, err) }
		},
		drop: p.drop,
	}

	if !w.box.push(msg) {
		w.stats.rejected.Add(1)
		return nil, closedError()
	}
	w.stats.submitted.Add(1)
	return p, nil
}

// Delegate runs fn with shared (read-only) access to the resource and
// returns its result.
//
// Errors returned by fn come back wrapped in *Error; the original is
// reachable with errors.As. A closed bridge yields an error matching
// ErrClosed. If ctx ends first, ctx.Err() is returned while fn still runs.
func Delegate[T, R any](ctx context.Context, b *Bridge[R], fn func(R) (T, error)) (T, error) {
	return delegate(ctx, b, Shared, fn)
}

// DelegateMut runs fn with exclusive (mutating) access to the resource.
// Semantics are otherwise identical to Delegate.
func DelegateMut[T, R any](ctx context.Context, b *Bridge[R], fn func(R) (T, error)) (T, error) {
	return delegate(ctx, b, Exclusive, fn)
}

func delegate[T, R any](ctx context.Context, b *Bridge[R], access Access, fn func(R) (T, error)) (T, error) {
	p, err := Submit(b, access, fn)
	if err != nil {
		var zero T
		return zero, err
	}
	return p.Wait(ctx)
}
