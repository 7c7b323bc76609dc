package imap

import (
	"context"
	"sync"
)

// Promise is a single-resolution completion handle: it resolves exactly
// once, either with a value or with an error. The engine is the sole
// writer; callers only read.
type Promise[T any] struct {
	mu   sync.Mutex
	done chan struct{}
	val  T
	err  error
}

func newPromise[T any]() *Promise[T] {
	return &Promise[T]{done: make(chan struct{})}
}

// complete resolves the promise with a value. It reports false if the
// promise was already resolved, in which case nothing changes.
func (p *Promise[T]) complete(val T) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	select {
	case <-p.done:
		return false
	default:
	}

	p.val = val
	close(p.done)
	return true
}

// fail resolves the promise with an error. It reports false if the promise
// was already resolved.
func (p *Promise[T]) fail(err error) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	select {
	case <-p.done:
		return false
	default:
	}

	p.err = err
	close(p.done)
	return true
}

// Done returns a channel closed once the promise resolves.
func (p *Promise[T]) Done() <-chan struct{} {
	return p.done
}

// Resolved reports whether the promise has resolved, with either outcome.
func (p *Promise[T]) Resolved() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Succeeded reports whether the promise resolved with a value. It is a
// point-in-time check and never blocks.
func (p *Promise[T]) Succeeded() bool {
	select {
	case <-p.done:
		return p.err == nil
	default:
		return false
	}
}

// Await blocks until the promise resolves or the context is done.
func (p *Promise[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-p.done:
		return p.val, p.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result returns the outcome without blocking. The bool is false while the
// promise is still pending.
func (p *Promise[T]) Result() (val T, err error, resolved bool) {
	select {
	case <-p.done:
		return p.val, p.err, true
	default:
		return val, nil, false
	}
}
