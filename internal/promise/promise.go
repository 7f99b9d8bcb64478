// Package promise provides a single-assignment result cell split into a
// producer half (Promise) and a consumer half (Future).
package promise

import (
	"context"
	"errors"
	"sync"
)

// ErrBrokenPromise is delivered when a Promise is abandoned via Break.
var ErrBrokenPromise = errors.New("promise: producer abandoned the result")

// State describes whether a result has been assigned.
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

type cell[T any] struct {
	mu    sync.Mutex
	state State
	value T
	err   error
	done  chan struct{}
}

// Promise is the producer half. The first Resolve, Reject or Result call
// wins; later calls are ignored and report false.
type Promise[T any] struct {
	c *cell[T]
}

// Future is the consumer half. It is safe to share between goroutines.
type Future[T any] struct {
	c *cell[T]
}

// New returns a connected Promise/Future pair.
func New[T any]() (*Promise[T], *Future[T]) {
	c := &cell[T]{done: make(chan struct{})}
	return &Promise[T]{c: c}, &Future[T]{c: c}
}

// Resolved returns a future already fulfilled with v.
func Resolved[T any](v T) *Future[T] {
	p, f := New[T]()
	p.Resolve(v)
	return f
}

// Failed returns a future already rejected with err.
func Failed[T any](err error) *Future[T] {
	p, f := New[T]()
	p.Reject(err)
	return f
}

// Resolve fulfills the promise with v.
func (p *Promise[T]) Resolve(v T) bool {
	return p.settle(v, nil)
}

// Reject fails the promise with err. A nil err is replaced by
// ErrBrokenPromise so a rejection is never mistaken for success.
func (p *Promise[T]) Reject(err error) bool {
	if err == nil {
		err = ErrBrokenPromise
	}
	var zero T
	return p.settle(zero, err)
}

// Result settles the promise from a (value, error) pair.
func (p *Promise[T]) Result(v T, err error) bool {
	if err != nil {
		var zero T
		return p.settle(zero, err)
	}
	return p.settle(v, nil)
}

// Break rejects the promise with ErrBrokenPromise if it is still pending.
func (p *Promise[T]) Break() bool {
	return p.Reject(ErrBrokenPromise)
}

// Future returns the consumer half of p.
func (p *Promise[T]) Future() *Future[T] {
	return &Future[T]{c: p.c}
}

func (p *Promise[T]) settle(v T, err error) bool {
	c := p.c
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Pending {
		return false
	}
	c.value = v
	c.err = err
	if err != nil {
		c.state = Rejected
	} else {
		c.state = Fulfilled
	}
	close(c.done)
	return true
}

// Done is closed once the result is assigned.
func (f *Future[T]) Done() <-chan struct{} {
	return f.c.done
}

// State reports the current state without blocking.
func (f *Future[T]) State() State {
	f.c.mu.Lock()
	defer f.c.mu.Unlock()
	return f.c.state
}

// Peek returns the result if it has been assigned. ok is false while the
// future is pending.
func (f *Future[T]) Peek() (v T, ok bool, err error) {
	f.c.mu.Lock()
	defer f.c.mu.Unlock()
	if f.c.state == Pending {
		return v, false, nil
	}
	return f.c.value, true, f.c.err
}

// Await blocks until the result is assigned or ctx is done. It must not be
// called from the window loop goroutine for a future that the loop itself
// has to settle.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.c.done:
		v, _, err := f.Peek()
		return v, err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Then registers fn to run on a new goroutine once the future settles.
func (f *Future[T]) Then(fn func(T, error)) {
	go func() {
		<-f.c.done
		v, _, err := f.Peek()
		fn(v, err)
	}()
}

// Go runs fn on a new goroutine and returns a future for its result.
func Go[T any](fn func() (T, error)) *Future[T] {
	p, f := New[T]()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				p.Reject(&PanicError{Value: r})
			}
		}()
		p.Result(fn())
	}()
	return f
}

// PanicError wraps a value recovered from a panicking producer.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return "promise: producer panicked"
}
