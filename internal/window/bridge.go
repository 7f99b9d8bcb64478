package window

import (
	"fmt"

	"github.com/1broseidon/winshim/internal/promise"
)

// WithWindow runs fn against the state of window id on the loop goroutine
// and returns a future for its result. It may be called from any goroutine.
// The future rejects with ErrWindowNotFound if the window is gone by the
// time fn would run, and with ErrConnectionClosed if the loop has shut down.
// A panic in fn rejects the future with a *promise.PanicError.
func WithWindow[R any](c *Connection, id ID, fn func(*State) (R, error)) *promise.Future[R] {
	p, f := promise.New[R]()
	err := c.Spawn(func() {
		s := c.registry.get(id)
		if s == nil {
			p.Reject(fmt.Errorf("%w: %d", ErrWindowNotFound, id))
			return
		}
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("recovered panic in window closure", "panic", r)
				p.Reject(&promise.PanicError{Value: r})
			}
		}()
		p.Result(fn(s))
	})
	if err != nil {
		p.Reject(err)
	}
	return f
}

// Apply runs fn with the window's callbacks asserted to T. It is the typed
// counterpart of WithWindow for application code that knows its own
// callback type.
func Apply[T any, R any](w *Window, fn func(T, *Window) (R, error)) *promise.Future[R] {
	return WithWindow(w.conn, w.id, func(s *State) (R, error) {
		cb, ok := s.callbacks.(T)
		if !ok {
			var zero R
			return zero, fmt.Errorf("%w: have %T", ErrCallbacksType, s.callbacks)
		}
		return fn(cb, w)
	})
}
