package window

import (
	"fmt"

	"github.com/1broseidon/winshim/internal/clipboard"
	"github.com/1broseidon/winshim/internal/platform"
	"github.com/1broseidon/winshim/internal/promise"
)

// Window is a cheap, copyable handle to a window. Its methods may be called
// from any goroutine; each one schedules work on the event loop and returns
// a future that settles when that work has run.
type Window struct {
	id   ID
	conn *Connection
}

// ID returns the window id.
func (w *Window) ID() ID { return w.id }

// Connection returns the connection that owns the window.
func (w *Window) Connection() *Connection { return w.conn }

func (w *Window) String() string { return fmt.Sprintf("window(%d)", w.id) }

type done = struct{}

func (w *Window) do(fn func(*State) error) *promise.Future[done] {
	return WithWindow(w.conn, w.id, func(s *State) (done, error) {
		return done{}, fn(s)
	})
}

// Close destroys the window without consulting CanClose.
func (w *Window) Close() *promise.Future[done] {
	return w.do(func(s *State) error { return s.close() })
}

// RequestClose behaves like the user clicking the close button: the window
// closes only if the callbacks' CanClose agrees.
func (w *Window) RequestClose() *promise.Future[done] {
	return w.do(func(s *State) error {
		s.pending.Queue(platform.CloseEvent{})
		return s.dispatchPendingEvent()
	})
}

// Hide asks the platform to minimize the window.
func (w *Window) Hide() *promise.Future[done] {
	return w.do(func(s *State) error {
		s.surface.Hide()
		return nil
	})
}

// Show maps the window and repaints it if it has already been configured.
func (w *Window) Show() *promise.Future[done] {
	return w.do(func(s *State) error {
		s.surface.Show()
		if !s.configured {
			return nil
		}
		return s.paint()
	})
}

// ToggleFullscreen asks the platform to flip the fullscreen state. The
// change is applied when the platform confirms it with a configure.
func (w *Window) ToggleFullscreen() *promise.Future[done] {
	return w.do(func(s *State) error {
		s.surface.SetFullscreen(!s.fullscreen)
		return nil
	})
}

// Invalidate repaints the window.
func (w *Window) Invalidate() *promise.Future[done] {
	return w.do(func(s *State) error { return s.invalidate() })
}

// SetTitle changes the window title.
func (w *Window) SetTitle(title string) *promise.Future[done] {
	return w.do(func(s *State) error {
		s.title = title
		s.surface.SetTitle(title)
		s.surface.Commit()
		return nil
	})
}

// SetCursor changes the pointer shape over the window.
func (w *Window) SetCursor(c platform.Cursor) *promise.Future[done] {
	return w.do(func(s *State) error {
		s.surface.SetCursor(c)
		return nil
	})
}

// SetWindowPosition moves the window, in surface coordinates, where the
// platform allows it.
func (w *Window) SetWindowPosition(x, y int) *promise.Future[done] {
	return w.do(func(s *State) error {
		s.surface.SetPosition(x, y)
		return nil
	})
}

// SetInnerSize resizes the drawable area to width by height pixels. The new
// size is applied right away rather than waiting for the platform to echo
// it back.
func (w *Window) SetInnerSize(width, height int) *promise.Future[done] {
	return w.do(func(s *State) error {
		if width <= 0 || height <= 0 {
			return fmt.Errorf("window: invalid size %dx%d", width, height)
		}
		size := platform.Size{
			Width:  pixelsToSurface(width, s.scale),
			Height: pixelsToSurface(height, s.scale),
		}
		s.pending.Configure = &size
		if err := s.dispatchPendingEvent(); err != nil {
			return err
		}
		s.surface.Resize(size.Width, size.Height)
		s.surface.RefreshDecorations()
		s.surface.Commit()
		return nil
	})
}

// GetClipboard reads the selection. The transfer runs off the event loop
// and each wait on the pipe is bounded by the connection's clipboard
// timeout; line endings are normalized to LF.
func (w *Window) GetClipboard(kind platform.ClipboardKind) *promise.Future[string] {
	p, f := promise.New[string]()
	timeout := w.conn.clipboardTimeout
	logger := w.conn.logger.With("window", uint64(w.id))

	opened := w.do(func(s *State) error {
		r, err := s.surface.OpenClipboard(kind, false)
		if err != nil {
			return fmt.Errorf("open clipboard: %w", err)
		}
		go func() {
			defer r.Close()
			text, err := clipboard.Read(r, timeout)
			if err != nil {
				logger.Error("while reading clipboard", "error", err)
				p.Reject(err)
				return
			}
			p.Resolve(clipboard.NormalizeNewlines(text))
		}()
		return nil
	})
	opened.Then(func(_ done, err error) {
		if err != nil {
			p.Reject(err)
		}
	})
	return f
}

// SetClipboard replaces the selection with text. The future resolves once
// the data has been handed to the platform.
func (w *Window) SetClipboard(kind platform.ClipboardKind, text string) *promise.Future[done] {
	p, f := promise.New[done]()
	timeout := w.conn.clipboardTimeout
	logger := w.conn.logger.With("window", uint64(w.id))

	opened := w.do(func(s *State) error {
		wf, err := s.surface.OpenClipboard(kind, true)
		if err != nil {
			return fmt.Errorf("open clipboard: %w", err)
		}
		go func() {
			err := clipboard.Write(wf, []byte(text), timeout)
			if cerr := wf.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				logger.Error("while writing clipboard", "error", err)
				p.Reject(err)
				return
			}
			p.Resolve(done{})
		}()
		return nil
	})
	opened.Then(func(_ done, err error) {
		if err != nil {
			p.Reject(err)
		}
	})
	return f
}
