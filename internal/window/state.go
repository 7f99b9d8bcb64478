package window

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/1broseidon/winshim/internal/gpu"
	"github.com/1broseidon/winshim/internal/platform"
	"github.com/1broseidon/winshim/internal/promise"
)

// ID identifies a window within a Connection. IDs are never reused.
type ID uint64

// Lifecycle is the coarse state of a window.
type Lifecycle int

const (
	// Created: the surface exists but no configure has been seen.
	Created Lifecycle = iota
	// Configuring: the surface is mapped and waiting for its first configure.
	Configuring
	// Mapped: the window has a presentation context and is painting.
	Mapped
	// Closing: the destroy callback is running.
	Closing
	// Destroyed: every resource has been released.
	Destroyed
)

func (l Lifecycle) String() string {
	switch l {
	case Created:
		return "created"
	case Configuring:
		return "configuring"
	case Mapped:
		return "mapped"
	case Closing:
		return "closing"
	case Destroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("lifecycle(%d)", int(l))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (l Lifecycle) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Lifecycle) UnmarshalText(text []byte) error {
	for c := Created; c <= Destroyed; c++ {
		if c.String() == string(text) {
			*l = c
			return nil
		}
	}
	return fmt.Errorf("window: unknown lifecycle %q", text)
}

// State is the loop-owned state of one window. A *State is only handed out
// inside closures running on the event loop goroutine and must not be
// retained past the closure.
type State struct {
	id        ID
	conn      *Connection
	surface   platform.Surface
	callbacks Callbacks
	logger    *slog.Logger

	title      string
	dims       Dimensions
	scale      int
	fullscreen bool
	needPaint  bool
	configured bool
	lifecycle  Lifecycle
	gpu        gpu.Context
	pending    PendingEvent

	created *promise.Promise[*Window]
}

func newState(conn *Connection, id ID, surface platform.Surface, opts WindowOptions, cb Callbacks, created *promise.Promise[*Window]) *State {
	scale := surface.ScaleFactor()
	if scale < 1 {
		scale = 1
	}
	return &State{
		id:        id,
		conn:      conn,
		surface:   surface,
		callbacks: cb,
		logger:    conn.logger.With("window", uint64(id)),
		title:     opts.Title,
		dims: Dimensions{
			PixelWidth:  opts.Width,
			PixelHeight: opts.Height,
			DPI:         DefaultDPI,
		},
		scale:   scale,
		created: created,
	}
}

// ID returns the window id.
func (s *State) ID() ID { return s.id }

// Window returns a thread-safe handle to this window.
func (s *State) Window() *Window { return &Window{id: s.id, conn: s.conn} }

func (s *State) Dimensions() Dimensions { return s.dims }
func (s *State) Fullscreen() bool { return s.fullscreen }
func (s *State) Lifecycle() Lifecycle { return s.lifecycle }
func (s *State) Title() string { return s.title }
func (s *State) Callbacks() Callbacks { return s.callbacks }
func (s *State) NeedsPaint() bool { return s.needPaint }

// GPU returns the presentation context, or nil before negotiation.
func (s *State) GPU() gpu.Context { return s.gpu }

func (s *State) info() Info {
	return Info{
		ID:         s.id,
		Title:      s.title,
		Dimensions: s.dims,
		Fullscreen: s.fullscreen,
		Lifecycle:  s.lifecycle,
	}
}

// handleEvent receives platform events for this window during Dispatch.
// Input events go straight to the callbacks; state changes are coalesced
// and applied by a single dispatch closure.
func (s *State) handleEvent(ev platform.Event) {
	if s.lifecycle >= Closing {
		return
	}
	switch e := ev.(type) {
	case platform.KeyEvent:
		s.callbacks.KeyEvent(e, s.Window())
	case platform.MouseEvent:
		if !e.Pixels {
			e.X = surfaceToPixels(e.X, s.scale)
			e.Y = surfaceToPixels(e.Y, s.scale)
		}
		s.callbacks.MouseEvent(e, s.Window())
	case platform.FocusEvent:
		s.callbacks.FocusChange(e.Focused)
	default:
		if s.pending.Queue(ev) {
			s.scheduleDispatch()
		}
	}
}

func (s *State) scheduleDispatch() {
	// Failures are logged where they happen; nobody awaits this result.
	WithWindow(s.conn, s.id, func(st *State) (struct{}, error) {
		return struct{}{}, st.dispatchPendingEvent()
	})
}

// dispatchPendingEvent drains the coalesced notifications and applies them
// in a fixed order: close, fullscreen, scale, size, decorations, and finally
// first-time presentation setup.
func (s *State) dispatchPendingEvent() error {
	if s.lifecycle >= Closing {
		return nil
	}
	p := s.pending.Take()

	if p.Close {
		if s.callbacks.CanClose() {
			return s.close()
		}
		s.logger.Debug("close request refused by callbacks")
	}

	if p.Fullscreen != nil {
		s.fullscreen = *p.Fullscreen
	}

	if p.Configure == nil && p.DPI != nil {
		// Re-run the size path at the current surface size.
		p.Configure = &platform.Size{
			Width:  pixelsToSurface(s.dims.PixelWidth, s.scale),
			Height: pixelsToSurface(s.dims.PixelHeight, s.scale),
		}
	}
	if p.DPI != nil && *p.DPI > 0 {
		s.scale = *p.DPI
	}

	if p.Configure != nil {
		if err := s.applyConfigure(*p.Configure); err != nil {
			return err
		}
	}

	if p.RefreshDecorations {
		s.surface.RefreshDecorations()
		s.surface.Commit()
	}

	if p.HadConfigure && !s.configured {
		s.configured = true
		if s.gpu == nil {
			return s.negotiate()
		}
	}
	return nil
}

func (s *State) applyConfigure(size platform.Size) error {
	s.surface.SetBufferScale(s.scale)
	dims := Dimensions{
		PixelWidth:  surfaceToPixels(size.Width, s.scale),
		PixelHeight: surfaceToPixels(size.Height, s.scale),
		DPI:         s.scale * DefaultDPI,
	}
	if dims == s.dims {
		return nil
	}
	s.logger.Debug("resize", "width", dims.PixelWidth, "height", dims.PixelHeight, "dpi", dims.DPI)
	s.dims = dims
	if s.gpu != nil {
		s.gpu.Resize(dims.PixelWidth, dims.PixelHeight)
	}
	s.callbacks.Resize(dims, s.fullscreen)
	if s.gpu != nil {
		if err := s.gpu.Recreate(); err != nil {
			s.logger.Warn("recreate presentation surface", "error", err)
		}
	}
	s.surface.RefreshDecorations()
	s.needPaint = true
	return s.paint()
}

// negotiate obtains the presentation context. This is the only place the
// loop goroutine waits on another goroutine.
func (s *State) negotiate() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.conn.negotiateTimeout)
	defer cancel()

	s.logger.Debug("negotiating presentation context", "width", s.dims.PixelWidth, "height", s.dims.PixelHeight)
	provider := s.conn.provider
	gctx, err := provider.Negotiate(ctx, s.surface, s.dims.PixelWidth, s.dims.PixelHeight).Await(ctx)
	if err == nil && gctx == nil {
		err = gpu.ErrUnsupportedTarget
	}
	if err != nil {
		err = fmt.Errorf("%w: window %d: %w", ErrNegotiation, s.id, err)
		s.abort(err)
		return err
	}
	s.gpu = gctx
	s.lifecycle = Mapped

	w := s.Window()
	if err := s.callbacks.Created(w, gctx); err != nil {
		err = fmt.Errorf("window %d created callback: %w", s.id, err)
		s.abort(err)
		return err
	}
	s.logger.Info("window mapped", "width", s.dims.PixelWidth, "height", s.dims.PixelHeight)
	s.created.Resolve(w)
	return s.invalidate()
}

func (s *State) invalidate() error {
	s.needPaint = true
	return s.paint()
}

// paint renders one frame. A failed frame acquisition gets one recreate and
// retry; a second failure is fatal to the connection.
func (s *State) paint() error {
	if s.gpu == nil {
		s.surface.Commit()
		return nil
	}
	frame, err := s.gpu.Frame()
	if err != nil {
		s.logger.Info("frame unavailable, recreating surface", "error", err)
		if rerr := s.gpu.Recreate(); rerr != nil {
			err = rerr
		} else {
			frame, err = s.gpu.Frame()
		}
	}
	if err != nil {
		err = fmt.Errorf("%w: window %d: %w", ErrPresentation, s.id, err)
		s.conn.fail(err)
		return err
	}
	s.callbacks.Render(frame, s.gpu)
	if err := frame.Present(); err != nil {
		s.logger.Warn("present frame", "error", err)
	}
	s.needPaint = false
	s.surface.Commit()
	return nil
}

// close runs the destroy callback and releases the window.
func (s *State) close() error {
	if s.lifecycle >= Closing {
		return nil
	}
	s.logger.Debug("closing window")
	s.lifecycle = Closing
	s.callbacks.Destroy()
	err := s.release()
	s.lifecycle = Destroyed
	s.conn.registry.remove(s.id)
	s.created.Reject(ErrWindowClosed)
	return err
}

// abort tears down a window whose creation failed. The destroy callback is
// not invoked because the window never reached the application.
func (s *State) abort(cause error) {
	s.logger.Error("window creation failed", "error", cause)
	s.lifecycle = Closing
	if err := s.release(); err != nil {
		s.logger.Warn("release after failed creation", "error", err)
	}
	s.lifecycle = Destroyed
	s.conn.registry.remove(s.id)
	s.created.Reject(cause)
}

// release frees the presentation context, then the surface. Both steps are
// idempotent.
func (s *State) release() error {
	var errs []error
	if s.gpu != nil {
		if err := s.gpu.Release(); err != nil {
			errs = append(errs, fmt.Errorf("release presentation context: %w", err))
		}
		s.gpu = nil
	}
	if err := s.surface.Release(); err != nil {
		errs = append(errs, fmt.Errorf("release surface: %w", err))
	}
	return errors.Join(errs...)
}

// teardown is used when the connection shuts down with the window still
// open.
func (s *State) teardown() error {
	if s.lifecycle >= Closing {
		return nil
	}
	s.lifecycle = Closing
	s.callbacks.Destroy()
	err := s.release()
	s.lifecycle = Destroyed
	s.created.Reject(ErrConnectionClosed)
	return err
}
