package x11

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/keybind"

	"github.com/1broseidon/winshim/internal/gpu"
	"github.com/1broseidon/winshim/internal/platform"
)

// ErrConnectionLost is returned by Dispatch once the X server has gone away.
var ErrConnectionLost = errors.New("x11: connection to X server lost")

const eventMask = xproto.EventMaskStructureNotify |
	xproto.EventMaskExposure |
	xproto.EventMaskKeyPress |
	xproto.EventMaskKeyRelease |
	xproto.EventMaskButtonPress |
	xproto.EventMaskButtonRelease |
	xproto.EventMaskPointerMotion |
	xproto.EventMaskFocusChange

// Options configures Open.
type Options struct {
	// Display is used when $DISPLAY is unset. See ResolveSession.
	Display string
	// Scale forces the scale factor. Zero derives it from the monitor DPI.
	Scale  int
	Logger *slog.Logger
}

// Backend is a platform.Backend on an X11 connection. A reader goroutine
// pulls events off the wire; Dispatch decodes and delivers them on the
// caller's goroutine.
type Backend struct {
	conn   *Connection
	logger *slog.Logger
	scale  int

	wmProtocols  xproto.Atom
	deleteWindow xproto.Atom

	mu       sync.Mutex
	pending  []xgb.Event
	err      error
	closed   bool
	surfaces map[xproto.Window]*Surface
	monitors []Monitor
	cursors  map[platform.Cursor]xproto.Cursor

	ready    chan struct{}
	provider *Provider
}

var _ platform.Backend = (*Backend)(nil)

// Open connects to the X server and starts reading events.
func Open(opts Options) (*Backend, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sess, err := ResolveSession(opts.Display)
	if err != nil {
		return nil, err
	}
	if err := sess.Apply(); err != nil {
		return nil, fmt.Errorf("export X session: %w", err)
	}
	conn, err := NewConnection(sess.Display)
	if err != nil {
		return nil, err
	}
	logger.Debug("resolved X display", "display", sess.Display, "source", sess.Source)
	b := &Backend{
		conn:     conn,
		logger:   logger.With("display", conn.Display),
		scale:    opts.Scale,
		surfaces: make(map[xproto.Window]*Surface),
		cursors:  make(map[platform.Cursor]xproto.Cursor),
		ready:    make(chan struct{}, 1),
	}
	b.provider = &Provider{conn: conn}

	if b.wmProtocols, err = conn.Atom("WM_PROTOCOLS"); err != nil {
		conn.Close()
		return nil, err
	}
	if b.deleteWindow, err = conn.Atom("WM_DELETE_WINDOW"); err != nil {
		conn.Close()
		return nil, err
	}
	if b.monitors, err = conn.GetMonitors(); err != nil {
		b.logger.Warn("monitor enumeration failed, assuming scale 1", "error", err)
	}
	for _, m := range b.monitors {
		b.logger.Debug("monitor", "name", m.Name, "width", m.Width, "height", m.Height, "dpi", m.DPI(), "scale", m.Scale())
	}

	go b.read()
	return b, nil
}

// Name implements platform.Backend.
func (b *Backend) Name() string { return "x11" }

// Ready implements platform.Backend.
func (b *Backend) Ready() <-chan struct{} { return b.ready }

// GPU implements platform.Backend.
func (b *Backend) GPU() gpu.Provider { return b.provider }

// Monitors returns the monitors found when the backend was opened.
func (b *Backend) Monitors() []Monitor {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Monitor(nil), b.monitors...)
}

func (b *Backend) read() {
	for {
		ev, xerr := b.conn.XUtil.Conn().WaitForEvent()
		if ev == nil && xerr == nil {
			b.mu.Lock()
			if !b.closed {
				b.err = ErrConnectionLost
			}
			b.mu.Unlock()
			b.signal()
			return
		}
		if xerr != nil {
			b.logger.Debug("X protocol error", "error", xerr)
			continue
		}
		b.mu.Lock()
		b.pending = append(b.pending, ev)
		b.mu.Unlock()
		b.signal()
	}
}

func (b *Backend) signal() {
	select {
	case b.ready <- struct{}{}:
	default:
	}
}

// Dispatch implements platform.Backend.
func (b *Backend) Dispatch() error {
	b.mu.Lock()
	if b.err != nil {
		err := b.err
		b.mu.Unlock()
		return err
	}
	batch := b.pending
	b.pending = nil
	b.mu.Unlock()

	for _, ev := range batch {
		b.deliver(ev)
	}
	return nil
}

// Flush implements platform.Backend. xgb writes requests as they are made,
// so there is nothing to flush beyond reporting a dead connection.
func (b *Backend) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return platform.ErrBackendClosed
	}
	return b.err
}

func (b *Backend) surface(win xproto.Window) *Surface {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.surfaces[win]
}

func (b *Backend) forget(win xproto.Window) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.surfaces, win)
}

func (b *Backend) deliver(ev xgb.Event) {
	switch e := ev.(type) {
	case xproto.ConfigureNotifyEvent:
		if s := b.surface(e.Window); s != nil {
			b.configure(s, int(e.Width), int(e.Height))
		}
	case xproto.MapNotifyEvent:
		if s := b.surface(e.Window); s != nil {
			s.setMapped(true)
			b.configure(s, -1, -1)
		}
	case xproto.UnmapNotifyEvent:
		if s := b.surface(e.Window); s != nil {
			s.setMapped(false)
		}
	case xproto.ExposeEvent:
		if s := b.surface(e.Window); s != nil && e.Count == 0 {
			s.emit(platform.RefreshEvent{})
		}
	case xproto.ClientMessageEvent:
		s := b.surface(e.Window)
		if s == nil || e.Type != b.wmProtocols || e.Format != 32 {
			return
		}
		if data := e.Data.Data32; len(data) > 0 && xproto.Atom(data[0]) == b.deleteWindow {
			s.emit(platform.CloseEvent{})
		}
	case xproto.KeyPressEvent:
		if s := b.surface(e.Event); s != nil {
			s.emit(b.keyEvent(e.Detail, e.State, true))
		}
	case xproto.KeyReleaseEvent:
		if s := b.surface(e.Event); s != nil {
			s.emit(b.keyEvent(e.Detail, e.State, false))
		}
	case xproto.ButtonPressEvent:
		if s := b.surface(e.Event); s != nil {
			if me, ok := buttonEvent(byte(e.Detail), true, int(e.EventX), int(e.EventY), e.State); ok {
				s.emit(s.mouse(me))
			}
		}
	case xproto.ButtonReleaseEvent:
		if s := b.surface(e.Event); s != nil {
			if me, ok := buttonEvent(byte(e.Detail), false, int(e.EventX), int(e.EventY), e.State); ok {
				s.emit(s.mouse(me))
			}
		}
	case xproto.MotionNotifyEvent:
		if s := b.surface(e.Event); s != nil {
			s.emit(s.mouse(platform.MouseEvent{
				Kind:      platform.MouseMove,
				X:         int(e.EventX),
				Y:         int(e.EventY),
				Modifiers: modifiers(e.State),
			}))
		}
	case xproto.FocusInEvent:
		if s := b.surface(e.Event); s != nil {
			s.emit(platform.FocusEvent{Focused: true})
		}
	case xproto.FocusOutEvent:
		if s := b.surface(e.Event); s != nil {
			s.emit(platform.FocusEvent{Focused: false})
		}
	case xproto.DestroyNotifyEvent:
		b.forget(e.Window)
	}
}

// configure reports the current geometry of s in surface units. Negative
// sizes mean "unchanged". Nothing is reported before the window is mapped.
func (b *Backend) configure(s *Surface, width, height int) {
	if width >= 0 && height >= 0 {
		s.setPixelSize(width, height)
	}
	if !s.isMapped() {
		return
	}
	if b.scale == 0 {
		if x, y, err := b.conn.rootPosition(s.win.Id); err == nil {
			if m := monitorAt(b.Monitors(), x, y); m != nil && m.Scale() != s.ScaleFactor() {
				s.setScale(m.Scale())
				s.emit(platform.ScaleEvent{Factor: m.Scale()})
			}
		}
	}
	size := s.surfaceSize()
	s.emit(platform.ConfigureEvent{
		Size:       &size,
		Fullscreen: b.conn.IsFullscreen(s.win.Id),
	})
}

func (b *Backend) keyEvent(code xproto.Keycode, state uint16, down bool) platform.KeyEvent {
	return platform.KeyEvent{
		Key:       keybind.LookupString(b.conn.XUtil, state, code),
		Down:      down,
		Modifiers: modifiers(state),
		RawCode:   uint32(code),
	}
}

// scaleAt returns the scale factor to use for a new window.
func (b *Backend) scaleAt() (int, *Monitor) {
	m := b.conn.pointerMonitor(b.Monitors())
	if b.scale > 0 {
		return b.scale, m
	}
	if m == nil {
		return 1, nil
	}
	return m.Scale(), m
}

func (b *Backend) cursor(c platform.Cursor) (xproto.Cursor, error) {
	b.mu.Lock()
	cur, ok := b.cursors[c]
	b.mu.Unlock()
	if ok {
		return cur, nil
	}
	cur, err := createCursor(b.conn, c)
	if err != nil {
		return 0, err
	}
	b.mu.Lock()
	b.cursors[c] = cur
	b.mu.Unlock()
	return cur, nil
}

// Close implements platform.Backend. Surfaces still open are destroyed with
// the connection.
func (b *Backend) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()
	b.conn.Close()
	return nil
}

// CreateSurface implements platform.Backend.
func (b *Backend) CreateSurface(opts platform.SurfaceOptions) (platform.Surface, error) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return nil, platform.ErrBackendClosed
	}
	scale, mon := b.scaleAt()
	s, err := newSurface(b, opts, scale, mon)
	if err != nil {
		return nil, fmt.Errorf("x11 create window: %w", err)
	}
	b.mu.Lock()
	b.surfaces[s.win.Id] = s
	b.mu.Unlock()
	b.logger.Debug("created X window", "xid", uint32(s.win.Id), "scale", scale)
	return s, nil
}
