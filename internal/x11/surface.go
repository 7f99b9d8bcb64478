package x11

import (
	"fmt"
	"os"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xcursor"
	"github.com/BurntSushi/xgbutil/xwindow"

	"github.com/1broseidon/winshim/internal/platform"
)

// X cursor font glyphs.
const (
	glyphLeftPtr        = 68
	glyphHand2          = 60
	glyphXterm          = 152
	glyphSbVDoubleArrow = 116
	glyphSbHDoubleArrow = 108
)

func createCursor(c *Connection, cur platform.Cursor) (xproto.Cursor, error) {
	glyph := uint16(glyphLeftPtr)
	switch cur {
	case platform.CursorHand:
		glyph = glyphHand2
	case platform.CursorText:
		glyph = glyphXterm
	case platform.CursorSizeUpDown:
		glyph = glyphSbVDoubleArrow
	case platform.CursorSizeLeftRight:
		glyph = glyphSbHDoubleArrow
	}
	return xcursor.CreateCursor(c.XUtil, glyph)
}

// Surface is a top-level X window. Sizes reported to the window layer are in
// surface units: X pixels divided by the scale factor.
type Surface struct {
	backend *Backend
	win     *xwindow.Window

	mu       sync.Mutex
	handler  platform.Handler
	scale    int
	width    int
	height   int
	mapped   bool
	released bool
}

var _ platform.Surface = (*Surface)(nil)

func newSurface(b *Backend, opts platform.SurfaceOptions, scale int, mon *Monitor) (*Surface, error) {
	xu := b.conn.XUtil
	win, err := xwindow.Generate(xu)
	if err != nil {
		return nil, err
	}
	width, height := opts.Width*scale, opts.Height*scale
	x, y := centered(mon, width, height)
	if err := win.CreateChecked(xu.RootWin(), x, y, width, height,
		xproto.CwBackPixel|xproto.CwEventMask, 0, uint32(eventMask)); err != nil {
		return nil, err
	}

	if err := icccm.WmProtocolsSet(xu, win.Id, []string{"WM_DELETE_WINDOW"}); err != nil {
		win.Destroy()
		return nil, fmt.Errorf("set WM_PROTOCOLS: %w", err)
	}
	if opts.Class != "" {
		_ = icccm.WmClassSet(xu, win.Id, &icccm.WmClass{Instance: opts.Class, Class: opts.Class})
	}
	if opts.Title != "" {
		_ = ewmh.WmNameSet(xu, win.Id, opts.Title)
		_ = icccm.WmNameSet(xu, win.Id, opts.Title)
	}
	if opts.MinWidth > 0 || opts.MinHeight > 0 {
		_ = icccm.WmNormalHintsSet(xu, win.Id, &icccm.NormalHints{
			Flags:     icccm.SizeHintPMinSize,
			MinWidth:  uint(opts.MinWidth * scale),
			MinHeight: uint(opts.MinHeight * scale),
		})
	}

	return &Surface{
		backend: b,
		win:     win,
		scale:   scale,
		width:   width,
		height:  height,
	}, nil
}

// SurfaceID implements gpu.Target.
func (s *Surface) SurfaceID() uint64 { return uint64(s.win.Id) }

// XID returns the X window id.
func (s *Surface) XID() xproto.Window { return s.win.Id }

func (s *Surface) SetHandler(h platform.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
}

func (s *Surface) emit(ev platform.Event) {
	s.mu.Lock()
	h := s.handler
	s.mu.Unlock()
	if h != nil {
		h(ev)
	}
}

func (s *Surface) ScaleFactor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scale
}

func (s *Surface) setScale(scale int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scale = scale
}

func (s *Surface) setMapped(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mapped = on
}

func (s *Surface) isMapped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mapped
}

func (s *Surface) setPixelSize(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width, s.height = width, height
}

func (s *Surface) surfaceSize() platform.Size {
	s.mu.Lock()
	defer s.mu.Unlock()
	return platform.Size{
		Width:  ceilDiv(s.width, s.scale),
		Height: ceilDiv(s.height, s.scale),
	}
}

// mouse tags pointer coordinates as X device pixels.
func (s *Surface) mouse(ev platform.MouseEvent) platform.MouseEvent {
	ev.Pixels = true
	return ev
}

func ceilDiv(n, d int) int {
	if d <= 1 {
		return n
	}
	return (n + d - 1) / d
}

// SetBufferScale is a no-op: X windows are always sized in device pixels.
func (s *Surface) SetBufferScale(int) {}

func (s *Surface) Resize(width, height int) {
	scale := s.ScaleFactor()
	s.backend.conn.unmaximize(s.win.Id)
	s.win.Resize(width*scale, height*scale)
}

// RefreshDecorations is a no-op: decorations belong to the window manager.
func (s *Surface) RefreshDecorations() {}

// Commit is a no-op: requests are written as they are made.
func (s *Surface) Commit() {}

func (s *Surface) Show() {
	s.win.Map()
	if err := s.backend.conn.Activate(s.win.Id); err != nil {
		s.backend.logger.Debug("activate window", "xid", uint32(s.win.Id), "error", err)
	}
}

func (s *Surface) Hide() {
	if err := s.backend.conn.Minimize(s.win.Id); err != nil {
		s.backend.logger.Warn("minimize window", "xid", uint32(s.win.Id), "error", err)
	}
}

func (s *Surface) SetFullscreen(on bool) {
	if err := s.backend.conn.SetFullscreen(s.win.Id, on); err != nil {
		s.backend.logger.Warn("set fullscreen", "xid", uint32(s.win.Id), "error", err)
	}
}

func (s *Surface) SetTitle(title string) {
	xu := s.backend.conn.XUtil
	if err := ewmh.WmNameSet(xu, s.win.Id, title); err != nil {
		s.backend.logger.Warn("set _NET_WM_NAME", "xid", uint32(s.win.Id), "error", err)
	}
	_ = icccm.WmNameSet(xu, s.win.Id, title)
}

func (s *Surface) SetCursor(c platform.Cursor) {
	cur, err := s.backend.cursor(c)
	if err != nil {
		s.backend.logger.Warn("create cursor", "error", err)
		return
	}
	s.win.Change(xproto.CwCursor, uint32(cur))
}

func (s *Surface) SetPosition(x, y int) {
	s.win.Move(x, y)
}

func (s *Surface) OpenClipboard(kind platform.ClipboardKind, write bool) (*os.File, error) {
	s.mu.Lock()
	released := s.released
	s.mu.Unlock()
	if released {
		return nil, platform.ErrSurfaceReleased
	}
	return openSelection(s.backend.conn.Display, kind, write)
}

// Release destroys the X window. It is idempotent.
func (s *Surface) Release() error {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return nil
	}
	s.released = true
	s.handler = nil
	s.mu.Unlock()

	s.backend.forget(s.win.Id)
	s.win.Destroy()
	return nil
}
