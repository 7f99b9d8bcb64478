package platform

import (
	"errors"
	"os"

	"github.com/1broseidon/winshim/internal/gpu"
)

var (
	// ErrWouldBlock is returned by Backend.Flush when the outgoing buffer
	// could not be fully written without blocking. It is not fatal.
	ErrWouldBlock = errors.New("platform: flush would block")
	// ErrBackendClosed is returned by operations on a closed backend.
	ErrBackendClosed = errors.New("platform: backend closed")
	// ErrSurfaceReleased is returned by operations on a released surface.
	ErrSurfaceReleased = errors.New("platform: surface released")
)

// SurfaceID identifies a platform surface.
type SurfaceID uint64

// Size is a surface size in surface (unscaled) units.
type Size struct {
	Width  int
	Height int
}

// Cursor selects a pointer shape.
type Cursor int

const (
	CursorArrow Cursor = iota
	CursorHand
	CursorText
	CursorSizeUpDown
	CursorSizeLeftRight
)

// ClipboardKind selects which selection buffer to use.
type ClipboardKind int

const (
	Clipboard ClipboardKind = iota
	PrimarySelection
)

// SurfaceOptions describes a new top-level surface.
type SurfaceOptions struct {
	Class     string
	Title     string
	Width     int
	Height    int
	MinWidth  int
	MinHeight int
}

// Handler receives the events of one surface. It is invoked synchronously
// from Backend.Dispatch.
type Handler func(Event)

// Surface is the platform drawable a window presents into.
type Surface interface {
	gpu.Target

	SetHandler(h Handler)
	// ScaleFactor is the integer factor between surface units and pixels.
	ScaleFactor() int
	SetBufferScale(factor int)
	// Resize asks the platform for a new size in surface units.
	Resize(width, height int)
	RefreshDecorations()
	Commit()
	Show()
	Hide()
	SetFullscreen(on bool)
	SetTitle(title string)
	SetCursor(c Cursor)
	SetPosition(x, y int)
	// OpenClipboard returns one end of a byte pipe carrying selection data:
	// the read end when write is false, the write end otherwise. The
	// caller owns the returned file.
	OpenClipboard(kind ClipboardKind, write bool) (*os.File, error)
	// Release destroys the platform surface. It is idempotent.
	Release() error
}

// Backend is a display-protocol connection.
type Backend interface {
	Name() string
	// Ready is signalled when Dispatch has events to deliver. Signals may
	// coalesce.
	Ready() <-chan struct{}
	// Dispatch delivers every queued event to its surface handler. An error
	// means the connection is unusable.
	Dispatch() error
	// Flush writes buffered requests without blocking. ErrWouldBlock is not
	// fatal.
	Flush() error
	CreateSurface(opts SurfaceOptions) (Surface, error)
	// GPU returns the presentation provider suited to this backend's
	// surfaces.
	GPU() gpu.Provider
	Close() error
}
