package window

import (
	"github.com/1broseidon/winshim/internal/gpu"
	"github.com/1broseidon/winshim/internal/platform"
)

// Callbacks is implemented by the application to react to window activity.
// Every method runs on the event loop goroutine and must not block.
type Callbacks interface {
	// CanClose is consulted when the user or window manager asks to close
	// the window. Returning false keeps the window open.
	CanClose() bool
	// Destroy is called once, just before the window's resources are
	// released.
	Destroy()
	Resize(dims Dimensions, fullscreen bool)
	// KeyEvent reports a key press or release. Returning true marks the
	// event as handled.
	KeyEvent(ev platform.KeyEvent, w *Window) bool
	// MouseEvent reports pointer activity. X and Y are in device pixels.
	MouseEvent(ev platform.MouseEvent, w *Window)
	FocusChange(focused bool)
	// Created is called once the presentation context is ready. An error
	// aborts window creation.
	Created(w *Window, ctx gpu.Context) error
	Render(frame gpu.Frame, ctx gpu.Context)
}

// BaseCallbacks implements every Callbacks method with a no-op. Embed it to
// override only what you need. CanClose returns true.
type BaseCallbacks struct{}

var _ Callbacks = BaseCallbacks{}

func (BaseCallbacks) CanClose() bool { return true }
func (BaseCallbacks) Destroy() {}
func (BaseCallbacks) Resize(Dimensions, bool) {}
func (BaseCallbacks) KeyEvent(platform.KeyEvent, *Window) bool { return false }
func (BaseCallbacks) MouseEvent(platform.MouseEvent, *Window) {}
func (BaseCallbacks) FocusChange(bool) {}
func (BaseCallbacks) Created(*Window, gpu.Context) error { return nil }
func (BaseCallbacks) Render(gpu.Frame, gpu.Context) {}
