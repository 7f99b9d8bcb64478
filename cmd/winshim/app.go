package main

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"time"

	"github.com/1broseidon/winshim/internal/gpu"
	"github.com/1broseidon/winshim/internal/platform"
	"github.com/1broseidon/winshim/internal/window"
)

const blinkInterval = 500 * time.Millisecond

var palette = []color.RGBA{
	{0x1e, 0x1e, 0x2e, 0xff},
	{0x2d, 0x4f, 0x6c, 0xff},
	{0x3b, 0x6e, 0x4f, 0xff},
	{0x6c, 0x3b, 0x4f, 0xff},
}

// demoApp is the window run by "winshim run". It paints a solid background
// with a pointer crosshair and a blinking indicator, and maps a few keys
// onto window operations. Every method runs on the event loop goroutine.
type demoApp struct {
	window.BaseCallbacks

	logger    *slog.Logger
	onDestroy func()

	win       *window.Window
	colorIdx  int
	focused   bool
	blink     bool
	pointer   image.Point
	hasCursor bool
	overBadge bool
	dims      window.Dimensions
	destroyed bool
}

func newDemoApp(logger *slog.Logger, onDestroy func()) *demoApp {
	return &demoApp{logger: logger, onDestroy: onDestroy, focused: true}
}

func (a *demoApp) Created(w *window.Window, ctx gpu.Context) error {
	a.win = w
	width, height := ctx.Size()
	a.logger.Info("window created", "window", uint64(w.ID()), "width", width, "height", height)
	return w.Connection().ScheduleTimer(blinkInterval, a.tick)
}

func (a *demoApp) tick() {
	if a.destroyed || a.win == nil {
		return
	}
	a.blink = !a.blink
	a.win.Invalidate()
}

func (a *demoApp) Destroy() {
	a.destroyed = true
	a.logger.Info("window destroyed")
	if a.onDestroy != nil {
		a.onDestroy()
	}
}

func (a *demoApp) Resize(dims window.Dimensions, fullscreen bool) {
	a.dims = dims
	a.logger.Debug("resized", "width", dims.PixelWidth, "height", dims.PixelHeight, "dpi", dims.DPI, "fullscreen", fullscreen)
}

func (a *demoApp) FocusChange(focused bool) {
	a.focused = focused
	if a.win != nil {
		a.win.Invalidate()
	}
}

func (a *demoApp) KeyEvent(ev platform.KeyEvent, w *window.Window) bool {
	if !ev.Down {
		return false
	}
	ctrl := ev.Modifiers&platform.ModCtrl != 0
	switch {
	case ev.Key == "q" && !ctrl, ev.Key == "Escape":
		w.RequestClose()
	case ev.Key == "f" && !ctrl:
		w.ToggleFullscreen()
	case ev.Key == "space":
		a.nextColor(w)
	case ev.Key == "c" && ctrl:
		text := a.describe()
		w.SetClipboard(platform.Clipboard, text).Then(func(_ struct{}, err error) {
			if err != nil {
				a.logger.Warn("copy failed", "error", err)
			}
		})
	case ev.Key == "v" && ctrl:
		// Paste becomes the window title.
		w.GetClipboard(platform.Clipboard).Then(func(text string, err error) {
			if err != nil {
				a.logger.Warn("paste failed", "error", err)
				return
			}
			if text != "" {
				w.SetTitle(text)
			}
		})
	default:
		return false
	}
	return true
}

func (a *demoApp) MouseEvent(ev platform.MouseEvent, w *window.Window) {
	switch ev.Kind {
	case platform.MouseMove:
		a.pointer = image.Pt(ev.X, ev.Y)
		a.hasCursor = true
		over := a.pointer.In(a.badgeRect())
		if over != a.overBadge {
			a.overBadge = over
			if over {
				w.SetCursor(platform.CursorHand)
			} else {
				w.SetCursor(platform.CursorArrow)
			}
		}
		w.Invalidate()
	case platform.MousePress:
		if ev.Button == platform.ButtonLeft {
			a.nextColor(w)
		}
	}
}

func (a *demoApp) nextColor(w *window.Window) {
	a.colorIdx = (a.colorIdx + 1) % len(palette)
	w.Invalidate()
}

// describe is what ctrl+c copies: the current background color.
func (a *demoApp) describe() string {
	c := palette[a.colorIdx]
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// badgeRect is the blinking indicator in the top-left corner, scaled with
// the window DPI.
func (a *demoApp) badgeRect() image.Rectangle {
	size := 16
	if a.dims.DPI > window.DefaultDPI {
		size = size * a.dims.DPI / window.DefaultDPI
	}
	return image.Rect(size, size, 2*size, 2*size)
}

func (a *demoApp) background() color.RGBA {
	c := palette[a.colorIdx]
	if !a.focused {
		c.R, c.G, c.B = c.R/2, c.G/2, c.B/2
	}
	return c
}

func (a *demoApp) Render(frame gpu.Frame, _ gpu.Context) {
	img := frame.Image()
	bounds := img.Bounds()
	draw.Draw(img, bounds, image.NewUniform(a.background()), image.Point{}, draw.Src)

	if a.blink {
		badge := a.badgeRect().Intersect(bounds)
		draw.Draw(img, badge, image.NewUniform(color.RGBA{0xf9, 0xe2, 0xaf, 0xff}), image.Point{}, draw.Src)
	}
	if a.hasCursor && a.pointer.In(bounds) {
		line := image.NewUniform(color.RGBA{0xcd, 0xd6, 0xf4, 0xff})
		draw.Draw(img, image.Rect(bounds.Min.X, a.pointer.Y, bounds.Max.X, a.pointer.Y+1), line, image.Point{}, draw.Src)
		draw.Draw(img, image.Rect(a.pointer.X, bounds.Min.Y, a.pointer.X+1, bounds.Max.Y), line, image.Point{}, draw.Src)
	}
}
