package gpu

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"sync"

	"github.com/1broseidon/winshim/internal/promise"
)

// PresentFunc receives each presented software frame.
type PresentFunc func(target Target, img *image.RGBA) error

// Software renders into heap-allocated RGBA buffers. It works with any
// Target and is used by the headless backend.
type Software struct {
	// Present, if set, is called for every presented frame.
	Present PresentFunc
}

// NewSoftware returns a software provider that discards presented frames.
func NewSoftware() *Software {
	return &Software{}
}

// Negotiate allocates a buffer of the requested size on a new goroutine.
func (s *Software) Negotiate(ctx context.Context, target Target, width, height int) *promise.Future[Context] {
	return promise.Go(func() (Context, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if target == nil {
			return nil, ErrUnsupportedTarget
		}
		if width <= 0 || height <= 0 {
			return nil, fmt.Errorf("gpu: invalid surface size %dx%d", width, height)
		}
		c := &SoftwareContext{target: target, present: s.Present, width: width, height: height}
		if err := c.Recreate(); err != nil {
			return nil, err
		}
		return c, nil
	})
}

// SoftwareContext is the Context produced by Software.
type SoftwareContext struct {
	mu       sync.Mutex
	target   Target
	present  PresentFunc
	width    int
	height   int
	buf      *image.RGBA
	lost     bool
	released bool
}

// Resize implements Context.
func (c *SoftwareContext) Resize(width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.width, c.height = width, height
}

// Recreate implements Context.
func (c *SoftwareContext) Recreate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return ErrReleased
	}
	c.buf = image.NewRGBA(image.Rect(0, 0, c.width, c.height))
	c.lost = false
	return nil
}

// MarkLost makes the next Frame call fail with ErrSurfaceLost until the
// context is recreated.
func (c *SoftwareContext) MarkLost() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lost = true
}

// Frame implements Context.
func (c *SoftwareContext) Frame() (Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return nil, ErrReleased
	}
	if c.lost || c.buf == nil {
		return nil, ErrSurfaceLost
	}
	return &softwareFrame{ctx: c, img: c.buf}, nil
}

// Size implements Context.
func (c *SoftwareContext) Size() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.buf == nil {
		return 0, 0
	}
	b := c.buf.Bounds()
	return b.Dx(), b.Dy()
}

// Release implements Context.
func (c *SoftwareContext) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.released = true
	c.buf = nil
	return nil
}

type softwareFrame struct {
	ctx *SoftwareContext
	img *image.RGBA
}

func (f *softwareFrame) Image() draw.Image { return f.img }

func (f *softwareFrame) Present() error {
	if f.ctx.present == nil {
		return nil
	}
	return f.ctx.present(f.ctx.target, f.img)
}
