package x11

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/xgraphics"

	"github.com/1broseidon/winshim/internal/gpu"
	"github.com/1broseidon/winshim/internal/promise"
)

// Provider presents frames by painting an xgraphics image onto the window
// through a server-side pixmap.
type Provider struct {
	conn *Connection
}

var _ gpu.Provider = (*Provider)(nil)

// Negotiate implements gpu.Provider.
func (p *Provider) Negotiate(ctx context.Context, target gpu.Target, width, height int) *promise.Future[gpu.Context] {
	return promise.Go(func() (gpu.Context, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if target == nil {
			return nil, gpu.ErrUnsupportedTarget
		}
		if width <= 0 || height <= 0 {
			return nil, fmt.Errorf("x11: invalid surface size %dx%d", width, height)
		}
		c := &imageContext{
			conn:   p.conn,
			win:    xproto.Window(target.SurfaceID()),
			width:  width,
			height: height,
		}
		if err := c.Recreate(); err != nil {
			return nil, err
		}
		return c, nil
	})
}

type imageContext struct {
	conn *Connection
	win  xproto.Window

	mu       sync.Mutex
	width    int
	height   int
	img      *xgraphics.Image
	released bool
}

func (c *imageContext) Resize(width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.width, c.height = width, height
}

// Recreate allocates a fresh image and pixmap at the current size.
func (c *imageContext) Recreate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return gpu.ErrReleased
	}
	img := xgraphics.New(c.conn.XUtil, image.Rect(0, 0, c.width, c.height))
	if err := img.XSurfaceSet(c.win); err != nil {
		img.Destroy()
		return fmt.Errorf("%w: %v", gpu.ErrSurfaceLost, err)
	}
	if c.img != nil {
		c.img.Destroy()
	}
	c.img = img
	return nil
}

func (c *imageContext) Frame() (gpu.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return nil, gpu.ErrReleased
	}
	if c.img == nil {
		return nil, gpu.ErrSurfaceLost
	}
	return &imageFrame{ctx: c, img: c.img}, nil
}

func (c *imageContext) Size() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.img == nil {
		return 0, 0
	}
	b := c.img.Bounds()
	return b.Dx(), b.Dy()
}

func (c *imageContext) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return nil
	}
	c.released = true
	if c.img != nil {
		c.img.Destroy()
		c.img = nil
	}
	return nil
}

type imageFrame struct {
	ctx *imageContext
	img *xgraphics.Image
}

func (f *imageFrame) Image() draw.Image { return f.img }

func (f *imageFrame) Present() error {
	f.ctx.mu.Lock()
	defer f.ctx.mu.Unlock()
	if f.ctx.img != f.img {
		return gpu.ErrSurfaceLost
	}
	f.img.XDraw()
	f.img.XPaint(f.ctx.win)
	return nil
}
