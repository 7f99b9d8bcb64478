// Package gpu defines the presentation-context collaborator used by windows,
// plus a software implementation backed by an in-memory RGBA buffer.
package gpu

import (
	"context"
	"errors"
	"image/draw"

	"github.com/1broseidon/winshim/internal/promise"
)

var (
	// ErrSurfaceLost is returned by Context.Frame when the presentation
	// surface must be recreated before another frame can be acquired.
	ErrSurfaceLost = errors.New("gpu: presentation surface lost")
	// ErrReleased is returned by operations on a released context.
	ErrReleased = errors.New("gpu: context released")
	// ErrUnsupportedTarget is returned when a provider cannot present into
	// the given surface.
	ErrUnsupportedTarget = errors.New("gpu: unsupported surface")
)

// Target is the platform surface a context is negotiated against.
// Providers type-assert it to the concrete surface they understand.
type Target interface {
	SurfaceID() uint64
}

// Provider negotiates presentation contexts.
type Provider interface {
	// Negotiate starts building a context for target with the given pixel
	// size. It must not depend on the window loop to make progress.
	Negotiate(ctx context.Context, target Target, width, height int) *promise.Future[Context]
}

// Context is a negotiated presentation context.
type Context interface {
	// Resize records new pixel geometry. It takes effect on Recreate.
	Resize(width, height int)
	// Recreate rebuilds the presentation surface with the current geometry.
	Recreate() error
	// Frame acquires the next frame to render into.
	Frame() (Frame, error)
	// Size reports the geometry of the current presentation surface.
	Size() (width, height int)
	// Release frees the context. It is idempotent.
	Release() error
}

// Frame is a single renderable image.
type Frame interface {
	Image() draw.Image
	Present() error
}
