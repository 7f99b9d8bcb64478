package gpu

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTarget uint64

func (t fakeTarget) SurfaceID() uint64 { return uint64(t) }

func TestSoftwareNegotiate(t *testing.T) {
	var presented int
	s := &Software{Present: func(target Target, img *image.RGBA) error {
		presented++
		assert.Equal(t, uint64(3), target.SurfaceID())
		assert.Equal(t, color.RGBA{R: 255, A: 255}, img.RGBAAt(1, 1))
		return nil
	}}

	c, err := s.Negotiate(context.Background(), fakeTarget(3), 4, 2).Await(context.Background())
	require.NoError(t, err)

	w, h := c.Size()
	assert.Equal(t, 4, w)
	assert.Equal(t, 2, h)

	frame, err := c.Frame()
	require.NoError(t, err)
	frame.Image().Set(1, 1, color.RGBA{R: 255, A: 255})
	require.NoError(t, frame.Present())
	assert.Equal(t, 1, presented)
}

func TestSoftwareNegotiateRejectsBadInput(t *testing.T) {
	s := NewSoftware()
	_, err := s.Negotiate(context.Background(), nil, 4, 4).Await(context.Background())
	assert.ErrorIs(t, err, ErrUnsupportedTarget)

	_, err = s.Negotiate(context.Background(), fakeTarget(1), 0, 4).Await(context.Background())
	assert.Error(t, err)
}

func TestSoftwareResizeAppliesOnRecreate(t *testing.T) {
	c, err := NewSoftware().Negotiate(context.Background(), fakeTarget(1), 10, 10).Await(context.Background())
	require.NoError(t, err)

	c.Resize(20, 5)
	w, h := c.Size()
	assert.Equal(t, [2]int{10, 10}, [2]int{w, h})

	require.NoError(t, c.Recreate())
	w, h = c.Size()
	assert.Equal(t, [2]int{20, 5}, [2]int{w, h})
}

func TestSoftwareLostAndReleased(t *testing.T) {
	c, err := NewSoftware().Negotiate(context.Background(), fakeTarget(1), 2, 2).Await(context.Background())
	require.NoError(t, err)
	sc := c.(*SoftwareContext)

	sc.MarkLost()
	_, err = c.Frame()
	assert.ErrorIs(t, err, ErrSurfaceLost)
	require.NoError(t, c.Recreate())
	_, err = c.Frame()
	require.NoError(t, err)

	require.NoError(t, c.Release())
	require.NoError(t, c.Release())
	_, err = c.Frame()
	assert.ErrorIs(t, err, ErrReleased)
	assert.ErrorIs(t, c.Recreate(), ErrReleased)
}
