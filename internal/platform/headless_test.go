package platform

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeadlessDispatchDeliversInOrder(t *testing.T) {
	h := NewHeadless(nil)
	s1, err := h.CreateSurface(SurfaceOptions{Title: "one", Width: 10, Height: 10})
	require.NoError(t, err)
	s2, err := h.CreateSurface(SurfaceOptions{Title: "two", Width: 10, Height: 10})
	require.NoError(t, err)

	var got []string
	s1.SetHandler(func(ev Event) { got = append(got, "one") })
	s2.SetHandler(func(ev Event) { got = append(got, "two") })

	hs1 := s1.(*HeadlessSurface)
	hs2 := s2.(*HeadlessSurface)
	h.Inject(hs2.ID(), CloseEvent{})
	h.Inject(hs1.ID(), RefreshEvent{})
	h.Inject(99, RefreshEvent{})

	select {
	case <-h.Ready():
	default:
		t.Fatal("ready was not signalled")
	}
	assert.False(t, h.Drained())
	require.NoError(t, h.Dispatch())
	assert.Equal(t, []string{"two", "one"}, got)
	assert.True(t, h.Drained())
}

func TestHeadlessFailures(t *testing.T) {
	h := NewHeadless(nil)
	boom := errors.New("boom")

	h.FailDispatch(boom)
	assert.ErrorIs(t, h.Dispatch(), boom)
	h.FailDispatch(nil)
	assert.NoError(t, h.Dispatch())

	h.FailFlush(ErrWouldBlock)
	assert.ErrorIs(t, h.Flush(), ErrWouldBlock)
	h.FailFlush(nil)
	assert.NoError(t, h.Flush())

	require.NoError(t, h.Close())
	assert.ErrorIs(t, h.Flush(), ErrBackendClosed)
	_, err := h.CreateSurface(SurfaceOptions{Width: 1, Height: 1})
	assert.ErrorIs(t, err, ErrBackendClosed)
}

func TestHeadlessSurfaceState(t *testing.T) {
	h := NewHeadless(nil)
	s, err := h.CreateSurface(SurfaceOptions{Class: "c", Title: "t", Width: 10, Height: 20})
	require.NoError(t, err)
	hs := s.(*HeadlessSurface)

	s.Show()
	s.SetTitle("renamed")
	s.SetFullscreen(true)
	s.SetCursor(CursorHand)
	s.SetPosition(5, 6)
	s.Resize(30, 40)
	s.SetBufferScale(2)
	s.Commit()
	s.RefreshDecorations()

	assert.Equal(t, HeadlessState{
		Class:       "c",
		Title:       "renamed",
		Width:       30,
		Height:      40,
		X:           5,
		Y:           6,
		BufferScale: 2,
		Visible:     true,
		Fullscreen:  true,
		Cursor:      CursorHand,
		Commits:     1,
		Refreshes:   1,
	}, hs.State())

	require.NoError(t, s.Release())
	require.NoError(t, s.Release())
	assert.Nil(t, h.Surface(hs.ID()))
	assert.Equal(t, []SurfaceID{hs.ID()}, h.ReleaseOrder())
	_, err = s.OpenClipboard(Clipboard, false)
	assert.ErrorIs(t, err, ErrSurfaceReleased)
}

func TestHeadlessClipboardPipes(t *testing.T) {
	h := NewHeadless(nil)
	s, err := h.CreateSurface(SurfaceOptions{Width: 1, Height: 1})
	require.NoError(t, err)
	hs := s.(*HeadlessSurface)
	hs.SetClipboardText(Clipboard, "hello")

	r, err := s.OpenClipboard(Clipboard, false)
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "hello", string(data))

	w, err := s.OpenClipboard(PrimarySelection, true)
	require.NoError(t, err)
	_, err = io.WriteString(w, "world")
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.Eventually(t, func() bool { return hs.ClipboardText(PrimarySelection) == "world" }, time.Second, time.Millisecond)
}

func TestHeadlessScaleInjectsEvent(t *testing.T) {
	h := NewHeadless(nil)
	s, err := h.CreateSurface(SurfaceOptions{Width: 1, Height: 1})
	require.NoError(t, err)
	var got []Event
	s.SetHandler(func(ev Event) { got = append(got, ev) })

	s.(*HeadlessSurface).SetScale(2)
	require.NoError(t, h.Dispatch())
	assert.Equal(t, []Event{ScaleEvent{Factor: 2}}, got)
	assert.Equal(t, 2, s.ScaleFactor())
}

func TestHeadlessAutoConfigure(t *testing.T) {
	h := NewHeadless(nil)
	h.SetAutoConfigure(true)
	s, err := h.CreateSurface(SurfaceOptions{Title: "auto", Width: 64, Height: 48})
	require.NoError(t, err)

	var got []Event
	s.SetHandler(func(ev Event) { got = append(got, ev) })

	s.Show()
	s.Show()
	s.SetFullscreen(true)
	s.SetFullscreen(true)
	require.NoError(t, h.Dispatch())

	require.Len(t, got, 2)
	assert.Equal(t, ConfigureEvent{Size: &Size{Width: 64, Height: 48}}, got[0])
	assert.Equal(t, ConfigureEvent{Size: &Size{Width: 64, Height: 48}, Fullscreen: true}, got[1])
}
