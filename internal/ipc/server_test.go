package ipc

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1broseidon/winshim/internal/platform"
	"github.com/1broseidon/winshim/internal/window"
)

const waitFor = 5 * time.Second

type fixture struct {
	backend *platform.Headless
	conn    *window.Connection
	server  *Server
	client  *Client
	reloads atomic.Int32
}

func newFixture(t *testing.T, reload func() error) *fixture {
	t.Helper()
	f := &fixture{backend: platform.NewHeadless(nil)}
	conn, err := window.New(f.backend)
	require.NoError(t, err)
	f.conn = conn

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- conn.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(waitFor):
			t.Error("event loop did not stop")
		}
	})

	if reload == nil {
		reload = func() error {
			f.reloads.Add(1)
			return nil
		}
	}
	socket := filepath.Join(t.TempDir(), "ctl.sock")
	srv, err := NewServer(conn, Options{SocketPath: socket, Timeout: time.Second, Reload: reload, ConfigPath: "/etc/winshim.yaml"})
	require.NoError(t, err)
	require.NoError(t, srv.Start())
	t.Cleanup(srv.Stop)
	f.server = srv
	f.client = NewClientAt(socket)
	return f
}

// openWindow creates a window on the headless backend and completes its
// first configure.
func (f *fixture) openWindow(t *testing.T, cb window.Callbacks) (*window.Window, *platform.HeadlessSurface) {
	t.Helper()
	fut := f.conn.NewWindow(window.WindowOptions{Title: "test", Width: 320, Height: 240}, cb)
	var s *platform.HeadlessSurface
	require.Eventually(t, func() bool {
		for _, cand := range f.backend.Surfaces() {
			if !cand.State().Released && cand.State().Title == "test" {
				s = cand
				return true
			}
		}
		return false
	}, waitFor, time.Millisecond)
	f.backend.Inject(s.ID(), platform.ConfigureEvent{Size: &platform.Size{Width: 320, Height: 240}})
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	w, err := fut.Await(ctx)
	require.NoError(t, err)
	return w, s
}

type stubborn struct {
	window.BaseCallbacks
}

func (stubborn) CanClose() bool { return false }

func TestStatusAndListWindows(t *testing.T) {
	f := newFixture(t, nil)
	w, _ := f.openWindow(t, nil)

	status, err := f.client.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, "headless", status.Backend)
	assert.Equal(t, 1, status.WindowCount)
	assert.Equal(t, os.Getpid(), status.PID)
	assert.Equal(t, "/etc/winshim.yaml", status.ConfigPath)

	windows, err := f.client.ListWindows()
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.Equal(t, w.ID(), windows[0].ID)
	assert.Equal(t, "test", windows[0].Title)
	assert.Equal(t, window.Mapped, windows[0].Lifecycle)
	assert.Equal(t, 320, windows[0].Dimensions.PixelWidth)
}

func TestWindowCommands(t *testing.T) {
	f := newFixture(t, nil)
	w, s := f.openWindow(t, nil)

	require.NoError(t, f.client.SetTitle(w.ID(), "renamed"))
	assert.Equal(t, "renamed", s.State().Title)

	require.NoError(t, f.client.Invalidate(w.ID()))

	require.NoError(t, f.client.ToggleFullscreen(w.ID()))
	assert.True(t, s.State().Fullscreen)

	require.NoError(t, f.client.CloseWindow(w.ID(), false))
	assert.True(t, s.State().Released)

	windows, err := f.client.ListWindows()
	require.NoError(t, err)
	assert.Empty(t, windows)
}

func TestCloseWindowHonoursCanClose(t *testing.T) {
	f := newFixture(t, nil)
	w, s := f.openWindow(t, stubborn{})

	require.NoError(t, f.client.CloseWindow(w.ID(), false))
	assert.False(t, s.State().Released)

	require.NoError(t, f.client.CloseWindow(w.ID(), true))
	assert.True(t, s.State().Released)
}

func TestUnknownWindow(t *testing.T) {
	f := newFixture(t, nil)

	err := f.client.Invalidate(42)
	require.Error(t, err)
	assert.Contains(t, err.Error(), window.ErrWindowNotFound.Error())
}

func TestReload(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.client.Reload())
	assert.Equal(t, int32(1), f.reloads.Load())

	g := newFixture(t, func() error { return errors.New("bad yaml") })
	err := g.client.Reload()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad yaml")
}

func TestBadRequests(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.client.command("NOPE", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")

	_, err = f.client.command(CommandSetTitle, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "payload is required")

	conn, err := net.Dial("unix", f.server.socketPath)
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write([]byte("{not json\n"))
	require.NoError(t, err)
	buf := make([]byte, 512)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	assert.Contains(t, string(buf[:n]), "invalid request")
}

func TestStopRemovesSocket(t *testing.T) {
	f := newFixture(t, nil)
	f.server.Stop()
	_, err := os.Stat(f.server.socketPath)
	assert.True(t, os.IsNotExist(err))
	assert.Error(t, f.client.Ping())
}
