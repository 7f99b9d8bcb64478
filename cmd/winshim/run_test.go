package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1broseidon/winshim/internal/config"
	"github.com/1broseidon/winshim/internal/ipc"
	"github.com/1broseidon/winshim/internal/window"
)

const waitFor = 5 * time.Second

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"WINSHIM_BACKEND", "WINSHIM_DISPLAY", "WINSHIM_LOG_LEVEL"} {
		t.Setenv(name, "")
	}
}

func writeConfig(t *testing.T, dir, body string) *config.LoadResult {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	res, err := config.LoadFromPath(path)
	require.NoError(t, err)
	return res
}

func TestServeHeadlessEndToEnd(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	socket := filepath.Join(dir, "ctl.sock")
	res := writeConfig(t, dir, "backend: headless\nwindow:\n  title: demo\n  width: 200\n  height: 100\nipc:\n  socket: "+socket+"\n")

	ctx, cancel := context.WithTimeout(context.Background(), 2*waitFor)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- serve(ctx, res, new(slog.LevelVar), discardLogger(), runOptions{}) }()

	client := ipc.NewClientAt(socket)
	var info window.Info
	require.Eventually(t, func() bool {
		windows, err := client.ListWindows()
		if err != nil || len(windows) != 1 || windows[0].Lifecycle != window.Mapped {
			return false
		}
		info = windows[0]
		return true
	}, waitFor, 10*time.Millisecond)
	assert.Equal(t, "demo", info.Title)
	assert.Equal(t, 200, info.Dimensions.PixelWidth)

	status, err := client.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, "headless", status.Backend)
	assert.Equal(t, res.Path, status.ConfigPath)

	require.NoError(t, client.SetTitle(info.ID, "renamed"))
	require.NoError(t, client.ToggleFullscreen(info.ID))

	// The demo app agrees to close, and closing its only window ends the run.
	require.NoError(t, client.CloseWindow(info.ID, false))
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("serve did not return after the window closed")
	}
	_, err = os.Stat(socket)
	assert.True(t, os.IsNotExist(err), "socket should be removed")
}

func TestServeStopsOnCancel(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	res := writeConfig(t, dir, "backend: headless\nipc:\n  enabled: false\n")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, res, new(slog.LevelVar), discardLogger(), runOptions{watch: true}) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("serve did not return after cancel")
	}
}

func TestReloadAppliesLiveSettings(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	res := writeConfig(t, dir, "backend: headless\nlog_level: info\n")

	level := new(slog.LevelVar)
	conn, err := window.New(newHeadless(), window.WithLogger(discardLogger()))
	require.NoError(t, err)
	rt := &runtimeState{conn: conn, level: level, logger: discardLogger(), path: res.Path, cfg: res.Config}

	require.NoError(t, os.WriteFile(res.Path, []byte("backend: headless\nlog_level: debug\nidle_timeout_ms: 900\n"), 0644))
	require.NoError(t, rt.reload())

	assert.Equal(t, slog.LevelDebug, level.Level())
	assert.Equal(t, 900*time.Millisecond, conn.IdleTimeout())

	require.NoError(t, os.WriteFile(res.Path, []byte("scale: 99\n"), 0644))
	assert.Error(t, rt.reload())
	assert.Equal(t, slog.LevelDebug, level.Level(), "a bad reload keeps the previous settings")
}

func TestRestartRequired(t *testing.T) {
	prev := config.DefaultConfig()
	next := config.DefaultConfig()
	next.Window.Title = "only the title"
	next.LogLevel = "debug"
	assert.Empty(t, restartRequired(prev, next))

	next.Backend = config.BackendX11
	next.Window.Width = 1024
	next.Logging.File = "/tmp/winshim.log"
	next.IPC.Socket = "/tmp/other.sock"
	want := []string{"backend", "window", "logging", "ipc"}
	if diff := cmp.Diff(want, restartRequired(prev, next)); diff != "" {
		t.Errorf("restartRequired mismatch (-want +got):\n%s", diff)
	}
}

func TestParseWindowID(t *testing.T) {
	id, err := parseWindowID("42")
	require.NoError(t, err)
	assert.Equal(t, window.ID(42), id)

	for _, bad := range []string{"", "0", "-1", "abc"} {
		_, err := parseWindowID(bad)
		assert.Error(t, err, bad)
	}
}
