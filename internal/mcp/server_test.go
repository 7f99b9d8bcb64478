package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1broseidon/winshim/internal/platform"
	"github.com/1broseidon/winshim/internal/window"
)

const waitFor = 5 * time.Second

type fixture struct {
	backend *platform.Headless
	conn    *window.Connection
	session *mcpsdk.ClientSession
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{backend: platform.NewHeadless(nil)}
	conn, err := window.New(f.backend, window.WithClipboardTimeout(200*time.Millisecond))
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

	srv := NewServer(conn, Options{Timeout: 2 * time.Second})
	clientT, serverT := mcpsdk.NewInMemoryTransports()
	ss, err := srv.mcpServer.Connect(ctx, serverT, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test", Version: "v0"}, nil)
	cs, err := client.Connect(ctx, clientT, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	f.session = cs
	return f
}

func (f *fixture) openWindow(t *testing.T) (*window.Window, *platform.HeadlessSurface) {
	t.Helper()
	fut := f.conn.NewWindow(window.WindowOptions{Title: "mcp", Width: 300, Height: 200}, nil)
	var s *platform.HeadlessSurface
	require.Eventually(t, func() bool {
		s = f.backend.Surface(1)
		return s != nil
	}, waitFor, time.Millisecond)
	f.backend.Inject(s.ID(), platform.ConfigureEvent{Size: &platform.Size{Width: 300, Height: 200}})
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	w, err := fut.Await(ctx)
	require.NoError(t, err)
	return w, s
}

// call invokes a tool and decodes its structured result into out.
func (f *fixture) call(t *testing.T, name string, args map[string]any, out any) *mcpsdk.CallToolResult {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	res, err := f.session.CallTool(ctx, &mcpsdk.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	if out != nil && !res.IsError {
		data, err := json.Marshal(res.StructuredContent)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, out))
	}
	return res
}

func TestToolsAreRegistered(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()

	res, err := f.session.ListTools(ctx, nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"list_windows", "set_window_title", "invalidate_window", "close_window",
		"toggle_fullscreen", "set_window_size", "read_clipboard", "write_clipboard",
	}, names)
}

func TestListWindows(t *testing.T) {
	f := newFixture(t)

	var empty ListWindowsOutput
	f.call(t, "list_windows", map[string]any{}, &empty)
	assert.Empty(t, empty.Windows)

	w, _ := f.openWindow(t)
	var out ListWindowsOutput
	res := f.call(t, "list_windows", map[string]any{}, &out)
	require.False(t, res.IsError)
	require.Len(t, out.Windows, 1)
	got := out.Windows[0]
	assert.Equal(t, uint64(w.ID()), got.ID)
	assert.Equal(t, "mcp", got.Title)
	assert.Equal(t, window.Mapped.String(), got.Lifecycle)
	assert.Equal(t, 300, got.PixelWidth)
	assert.Equal(t, 200, got.PixelHeight)
	assert.Positive(t, got.DPI)
}

func TestWindowTools(t *testing.T) {
	f := newFixture(t)
	w, s := f.openWindow(t)
	id := uint64(w.ID())

	var out WindowActionOutput
	res := f.call(t, "set_window_title", map[string]any{"id": id, "title": "renamed"}, &out)
	require.False(t, res.IsError)
	assert.Equal(t, WindowActionOutput{ID: id, Action: "set_title"}, out)
	assert.Equal(t, "renamed", s.State().Title)

	res = f.call(t, "invalidate_window", map[string]any{"id": id}, nil)
	assert.False(t, res.IsError)

	res = f.call(t, "toggle_fullscreen", map[string]any{"id": id}, nil)
	assert.False(t, res.IsError)
	assert.True(t, s.State().Fullscreen)

	res = f.call(t, "set_window_size", map[string]any{"id": id, "width": 640, "height": 480}, nil)
	assert.False(t, res.IsError)
	assert.Equal(t, 640, s.State().Width)

	res = f.call(t, "close_window", map[string]any{"id": id}, nil)
	assert.False(t, res.IsError)
	assert.True(t, s.State().Released)
}

func TestToolErrors(t *testing.T) {
	f := newFixture(t)

	res := f.call(t, "invalidate_window", map[string]any{"id": 99}, nil)
	assert.True(t, res.IsError)

	res = f.call(t, "set_window_title", map[string]any{"id": 0, "title": "x"}, nil)
	assert.True(t, res.IsError)

	w, _ := f.openWindow(t)
	res = f.call(t, "set_window_size", map[string]any{"id": uint64(w.ID()), "width": 0, "height": 10}, nil)
	assert.True(t, res.IsError)
}

func TestClipboardTools(t *testing.T) {
	f := newFixture(t)
	w, s := f.openWindow(t)
	id := uint64(w.ID())

	res := f.call(t, "write_clipboard", map[string]any{"id": id, "text": "hello"}, nil)
	require.False(t, res.IsError)
	assert.Eventually(t, func() bool {
		return s.ClipboardText(platform.Clipboard) == "hello"
	}, waitFor, time.Millisecond)

	s.SetClipboardText(platform.PrimarySelection, "a\r\nb")
	var out ReadClipboardOutput
	res = f.call(t, "read_clipboard", map[string]any{"id": id, "primary": true}, &out)
	require.False(t, res.IsError)
	assert.Equal(t, "a\nb", out.Text)
}
