package mcp

import (
	"context"
	"log/slog"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/winshim/internal/window"
)

const (
	ServerName    = "winshim"
	ServerVersion = "0.1.0"

	// DefaultToolTimeout bounds how long a tool waits on the event loop.
	DefaultToolTimeout = 5 * time.Second
)

// Options configures NewServer.
type Options struct {
	// Timeout bounds each tool call. Clipboard reads get the clipboard
	// timeout on top of it.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Server exposes the windows of a running connection as MCP tools. Every
// tool goes through the connection's futures, so calls arriving on the
// transport goroutine never touch window state.
type Server struct {
	mcpServer *mcpsdk.Server
	conn      *window.Connection
	timeout   time.Duration
	logger    *slog.Logger
}

// NewServer creates an MCP server for conn.
func NewServer(conn *window.Connection, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultToolTimeout
	}
	s := &Server{
		conn:    conn,
		timeout: timeout,
		logger:  logger.With("component", "mcp"),
	}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)
	s.registerTools()
	return s
}

// Run serves MCP on stdio, blocking until ctx is done or the client leaves.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_windows",
		Description: "List the open windows with their id, title, pixel dimensions, fullscreen flag and lifecycle state.",
	}, s.handleListWindows)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "set_window_title",
		Description: "Change the title of a window.",
	}, s.handleSetTitle)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "invalidate_window",
		Description: "Force a window to repaint.",
	}, s.handleInvalidate)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "close_window",
		Description: "Ask a window to close. The application may refuse unless force is true.",
	}, s.handleCloseWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "toggle_fullscreen",
		Description: "Toggle fullscreen for a window. The new state is applied once the display server confirms it.",
	}, s.handleToggleFullscreen)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "set_window_size",
		Description: "Resize the drawable area of a window, in pixels.",
	}, s.handleSetSize)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "read_clipboard",
		Description: "Read text from the clipboard (or the primary selection). Line endings are normalized to LF.",
	}, s.handleReadClipboard)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "write_clipboard",
		Description: "Place text on the clipboard (or the primary selection).",
	}, s.handleWriteClipboard)
}
