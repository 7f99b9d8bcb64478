package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/1broseidon/winshim/internal/promise"
	"github.com/1broseidon/winshim/internal/window"
)

// DefaultRequestTimeout bounds how long a handler waits on the event loop.
const DefaultRequestTimeout = 5 * time.Second

// Options configures a Server.
type Options struct {
	// SocketPath is the unix socket to listen on.
	SocketPath string
	// Timeout bounds each request. Zero means DefaultRequestTimeout.
	Timeout time.Duration
	// Reload is called for RELOAD. Nil disables the command.
	Reload func() error
	// ConfigPath is reported by GET_STATUS.
	ConfigPath string
	Logger     *slog.Logger
}

// Server answers control requests by forwarding them to the event loop.
// Handlers never touch window state directly: each request becomes a future
// on the connection and the handler waits for it with a deadline.
type Server struct {
	socketPath string
	conn       *window.Connection
	reload     func() error
	configPath string
	logger     *slog.Logger
	startTime  time.Time

	mu           sync.Mutex
	timeout      time.Duration
	listener     net.Listener
	shuttingDown bool
	wg           sync.WaitGroup
}

// NewServer creates a new IPC server
func NewServer(conn *window.Connection, opts Options) (*Server, error) {
	if opts.SocketPath == "" {
		return nil, errors.New("ipc: socket path is empty")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	// Remove a stale socket left by a previous run.
	_ = os.Remove(opts.SocketPath)

	return &Server{
		socketPath: opts.SocketPath,
		conn:       conn,
		reload:     opts.Reload,
		configPath: opts.ConfigPath,
		logger:     logger.With("component", "ipc"),
		startTime:  time.Now(),
		timeout:    timeout,
	}, nil
}

// SetTimeout changes the per-request timeout. Non-positive values are ignored.
func (s *Server) SetTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeout = d
}

func (s *Server) requestTimeout() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeout
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.logger.Info("IPC server listening", "socket", s.socketPath)

	s.wg.Add(1)
	go s.acceptLoop(listener)
	return nil
}

// Serve starts the server and blocks until ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}

func (s *Server) acceptLoop(listener net.Listener) {
	defer s.wg.Done()
	for {
		conn, err := listener.Accept()
		if err != nil {
			s.mu.Lock()
			stopping := s.shuttingDown
			s.mu.Unlock()
			if stopping || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("IPC accept error", "error", err)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		}()
	}
}

// handleConnection serves exactly one request line.
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	timeout := s.requestTimeout()
	_ = conn.SetDeadline(time.Now().Add(2 * timeout))

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		s.logger.Debug("IPC read error", "error", err)
		return
	}

	var resp *Response
	if req, err := decodeRequest(line); err != nil {
		resp = errorResponse("invalid request: %v", err)
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		resp = s.dispatch(ctx, req)
		cancel()
		if resp.Status == StatusError {
			s.logger.Debug("IPC command failed", "command", req.Command, "error", resp.Error)
		}
	}

	if err := json.NewEncoder(conn).Encode(resp); err != nil {
		s.logger.Debug("failed to send response", "error", err)
	}
}

type handler func(s *Server, ctx context.Context, payload json.RawMessage) *Response

var handlers = map[CommandType]handler{
	CommandReload:           (*Server).handleReload,
	CommandGetStatus:        (*Server).handleGetStatus,
	CommandListWindows:      (*Server).handleListWindows,
	CommandSetTitle:         (*Server).handleSetTitle,
	CommandCloseWindow:      (*Server).handleCloseWindow,
	CommandInvalidate:       windowOp((*window.Window).Invalidate),
	CommandToggleFullscreen: windowOp((*window.Window).ToggleFullscreen),
}

func (s *Server) dispatch(ctx context.Context, req *Request) *Response {
	h, ok := handlers[req.Command]
	if !ok {
		return errorResponse("unknown command: %s", req.Command)
	}
	return h(s, ctx, req.Payload)
}

// windowOp adapts a payload-free window method into a handler.
func windowOp(op func(*window.Window) *promise.Future[struct{}]) handler {
	return func(s *Server, ctx context.Context, raw json.RawMessage) *Response {
		p, err := decodeInto[WindowPayload](raw, "payload")
		if err != nil {
			return errorResponse("%v", err)
		}
		return await(ctx, op(s.conn.Window(p.ID)))
	}
}

func (s *Server) handleSetTitle(ctx context.Context, raw json.RawMessage) *Response {
	p, err := decodeInto[SetTitlePayload](raw, "payload")
	if err != nil {
		return errorResponse("%v", err)
	}
	return await(ctx, s.conn.Window(p.ID).SetTitle(p.Title))
}

func (s *Server) handleCloseWindow(ctx context.Context, raw json.RawMessage) *Response {
	p, err := decodeInto[CloseWindowPayload](raw, "payload")
	if err != nil {
		return errorResponse("%v", err)
	}
	w := s.conn.Window(p.ID)
	if p.Force {
		return await(ctx, w.Close())
	}
	return await(ctx, w.RequestClose())
}

func await(ctx context.Context, f *promise.Future[struct{}]) *Response {
	if _, err := f.Await(ctx); err != nil {
		return errorResponse("%v", err)
	}
	return okResponse(nil)
}

func (s *Server) handleReload(context.Context, json.RawMessage) *Response {
	if s.reload == nil {
		return errorResponse("reload is not supported")
	}
	s.logger.Info("IPC: received RELOAD")
	if err := s.reload(); err != nil {
		return errorResponse("reload config: %v", err)
	}
	return okResponse(nil)
}

func (s *Server) handleGetStatus(ctx context.Context, _ json.RawMessage) *Response {
	windows, err := s.conn.Windows().Await(ctx)
	if err != nil {
		return errorResponse("query windows: %v", err)
	}
	return okResponse(StatusData{
		Backend:       s.conn.BackendName(),
		WindowCount:   len(windows),
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		PID:           os.Getpid(),
		ConfigPath:    s.configPath,
	})
}

func (s *Server) handleListWindows(ctx context.Context, _ json.RawMessage) *Response {
	windows, err := s.conn.Windows().Await(ctx)
	if err != nil {
		return errorResponse("list windows: %v", err)
	}
	return okResponse(WindowsData{Windows: windows})
}

// Stop closes the listener, waits for in-flight requests and removes the
// socket.
func (s *Server) Stop() {
	s.mu.Lock()
	s.shuttingDown = true
	listener := s.listener
	s.mu.Unlock()

	if listener != nil {
		listener.Close()
	}
	s.wg.Wait()
	_ = os.Remove(s.socketPath)
}
