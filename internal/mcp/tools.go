package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/winshim/internal/platform"
	"github.com/1broseidon/winshim/internal/promise"
	"github.com/1broseidon/winshim/internal/window"
)

func (s *Server) handle(id uint64) (*window.Window, error) {
	if id == 0 {
		return nil, fmt.Errorf("id is required")
	}
	return s.conn.Window(window.ID(id)), nil
}

// await waits for f with the tool timeout.
func await[T any](ctx context.Context, s *Server, f *promise.Future[T]) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return f.Await(ctx)
}

func (s *Server) act(ctx context.Context, id uint64, action string, op func(*window.Window) *promise.Future[struct{}]) (*mcpsdk.CallToolResult, WindowActionOutput, error) {
	w, err := s.handle(id)
	if err != nil {
		return nil, WindowActionOutput{}, err
	}
	if _, err := await(ctx, s, op(w)); err != nil {
		s.logger.Debug("tool failed", "action", action, "window", id, "error", err)
		return nil, WindowActionOutput{}, fmt.Errorf("%s window %d: %w", action, id, err)
	}
	s.logger.Info("tool", "action", action, "window", id)
	return nil, WindowActionOutput{ID: id, Action: action}, nil
}

func (s *Server) handleListWindows(ctx context.Context, _ *mcpsdk.CallToolRequest, _ ListWindowsInput) (*mcpsdk.CallToolResult, ListWindowsOutput, error) {
	windows, err := await(ctx, s, s.conn.Windows())
	if err != nil {
		return nil, ListWindowsOutput{}, err
	}
	out := ListWindowsOutput{Windows: make([]WindowInfo, 0, len(windows))}
	for _, info := range windows {
		out.Windows = append(out.Windows, newWindowInfo(info))
	}
	return nil, out, nil
}

func (s *Server) handleSetTitle(ctx context.Context, _ *mcpsdk.CallToolRequest, args SetTitleInput) (*mcpsdk.CallToolResult, WindowActionOutput, error) {
	return s.act(ctx, args.ID, "set_title", func(w *window.Window) *promise.Future[struct{}] {
		return w.SetTitle(args.Title)
	})
}

func (s *Server) handleInvalidate(ctx context.Context, _ *mcpsdk.CallToolRequest, args WindowInput) (*mcpsdk.CallToolResult, WindowActionOutput, error) {
	return s.act(ctx, args.ID, "invalidate", (*window.Window).Invalidate)
}

func (s *Server) handleCloseWindow(ctx context.Context, _ *mcpsdk.CallToolRequest, args CloseWindowInput) (*mcpsdk.CallToolResult, WindowActionOutput, error) {
	if args.Force {
		return s.act(ctx, args.ID, "close", (*window.Window).Close)
	}
	return s.act(ctx, args.ID, "request_close", (*window.Window).RequestClose)
}

func (s *Server) handleToggleFullscreen(ctx context.Context, _ *mcpsdk.CallToolRequest, args WindowInput) (*mcpsdk.CallToolResult, WindowActionOutput, error) {
	return s.act(ctx, args.ID, "toggle_fullscreen", (*window.Window).ToggleFullscreen)
}

func (s *Server) handleSetSize(ctx context.Context, _ *mcpsdk.CallToolRequest, args SetSizeInput) (*mcpsdk.CallToolResult, WindowActionOutput, error) {
	return s.act(ctx, args.ID, "set_size", func(w *window.Window) *promise.Future[struct{}] {
		return w.SetInnerSize(args.Width, args.Height)
	})
}

func clipboardKind(primary bool) platform.ClipboardKind {
	if primary {
		return platform.PrimarySelection
	}
	return platform.Clipboard
}

func (s *Server) handleReadClipboard(ctx context.Context, _ *mcpsdk.CallToolRequest, args ReadClipboardInput) (*mcpsdk.CallToolResult, ReadClipboardOutput, error) {
	w, err := s.handle(args.ID)
	if err != nil {
		return nil, ReadClipboardOutput{}, err
	}
	text, err := await(ctx, s, w.GetClipboard(clipboardKind(args.Primary)))
	if err != nil {
		return nil, ReadClipboardOutput{}, fmt.Errorf("read clipboard: %w", err)
	}
	return nil, ReadClipboardOutput{Text: text}, nil
}

func (s *Server) handleWriteClipboard(ctx context.Context, _ *mcpsdk.CallToolRequest, args WriteClipboardInput) (*mcpsdk.CallToolResult, WindowActionOutput, error) {
	return s.act(ctx, args.ID, "write_clipboard", func(w *window.Window) *promise.Future[struct{}] {
		return w.SetClipboard(clipboardKind(args.Primary), args.Text)
	})
}
