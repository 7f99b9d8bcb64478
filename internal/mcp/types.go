package mcp

import "github.com/1broseidon/winshim/internal/window"

// ListWindowsInput is the input for the list_windows tool.
type ListWindowsInput struct{}

// ListWindowsOutput is the output for the list_windows tool.
type ListWindowsOutput struct {
	Windows []WindowInfo `json:"windows"`
}

// WindowInfo describes one window. Lifecycle is spelled out as text so the
// generated schema matches what clients receive.
type WindowInfo struct {
	ID          uint64 `json:"id"`
	Title       string `json:"title"`
	PixelWidth  int    `json:"pixel_width"`
	PixelHeight int    `json:"pixel_height"`
	DPI         int    `json:"dpi"`
	Fullscreen  bool   `json:"fullscreen"`
	Lifecycle   string `json:"lifecycle" jsonschema:"One of created, configuring, mapped, closing, destroyed"`
}

func newWindowInfo(in window.Info) WindowInfo {
	return WindowInfo{
		ID:          uint64(in.ID),
		Title:       in.Title,
		PixelWidth:  in.Dimensions.PixelWidth,
		PixelHeight: in.Dimensions.PixelHeight,
		DPI:         in.Dimensions.DPI,
		Fullscreen:  in.Fullscreen,
		Lifecycle:   in.Lifecycle.String(),
	}
}

// WindowInput addresses one window.
type WindowInput struct {
	ID uint64 `json:"id" jsonschema:"Window id as returned by list_windows"`
}

// SetTitleInput is the input for the set_window_title tool.
type SetTitleInput struct {
	ID    uint64 `json:"id" jsonschema:"Window id as returned by list_windows"`
	Title string `json:"title" jsonschema:"New window title"`
}

// CloseWindowInput is the input for the close_window tool.
type CloseWindowInput struct {
	ID    uint64 `json:"id" jsonschema:"Window id as returned by list_windows"`
	Force bool   `json:"force,omitempty" jsonschema:"Close even if the application would refuse (default: false)"`
}

// SetSizeInput is the input for the set_window_size tool.
type SetSizeInput struct {
	ID     uint64 `json:"id" jsonschema:"Window id as returned by list_windows"`
	Width  int    `json:"width" jsonschema:"Inner width in pixels"`
	Height int    `json:"height" jsonschema:"Inner height in pixels"`
}

// ReadClipboardInput is the input for the read_clipboard tool.
type ReadClipboardInput struct {
	ID      uint64 `json:"id" jsonschema:"Window id used to reach the clipboard"`
	Primary bool   `json:"primary,omitempty" jsonschema:"Read the primary selection instead of the clipboard"`
}

// ReadClipboardOutput is the output for the read_clipboard tool.
type ReadClipboardOutput struct {
	Text string `json:"text"`
}

// WriteClipboardInput is the input for the write_clipboard tool.
type WriteClipboardInput struct {
	ID      uint64 `json:"id" jsonschema:"Window id used to reach the clipboard"`
	Text    string `json:"text" jsonschema:"Text to place on the clipboard"`
	Primary bool   `json:"primary,omitempty" jsonschema:"Write the primary selection instead of the clipboard"`
}

// WindowActionOutput is returned by tools that act on one window.
type WindowActionOutput struct {
	ID     uint64 `json:"id"`
	Action string `json:"action"`
}
