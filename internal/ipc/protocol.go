package ipc

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/1broseidon/winshim/internal/window"
)

// Wire format: one JSON Request per line from the client, one JSON Response
// per line back, then the server closes the connection.

// CommandType names a control operation.
type CommandType string

const (
	CommandReload           CommandType = "RELOAD"
	CommandGetStatus        CommandType = "GET_STATUS"
	CommandListWindows      CommandType = "LIST_WINDOWS"
	CommandSetTitle         CommandType = "SET_TITLE"
	CommandInvalidate       CommandType = "INVALIDATE"
	CommandCloseWindow      CommandType = "CLOSE_WINDOW"
	CommandToggleFullscreen CommandType = "TOGGLE_FULLSCREEN"
)

// Status is the outcome field of a Response.
type Status string

const (
	StatusOK    Status = "OK"
	StatusError Status = "ERROR"
)

type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type Response struct {
	Status Status          `json:"status"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Err converts an ERROR response into a Go error.
func (r *Response) Err() error {
	if r.Status != StatusError {
		return nil
	}
	return fmt.Errorf("winshim: %s", r.Error)
}

// StatusData is the GET_STATUS result.
type StatusData struct {
	Backend       string `json:"backend"`
	WindowCount   int    `json:"window_count"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	PID           int    `json:"pid"`
	ConfigPath    string `json:"config_path,omitempty"`
}

// WindowsData is the LIST_WINDOWS result.
type WindowsData struct {
	Windows []window.Info `json:"windows"`
}

// WindowPayload addresses a single window.
type WindowPayload struct {
	ID window.ID `json:"id"`
}

// CloseWindowPayload is the payload for CLOSE_WINDOW. Without Force the
// application may refuse.
type CloseWindowPayload struct {
	ID    window.ID `json:"id"`
	Force bool      `json:"force,omitempty"`
}

type SetTitlePayload struct {
	ID    window.ID `json:"id"`
	Title string    `json:"title"`
}

func okResponse(data any) *Response {
	if data == nil {
		return &Response{Status: StatusOK}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return errorResponse("encode result: %v", err)
	}
	return &Response{Status: StatusOK, Data: raw}
}

func errorResponse(format string, args ...any) *Response {
	return &Response{Status: StatusError, Error: fmt.Sprintf(format, args...)}
}

func decodeRequest(line []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return nil, err
	}
	if req.Command == "" {
		return nil, errors.New("missing command")
	}
	return &req, nil
}

// decodeInto unmarshals raw into a fresh T. Empty input is an error since
// every command that carries a payload requires one.
func decodeInto[T any](raw json.RawMessage, what string) (T, error) {
	var v T
	if len(raw) == 0 {
		return v, fmt.Errorf("%s is required", what)
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("invalid %s: %w", what, err)
	}
	return v, nil
}
