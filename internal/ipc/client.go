package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/winshim/internal/runtimepath"
	"github.com/1broseidon/winshim/internal/window"
)

// Client talks to a running winshim over its control socket. Every call
// dials a fresh connection.
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient targets the default socket. Resolution errors surface on the
// first call rather than here.
func NewClient() *Client {
	path, _ := runtimepath.SocketPath()
	return NewClientAt(path)
}

func NewClientAt(socketPath string) *Client {
	return &Client{socketPath: socketPath, timeout: 2 * DefaultRequestTimeout}
}

// SetTimeout bounds each round trip.
func (c *Client) SetTimeout(d time.Duration) {
	if d > 0 {
		c.timeout = d
	}
}

func (c *Client) roundTrip(req *Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("connect to winshim at %s: %w (is \"winshim run\" running?)", c.socketPath, err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(c.timeout))

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return nil, fmt.Errorf("send %s: %w", req.Command, err)
	}

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", req.Command, err)
	}
	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", req.Command, err)
	}
	return &resp, resp.Err()
}

func (c *Client) command(cmd CommandType, payload any) (*Response, error) {
	req := &Request{Command: cmd}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", cmd, err)
		}
		req.Payload = raw
	}
	return c.roundTrip(req)
}

// query issues cmd and decodes its result data into T.
func query[T any](c *Client, cmd CommandType) (T, error) {
	var out T
	resp, err := c.command(cmd, nil)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(resp.Data, &out); err != nil {
		return out, fmt.Errorf("decode %s data: %w", cmd, err)
	}
	return out, nil
}

func (c *Client) exec(cmd CommandType, payload any) error {
	_, err := c.command(cmd, payload)
	return err
}

// Reload asks the server to reread its configuration.
func (c *Client) Reload() error { return c.exec(CommandReload, nil) }

func (c *Client) GetStatus() (*StatusData, error) {
	status, err := query[StatusData](c, CommandGetStatus)
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// ListWindows returns a snapshot of the live windows.
func (c *Client) ListWindows() ([]window.Info, error) {
	data, err := query[WindowsData](c, CommandListWindows)
	return data.Windows, err
}

func (c *Client) SetTitle(id window.ID, title string) error {
	return c.exec(CommandSetTitle, SetTitlePayload{ID: id, Title: title})
}

// Invalidate asks window id to repaint.
func (c *Client) Invalidate(id window.ID) error {
	return c.exec(CommandInvalidate, WindowPayload{ID: id})
}

// CloseWindow requests that window id close. Unless force is set the
// application may refuse.
func (c *Client) CloseWindow(id window.ID, force bool) error {
	return c.exec(CommandCloseWindow, CloseWindowPayload{ID: id, Force: force})
}

func (c *Client) ToggleFullscreen(id window.ID) error {
	return c.exec(CommandToggleFullscreen, WindowPayload{ID: id})
}

// Ping reports whether a server answers on the socket.
func (c *Client) Ping() error {
	_, err := c.GetStatus()
	return err
}
