package x11

import (
	"fmt"
	"slices"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
)

const (
	stateRemove = 0
	stateAdd    = 1

	iconicState = 3

	// _NET_ACTIVE_WINDOW source indication for a normal application.
	sourceApplication = 1
)

// sendRootMessage delivers a client message about win to the root window,
// where the window manager picks it up. The message is built by hand
// because the xgbutil ewmh request helpers panic on this library version.
func (c *Connection) sendRootMessage(win xproto.Window, atomName string, data ...uint32) error {
	atom, err := c.Atom(atomName)
	if err != nil {
		return err
	}
	payload := make([]uint32, 5)
	copy(payload, data)

	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: win,
		Type:   atom,
		Data:   xproto.ClientMessageDataUnionData32New(payload),
	}
	return xproto.SendEventChecked(
		c.XUtil.Conn(),
		false,
		c.Root,
		xproto.EventMaskSubstructureRedirect|xproto.EventMaskSubstructureNotify,
		string(ev.Bytes()),
	).Check()
}

// SetFullscreen adds or removes _NET_WM_STATE_FULLSCREEN.
func (c *Connection) SetFullscreen(win xproto.Window, on bool) error {
	fs, err := c.Atom("_NET_WM_STATE_FULLSCREEN")
	if err != nil {
		return err
	}
	action := uint32(stateRemove)
	if on {
		action = stateAdd
	}
	if err := c.sendRootMessage(win, "_NET_WM_STATE", action, uint32(fs), 0, 1); err != nil {
		return fmt.Errorf("set fullscreen: %w", err)
	}
	return nil
}

// IsFullscreen reports whether the window manager has win in fullscreen
// state.
func (c *Connection) IsFullscreen(win xproto.Window) bool {
	states, err := ewmh.WmStateGet(c.XUtil, win)
	if err != nil {
		return false
	}
	return slices.Contains(states, "_NET_WM_STATE_FULLSCREEN")
}

// Minimize asks the window manager to iconify win (ICCCM WM_CHANGE_STATE).
func (c *Connection) Minimize(win xproto.Window) error {
	if err := c.sendRootMessage(win, "WM_CHANGE_STATE", iconicState); err != nil {
		return fmt.Errorf("minimize: %w", err)
	}
	return nil
}

// Activate raises and focuses win using _NET_ACTIVE_WINDOW.
func (c *Connection) Activate(win xproto.Window) error {
	if err := c.sendRootMessage(win, "_NET_ACTIVE_WINDOW", sourceApplication); err != nil {
		return fmt.Errorf("activate: %w", err)
	}
	return nil
}

// unmaximize removes maximized state so an explicit resize sticks.
func (c *Connection) unmaximize(win xproto.Window) {
	states, err := ewmh.WmStateGet(c.XUtil, win)
	if err != nil {
		return
	}
	for _, name := range []string{"_NET_WM_STATE_MAXIMIZED_HORZ", "_NET_WM_STATE_MAXIMIZED_VERT"} {
		if !slices.Contains(states, name) {
			continue
		}
		atom, err := c.Atom(name)
		if err != nil {
			continue
		}
		_ = c.sendRootMessage(win, "_NET_WM_STATE", stateRemove, uint32(atom), 0, 1)
	}
}
