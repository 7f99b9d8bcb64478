package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xprop"
)

// Connection manages the X11 connection and core X resources
type Connection struct {
	XUtil   *xgbutil.XUtil
	Root    xproto.Window
	Display string
}

// NewConnection connects to display, or to $DISPLAY when display is empty.
func NewConnection(display string) (*Connection, error) {
	xu, err := xgbutil.NewConnDisplay(display)
	if err != nil {
		return nil, fmt.Errorf("connect to X server %q: %w", display, err)
	}

	// Required for keycode to keysym lookups.
	keybind.Initialize(xu)

	return &Connection{
		XUtil:   xu,
		Root:    xu.RootWin(),
		Display: display,
	}, nil
}

// Atom interns name. xgbutil caches the result.
func (c *Connection) Atom(name string) (xproto.Atom, error) {
	a, err := xprop.Atm(c.XUtil, name)
	if err != nil {
		return 0, fmt.Errorf("intern %s: %w", name, err)
	}
	return a, nil
}

// Close cleanly disconnects from the X11 server
func (c *Connection) Close() {
	c.XUtil.Conn().Close()
}
