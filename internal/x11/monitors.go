package x11

import (
	"fmt"
	"math"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
)

// Monitor represents a physical display
type Monitor struct {
	ID     int
	Name   string
	X      int
	Y      int
	Width  int
	Height int
	// Physical size in millimetres; zero when the output does not report it.
	MmWidth  int
	MmHeight int
}

// Contains reports whether the root-relative point lies on m.
func (m Monitor) Contains(x, y int) bool {
	return x >= m.X && x < m.X+m.Width && y >= m.Y && y < m.Y+m.Height
}

// DPI returns the horizontal dots per inch, or 0 if unknown.
func (m Monitor) DPI() float64 {
	if m.MmWidth <= 0 || m.Width <= 0 {
		return 0
	}
	return float64(m.Width) / (float64(m.MmWidth) / 25.4)
}

// Scale returns the integer scale factor for m: the DPI relative to 96,
// rounded, and never below 1.
func (m Monitor) Scale() int {
	return scaleForDPI(m.DPI())
}

func scaleForDPI(dpi float64) int {
	if dpi <= 0 {
		return 1
	}
	s := int(math.Round(dpi / 96))
	if s < 1 {
		return 1
	}
	return s
}

// GetMonitors retrieves all active monitors using XRandR
func (c *Connection) GetMonitors() ([]Monitor, error) {
	if err := randr.Init(c.XUtil.Conn()); err != nil {
		return nil, fmt.Errorf("randr init failed: %w", err)
	}

	resources, err := randr.GetScreenResources(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	var monitors []Monitor
	for i, crtc := range resources.Crtcs {
		crtcInfo, err := randr.GetCrtcInfo(c.XUtil.Conn(), crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}

		// Skip disabled CRTCs
		if crtcInfo.Width == 0 || crtcInfo.Height == 0 || len(crtcInfo.Outputs) == 0 {
			continue
		}

		m := Monitor{
			ID:     i,
			Name:   fmt.Sprintf("Monitor%d", i),
			X:      int(crtcInfo.X),
			Y:      int(crtcInfo.Y),
			Width:  int(crtcInfo.Width),
			Height: int(crtcInfo.Height),
		}
		outputInfo, err := randr.GetOutputInfo(c.XUtil.Conn(), crtcInfo.Outputs[0], resources.ConfigTimestamp).Reply()
		if err == nil {
			m.Name = string(outputInfo.Name)
			m.MmWidth = int(outputInfo.MmWidth)
			m.MmHeight = int(outputInfo.MmHeight)
		}
		monitors = append(monitors, m)
	}

	return monitors, nil
}

// monitorAt returns the monitor containing the point, the first monitor if
// none does, or nil when the list is empty.
func monitorAt(monitors []Monitor, x, y int) *Monitor {
	for i := range monitors {
		if monitors[i].Contains(x, y) {
			return &monitors[i]
		}
	}
	if len(monitors) > 0 {
		return &monitors[0]
	}
	return nil
}

// pointerMonitor returns the monitor under the mouse pointer.
func (c *Connection) pointerMonitor(monitors []Monitor) *Monitor {
	reply, err := xproto.QueryPointer(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return monitorAt(monitors, 0, 0)
	}
	return monitorAt(monitors, int(reply.RootX), int(reply.RootY))
}

// rootPosition translates the origin of win into root coordinates.
func (c *Connection) rootPosition(win xproto.Window) (int, int, error) {
	reply, err := xproto.TranslateCoordinates(c.XUtil.Conn(), win, c.Root, 0, 0).Reply()
	if err != nil {
		return 0, 0, err
	}
	return int(reply.DstX), int(reply.DstY), nil
}

// centered returns the origin that centres a width by height window on m.
func centered(m *Monitor, width, height int) (int, int) {
	if m == nil {
		return 0, 0
	}
	x := m.X + (m.Width-width)/2
	y := m.Y + (m.Height-height)/2
	return max(x, m.X), max(y, m.Y)
}
