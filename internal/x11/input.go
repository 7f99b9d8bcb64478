package x11

import (
	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/winshim/internal/platform"
)

func modifiers(state uint16) platform.Modifiers {
	var m platform.Modifiers
	if state&xproto.ModMaskShift != 0 {
		m |= platform.ModShift
	}
	if state&xproto.ModMaskControl != 0 {
		m |= platform.ModCtrl
	}
	if state&xproto.ModMask1 != 0 {
		m |= platform.ModAlt
	}
	if state&xproto.ModMask4 != 0 {
		m |= platform.ModSuper
	}
	return m
}

// buttonEvent decodes a core protocol button number. Wheel "buttons" only
// produce an event on press.
func buttonEvent(detail byte, press bool, x, y int, state uint16) (platform.MouseEvent, bool) {
	ev := platform.MouseEvent{X: x, Y: y, Modifiers: modifiers(state)}
	switch detail {
	case 1, 2, 3:
		ev.Kind = platform.MouseRelease
		if press {
			ev.Kind = platform.MousePress
		}
		ev.Button = [...]platform.MouseButton{platform.ButtonLeft, platform.ButtonMiddle, platform.ButtonRight}[detail-1]
	case 4, 5:
		if !press {
			return ev, false
		}
		ev.Kind = platform.MouseVertWheel
		ev.Delta = 1
		if detail == 5 {
			ev.Delta = -1
		}
	case 6, 7:
		if !press {
			return ev, false
		}
		ev.Kind = platform.MouseHorzWheel
		ev.Delta = 1
		if detail == 7 {
			ev.Delta = -1
		}
	default:
		return ev, false
	}
	return ev, true
}
