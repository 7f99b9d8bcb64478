package x11

import (
	"testing"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/stretchr/testify/assert"

	"github.com/1broseidon/winshim/internal/platform"
)

func TestModifiers(t *testing.T) {
	assert.Equal(t, platform.Modifiers(0), modifiers(0))
	assert.Equal(t, platform.ModShift|platform.ModCtrl, modifiers(xproto.ModMaskShift|xproto.ModMaskControl))
	assert.Equal(t, platform.ModAlt|platform.ModSuper, modifiers(xproto.ModMask1|xproto.ModMask4))
}

func TestButtonEvent(t *testing.T) {
	tests := []struct {
		name   string
		detail byte
		press  bool
		want   platform.MouseEvent
		ok     bool
	}{
		{"left press", 1, true, platform.MouseEvent{Kind: platform.MousePress, Button: platform.ButtonLeft, X: 3, Y: 4}, true},
		{"right release", 3, false, platform.MouseEvent{Kind: platform.MouseRelease, Button: platform.ButtonRight, X: 3, Y: 4}, true},
		{"wheel up", 4, true, platform.MouseEvent{Kind: platform.MouseVertWheel, Delta: 1, X: 3, Y: 4}, true},
		{"wheel down", 5, true, platform.MouseEvent{Kind: platform.MouseVertWheel, Delta: -1, X: 3, Y: 4}, true},
		{"wheel release ignored", 5, false, platform.MouseEvent{}, false},
		{"horizontal", 7, true, platform.MouseEvent{Kind: platform.MouseHorzWheel, Delta: -1, X: 3, Y: 4}, true},
		{"unknown button", 9, true, platform.MouseEvent{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := buttonEvent(tt.detail, tt.press, 3, 4, 0)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestMouseKeepsDevicePixels(t *testing.T) {
	s := &Surface{scale: 2}
	got := s.mouse(platform.MouseEvent{Kind: platform.MouseMove, X: 5, Y: 3})
	assert.Equal(t, platform.MouseEvent{Kind: platform.MouseMove, X: 5, Y: 3, Pixels: true}, got)
}
