package window

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/1broseidon/winshim/internal/platform"
)

func TestPendingEventQueue(t *testing.T) {
	size := func(w, h int) *platform.Size { return &platform.Size{Width: w, Height: h} }

	tests := []struct {
		name   string
		events []platform.Event
		want   []bool
	}{
		{
			name:   "close latches",
			events: []platform.Event{platform.CloseEvent{}, platform.CloseEvent{}},
			want:   []bool{true, false},
		},
		{
			name:   "refresh latches",
			events: []platform.Event{platform.RefreshEvent{}, platform.RefreshEvent{}},
			want:   []bool{true, false},
		},
		{
			name: "duplicate configure",
			events: []platform.Event{
				platform.ConfigureEvent{Size: size(400, 300)},
				platform.ConfigureEvent{Size: size(400, 300)},
			},
			want: []bool{true, false},
		},
		{
			name: "configure without size always changes",
			events: []platform.Event{
				platform.ConfigureEvent{},
				platform.ConfigureEvent{},
			},
			want: []bool{true, true},
		},
		{
			name: "fullscreen toggles",
			events: []platform.Event{
				platform.ConfigureEvent{Size: size(1, 1), Fullscreen: true},
				platform.ConfigureEvent{Size: size(1, 1), Fullscreen: false},
			},
			want: []bool{true, true},
		},
		{
			name: "buffered fullscreen reports every configure",
			events: []platform.Event{
				platform.ConfigureEvent{Size: size(400, 300), Fullscreen: true},
				platform.ConfigureEvent{Size: size(400, 300), Fullscreen: true},
			},
			want: []bool{true, true},
		},
		{
			name:   "scale coalesces",
			events: []platform.Event{platform.ScaleEvent{Factor: 2}, platform.ScaleEvent{Factor: 3}},
			want:   []bool{true, false},
		},
		{
			name:   "input is ignored",
			events: []platform.Event{platform.KeyEvent{Key: "a"}},
			want:   []bool{false},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p PendingEvent
			var got []bool
			for _, ev := range tt.events {
				got = append(got, p.Queue(ev))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPendingEventKeepsLatestValues(t *testing.T) {
	var p PendingEvent
	p.Queue(platform.ConfigureEvent{Size: &platform.Size{Width: 10, Height: 10}})
	p.Queue(platform.ConfigureEvent{Size: &platform.Size{Width: 20, Height: 30}, Fullscreen: true})
	p.Queue(platform.ScaleEvent{Factor: 2})
	p.Queue(platform.ScaleEvent{Factor: 3})

	got := p.Take()
	assert.True(t, got.HadConfigure)
	assert.Equal(t, &platform.Size{Width: 20, Height: 30}, got.Configure)
	if assert.NotNil(t, got.Fullscreen) {
		assert.True(t, *got.Fullscreen)
	}
	if assert.NotNil(t, got.DPI) {
		assert.Equal(t, 3, *got.DPI)
	}

	assert.True(t, p.Empty())
	assert.True(t, p.Queue(platform.CloseEvent{}), "close is reported again after a drain")
}

func TestPendingEventUnsetFullscreenStaysUnset(t *testing.T) {
	var p PendingEvent
	p.Queue(platform.ConfigureEvent{Size: &platform.Size{Width: 1, Height: 1}})
	assert.Nil(t, p.Fullscreen)
}

func TestPixelConversions(t *testing.T) {
	assert.Equal(t, 1600, surfaceToPixels(800, 2))
	assert.Equal(t, 401, pixelsToSurface(801, 2))
	assert.Equal(t, 400, pixelsToSurface(800, 2))
	assert.Equal(t, 7, pixelsToSurface(7, 0))
}

func TestLifecycleText(t *testing.T) {
	var l Lifecycle
	assert.NoError(t, l.UnmarshalText([]byte("closing")))
	assert.Equal(t, Closing, l)
	assert.Error(t, l.UnmarshalText([]byte("minimized")))
	assert.Equal(t, "lifecycle(9)", Lifecycle(9).String())
}
