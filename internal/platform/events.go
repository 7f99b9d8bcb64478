package platform

// Event is a notification delivered to a surface handler.
type Event interface {
	isEvent()
}

// ConfigureEvent reports that the surface may need a new size or state.
// Size is nil when the platform leaves the size to the client.
type ConfigureEvent struct {
	Size       *Size
	Fullscreen bool
}

// CloseEvent reports a close request from the user or window manager.
type CloseEvent struct{}

// RefreshEvent asks for the window decorations to be redrawn.
type RefreshEvent struct{}

// ScaleEvent reports a new integer scale factor for the surface.
type ScaleEvent struct {
	Factor int
}

// Modifiers is a bitmask of held modifier keys.
type Modifiers uint16

const (
	ModShift Modifiers = 1 << iota
	ModCtrl
	ModAlt
	ModSuper
)

// KeyEvent is a decoded key press or release.
type KeyEvent struct {
	Key       string
	Down      bool
	Modifiers Modifiers
	RawCode   uint32
}

// MouseKind classifies a MouseEvent.
type MouseKind int

const (
	MouseMove MouseKind = iota
	MousePress
	MouseRelease
	MouseVertWheel
	MouseHorzWheel
)

// MouseButton identifies a pointer button.
type MouseButton int

const (
	ButtonNone MouseButton = iota
	ButtonLeft
	ButtonMiddle
	ButtonRight
)

// MouseEvent is a pointer event in surface coordinates, or in device pixels
// when Pixels is set. Backends whose native unit is the device pixel set
// Pixels so no scale round trip happens.
type MouseEvent struct {
	Kind      MouseKind
	X         int
	Y         int
	Button    MouseButton
	Delta     int
	Modifiers Modifiers
	Pixels    bool
}

// FocusEvent reports keyboard focus changes.
type FocusEvent struct {
	Focused bool
}

func (ConfigureEvent) isEvent() {}
func (CloseEvent) isEvent()     {}
func (RefreshEvent) isEvent()   {}
func (ScaleEvent) isEvent()     {}
func (KeyEvent) isEvent()       {}
func (MouseEvent) isEvent()     {}
func (FocusEvent) isEvent()     {}
