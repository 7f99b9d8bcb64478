package window

import "github.com/1broseidon/winshim/internal/platform"

// PendingEvent accumulates platform notifications for one window between
// dispatches. Later notifications of the same kind overwrite earlier ones.
// It is only touched on the event loop goroutine.
type PendingEvent struct {
	Close              bool
	HadConfigure       bool
	RefreshDecorations bool
	Configure          *platform.Size
	DPI                *int
	Fullscreen         *bool
}

// Queue merges ev into the pending set. It returns true when a dispatch
// needs to be scheduled; false means one is already outstanding or the
// event changes nothing.
func (p *PendingEvent) Queue(ev platform.Event) bool {
	switch e := ev.(type) {
	case platform.CloseEvent:
		if p.Close {
			return false
		}
		p.Close = true
		return true
	case platform.RefreshEvent:
		if p.RefreshDecorations {
			return false
		}
		p.RefreshDecorations = true
		return true
	case platform.ScaleEvent:
		changed := p.DPI == nil
		factor := e.Factor
		p.DPI = &factor
		return changed
	case platform.ConfigureEvent:
		var changed bool
		p.HadConfigure = true
		if e.Size != nil {
			changed = p.Configure == nil
			size := *e.Size
			p.Configure = &size
		} else {
			changed = true
		}
		// An unset flag stays unset while the window is not fullscreen. Once
		// set, every later configure counts as a change even if identical.
		if p.Fullscreen != nil || e.Fullscreen {
			fs := e.Fullscreen
			p.Fullscreen = &fs
			changed = true
		}
		return changed
	}
	return false
}

// Take returns the accumulated state and resets p.
func (p *PendingEvent) Take() PendingEvent {
	out := *p
	*p = PendingEvent{}
	return out
}

// Empty reports whether nothing is pending.
func (p *PendingEvent) Empty() bool {
	return !p.Close && !p.HadConfigure && !p.RefreshDecorations &&
		p.Configure == nil && p.DPI == nil && p.Fullscreen == nil
}
