package window

import "slices"

// registry owns every live window's State. It is only touched on the loop
// goroutine.
type registry struct {
	windows map[ID]*State
}

func newRegistry() *registry {
	return &registry{windows: make(map[ID]*State)}
}

func (r *registry) get(id ID) *State {
	return r.windows[id]
}

func (r *registry) insert(s *State) {
	r.windows[s.id] = s
}

func (r *registry) remove(id ID) {
	delete(r.windows, id)
}

func (r *registry) len() int {
	return len(r.windows)
}

// ids returns the live window ids in creation order.
func (r *registry) ids() []ID {
	out := make([]ID, 0, len(r.windows))
	for id := range r.windows {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
