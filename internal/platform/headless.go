package platform

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/1broseidon/winshim/internal/gpu"
)

// Headless is an in-process backend with no display server. Events are
// injected by the program (or tests) and delivered through the same
// Ready/Dispatch contract as a real connection.
type Headless struct {
	mu       sync.Mutex
	queue    []queuedEvent
	surfaces map[SurfaceID]*HeadlessSurface
	order    []SurfaceID
	released []SurfaceID
	nextID   SurfaceID
	closed   bool

	injected  uint64
	delivered uint64

	dispatchErr error
	flushErr    error

	autoConfigure bool

	ready    chan struct{}
	provider gpu.Provider
}

type queuedEvent struct {
	surface SurfaceID
	event   Event
}

var _ Backend = (*Headless)(nil)

// NewHeadless creates a headless backend. A nil provider uses the software
// renderer.
func NewHeadless(provider gpu.Provider) *Headless {
	if provider == nil {
		provider = gpu.NewSoftware()
	}
	return &Headless{
		surfaces: make(map[SurfaceID]*HeadlessSurface),
		ready:    make(chan struct{}, 1),
		provider: provider,
	}
}

// Name implements Backend.
func (h *Headless) Name() string { return "headless" }

// Ready implements Backend.
func (h *Headless) Ready() <-chan struct{} { return h.ready }

// GPU implements Backend.
func (h *Headless) GPU() gpu.Provider { return h.provider }

// Inject queues ev for the surface id. It is safe to call from any goroutine.
func (h *Headless) Inject(id SurfaceID, ev Event) {
	h.mu.Lock()
	h.queue = append(h.queue, queuedEvent{surface: id, event: ev})
	h.injected++
	h.mu.Unlock()
	h.signal()
}

// SetAutoConfigure makes the backend answer like a compositor would: a
// surface gets a configure with its requested size when it is first shown,
// and another whenever its fullscreen state changes. Tests leave it off to
// drive configures by hand.
func (h *Headless) SetAutoConfigure(on bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.autoConfigure = on
}

func (h *Headless) autoConfiguring() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.autoConfigure
}

// FailDispatch makes the next Dispatch call return err.
func (h *Headless) FailDispatch(err error) {
	h.mu.Lock()
	h.dispatchErr = err
	h.mu.Unlock()
	h.signal()
}

// FailFlush makes Flush return err until cleared with nil.
func (h *Headless) FailFlush(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.flushErr = err
}

func (h *Headless) signal() {
	select {
	case h.ready <- struct{}{}:
	default:
	}
}

// Dispatch implements Backend.
func (h *Headless) Dispatch() error {
	h.mu.Lock()
	if h.dispatchErr != nil {
		err := h.dispatchErr
		h.mu.Unlock()
		return err
	}
	if h.closed {
		h.mu.Unlock()
		return ErrBackendClosed
	}
	batch := h.queue
	h.queue = nil
	h.mu.Unlock()

	for _, qe := range batch {
		if s := h.Surface(qe.surface); s != nil {
			if handler := s.handler(); handler != nil {
				handler(qe.event)
			}
		}
		h.mu.Lock()
		h.delivered++
		h.mu.Unlock()
	}
	return nil
}

// Drained reports whether every injected event has been through Dispatch
// and its handler has returned.
func (h *Headless) Drained() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.injected == h.delivered
}

// Flush implements Backend.
func (h *Headless) Flush() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrBackendClosed
	}
	return h.flushErr
}

// CreateSurface implements Backend.
func (h *Headless) CreateSurface(opts SurfaceOptions) (Surface, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrBackendClosed
	}
	h.nextID++
	s := &HeadlessSurface{
		backend: h,
		id:      h.nextID,
		scale:   1,
		state: HeadlessState{
			Class:  opts.Class,
			Title:  opts.Title,
			Width:  opts.Width,
			Height: opts.Height,
		},
	}
	h.surfaces[s.id] = s
	h.order = append(h.order, s.id)
	return s, nil
}

// Surface returns the live surface with the given id, or nil.
func (h *Headless) Surface(id SurfaceID) *HeadlessSurface {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.surfaces[id]
}

// Surfaces returns the live surfaces in creation order.
func (h *Headless) Surfaces() []*HeadlessSurface {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*HeadlessSurface, 0, len(h.surfaces))
	for _, id := range h.order {
		if s, ok := h.surfaces[id]; ok {
			out = append(out, s)
		}
	}
	return out
}

// ReleaseOrder returns surface ids in the order they were released.
func (h *Headless) ReleaseOrder() []SurfaceID {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]SurfaceID(nil), h.released...)
}

// Close implements Backend.
func (h *Headless) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

func (h *Headless) forget(id SurfaceID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.surfaces, id)
	h.released = append(h.released, id)
}

// HeadlessState is a snapshot of what the program asked a headless surface
// to do.
type HeadlessState struct {
	Class       string
	Title       string
	Width       int
	Height      int
	X           int
	Y           int
	BufferScale int
	Visible     bool
	Hidden      bool
	Fullscreen  bool
	Cursor      Cursor
	Commits     int
	Refreshes   int
	Released    bool
}

// HeadlessSurface is the Surface created by Headless.
type HeadlessSurface struct {
	backend *Headless
	id      SurfaceID

	mu        sync.Mutex
	h         Handler
	scale     int
	state     HeadlessState
	clipboard map[ClipboardKind]string
	stall     bool
	stalled   []*os.File
}

// SurfaceID implements gpu.Target.
func (s *HeadlessSurface) SurfaceID() uint64 { return uint64(s.id) }

// ID returns the surface id used with Headless.Inject.
func (s *HeadlessSurface) ID() SurfaceID { return s.id }

// State returns a snapshot of the surface.
func (s *HeadlessSurface) State() HeadlessState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetScale changes the scale factor and injects the matching ScaleEvent.
func (s *HeadlessSurface) SetScale(factor int) {
	s.mu.Lock()
	s.scale = factor
	s.mu.Unlock()
	s.backend.Inject(s.id, ScaleEvent{Factor: factor})
}

// SetClipboardText seeds the selection buffer read by OpenClipboard.
func (s *HeadlessSurface) SetClipboardText(kind ClipboardKind, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clipboard == nil {
		s.clipboard = make(map[ClipboardKind]string)
	}
	s.clipboard[kind] = text
}

// StallClipboard makes clipboard reads hang: the pipe is handed out but its
// writer never sends data or closes until the surface is released.
func (s *HeadlessSurface) StallClipboard(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stall = on
}

// ClipboardText returns the selection buffer last written by the program.
func (s *HeadlessSurface) ClipboardText(kind ClipboardKind) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clipboard[kind]
}

func (s *HeadlessSurface) handler() Handler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.h
}

func (s *HeadlessSurface) update(fn func(st *HeadlessState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
}

func (s *HeadlessSurface) SetHandler(h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.h = h
}

func (s *HeadlessSurface) ScaleFactor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scale
}

func (s *HeadlessSurface) SetBufferScale(factor int) {
	s.update(func(st *HeadlessState) { st.BufferScale = factor })
}

func (s *HeadlessSurface) Resize(width, height int) {
	s.update(func(st *HeadlessState) { st.Width, st.Height = width, height })
}

func (s *HeadlessSurface) RefreshDecorations() {
	s.update(func(st *HeadlessState) { st.Refreshes++ })
}

func (s *HeadlessSurface) Commit() {
	s.update(func(st *HeadlessState) { st.Commits++ })
}

func (s *HeadlessSurface) Show() {
	var first bool
	var size Size
	s.update(func(st *HeadlessState) {
		first = !st.Visible
		size = Size{Width: st.Width, Height: st.Height}
		st.Visible, st.Hidden = true, false
	})
	if first && s.backend.autoConfiguring() {
		s.backend.Inject(s.id, ConfigureEvent{Size: &size})
	}
}

func (s *HeadlessSurface) Hide() {
	s.update(func(st *HeadlessState) { st.Hidden = true })
}

func (s *HeadlessSurface) SetFullscreen(on bool) {
	var changed bool
	var size Size
	s.update(func(st *HeadlessState) {
		changed = st.Fullscreen != on
		size = Size{Width: st.Width, Height: st.Height}
		st.Fullscreen = on
	})
	if changed && s.backend.autoConfiguring() {
		s.backend.Inject(s.id, ConfigureEvent{Size: &size, Fullscreen: on})
	}
}

func (s *HeadlessSurface) SetTitle(title string) {
	s.update(func(st *HeadlessState) { st.Title = title })
}

func (s *HeadlessSurface) SetCursor(c Cursor) {
	s.update(func(st *HeadlessState) { st.Cursor = c })
}

func (s *HeadlessSurface) SetPosition(x, y int) {
	s.update(func(st *HeadlessState) { st.X, st.Y = x, y })
}

// OpenClipboard serves the selection buffer over an os.Pipe, like a real
// data-device transfer.
func (s *HeadlessSurface) OpenClipboard(kind ClipboardKind, write bool) (*os.File, error) {
	if s.State().Released {
		return nil, ErrSurfaceReleased
	}
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("clipboard pipe: %w", err)
	}
	if write {
		go func() {
			defer r.Close()
			data, err := io.ReadAll(r)
			if err != nil {
				return
			}
			s.SetClipboardText(kind, string(data))
		}()
		return w, nil
	}
	s.mu.Lock()
	if s.stall {
		s.stalled = append(s.stalled, w)
		s.mu.Unlock()
		return r, nil
	}
	s.mu.Unlock()
	text := s.ClipboardText(kind)
	go func() {
		defer w.Close()
		_, _ = io.WriteString(w, text)
	}()
	return r, nil
}

func (s *HeadlessSurface) Release() error {
	s.mu.Lock()
	if s.state.Released {
		s.mu.Unlock()
		return nil
	}
	s.state.Released = true
	s.state.Visible = false
	s.h = nil
	stalled := s.stalled
	s.stalled = nil
	s.mu.Unlock()
	for _, f := range stalled {
		_ = f.Close()
	}
	s.backend.forget(s.id)
	return nil
}
