package window

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/1broseidon/winshim/internal/gpu"
	"github.com/1broseidon/winshim/internal/platform"
	"github.com/1broseidon/winshim/internal/promise"
)

const waitFor = 5 * time.Second

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	t.Cleanup(cancel)
	return ctx
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// countingProvider wraps the software provider, counting negotiations and
// optionally failing them or wrapping the contexts it hands out.
type countingProvider struct {
	base  gpu.Provider
	calls atomic.Int32
	err   error
	wrap  func(gpu.Context) gpu.Context
}

func (p *countingProvider) Negotiate(ctx context.Context, target gpu.Target, width, height int) *promise.Future[gpu.Context] {
	p.calls.Add(1)
	return promise.Go(func() (gpu.Context, error) {
		if p.err != nil {
			return nil, p.err
		}
		c, err := p.base.Negotiate(ctx, target, width, height).Await(ctx)
		if err != nil || p.wrap == nil {
			return c, err
		}
		return p.wrap(c), nil
	})
}

type harness struct {
	backend  *platform.Headless
	provider *countingProvider
	conn     *Connection

	done     chan error
	stopOnce sync.Once
	runErr   error
	surfaces int
}

func newHarness(t *testing.T, opts ...Option) *harness {
	return startHarness(t, &countingProvider{}, opts...)
}

func startHarness(t *testing.T, provider *countingProvider, opts ...Option) *harness {
	t.Helper()
	if provider.base == nil {
		provider.base = gpu.NewSoftware()
	}
	h := &harness{
		backend:  platform.NewHeadless(nil),
		provider: provider,
		done:     make(chan error, 1),
	}
	opts = append([]Option{WithGPU(provider), WithLogger(discardLogger())}, opts...)
	conn, err := New(h.backend, opts...)
	require.NoError(t, err)
	h.conn = conn

	go func() { h.done <- conn.Run(context.Background()) }()
	t.Cleanup(func() { h.stop(t) })
	return h
}

// stop terminates the loop if it is still running and returns Run's result.
func (h *harness) stop(t *testing.T) error {
	t.Helper()
	h.stopOnce.Do(func() {
		h.conn.Terminate()
		select {
		case h.runErr = <-h.done:
		case <-time.After(waitFor):
			t.Fatal("event loop did not stop")
		}
	})
	return h.runErr
}

// wait returns Run's result once the loop stops on its own.
func (h *harness) wait(t *testing.T) error {
	t.Helper()
	h.stopOnce.Do(func() {
		select {
		case h.runErr = <-h.done:
		case <-time.After(waitFor):
			t.Fatal("event loop kept running")
		}
	})
	return h.runErr
}

// sync returns once every event injected so far has been dispatched and
// every closure queued so far has run.
func (h *harness) sync(t *testing.T) {
	t.Helper()
	require.Eventually(t, h.backend.Drained, waitFor, time.Millisecond)
	_, err := h.conn.Windows().Await(testContext(t))
	require.NoError(t, err)
}

// nextSurface waits for the next surface the connection creates.
func (h *harness) nextSurface(t *testing.T) *platform.HeadlessSurface {
	t.Helper()
	h.surfaces++
	id := platform.SurfaceID(h.surfaces)
	var s *platform.HeadlessSurface
	require.Eventually(t, func() bool {
		s = h.backend.Surface(id)
		return s != nil
	}, waitFor, time.Millisecond)
	return s
}

func configure(width, height int) platform.ConfigureEvent {
	return platform.ConfigureEvent{Size: &platform.Size{Width: width, Height: height}}
}

// mapWindow creates a window and completes its first configure.
func (h *harness) mapWindow(t *testing.T, opts WindowOptions, cb Callbacks) (*Window, *platform.HeadlessSurface) {
	t.Helper()
	f := h.conn.NewWindow(opts, cb)
	s := h.nextSurface(t)
	h.backend.Inject(s.ID(), configure(opts.Width, opts.Height))
	w, err := f.Await(testContext(t))
	require.NoError(t, err)
	h.sync(t)
	return w, s
}

func lifecycleOf(t *testing.T, w *Window) Lifecycle {
	t.Helper()
	l, err := WithWindow(w.Connection(), w.ID(), func(s *State) (Lifecycle, error) {
		return s.Lifecycle(), nil
	}).Await(testContext(t))
	require.NoError(t, err)
	return l
}

type counts struct {
	Created   int
	Destroyed int
	Renders   int
	Resizes   int
}

// recorder is a Callbacks implementation that records what it sees.
type recorder struct {
	BaseCallbacks

	mu          sync.Mutex
	refuseClose bool
	counts      counts
	dims        []Dimensions
	fullscreen  []bool
	keys        []platform.KeyEvent
	mice        []platform.MouseEvent
	focus       []bool
	ctx         gpu.Context
	createErr   error
	onDestroy   func()
}

func (r *recorder) CanClose() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.refuseClose
}

func (r *recorder) setRefuseClose(v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refuseClose = v
}

func (r *recorder) Destroy() {
	r.mu.Lock()
	r.counts.Destroyed++
	fn := r.onDestroy
	r.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (r *recorder) Resize(dims Dimensions, fullscreen bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts.Resizes++
	r.dims = append(r.dims, dims)
	r.fullscreen = append(r.fullscreen, fullscreen)
}

func (r *recorder) KeyEvent(ev platform.KeyEvent, _ *Window) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, ev)
	return true
}

func (r *recorder) MouseEvent(ev platform.MouseEvent, _ *Window) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mice = append(r.mice, ev)
}

func (r *recorder) FocusChange(focused bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.focus = append(r.focus, focused)
}

func (r *recorder) Created(_ *Window, ctx gpu.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts.Created++
	r.ctx = ctx
	return r.createErr
}

func (r *recorder) Render(gpu.Frame, gpu.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts.Renders++
}

func (r *recorder) snapshot() counts {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts
}

func (r *recorder) lastDims() Dimensions {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.dims) == 0 {
		return Dimensions{}
	}
	return r.dims[len(r.dims)-1]
}

func (r *recorder) context() gpu.Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ctx
}
