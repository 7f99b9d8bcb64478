package window

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/1broseidon/winshim/internal/gpu"
	"github.com/1broseidon/winshim/internal/platform"
	"github.com/1broseidon/winshim/internal/promise"
	"github.com/1broseidon/winshim/internal/spawn"
	"github.com/1broseidon/winshim/internal/timerlist"
)

const (
	// DefaultIdleTimeout bounds how long the loop sleeps when no timer is
	// pending.
	DefaultIdleTimeout = 2500 * time.Millisecond
	// DefaultClipboardTimeout bounds each wait on a clipboard pipe.
	DefaultClipboardTimeout = 3 * time.Second
	// DefaultNegotiateTimeout bounds presentation context negotiation.
	DefaultNegotiateTimeout = 10 * time.Second
)

var (
	// ErrConnectionClosed is returned for work submitted after the
	// connection has shut down.
	ErrConnectionClosed = errors.New("window: connection closed")
	// ErrWindowNotFound rejects work aimed at a window that no longer exists.
	ErrWindowNotFound = errors.New("window: no such window")
	// ErrWindowClosed rejects a pending NewWindow when the window is closed
	// before it finished mapping.
	ErrWindowClosed = errors.New("window: window closed")
	// ErrNegotiation wraps presentation context negotiation failures.
	ErrNegotiation = errors.New("window: presentation negotiation failed")
	// ErrPresentation is fatal: a frame could not be acquired even after
	// recreating the presentation surface.
	ErrPresentation = errors.New("window: presentation failed")
	// ErrAlreadyRunning is returned by a second concurrent Run.
	ErrAlreadyRunning = errors.New("window: event loop already running")
	// ErrCallbacksType rejects Apply when the window's callbacks are not of
	// the requested type.
	ErrCallbacksType = errors.New("window: callbacks have a different type")
)

// Option configures a Connection.
type Option func(*Connection)

// WithLogger sets the logger. The default is slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(c *Connection) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithIdleTimeout sets the longest sleep between loop iterations.
func WithIdleTimeout(d time.Duration) Option {
	return func(c *Connection) {
		if d > 0 {
			c.idleTimeout.Store(int64(d))
		}
	}
}

// WithClipboardTimeout sets the per-wait clipboard pipe timeout.
func WithClipboardTimeout(d time.Duration) Option {
	return func(c *Connection) {
		if d > 0 {
			c.clipboardTimeout = d
		}
	}
}

// WithNegotiateTimeout bounds presentation context negotiation.
func WithNegotiateTimeout(d time.Duration) Option {
	return func(c *Connection) {
		if d > 0 {
			c.negotiateTimeout = d
		}
	}
}

// WithGPU overrides the backend's presentation provider.
func WithGPU(p gpu.Provider) Option {
	return func(c *Connection) {
		if p != nil {
			c.provider = p
		}
	}
}

// Connection runs the event loop for one display backend and owns every
// window created on it. Window state is only touched on the goroutine
// executing Run; everything else reaches it through the spawn queue.
type Connection struct {
	backend  platform.Backend
	provider gpu.Provider
	logger   *slog.Logger

	timers   *timerlist.List
	queue    *spawn.Queue
	registry *registry

	idleTimeout      atomic.Int64
	clipboardTimeout time.Duration
	negotiateTimeout time.Duration

	nextID      atomic.Uint64
	running     atomic.Bool
	terminating atomic.Bool
	shutdown    atomic.Bool

	// loop goroutine only
	fatal error
}

// New creates a connection on backend. Run must be called to process
// events.
func New(backend platform.Backend, opts ...Option) (*Connection, error) {
	if backend == nil {
		return nil, errors.New("window: nil backend")
	}
	c := &Connection{
		backend:          backend,
		provider:         backend.GPU(),
		logger:           slog.Default(),
		timers:           timerlist.New(),
		registry:         newRegistry(),
		clipboardTimeout: DefaultClipboardTimeout,
		negotiateTimeout: DefaultNegotiateTimeout,
	}
	c.idleTimeout.Store(int64(DefaultIdleTimeout))
	for _, opt := range opts {
		opt(c)
	}
	if c.provider == nil {
		c.provider = gpu.NewSoftware()
	}
	c.logger = c.logger.With("backend", backend.Name())
	c.queue = spawn.New(c.logger)
	return c, nil
}

// Logger returns the connection's logger.
func (c *Connection) Logger() *slog.Logger { return c.logger }

// BackendName names the display backend.
func (c *Connection) BackendName() string { return c.backend.Name() }

// IdleTimeout returns the longest sleep between loop iterations.
func (c *Connection) IdleTimeout() time.Duration {
	return time.Duration(c.idleTimeout.Load())
}

// SetIdleTimeout changes the idle ceiling. It takes effect on the next
// iteration. Non-positive values are ignored.
func (c *Connection) SetIdleTimeout(d time.Duration) {
	if d > 0 {
		c.idleTimeout.Store(int64(d))
	}
}

// Spawn queues fn to run on the loop goroutine. It is safe to call from any
// goroutine, including from within the loop.
func (c *Connection) Spawn(fn func()) error {
	if err := c.queue.Enqueue(fn); err != nil {
		if errors.Is(err, spawn.ErrClosed) {
			return ErrConnectionClosed
		}
		return err
	}
	return nil
}

// ScheduleTimer runs fn on the loop goroutine every interval, starting on
// the next iteration.
func (c *Connection) ScheduleTimer(interval time.Duration, fn func()) error {
	return c.Spawn(func() {
		c.timers.Insert(timerlist.Entry{
			Callback: c.guard("timer", fn),
			Due:      time.Now(),
			Interval: interval,
		})
	})
}

// Terminate asks Run to return after the current iteration. It is safe to
// call from any goroutine and more than once.
func (c *Connection) Terminate() {
	if c.terminating.CompareAndSwap(false, true) {
		c.logger.Debug("terminate requested")
	}
	_ = c.queue.Enqueue(func() {})
}

// Run processes events until Terminate is called, ctx is done, or a fatal
// error occurs. On return every window has been torn down and the backend
// closed. Run locks the calling goroutine to its OS thread.
func (c *Connection) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	stop := context.AfterFunc(ctx, c.Terminate)
	defer stop()

	c.logger.Info("event loop started")
	err := c.loop()
	if terr := c.teardown(); terr != nil {
		c.logger.Warn("teardown", "error", terr)
		if err == nil {
			err = terr
		}
	}
	if err != nil {
		c.logger.Error("event loop stopped", "error", err)
	} else {
		c.logger.Info("event loop stopped")
	}
	return err
}

func (c *Connection) loop() error {
	if err := c.flush(); err != nil {
		return err
	}
	for !c.terminating.Load() {
		c.timers.RunReady(time.Now())

		period := c.IdleTimeout()
		if c.queue.Run() {
			// More work may have been queued; poll without sleeping.
			period = 0
		} else if d, ok := c.timers.TimeUntilDue(time.Now()); ok {
			period = d
		}
		if c.fatal != nil {
			return c.fatal
		}
		if c.terminating.Load() {
			break
		}

		if err := c.flush(); err != nil {
			return err
		}
		if err := c.wait(period); err != nil {
			return err
		}
		if c.fatal != nil {
			return c.fatal
		}
	}
	return nil
}

// wait blocks until the backend has events, work is queued, or period
// elapses. A zero period only polls.
func (c *Connection) wait(period time.Duration) error {
	if period <= 0 {
		select {
		case <-c.backend.Ready():
			return c.dispatch()
		default:
			return nil
		}
	}
	t := time.NewTimer(period)
	defer t.Stop()
	select {
	case <-c.backend.Ready():
		return c.dispatch()
	case <-c.queue.Wake():
	case <-t.C:
	}
	return nil
}

func (c *Connection) dispatch() error {
	if err := c.backend.Dispatch(); err != nil {
		if transient(err) {
			return nil
		}
		return fmt.Errorf("dispatch %s events: %w", c.backend.Name(), err)
	}
	return nil
}

func (c *Connection) flush() error {
	if err := c.backend.Flush(); err != nil {
		if transient(err) {
			return nil
		}
		return fmt.Errorf("flush %s connection: %w", c.backend.Name(), err)
	}
	return nil
}

func transient(err error) bool {
	return errors.Is(err, platform.ErrWouldBlock) ||
		errors.Is(err, syscall.EAGAIN) ||
		errors.Is(err, syscall.EINTR)
}

// fail records a fatal error; the loop returns it after the current step.
func (c *Connection) fail(err error) {
	if c.fatal == nil {
		c.fatal = err
	}
}

// teardown releases every window in reverse creation order, settles any
// queued work, then closes the backend.
func (c *Connection) teardown() error {
	c.shutdown.Store(true)
	c.queue.Close()

	var errs []error
	ids := c.registry.ids()
	for i := len(ids) - 1; i >= 0; i-- {
		s := c.registry.get(ids[i])
		if err := s.teardown(); err != nil {
			errs = append(errs, fmt.Errorf("window %d: %w", s.id, err))
		}
		c.registry.remove(s.id)
	}
	// Work queued before Close still runs; it finds no windows and rejects.
	c.queue.Run()

	if err := c.backend.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close %s backend: %w", c.backend.Name(), err))
	}
	return errors.Join(errs...)
}

func (c *Connection) guard(what string, fn func()) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("recovered panic", "in", what, "panic", r)
			}
		}()
		fn()
	}
}

// WindowOptions describes a new window. Width and Height are in pixels at
// scale factor 1.
type WindowOptions struct {
	Class     string
	Title     string
	Width     int
	Height    int
	MinWidth  int
	MinHeight int
}

// Info is a snapshot of one window.
type Info struct {
	ID         ID         `json:"id"`
	Title      string     `json:"title"`
	Dimensions Dimensions `json:"dimensions"`
	Fullscreen bool       `json:"fullscreen"`
	Lifecycle  Lifecycle  `json:"lifecycle"`
}

// NewWindow creates and maps a window. The future resolves once the window
// has been configured and its presentation context negotiated, and rejects
// if either fails.
func (c *Connection) NewWindow(opts WindowOptions, cb Callbacks) *promise.Future[*Window] {
	p, f := promise.New[*Window]()
	if cb == nil {
		cb = BaseCallbacks{}
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		p.Reject(fmt.Errorf("window: invalid size %dx%d", opts.Width, opts.Height))
		return f
	}
	if err := c.Spawn(func() { c.createWindow(opts, cb, p) }); err != nil {
		p.Reject(err)
	}
	return f
}

func (c *Connection) createWindow(opts WindowOptions, cb Callbacks, p *promise.Promise[*Window]) {
	if c.shutdown.Load() {
		p.Reject(ErrConnectionClosed)
		return
	}
	surface, err := c.backend.CreateSurface(platform.SurfaceOptions{
		Class:     opts.Class,
		Title:     opts.Title,
		Width:     opts.Width,
		Height:    opts.Height,
		MinWidth:  opts.MinWidth,
		MinHeight: opts.MinHeight,
	})
	if err != nil {
		p.Reject(fmt.Errorf("create surface: %w", err))
		return
	}
	id := ID(c.nextID.Add(1))
	s := newState(c, id, surface, opts, cb, p)
	surface.SetHandler(s.handleEvent)
	c.registry.insert(s)
	s.logger.Debug("window created", "class", opts.Class, "title", opts.Title)

	// The platform sends the first configure once the surface is mapped.
	s.lifecycle = Configuring
	surface.Show()
	surface.Commit()
}

// Windows returns a snapshot of every live window, in creation order.
func (c *Connection) Windows() *promise.Future[[]Info] {
	p, f := promise.New[[]Info]()
	err := c.Spawn(func() {
		ids := c.registry.ids()
		out := make([]Info, 0, len(ids))
		for _, id := range ids {
			out = append(out, c.registry.get(id).info())
		}
		p.Resolve(out)
	})
	if err != nil {
		p.Reject(err)
	}
	return f
}

// Window returns a handle for id without checking that it exists. Operations
// on a missing window reject with ErrWindowNotFound.
func (c *Connection) Window(id ID) *Window {
	return &Window{id: id, conn: c}
}
