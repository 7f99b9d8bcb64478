package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/1broseidon/winshim/internal/config"
	"github.com/1broseidon/winshim/internal/ipc"
	"github.com/1broseidon/winshim/internal/logging"
	"github.com/1broseidon/winshim/internal/mcp"
	"github.com/1broseidon/winshim/internal/platform"
	"github.com/1broseidon/winshim/internal/runtimepath"
	"github.com/1broseidon/winshim/internal/window"
	"github.com/1broseidon/winshim/internal/x11"
)

func runRun(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("path", "", configPathUsage)
	backendName := fs.String("backend", "", "Display backend: auto, x11 or headless (overrides config)")
	withMCP := fs.Bool("mcp", false, "Serve MCP tools on stdin/stdout")
	noWatch := fs.Bool("no-watch", false, "Do not reload the config file when it changes")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: winshim run [--path PATH] [--backend NAME] [--mcp] [--no-watch]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Open a window and run the event loop in the foreground.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Keys: q/Escape close, f fullscreen, space recolor,")
		fmt.Fprintln(os.Stderr, "      ctrl+c copy color, ctrl+v paste into title")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	res, err := loadConfig(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}
	cfg := res.Config
	if *backendName != "" {
		cfg.Backend = *backendName
		if err := cfg.Validate(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
	}

	level := new(slog.LevelVar)
	level.Set(logging.ParseLevel(cfg.LogLevel))
	logger, closer, err := logging.New(cfg.GetLoggingConfig(), level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log: %v\n", err)
		return 1
	}
	defer closer.Close()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, res, level, logger, runOptions{mcp: *withMCP, watch: !*noWatch}); err != nil {
		logger.Error("winshim stopped", "error", err)
		return 1
	}
	return 0
}

type runOptions struct {
	mcp   bool
	watch bool
}

// openBackend connects to the configured display. "auto" falls back to the
// headless backend when no X server is reachable.
func openBackend(cfg *config.Config, logger *slog.Logger) (platform.Backend, error) {
	switch cfg.Backend {
	case config.BackendHeadless:
		return newHeadless(), nil
	case config.BackendX11:
		b, err := x11.Open(x11.Options{Display: cfg.Display, Scale: cfg.Scale, Logger: logger})
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		b, err := x11.Open(x11.Options{Display: cfg.Display, Scale: cfg.Scale, Logger: logger})
		if err != nil {
			logger.Warn("X11 unavailable, using headless backend", "error", err)
			return newHeadless(), nil
		}
		return b, nil
	}
}

func newHeadless() *platform.Headless {
	h := platform.NewHeadless(nil)
	h.SetAutoConfigure(true)
	return h
}

func windowOptions(cfg *config.Config) window.WindowOptions {
	return window.WindowOptions{
		Class:     cfg.Window.Class,
		Title:     cfg.Window.Title,
		Width:     cfg.Window.Width,
		Height:    cfg.Window.Height,
		MinWidth:  cfg.Window.MinWidth,
		MinHeight: cfg.Window.MinHeight,
	}
}

// serve runs the event loop and every surface attached to it until the
// window closes, ctx is cancelled, or one of them fails.
func serve(ctx context.Context, res *config.LoadResult, level *slog.LevelVar, logger *slog.Logger, opts runOptions) error {
	cfg := res.Config
	backend, err := openBackend(cfg, logger)
	if err != nil {
		return fmt.Errorf("open display: %w", err)
	}
	conn, err := window.New(backend,
		window.WithLogger(logger),
		window.WithIdleTimeout(cfg.IdleTimeout()),
		window.WithClipboardTimeout(cfg.ClipboardTimeout()),
		window.WithNegotiateTimeout(cfg.NegotiateTimeout()),
	)
	if err != nil {
		backend.Close()
		return err
	}
	logger.Info("winshim starting", "backend", conn.BackendName(), "config", res.Path)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	rt := &runtimeState{conn: conn, level: level, logger: logger, path: res.Path, cfg: cfg}

	g.Go(func() error {
		// Everything else winds down when the loop returns.
		defer cancel()
		return conn.Run(gctx)
	})

	g.Go(func() error {
		app := newDemoApp(logger, conn.Terminate)
		w, err := conn.NewWindow(windowOptions(cfg), app).Await(gctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, window.ErrConnectionClosed) {
				return nil
			}
			return fmt.Errorf("open window: %w", err)
		}
		rt.setWindow(w)
		logger.Info("window ready", "window", uint64(w.ID()))
		return nil
	})

	if cfg.IPC.Enabled {
		socket, err := runtimepath.Resolve(cfg.IPC.Socket)
		if err != nil {
			cancel()
			g.Wait()
			return err
		}
		srv, err := ipc.NewServer(conn, ipc.Options{
			SocketPath: socket,
			Timeout:    cfg.RequestTimeout(),
			Reload:     rt.reload,
			ConfigPath: res.Path,
			Logger:     logger,
		})
		if err != nil {
			cancel()
			g.Wait()
			return err
		}
		rt.ipc = srv
		g.Go(func() error { return srv.Serve(gctx) })
	}

	if opts.mcp {
		g.Go(func() error {
			srv := mcp.NewServer(conn, mcp.Options{Timeout: cfg.RequestTimeout(), Logger: logger})
			err := srv.Run(gctx)
			// The client hanging up ends the session.
			conn.Terminate()
			if err != nil && gctx.Err() == nil {
				return fmt.Errorf("mcp: %w", err)
			}
			return nil
		})
	}

	if opts.watch {
		g.Go(func() error {
			err := config.Watch(gctx, res.Path, config.DefaultWatchDebounce, func(next *config.LoadResult, err error) {
				if err != nil {
					logger.Warn("config reload failed, keeping previous config", "error", err)
					return
				}
				rt.apply(next.Config)
			})
			if err != nil {
				logger.Warn("config watch disabled", "error", err)
			}
			return nil
		})
	}

	return g.Wait()
}

// runtimeState holds what a config reload may change while running.
type runtimeState struct {
	conn   *window.Connection
	level  *slog.LevelVar
	logger *slog.Logger
	path   string

	mu  sync.Mutex
	cfg *config.Config
	ipc *ipc.Server
	win *window.Window
}

func (r *runtimeState) setWindow(w *window.Window) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.win = w
}

// reload is the IPC RELOAD hook.
func (r *runtimeState) reload() error {
	res, err := config.LoadFromPath(r.path)
	if err != nil {
		return err
	}
	r.apply(res.Config)
	return nil
}

// apply adopts the settings that can change without a restart and logs the
// ones that cannot.
func (r *runtimeState) apply(next *config.Config) {
	r.mu.Lock()
	prev := r.cfg
	r.cfg = next
	srv := r.ipc
	w := r.win
	r.mu.Unlock()

	r.level.Set(logging.ParseLevel(next.LogLevel))
	r.conn.SetIdleTimeout(next.IdleTimeout())
	if srv != nil {
		srv.SetTimeout(next.RequestTimeout())
	}
	if w != nil && next.Window.Title != prev.Window.Title {
		w.SetTitle(next.Window.Title)
	}

	for _, field := range restartRequired(prev, next) {
		r.logger.Warn("config change requires restart", "field", field)
	}
	r.logger.Info("configuration reloaded", "log_level", next.LogLevel, "idle_timeout", next.IdleTimeout())
}

// restartRequired lists the fields that differ between prev and next but
// are only read at startup.
func restartRequired(prev, next *config.Config) []string {
	var fields []string
	if prev.Backend != next.Backend {
		fields = append(fields, "backend")
	}
	if prev.Display != next.Display {
		fields = append(fields, "display")
	}
	if prev.Scale != next.Scale {
		fields = append(fields, "scale")
	}
	if prev.ClipboardTimeoutMs != next.ClipboardTimeoutMs {
		fields = append(fields, "clipboard_timeout_ms")
	}
	if prev.NegotiateTimeoutMs != next.NegotiateTimeoutMs {
		fields = append(fields, "negotiate_timeout_ms")
	}
	pw, nw := prev.Window, next.Window
	pw.Title, nw.Title = "", ""
	if pw != nw {
		fields = append(fields, "window")
	}
	if prev.Logging != next.Logging {
		fields = append(fields, "logging")
	}
	if prev.IPC.Enabled != next.IPC.Enabled || prev.IPC.Socket != next.IPC.Socket {
		fields = append(fields, "ipc")
	}
	return fields
}
