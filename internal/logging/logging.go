// Package logging builds the process logger from configuration.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/1broseidon/winshim/internal/config"
)

// ParseLevel converts a config log level to a slog level. Unknown values
// map to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns a logger writing to cfg.File, or to stderr when it is empty.
// The level is read from level on every record so it can be changed while
// running. The returned closer releases the log file.
func New(cfg config.LoggingConfig, level *slog.LevelVar) (*slog.Logger, io.Closer, error) {
	var (
		out    io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
		tty              = term.IsTerminal(int(os.Stderr.Fd()))
	)
	if cfg.File != "" {
		f, err := OpenRotating(cfg.File, cfg.MaxSizeMB, cfg.MaxFiles)
		if err != nil {
			return nil, nil, err
		}
		out, closer, tty = f, f, false
	}
	return slog.New(NewHandler(out, cfg.Format, tty, level)), closer, nil
}

// NewHandler picks a handler for format. "auto" selects text when tty is
// set and JSON otherwise.
func NewHandler(w io.Writer, format string, tty bool, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	switch format {
	case "text":
		return slog.NewTextHandler(w, opts)
	case "json":
		return slog.NewJSONHandler(w, opts)
	default:
		if tty {
			return slog.NewTextHandler(w, opts)
		}
		return slog.NewJSONHandler(w, opts)
	}
}
