package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend names accepted by the backend setting.
const (
	BackendAuto     = "auto"
	BackendX11      = "x11"
	BackendHeadless = "headless"
)

const (
	DefaultIdleTimeoutMs      = 2500
	DefaultClipboardTimeoutMs = 3000
	DefaultNegotiateTimeoutMs = 10000
	DefaultRequestTimeoutMs   = 5000

	// MaxScale bounds the forced scale factor.
	MaxScale = 8
)

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	// Format selects the handler: auto (text on a terminal, JSON otherwise), text or json.
	Format string `yaml:"format,omitempty"`
	// File redirects log output. Empty means stderr.
	File string `yaml:"file,omitempty"`
	// MaxSizeMB rotates File once it grows past this size.
	MaxSizeMB int `yaml:"max_size_mb,omitempty"`
	// MaxFiles is the number of rotated files kept.
	MaxFiles int `yaml:"max_files,omitempty"`
}

// WindowConfig describes the window opened by "winshim run".
type WindowConfig struct {
	Class     string `yaml:"class"`
	Title     string `yaml:"title"`
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	MinWidth  int    `yaml:"min_width,omitempty"`
	MinHeight int    `yaml:"min_height,omitempty"`
}

// IPCConfig configures the control socket.
type IPCConfig struct {
	Enabled bool `yaml:"enabled"`
	// Socket overrides the default socket path.
	Socket string `yaml:"socket,omitempty"`
	// RequestTimeoutMs bounds how long a request waits on the event loop.
	RequestTimeoutMs int `yaml:"request_timeout_ms,omitempty"`
}

// Config is the effective configuration.
type Config struct {
	Backend string `yaml:"backend"`
	// Display overrides $DISPLAY for the X11 backend.
	Display string `yaml:"display,omitempty"`
	// Scale forces the scale factor. Zero derives it from the monitor.
	Scale int `yaml:"scale,omitempty"`

	IdleTimeoutMs      int `yaml:"idle_timeout_ms"`
	ClipboardTimeoutMs int `yaml:"clipboard_timeout_ms"`
	NegotiateTimeoutMs int `yaml:"negotiate_timeout_ms"`

	LogLevel string        `yaml:"log_level"`
	Logging  LoggingConfig `yaml:"logging,omitempty"`

	Window WindowConfig `yaml:"window"`
	IPC    IPCConfig    `yaml:"ipc"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Backend:            BackendAuto,
		IdleTimeoutMs:      DefaultIdleTimeoutMs,
		ClipboardTimeoutMs: DefaultClipboardTimeoutMs,
		NegotiateTimeoutMs: DefaultNegotiateTimeoutMs,
		LogLevel:           "info",
		Logging:            LoggingConfig{Format: "auto", MaxSizeMB: 10, MaxFiles: 3},
		Window: WindowConfig{
			Class:  "winshim",
			Title:  "winshim",
			Width:  800,
			Height: 600,
		},
		IPC: IPCConfig{
			Enabled:          true,
			RequestTimeoutMs: DefaultRequestTimeoutMs,
		},
	}
}

func millis(ms, def int) time.Duration {
	if ms <= 0 {
		ms = def
	}
	return time.Duration(ms) * time.Millisecond
}

// IdleTimeout is the longest the event loop sleeps without a timer due.
func (c *Config) IdleTimeout() time.Duration {
	return millis(c.IdleTimeoutMs, DefaultIdleTimeoutMs)
}

// ClipboardTimeout bounds a single clipboard transfer.
func (c *Config) ClipboardTimeout() time.Duration {
	return millis(c.ClipboardTimeoutMs, DefaultClipboardTimeoutMs)
}

// NegotiateTimeout bounds GPU context negotiation for a new window.
func (c *Config) NegotiateTimeout() time.Duration {
	return millis(c.NegotiateTimeoutMs, DefaultNegotiateTimeoutMs)
}

// RequestTimeout bounds an IPC request.
func (c *Config) RequestTimeout() time.Duration {
	return millis(c.IPC.RequestTimeoutMs, DefaultRequestTimeoutMs)
}

// GetLoggingConfig returns the logging configuration with defaults applied.
func (c *Config) GetLoggingConfig() LoggingConfig {
	if c == nil {
		return LoggingConfig{Format: "auto", MaxSizeMB: 10, MaxFiles: 3}
	}
	cfg := c.Logging
	if cfg.Format == "" {
		cfg.Format = "auto"
	}
	if strings.HasPrefix(cfg.File, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.File = filepath.Join(home, cfg.File[2:])
		}
	}
	return cfg
}

// Validate checks the configuration for values the runtime cannot use.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendAuto, BackendX11, BackendHeadless:
	default:
		return &ValidationError{Path: "backend", Err: fmt.Errorf("backend must be one of: auto, x11, headless")}
	}
	if c.Scale < 0 || c.Scale > MaxScale {
		return &ValidationError{Path: "scale", Err: fmt.Errorf("scale must be between 0 and %d", MaxScale)}
	}
	if c.IdleTimeoutMs < 0 {
		return &ValidationError{Path: "idle_timeout_ms", Err: fmt.Errorf("idle_timeout_ms must be >= 0")}
	}
	if c.ClipboardTimeoutMs < 0 {
		return &ValidationError{Path: "clipboard_timeout_ms", Err: fmt.Errorf("clipboard_timeout_ms must be >= 0")}
	}
	if c.NegotiateTimeoutMs < 0 {
		return &ValidationError{Path: "negotiate_timeout_ms", Err: fmt.Errorf("negotiate_timeout_ms must be >= 0")}
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warn, error")}
	}
	switch c.Logging.Format {
	case "", "auto", "text", "json":
	default:
		return &ValidationError{Path: "logging.format", Err: fmt.Errorf("logging.format must be one of: auto, text, json")}
	}
	if c.Logging.MaxSizeMB < 0 {
		return &ValidationError{Path: "logging.max_size_mb", Err: fmt.Errorf("logging.max_size_mb must be >= 0")}
	}
	if c.Logging.MaxFiles < 0 {
		return &ValidationError{Path: "logging.max_files", Err: fmt.Errorf("logging.max_files must be >= 0")}
	}
	if c.Window.Width <= 0 {
		return &ValidationError{Path: "window.width", Err: fmt.Errorf("window.width must be > 0")}
	}
	if c.Window.Height <= 0 {
		return &ValidationError{Path: "window.height", Err: fmt.Errorf("window.height must be > 0")}
	}
	if c.Window.MinWidth < 0 || c.Window.MinWidth > c.Window.Width {
		return &ValidationError{Path: "window.min_width", Err: fmt.Errorf("window.min_width must be between 0 and window.width")}
	}
	if c.Window.MinHeight < 0 || c.Window.MinHeight > c.Window.Height {
		return &ValidationError{Path: "window.min_height", Err: fmt.Errorf("window.min_height must be between 0 and window.height")}
	}
	if c.IPC.RequestTimeoutMs < 0 {
		return &ValidationError{Path: "ipc.request_timeout_ms", Err: fmt.Errorf("ipc.request_timeout_ms must be >= 0")}
	}
	return nil
}

// Save writes the configuration to the standard location.
//
// Note: this marshals the effective config and will not preserve comments or
// include structure from the original YAML.
func (c *Config) Save() error {
	path, err := DefaultConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the configuration to path, creating its directory.
func (c *Config) SaveTo(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
