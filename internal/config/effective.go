package config

import (
	"fmt"
	"strings"
)

// ValidationError reports an invalid value, optionally with the file position
// that set it.
type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// BuildEffectiveConfig layers raw over the defaults.
func BuildEffectiveConfig(raw RawConfig) (*Config, error) {
	cfg := DefaultConfig()

	if raw.Backend != nil {
		cfg.Backend = strings.ToLower(strings.TrimSpace(*raw.Backend))
	}
	set(&cfg.Display, raw.Display)
	set(&cfg.Scale, raw.Scale)
	set(&cfg.IdleTimeoutMs, raw.IdleTimeoutMs)
	set(&cfg.ClipboardTimeoutMs, raw.ClipboardTimeoutMs)
	set(&cfg.NegotiateTimeoutMs, raw.NegotiateTimeoutMs)
	if raw.LogLevel != nil {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(*raw.LogLevel))
	}

	if l := raw.Logging; l != nil {
		set(&cfg.Logging.Format, l.Format)
		set(&cfg.Logging.File, l.File)
		set(&cfg.Logging.MaxSizeMB, l.MaxSizeMB)
		set(&cfg.Logging.MaxFiles, l.MaxFiles)
	}
	if w := raw.Window; w != nil {
		set(&cfg.Window.Class, w.Class)
		set(&cfg.Window.Title, w.Title)
		set(&cfg.Window.Width, w.Width)
		set(&cfg.Window.Height, w.Height)
		set(&cfg.Window.MinWidth, w.MinWidth)
		set(&cfg.Window.MinHeight, w.MinHeight)
	}
	if i := raw.IPC; i != nil {
		set(&cfg.IPC.Enabled, i.Enabled)
		set(&cfg.IPC.Socket, i.Socket)
		set(&cfg.IPC.RequestTimeoutMs, i.RequestTimeoutMs)
	}

	if strings.TrimSpace(cfg.Window.Class) == "" {
		return nil, &ValidationError{Path: "window.class", Err: fmt.Errorf("window.class must not be empty")}
	}
	return cfg, nil
}
