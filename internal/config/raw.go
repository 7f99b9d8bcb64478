package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// IncludeList supports either:
//
//	include: "/path/to/file.yaml"
//
// or:
//
//	include:
//	  - "/path/to/file.yaml"
//	  - "/path/to/dir"
type IncludeList []string

func (l *IncludeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case 0:
		*l = nil
		return nil
	case yaml.ScalarNode:
		if value.Tag != "!!str" {
			return fmt.Errorf("include must be a string or list of strings")
		}
		*l = []string{value.Value}
		return nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode || item.Tag != "!!str" {
				return fmt.Errorf("include entries must be strings")
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("include must be a string or list of strings")
	}
}

type RawLoggingConfig struct {
	Format    *string `yaml:"format"`
	File      *string `yaml:"file"`
	MaxSizeMB *int    `yaml:"max_size_mb"`
	MaxFiles  *int    `yaml:"max_files"`
}

type RawWindowConfig struct {
	Class     *string `yaml:"class"`
	Title     *string `yaml:"title"`
	Width     *int    `yaml:"width"`
	Height    *int    `yaml:"height"`
	MinWidth  *int    `yaml:"min_width"`
	MinHeight *int    `yaml:"min_height"`
}

type RawIPCConfig struct {
	Enabled          *bool   `yaml:"enabled"`
	Socket           *string `yaml:"socket"`
	RequestTimeoutMs *int    `yaml:"request_timeout_ms"`
}

// RawConfig mirrors Config with every field optional so that files can be
// layered: a nil field leaves the value beneath it untouched.
type RawConfig struct {
	Include IncludeList `yaml:"include"`

	Backend *string `yaml:"backend"`
	Display *string `yaml:"display"`
	Scale   *int    `yaml:"scale"`

	IdleTimeoutMs      *int `yaml:"idle_timeout_ms"`
	ClipboardTimeoutMs *int `yaml:"clipboard_timeout_ms"`
	NegotiateTimeoutMs *int `yaml:"negotiate_timeout_ms"`

	LogLevel *string          `yaml:"log_level"`
	Logging  *RawLoggingConfig `yaml:"logging"`

	Window *RawWindowConfig `yaml:"window"`
	IPC    *RawIPCConfig    `yaml:"ipc"`
}

func pick[T any](base, override *T) *T {
	if override != nil {
		return override
	}
	return base
}

func (r RawConfig) merge(o RawConfig) RawConfig {
	out := r
	out.Include = nil
	out.Backend = pick(r.Backend, o.Backend)
	out.Display = pick(r.Display, o.Display)
	out.Scale = pick(r.Scale, o.Scale)
	out.IdleTimeoutMs = pick(r.IdleTimeoutMs, o.IdleTimeoutMs)
	out.ClipboardTimeoutMs = pick(r.ClipboardTimeoutMs, o.ClipboardTimeoutMs)
	out.NegotiateTimeoutMs = pick(r.NegotiateTimeoutMs, o.NegotiateTimeoutMs)
	out.LogLevel = pick(r.LogLevel, o.LogLevel)
	out.Logging = mergeRawLogging(r.Logging, o.Logging)
	out.Window = mergeRawWindow(r.Window, o.Window)
	out.IPC = mergeRawIPC(r.IPC, o.IPC)
	return out
}

func mergeRawLogging(base, o *RawLoggingConfig) *RawLoggingConfig {
	if o == nil {
		return base
	}
	if base == nil {
		cp := *o
		return &cp
	}
	return &RawLoggingConfig{
		Format:    pick(base.Format, o.Format),
		File:      pick(base.File, o.File),
		MaxSizeMB: pick(base.MaxSizeMB, o.MaxSizeMB),
		MaxFiles:  pick(base.MaxFiles, o.MaxFiles),
	}
}

func mergeRawWindow(base, o *RawWindowConfig) *RawWindowConfig {
	if o == nil {
		return base
	}
	if base == nil {
		cp := *o
		return &cp
	}
	return &RawWindowConfig{
		Class:     pick(base.Class, o.Class),
		Title:     pick(base.Title, o.Title),
		Width:     pick(base.Width, o.Width),
		Height:    pick(base.Height, o.Height),
		MinWidth:  pick(base.MinWidth, o.MinWidth),
		MinHeight: pick(base.MinHeight, o.MinHeight),
	}
}

func mergeRawIPC(base, o *RawIPCConfig) *RawIPCConfig {
	if o == nil {
		return base
	}
	if base == nil {
		cp := *o
		return &cp
	}
	return &RawIPCConfig{
		Enabled:          pick(base.Enabled, o.Enabled),
		Socket:           pick(base.Socket, o.Socket),
		RequestTimeoutMs: pick(base.RequestTimeoutMs, o.RequestTimeoutMs),
	}
}
