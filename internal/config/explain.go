package config

import (
	"fmt"
	"slices"
	"strings"
)

var explainers = map[string]func(*Config) any{
	"backend":                func(c *Config) any { return c.Backend },
	"display":                func(c *Config) any { return c.Display },
	"scale":                  func(c *Config) any { return c.Scale },
	"idle_timeout_ms":        func(c *Config) any { return c.IdleTimeoutMs },
	"clipboard_timeout_ms":   func(c *Config) any { return c.ClipboardTimeoutMs },
	"negotiate_timeout_ms":   func(c *Config) any { return c.NegotiateTimeoutMs },
	"log_level":              func(c *Config) any { return c.LogLevel },
	"logging":                func(c *Config) any { return c.Logging },
	"logging.format":         func(c *Config) any { return c.Logging.Format },
	"logging.file":           func(c *Config) any { return c.Logging.File },
	"logging.max_size_mb":    func(c *Config) any { return c.Logging.MaxSizeMB },
	"logging.max_files":      func(c *Config) any { return c.Logging.MaxFiles },
	"window":                 func(c *Config) any { return c.Window },
	"window.class":           func(c *Config) any { return c.Window.Class },
	"window.title":           func(c *Config) any { return c.Window.Title },
	"window.width":           func(c *Config) any { return c.Window.Width },
	"window.height":          func(c *Config) any { return c.Window.Height },
	"window.min_width":       func(c *Config) any { return c.Window.MinWidth },
	"window.min_height":      func(c *Config) any { return c.Window.MinHeight },
	"ipc":                    func(c *Config) any { return c.IPC },
	"ipc.enabled":            func(c *Config) any { return c.IPC.Enabled },
	"ipc.socket":             func(c *Config) any { return c.IPC.Socket },
	"ipc.request_timeout_ms": func(c *Config) any { return c.IPC.RequestTimeoutMs },
}

// ExplainPaths lists the paths Explain understands, sorted.
func ExplainPaths() []string {
	out := make([]string, 0, len(explainers))
	for p := range explainers {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// Explain returns the effective value at the given YAML-like path and where
// it came from: a file position, an environment variable, or the defaults.
func Explain(res *LoadResult, path string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, fmt.Errorf("no config loaded")
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, Source{}, fmt.Errorf("path is empty")
	}

	get, ok := explainers[path]
	if !ok {
		return nil, Source{}, fmt.Errorf("unknown path %q", path)
	}
	value := get(res.Config)

	if src, ok := res.Sources[path]; ok {
		return value, src, nil
	}
	return value, Source{Kind: SourceDefault, Name: "defaults"}, nil
}

// FormatSource renders src for display.
func FormatSource(src Source) string {
	switch src.Kind {
	case SourceFile:
		return fmt.Sprintf("%s:%d:%d", src.File, src.Line, src.Column)
	case SourceEnv:
		return "$" + src.Name
	default:
		return string(SourceDefault)
	}
}
