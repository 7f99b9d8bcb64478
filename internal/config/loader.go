package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

type SourceKind string

const (
	SourceDefault SourceKind = "default"
	SourceEnv     SourceKind = "env"
	SourceFile    SourceKind = "file"
)

type Source struct {
	Kind   SourceKind
	Name   string // defaults set or environment variable
	File   string
	Line   int
	Column int
}

type LoadResult struct {
	Config  *Config
	Sources map[string]Source // YAML-path -> last writer source (file only)
	Files   []string          // all loaded files, in load order
	Path    string            // the top-level file that was requested
}

func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "winshim", "config.yaml"), nil
}

// Load reads the merged configuration from the standard location.
func Load() (*Config, error) {
	res, err := LoadWithSources()
	if err != nil {
		return nil, err
	}
	return res.Config, nil
}

// LoadWithSources loads config and returns file-level sources for introspection.
func LoadWithSources() (*LoadResult, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads path and everything it includes. A missing file yields
// the defaults.
func LoadFromPath(path string) (*LoadResult, error) {
	ld := &loader{seen: map[string]struct{}{}}

	var raw RawConfig
	sources := map[string]Source{}
	exists, err := pathExists(path)
	if err != nil {
		return nil, err
	}
	if exists {
		l, err := ld.load(path, nil)
		if err != nil {
			return nil, err
		}
		raw = l.raw
		sources = l.sources
	}

	envRaw, envSources := rawFromEnv(os.LookupEnv)
	raw = raw.merge(envRaw)
	for key, src := range envSources {
		sources[key] = src
	}

	cfg, err := BuildEffectiveConfig(raw)
	if err != nil {
		return nil, attachSourceContext(err, sources)
	}
	if err := cfg.Validate(); err != nil {
		return nil, attachSourceContext(err, sources)
	}

	return &LoadResult{
		Config:  cfg,
		Sources: sources,
		Files:   ld.files,
		Path:    path,
	}, nil
}

type includeRef struct {
	Value  string
	Source Source
}

// layer is one file merged over everything it includes.
type layer struct {
	raw     RawConfig
	sources map[string]Source
}

func (l *layer) over(o layer) {
	l.raw = l.raw.merge(o.raw)
	for key, src := range o.sources {
		l.sources[key] = src
	}
}

// loader walks an include graph. Each file is merged once, after its
// includes, and files lists them in that order.
type loader struct {
	seen  map[string]struct{}
	files []string
}

func (ld *loader) load(path string, stack []string) (layer, error) {
	out := layer{sources: map[string]Source{}}
	canon, err := canonicalPath(path)
	if err != nil {
		return out, err
	}
	if slices.Contains(stack, canon) {
		return out, fmt.Errorf("include cycle detected: %s -> %s", strings.Join(stack, " -> "), canon)
	}
	if _, ok := ld.seen[canon]; ok {
		return out, nil
	}
	ld.seen[canon] = struct{}{}

	data, err := os.ReadFile(canon)
	if err != nil {
		return out, fmt.Errorf("%s: failed to read: %w", canon, err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return out, fmt.Errorf("%s: failed to parse yaml: %w", canon, err)
	}
	own := layer{sources: collectSources(&doc, canon)}
	if err := decodeStrictYAML(data, &own.raw); err != nil {
		return out, fmt.Errorf("%s: %w", canon, err)
	}

	stack = append(stack, canon)
	for _, ref := range collectIncludeRefs(&doc, canon) {
		paths, err := expandInclude(canon, ref.Value)
		if err != nil {
			return out, fmt.Errorf("%s: include %q: %w", FormatSource(ref.Source), ref.Value, err)
		}
		for _, inc := range paths {
			l, err := ld.load(inc, stack)
			if err != nil {
				return out, err
			}
			out.over(l)
		}
	}

	out.over(own)
	ld.files = append(ld.files, canon)
	return out, nil
}

func decodeStrictYAML(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// canonicalPath resolves symlinks where possible so cycles are detected
// regardless of how a file is named.
func canonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %q: %w", path, err)
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real, nil
	}
	return abs, nil
}

func isYAML(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// expandInclude turns an include entry into files. An entry may name a
// file, a directory (its *.yaml and *.yml files) or a glob. Directory and
// glob results are sorted; a glob that matches nothing is not an error.
func expandInclude(baseFile string, include string) ([]string, error) {
	path, err := resolvePathRelativeToFile(baseFile, include)
	if err != nil {
		return nil, err
	}

	if strings.ContainsAny(path, "*?[") {
		matches, err := filepath.Glob(path)
		if err != nil {
			return nil, err
		}
		var files []string
		for _, m := range matches {
			if info, err := os.Stat(m); err == nil && !info.IsDir() && isYAML(m) {
				files = append(files, m)
			}
		}
		sort.Strings(files)
		return files, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, ent := range entries {
		if !ent.IsDir() && isYAML(ent.Name()) {
			files = append(files, filepath.Join(path, ent.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func resolvePathRelativeToFile(baseFile string, include string) (string, error) {
	if include == "" {
		return "", errors.New("path is empty")
	}
	if include == "~" || strings.HasPrefix(include, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		include = filepath.Join(home, strings.TrimPrefix(include[1:], "/"))
	}
	if filepath.IsAbs(include) {
		return include, nil
	}
	return filepath.Join(filepath.Dir(baseFile), include), nil
}

// Environment variables that override file settings.
var envOverrides = []struct {
	name string
	path string
	set  func(*RawConfig, string)
}{
	{"WINSHIM_BACKEND", "backend", func(r *RawConfig, v string) { r.Backend = &v }},
	{"WINSHIM_DISPLAY", "display", func(r *RawConfig, v string) { r.Display = &v }},
	{"WINSHIM_LOG_LEVEL", "log_level", func(r *RawConfig, v string) { r.LogLevel = &v }},
}

func rawFromEnv(lookup func(string) (string, bool)) (RawConfig, map[string]Source) {
	var raw RawConfig
	sources := map[string]Source{}
	for _, ov := range envOverrides {
		v, ok := lookup(ov.name)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		ov.set(&raw, v)
		sources[ov.path] = Source{Kind: SourceEnv, Name: ov.name}
	}
	return raw, sources
}

func pathExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// rootMapping returns the top-level node of a parsed document.
func rootMapping(doc *yaml.Node) *yaml.Node {
	if doc != nil && doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		return doc.Content[0]
	}
	return doc
}

func fileSource(file string, node *yaml.Node) Source {
	return Source{Kind: SourceFile, File: file, Line: node.Line, Column: node.Column}
}

// collectSources maps every dotted YAML path in doc to where its value was
// written. Sequences are recorded as a whole.
func collectSources(doc *yaml.Node, file string) map[string]Source {
	out := make(map[string]Source)
	var walk func(node *yaml.Node, prefix string)
	walk = func(node *yaml.Node, prefix string) {
		if node == nil || node.Kind != yaml.MappingNode {
			return
		}
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, val := node.Content[i].Value, node.Content[i+1]
			if prefix != "" {
				key = prefix + "." + key
			}
			out[key] = fileSource(file, val)
			walk(val, key)
		}
	}
	walk(rootMapping(doc), "")
	return out
}

func collectIncludeRefs(doc *yaml.Node, file string) []includeRef {
	node := rootMapping(doc)
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value != "include" {
			continue
		}
		val := node.Content[i+1]
		items := []*yaml.Node{val}
		if val.Kind == yaml.SequenceNode {
			items = val.Content
		}
		var refs []includeRef
		for _, item := range items {
			if item.Kind == yaml.ScalarNode {
				refs = append(refs, includeRef{Value: item.Value, Source: fileSource(file, item)})
			}
		}
		return refs
	}
	return nil
}

func attachSourceContext(err error, sources map[string]Source) error {
	var verr *ValidationError
	if !errors.As(err, &verr) || verr == nil {
		return err
	}
	if verr.Path == "" {
		return err
	}
	if src, ok := sources[verr.Path]; ok {
		verr.Source = src
	}
	return verr
}
