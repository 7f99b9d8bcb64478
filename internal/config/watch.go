package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDebounce collapses the burst of events an editor produces when
// it saves a file.
const DefaultWatchDebounce = 150 * time.Millisecond

// Watch reloads path whenever it or one of its included files changes and
// hands the result to onChange. Load errors are passed through so the caller
// can keep its previous configuration. Watch blocks until ctx is done.
//
// Directories are watched rather than files because editors commonly replace
// a file by renaming a new one over it.
func Watch(ctx context.Context, path string, debounce time.Duration, onChange func(*LoadResult, error)) error {
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watch: %w", err)
	}
	defer w.Close()

	canon, err := canonicalPath(path)
	if err != nil {
		return err
	}
	watched := map[string]struct{}{}
	interesting := map[string]struct{}{}
	track := func(files []string) {
		interesting[canon] = struct{}{}
		for _, f := range files {
			interesting[f] = struct{}{}
		}
		for f := range interesting {
			dir := filepath.Dir(f)
			if _, ok := watched[dir]; ok {
				continue
			}
			if err := w.Add(dir); err == nil {
				watched[dir] = struct{}{}
			}
		}
	}

	if res, err := LoadFromPath(path); err == nil {
		track(res.Files)
	} else {
		track(nil)
	}
	if len(watched) == 0 {
		return fmt.Errorf("config watch: cannot watch %s", filepath.Dir(canon))
	}

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if _, ok := interesting[filepath.Clean(ev.Name)]; !ok {
				continue
			}
			timer.Reset(debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			onChange(nil, fmt.Errorf("config watch: %w", err))
		case <-timer.C:
			res, err := LoadFromPath(path)
			if err == nil {
				track(res.Files)
			}
			onChange(res, err)
		}
	}
}
