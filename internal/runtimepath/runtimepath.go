// Package runtimepath locates the per-user directory that holds the control
// socket.
package runtimepath

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	socketName = "winshim.sock"

	// EnvDir overrides every other candidate when set.
	EnvDir = "WINSHIM_RUNTIME_DIR"
)

// Dir returns the runtime directory, trying in order: $WINSHIM_RUNTIME_DIR,
// $XDG_RUNTIME_DIR, /run/user/<uid>, and a private directory under the
// system temp dir.
func Dir() (string, error) {
	if dir := os.Getenv(EnvDir); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return "", fmt.Errorf("create runtime dir: %w", err)
		}
		return dir, nil
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return dir, nil
	}

	uid := os.Getuid()
	if dir := fmt.Sprintf("/run/user/%d", uid); isDir(dir) {
		return dir, nil
	}

	dir := filepath.Join(os.TempDir(), fmt.Sprintf("winshim-runtime-%d", uid))
	if err := ensurePrivate(dir); err != nil {
		return "", err
	}
	return dir, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// ensurePrivate creates dir if needed and strips group and other access.
func ensurePrivate(dir string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create runtime dir: %w", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("stat runtime dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("runtime dir %s is not a directory", dir)
	}
	if info.Mode().Perm()&0o077 != 0 {
		if err := os.Chmod(dir, 0o700); err != nil {
			return fmt.Errorf("restrict runtime dir: %w", err)
		}
	}
	return nil
}

// SocketPath returns the default control socket path.
func SocketPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, socketName), nil
}

// Resolve prefers override and falls back to SocketPath.
func Resolve(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	return SocketPath()
}
