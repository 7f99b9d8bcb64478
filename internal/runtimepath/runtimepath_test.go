package runtimepath

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv(EnvDir, "")
	t.Setenv("XDG_RUNTIME_DIR", "")
}

func TestDir_UsesXDGRuntimeDirWhenSet(t *testing.T) {
	isolate(t)
	td := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", td)

	got, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error: %v", err)
	}
	if got != td {
		t.Fatalf("Dir() = %q, want %q", got, td)
	}
}

func TestDir_OverrideWinsAndIsCreated(t *testing.T) {
	isolate(t)
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())
	want := filepath.Join(t.TempDir(), "nested", "run")
	t.Setenv(EnvDir, want)

	got, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error: %v", err)
	}
	if got != want {
		t.Fatalf("Dir() = %q, want %q", got, want)
	}
	if info, err := os.Stat(want); err != nil || !info.IsDir() {
		t.Fatalf("override dir not created: %v", err)
	}
}

func TestDir_FallbacksWhenXDGRuntimeDirMissing(t *testing.T) {
	isolate(t)
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	got, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error: %v", err)
	}

	wantRun := fmt.Sprintf("/run/user/%d", os.Getuid())
	wantTmp := filepath.Join(tmp, fmt.Sprintf("winshim-runtime-%d", os.Getuid()))
	if got != wantRun && got != wantTmp {
		t.Fatalf("Dir() = %q, want %q or %q", got, wantRun, wantTmp)
	}
}

func TestEnsurePrivate_TightensPermissions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "rt")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	if err := ensurePrivate(dir); err != nil {
		t.Fatalf("ensurePrivate: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o700 {
		t.Fatalf("perm = %o, want 700", perm)
	}
}

func TestEnsurePrivate_RejectsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := ensurePrivate(path); err == nil {
		t.Fatal("expected error for non-directory")
	}
}

func TestSocketPath(t *testing.T) {
	isolate(t)
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	socket, err := SocketPath()
	if err != nil {
		t.Fatalf("SocketPath() error: %v", err)
	}
	if !strings.HasSuffix(socket, "/winshim.sock") {
		t.Fatalf("SocketPath() = %q, missing suffix", socket)
	}
}

func TestResolve(t *testing.T) {
	isolate(t)
	td := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", td)

	got, err := Resolve("/custom/ctl.sock")
	if err != nil || got != "/custom/ctl.sock" {
		t.Fatalf("Resolve(override) = %q, %v", got, err)
	}
	got, err = Resolve("")
	if err != nil {
		t.Fatalf("Resolve(\"\") error: %v", err)
	}
	if !strings.HasPrefix(got, td) {
		t.Fatalf("Resolve(\"\") = %q, want under %q", got, td)
	}
}
