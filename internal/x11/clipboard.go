package x11

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/1broseidon/winshim/internal/platform"
)

// selectionHelper moves selection data in and out of the X server. Owning a
// selection means answering SelectionRequest events for as long as the data
// is on offer, which xclip does from its own process after we exit.
var selectionHelper = "xclip"

func selectionArgs(kind platform.ClipboardKind, write bool) []string {
	sel := "clipboard"
	if kind == platform.PrimarySelection {
		sel = "primary"
	}
	mode := "-o"
	if write {
		mode = "-i"
	}
	return []string{"-selection", sel, mode}
}

// openSelection starts the selection helper and returns our end of its
// stdin or stdout pipe.
func openSelection(display string, kind platform.ClipboardKind, write bool) (*os.File, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("clipboard pipe: %w", err)
	}
	cmd := exec.Command(selectionHelper, selectionArgs(kind, write)...)
	cmd.Env = cmd.Environ()
	if display != "" {
		cmd.Env = upsertEnv(cmd.Env, "DISPLAY", display)
	}

	ours, theirs := r, w
	if write {
		ours, theirs = w, r
		cmd.Stdin = theirs
	} else {
		cmd.Stdout = theirs
	}
	if err := cmd.Start(); err != nil {
		_ = r.Close()
		_ = w.Close()
		return nil, fmt.Errorf("start %s: %w", selectionHelper, err)
	}
	_ = theirs.Close()
	go func() { _ = cmd.Wait() }()
	return ours, nil
}
