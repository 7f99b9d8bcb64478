// Package tui is a terminal monitor for a running winshim instance.
package tui

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/1broseidon/winshim/internal/ipc"
	"github.com/1broseidon/winshim/internal/window"
)

// DefaultRefresh is how often the window list is polled.
const DefaultRefresh = time.Second

// Controller is the part of ipc.Client the monitor drives.
type Controller interface {
	GetStatus() (*ipc.StatusData, error)
	ListWindows() ([]window.Info, error)
	Invalidate(id window.ID) error
	ToggleFullscreen(id window.ID) error
	CloseWindow(id window.ID, force bool) error
	Reload() error
}

var _ Controller = (*ipc.Client)(nil)

// Run starts the monitor and blocks until the user quits.
func Run(c Controller, refresh time.Duration) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("top requires an interactive terminal (stdin/stdout must be TTYs)")
	}
	if refresh <= 0 {
		refresh = DefaultRefresh
	}
	_, err := tea.NewProgram(newModel(c, refresh), tea.WithAltScreen()).Run()
	return err
}
