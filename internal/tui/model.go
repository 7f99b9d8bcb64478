package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/winshim/internal/ipc"
	"github.com/1broseidon/winshim/internal/window"
)

type snapshotMsg struct {
	status  *ipc.StatusData
	windows []window.Info
	err     error
}

type tickMsg time.Time

type actionMsg struct {
	label string
	err   error
}

// model is the root bubbletea model.
type model struct {
	ctl     Controller
	refresh time.Duration

	connected bool
	status    *ipc.StatusData
	windows   []window.Info
	selected  window.ID
	lastError string
	lastInfo  string

	width  int
	height int
}

func newModel(c Controller, refresh time.Duration) model {
	return model{ctl: c, refresh: refresh}
}

func (m model) snapshot() tea.Cmd {
	ctl := m.ctl
	return func() tea.Msg {
		status, err := ctl.GetStatus()
		if err != nil {
			return snapshotMsg{err: err}
		}
		windows, err := ctl.ListWindows()
		return snapshotMsg{status: status, windows: windows, err: err}
	}
}

func (m model) tick() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) act(label string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return actionMsg{label: label, err: fn()}
	}
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return tea.Batch(m.snapshot(), m.tick())
}

// cursor returns the index of the selected window, or -1.
func (m model) cursor() int {
	for i, w := range m.windows {
		if w.ID == m.selected {
			return i
		}
	}
	return -1
}

func (m *model) move(delta int) {
	if len(m.windows) == 0 {
		return
	}
	i := m.cursor() + delta
	if i < 0 {
		i = 0
	}
	if i >= len(m.windows) {
		i = len(m.windows) - 1
	}
	m.selected = m.windows[i].ID
}

// Update implements tea.Model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.snapshot(), m.tick())

	case snapshotMsg:
		if msg.err != nil {
			m.connected = false
			m.status = nil
			m.windows = nil
			m.lastError = msg.err.Error()
			return m, nil
		}
		m.connected = true
		m.status = msg.status
		m.windows = msg.windows
		// Keep the selection on the same window; fall back to the first.
		if m.cursor() < 0 {
			m.selected = 0
			if len(m.windows) > 0 {
				m.selected = m.windows[0].ID
			}
		}
		return m, nil

	case actionMsg:
		if msg.err != nil {
			m.lastError = fmt.Sprintf("%s: %v", msg.label, msg.err)
			m.lastInfo = ""
		} else {
			m.lastError = ""
			m.lastInfo = msg.label
		}
		return m, m.snapshot()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "up", "k":
		m.move(-1)
		return m, nil
	case "down", "j":
		m.move(1)
		return m, nil
	case "r":
		return m, m.act("reload", m.ctl.Reload)
	}

	id := m.selected
	if id == 0 {
		return m, nil
	}
	switch msg.String() {
	case "f":
		return m, m.act(fmt.Sprintf("fullscreen %d", id), func() error { return m.ctl.ToggleFullscreen(id) })
	case "i":
		return m, m.act(fmt.Sprintf("invalidate %d", id), func() error { return m.ctl.Invalidate(id) })
	case "c":
		return m, m.act(fmt.Sprintf("close %d", id), func() error { return m.ctl.CloseWindow(id, false) })
	case "X":
		return m, m.act(fmt.Sprintf("force close %d", id), func() error { return m.ctl.CloseWindow(id, true) })
	}
	return m, nil
}

// View implements tea.Model.
func (m model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	statusBar := renderStatusBar(m.connected, m.status, m.width)
	helpBar := renderHelpBar(m.width)
	messageBar := renderMessage(m.lastError, m.lastInfo, m.width)

	used := lipgloss.Height(statusBar) + lipgloss.Height(helpBar) + lipgloss.Height(messageBar)
	contentHeight := m.height - used
	if contentHeight < 1 {
		contentHeight = 1
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		statusBar,
		renderWindows(m.windows, m.selected, m.width, contentHeight),
		messageBar,
		helpBar,
	)
}
