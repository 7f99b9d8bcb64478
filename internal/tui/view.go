package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/winshim/internal/ipc"
	"github.com/1broseidon/winshim/internal/window"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("250"))

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62"))

	rowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))
)

func renderStatusBar(connected bool, status *ipc.StatusData, width int) string {
	var text string
	if connected && status != nil {
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render("●")
		parts := []string{
			dot + " " + status.Backend,
			fmt.Sprintf("pid:%d", status.PID),
			fmt.Sprintf("windows:%d", status.WindowCount),
			fmt.Sprintf("up:%ds", status.UptimeSeconds),
		}
		text = strings.Join(parts, "  ")
	} else {
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("●")
		text = dot + " winshim not running"
	}

	style := lipgloss.NewStyle().
		Width(width).
		Background(lipgloss.Color("235")).
		Foreground(lipgloss.Color("250")).
		Padding(0, 1)
	return style.Render(text)
}

func formatRow(info window.Info) string {
	fs := ""
	if info.Fullscreen {
		fs = "yes"
	}
	return fmt.Sprintf("%-6d %-12s %-11s %-5d %-4s %s",
		info.ID,
		info.Lifecycle,
		fmt.Sprintf("%dx%d", info.Dimensions.PixelWidth, info.Dimensions.PixelHeight),
		info.Dimensions.DPI,
		fs,
		info.Title,
	)
}

func renderWindows(windows []window.Info, selected window.ID, width, height int) string {
	box := lipgloss.NewStyle().Width(width).Height(height).Padding(1, 1, 0, 1)
	if len(windows) == 0 {
		empty := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("no windows")
		return box.Render(empty)
	}

	lines := []string{headerStyle.Render(fmt.Sprintf("%-6s %-12s %-11s %-5s %-4s %s", "ID", "STATE", "SIZE", "DPI", "FS", "TITLE"))}
	for _, info := range windows {
		row := formatRow(info)
		if info.ID == selected {
			lines = append(lines, selectedStyle.Render(row))
		} else {
			lines = append(lines, rowStyle.Render(row))
		}
	}
	return box.Render(strings.Join(lines, "\n"))
}

func renderMessage(errText, info string, width int) string {
	style := lipgloss.NewStyle().Width(width).Padding(0, 1)
	switch {
	case errText != "":
		return style.Render(errorStyle.Render(errText))
	case info != "":
		return style.Render(infoStyle.Render("ok: " + info))
	default:
		return style.Render("")
	}
}

func renderHelpBar(width int) string {
	help := "j/k: select  f: fullscreen  i: repaint  c: close  X: force close  r: reload config  q: quit"
	style := lipgloss.NewStyle().
		Width(width).
		Foreground(lipgloss.Color("241")).
		Padding(0, 1)
	return style.Render(help)
}
