package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/1broseidon/winshim/internal/ipc"
	"github.com/1broseidon/winshim/internal/runtimepath"
	"github.com/1broseidon/winshim/internal/tui"
	"github.com/1broseidon/winshim/internal/window"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "run":
		os.Exit(runRun(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "windows":
		os.Exit(runWindows(os.Args[2:]))
	case "title":
		os.Exit(runTitle(os.Args[2:]))
	case "close":
		os.Exit(runClose(os.Args[2:]))
	case "invalidate":
		os.Exit(runWindowCommand("invalidate", os.Args[2:], (*ipc.Client).Invalidate))
	case "fullscreen":
		os.Exit(runWindowCommand("fullscreen", os.Args[2:], (*ipc.Client).ToggleFullscreen))
	case "reload":
		os.Exit(runReload(os.Args[2:]))
	case "top":
		os.Exit(runTop(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: winshim <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  run                 Open a window and run the event loop (foreground)")
	fmt.Fprintln(w, "  status              Show status of a running instance")
	fmt.Fprintln(w, "  windows             List open windows")
	fmt.Fprintln(w, "  title <id> <text>   Set a window title")
	fmt.Fprintln(w, "  close <id>          Ask a window to close")
	fmt.Fprintln(w, "  invalidate <id>     Repaint a window")
	fmt.Fprintln(w, "  fullscreen <id>     Toggle fullscreen")
	fmt.Fprintln(w, "  reload              Reload configuration")
	fmt.Fprintln(w, "  top                 Interactive window monitor")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "  config explain      Explain a config value")
	fmt.Fprintln(w, "  config init         Write the default configuration")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'winshim <command> --help' for command-specific options.")
}

// clientFlags registers --socket on fs and returns a constructor for the
// client it selects.
func clientFlags(fs *flag.FlagSet) func() (*ipc.Client, error) {
	socket := fs.String("socket", "", "Control socket (default: $XDG_RUNTIME_DIR/winshim.sock)")
	return func() (*ipc.Client, error) {
		path, err := runtimepath.Resolve(*socket)
		if err != nil {
			return nil, err
		}
		return ipc.NewClientAt(path), nil
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (int, bool) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0, false
		}
		return 2, false
	}
	return 0, true
}

func parseWindowID(s string) (window.ID, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("invalid window id %q", s)
	}
	return window.ID(n), nil
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	newClient := clientFlags(fs)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: winshim status [--socket PATH]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show status of a running instance via IPC.")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "status takes no arguments")
		fs.Usage()
		return 2
	}

	client, err := newClient()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	status, err := client.GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("backend:        %s\n", status.Backend)
	fmt.Printf("pid:            %d\n", status.PID)
	fmt.Printf("window_count:   %d\n", status.WindowCount)
	fmt.Printf("uptime_seconds: %d\n", status.UptimeSeconds)
	if status.ConfigPath != "" {
		fmt.Printf("config:         %s\n", status.ConfigPath)
	}
	return 0
}

func runWindows(args []string) int {
	fs := flag.NewFlagSet("windows", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	newClient := clientFlags(fs)
	asJSON := fs.Bool("json", false, "Print JSON")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: winshim windows [--socket PATH] [--json]")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	client, err := newClient()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	windows, err := client.ListWindows()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *asJSON {
		return printJSON(os.Stdout, windows)
	}
	printWindows(os.Stdout, windows)
	return 0
}

func runTitle(args []string) int {
	fs := flag.NewFlagSet("title", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	newClient := clientFlags(fs)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: winshim title [--socket PATH] <id> <text>")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return 2
	}
	id, err := parseWindowID(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	client, err := newClient()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := client.SetTitle(id, fs.Arg(1)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runClose(args []string) int {
	fs := flag.NewFlagSet("close", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	newClient := clientFlags(fs)
	force := fs.Bool("force", false, "Close even if the application refuses")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: winshim close [--socket PATH] [--force] <id>")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	id, err := parseWindowID(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	client, err := newClient()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := client.CloseWindow(id, *force); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runWindowCommand(name string, args []string, op func(*ipc.Client, window.ID) error) int {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	newClient := clientFlags(fs)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: winshim %s [--socket PATH] <id>\n", name)
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	id, err := parseWindowID(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	client, err := newClient()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := op(client, id); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runReload(args []string) int {
	fs := flag.NewFlagSet("reload", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	newClient := clientFlags(fs)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: winshim reload [--socket PATH]")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	client, err := newClient()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := client.Reload(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println("config reloaded")
	return 0
}

func runTop(args []string) int {
	fs := flag.NewFlagSet("top", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	newClient := clientFlags(fs)
	refresh := fs.Duration("refresh", tui.DefaultRefresh, "Polling interval")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: winshim top [--socket PATH] [--refresh DURATION]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Live view of the windows of a running instance.")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	client, err := newClient()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := tui.Run(client, *refresh); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
