package x11

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

var (
	runCommandOutputFn = runCommandOutput
	readFileFn         = os.ReadFile
	readDirFn          = os.ReadDir
	lookupEnvFn        = os.Getenv
	x11SocketDir       = "/tmp/.X11-unix"
)

// Session says which X display to use and how to authenticate to it.
type Session struct {
	Display    string
	XAuthority string
	// Source names where Display came from: env, config, loginctl or socket.
	Source string
}

// ResolveSession finds a display when the process may have been started
// without a graphical environment, for example by an MCP client or a user
// service. The order is $DISPLAY, the configured display, the caller's
// logind session, and finally the highest-numbered socket in /tmp/.X11-unix.
func ResolveSession(configured string) (Session, error) {
	s := Session{
		Display:    strings.TrimSpace(lookupEnvFn("DISPLAY")),
		XAuthority: strings.TrimSpace(lookupEnvFn("XAUTHORITY")),
		Source:     "env",
	}
	if s.Display == "" {
		s.Display, s.Source = strings.TrimSpace(configured), "config"
	}
	if s.Display == "" || s.XAuthority == "" {
		d, xauth := detectSessionX11Env()
		if s.Display == "" && d != "" {
			s.Display, s.Source = strings.TrimSpace(d), "loginctl"
		}
		if s.XAuthority == "" {
			s.XAuthority = strings.TrimSpace(xauth)
		}
	}
	if s.Display == "" {
		s.Display, s.Source = detectDisplayFromSockets(x11SocketDir), "socket"
	}
	if s.Display == "" {
		return Session{}, fmt.Errorf("no X display found; set display in config (e.g. display: \":1\") or export DISPLAY")
	}

	if s.XAuthority == "" {
		home := strings.TrimSpace(lookupEnvFn("HOME"))
		if home == "" {
			if detected, err := os.UserHomeDir(); err == nil {
				home = detected
			}
		}
		if home != "" {
			candidate := filepath.Join(home, ".Xauthority")
			if _, err := os.Stat(candidate); err == nil {
				s.XAuthority = candidate
			}
		}
	}
	return s, nil
}

// Apply exports the session so that xgb and helper processes see it.
func (s Session) Apply() error {
	if err := os.Setenv("DISPLAY", s.Display); err != nil {
		return err
	}
	if s.XAuthority != "" && os.Getenv("XAUTHORITY") == "" {
		return os.Setenv("XAUTHORITY", s.XAuthority)
	}
	return nil
}

func runCommandOutput(name string, args ...string) (string, error) {
	out, err := exec.Command(name, args...).Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func detectSessionX11Env() (display string, xauthority string) {
	uid := strconv.Itoa(os.Getuid())
	out, err := runCommandOutputFn("loginctl", "list-sessions", "--no-legend")
	if err != nil {
		return "", ""
	}
	for _, sessionID := range parseLoginctlSessions(out, uid) {
		d := strings.TrimSpace(loginctlShowSessionProp(sessionID, "Display"))
		if d == "" || strings.EqualFold(d, "n/a") {
			continue
		}

		xauth := ""
		leader := strings.TrimSpace(loginctlShowSessionProp(sessionID, "Leader"))
		if leader != "" && leader != "0" {
			if envMap, err := readProcEnviron(leader); err == nil {
				if ed := strings.TrimSpace(envMap["DISPLAY"]); ed != "" {
					d = ed
				}
				xauth = strings.TrimSpace(envMap["XAUTHORITY"])
			}
		}
		return d, xauth
	}
	return "", ""
}

func parseLoginctlSessions(output string, uid string) []string {
	var sessions []string
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) < 2 {
			continue
		}
		if fields[1] == uid {
			sessions = append(sessions, fields[0])
		}
	}
	return sessions
}

func loginctlShowSessionProp(sessionID string, prop string) string {
	out, err := runCommandOutputFn("loginctl", "show-session", sessionID, "-p", prop, "--value")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

func readProcEnviron(pid string) (map[string]string, error) {
	data, err := readFileFn(filepath.Join("/proc", pid, "environ"))
	if err != nil {
		return nil, err
	}
	env := make(map[string]string)
	for _, part := range strings.Split(string(data), "\x00") {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		env[k] = v
	}
	return env, nil
}

func detectDisplayFromSockets(dir string) string {
	entries, err := readDirFn(dir)
	if err != nil {
		return ""
	}
	var displays []int
	for _, entry := range entries {
		name := entry.Name()
		if len(name) < 2 || name[0] != 'X' {
			continue
		}
		n, err := strconv.Atoi(name[1:])
		if err != nil {
			continue
		}
		displays = append(displays, n)
	}
	if len(displays) == 0 {
		return ""
	}
	sort.Ints(displays)
	return fmt.Sprintf(":%d", displays[len(displays)-1])
}

func upsertEnv(env []string, key string, value string) []string {
	prefix := key + "="
	for i, e := range env {
		if strings.HasPrefix(e, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}
