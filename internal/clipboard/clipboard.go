// Package clipboard moves selection data over pipes with a bounded wait.
// Each poll on the pipe is limited by the caller's timeout so a stalled
// peer cannot hold a reader or writer forever.
package clipboard

import (
	"errors"
	"strings"
	"time"
)

// DefaultTimeout is the longest single wait for a clipboard pipe to become
// ready.
const DefaultTimeout = 3 * time.Second

var (
	// ErrTimeout is returned when the pipe does not become ready in time.
	ErrTimeout = errors.New("clipboard: timed out waiting for pipe")
	// ErrInvalidUTF8 is returned when the selection data is not UTF-8 text.
	ErrInvalidUTF8 = errors.New("clipboard: selection is not valid UTF-8")
)

// NormalizeNewlines converts CRLF line endings to LF.
func NormalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}
