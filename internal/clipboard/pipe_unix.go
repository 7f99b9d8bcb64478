//go:build unix

package clipboard

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"
	"unicode/utf8"

	"golang.org/x/sys/unix"
)

const chunkSize = 8192

// Read drains f until EOF and returns its contents as text. Every wait for
// data is bounded by timeout.
func Read(f *os.File, timeout time.Duration) (string, error) {
	fd := int(f.Fd())
	defer runtime.KeepAlive(f)
	if err := unix.SetNonblock(fd, true); err != nil {
		return "", fmt.Errorf("clipboard: set nonblocking: %w", err)
	}

	var out []byte
	buf := make([]byte, chunkSize)
	for {
		if err := waitFor(fd, unix.POLLIN, timeout); err != nil {
			return "", err
		}
		n, err := unix.Read(fd, buf)
		switch {
		case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EINTR):
			continue
		case err != nil:
			return "", fmt.Errorf("clipboard: read pipe: %w", err)
		case n == 0:
			if !utf8.Valid(out) {
				return "", ErrInvalidUTF8
			}
			return string(out), nil
		}
		out = append(out, buf[:n]...)
	}
}

// Write sends data to f. Every wait for pipe capacity is bounded by
// timeout. f is not closed.
func Write(f *os.File, data []byte, timeout time.Duration) error {
	fd := int(f.Fd())
	defer runtime.KeepAlive(f)
	if err := unix.SetNonblock(fd, true); err != nil {
		return fmt.Errorf("clipboard: set nonblocking: %w", err)
	}

	for len(data) > 0 {
		if err := waitFor(fd, unix.POLLOUT, timeout); err != nil {
			return err
		}
		n, err := unix.Write(fd, data)
		switch {
		case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EINTR):
			continue
		case err != nil:
			return fmt.Errorf("clipboard: write pipe: %w", err)
		}
		data = data[n:]
	}
	return nil
}

func waitFor(fd int, events int16, timeout time.Duration) error {
	ms := int(timeout / time.Millisecond)
	if ms <= 0 {
		ms = 1
	}
	for {
		fds := []unix.PollFd{{Fd: int32(fd), Events: events}}
		n, err := unix.Poll(fds, ms)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return fmt.Errorf("clipboard: poll: %w", err)
		}
		if n == 0 {
			return ErrTimeout
		}
		return nil
	}
}
