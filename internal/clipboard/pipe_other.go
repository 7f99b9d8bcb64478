//go:build !unix

package clipboard

import (
	"errors"
	"os"
	"time"
)

var errUnsupported = errors.New("clipboard: pipes are not supported on this platform")

// Read is not supported on this platform.
func Read(f *os.File, timeout time.Duration) (string, error) {
	return "", errUnsupported
}

// Write is not supported on this platform.
func Write(f *os.File, data []byte, timeout time.Duration) error {
	return errUnsupported
}
