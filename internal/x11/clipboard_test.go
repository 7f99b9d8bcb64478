package x11

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/1broseidon/winshim/internal/platform"
)

func TestSelectionArgs(t *testing.T) {
	assert.Equal(t, []string{"-selection", "clipboard", "-o"}, selectionArgs(platform.Clipboard, false))
	assert.Equal(t, []string{"-selection", "primary", "-i"}, selectionArgs(platform.PrimarySelection, true))
}

func TestCeilDiv(t *testing.T) {
	assert.Equal(t, 401, ceilDiv(801, 2))
	assert.Equal(t, 5, ceilDiv(5, 1))
	assert.Equal(t, 5, ceilDiv(5, 0))
}
