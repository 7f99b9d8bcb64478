package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1broseidon/winshim/internal/config"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARNING"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestNewHandlerFormats(t *testing.T) {
	var level slog.LevelVar

	var buf bytes.Buffer
	slog.New(NewHandler(&buf, "json", true, &level)).Info("hello", "n", 1)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "hello", rec["msg"])

	buf.Reset()
	slog.New(NewHandler(&buf, "auto", true, &level)).Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")

	buf.Reset()
	slog.New(NewHandler(&buf, "auto", false, &level)).Info("hello")
	assert.True(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

func TestLevelChangesApplyToExistingLogger(t *testing.T) {
	var level slog.LevelVar
	level.Set(slog.LevelWarn)

	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, "text", false, &level))
	logger.Info("dropped")
	assert.Empty(t, buf.String())

	level.Set(slog.LevelDebug)
	logger.Debug("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "winshim.log")
	var level slog.LevelVar

	logger, closer, err := New(config.LoggingConfig{Format: "auto", File: path}, &level)
	require.NoError(t, err)
	logger.Info("to file")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	// A file is never a terminal, so auto picks JSON.
	assert.True(t, json.Valid(bytes.TrimSpace(data)))
	assert.Contains(t, string(data), "to file")
}

func TestRotatingFileRollsOver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "winshim.log")
	f, err := OpenRotating(path, 1, 2)
	require.NoError(t, err)
	defer f.Close()

	line := []byte(strings.Repeat("x", 600*1024) + "\n")
	for i := 0; i < 4; i++ {
		_, err := f.Write(line)
		require.NoError(t, err)
	}

	assert.FileExists(t, path)
	assert.FileExists(t, path+".1")
	assert.FileExists(t, path+".2")
	assert.NoFileExists(t, path+".3")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(len(line)), info.Size())
}

func TestRotatingFileClose(t *testing.T) {
	f, err := OpenRotating(filepath.Join(t.TempDir(), "a.log"), 0, 0)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, f.Close())

	_, err = f.Write([]byte("late"))
	assert.ErrorIs(t, err, os.ErrClosed)
}
