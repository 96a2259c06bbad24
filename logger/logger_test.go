package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerSuppressesRepeats(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsole(&buf, log.DebugLevel)

	l.Info("Resolving release", "addon", "kkots/a")
	l.Info("Resolving release", "addon", "kkots/a")
	l.Info("Resolving release", "addon", "kkots/b")

	assert.Equal(t, 1, strings.Count(buf.String(), "kkots/a"))
	assert.Equal(t, 1, strings.Count(buf.String(), "kkots/b"))
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsole(&buf, log.WarnLevel)

	l.Debug("hidden")
	l.Info("also hidden")
	l.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	l.SetLevel(log.DebugLevel)
	l.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
}

func TestNewWritesLogFile(t *testing.T) {
	dir := t.TempDir()
	l, err := New(dir, log.ErrorLevel)
	require.NoError(t, err)

	l.Debug("file only", "key", "value")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "file only")
	assert.Contains(t, string(data), "key=value")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, log.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, log.WarnLevel, ParseLevel(" warn "))
	assert.Equal(t, log.InfoLevel, ParseLevel("nonsense"))
}

func TestNilAndNopLoggers(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() { l.Info("ignored") })
	assert.NotPanics(t, func() { Nop().Error("ignored") })
}
