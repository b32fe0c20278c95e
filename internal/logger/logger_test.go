package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"":         zapcore.InfoLevel,
		"INFO":     zapcore.InfoLevel,
		"debug":    zapcore.DebugLevel,
		"WARNING":  zapcore.WarnLevel,
		"warn":     zapcore.WarnLevel,
		"ERROR":    zapcore.ErrorLevel,
		"CRITICAL": zapcore.FatalLevel,
	}
	for name, want := range cases {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	t.Run("Should filter messages below the configured level", func(t *testing.T) {
		var buf bytes.Buffer
		log, err := New(Options{Level: "WARNING", Output: &buf})
		require.NoError(t, err)
		log.Infow("hidden")
		log.Warnw("shown", "version", "1.2.4")
		require.NoError(t, log.Sync())
		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
		assert.Contains(t, buf.String(), "1.2.4")
	})
	t.Run("Should also write to the log file", func(t *testing.T) {
		var buf bytes.Buffer
		file := filepath.Join(t.TempDir(), "release.log")
		log, err := New(Options{Level: "INFO", File: file, Output: &buf})
		require.NoError(t, err)
		log.Infow("branch created", "branch", "release/1.2.4")
		require.NoError(t, log.Sync())
		data, err := os.ReadFile(file)
		require.NoError(t, err)
		assert.Contains(t, string(data), "release/1.2.4")
	})
	t.Run("Should reject unknown level", func(t *testing.T) {
		_, err := New(Options{Level: "loud"})
		assert.Error(t, err)
	})
}
