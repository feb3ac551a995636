package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureOutput(t *testing.T, level string, format OutputFormat, fn func()) string {
	t.Helper()
	buf := &bytes.Buffer{}
	SetTestOutput(buf)
	defer UnsetTestOutput()

	InitLogger(level, format)
	fn()
	return buf.String()
}

func TestLogger(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		logFn    func()
		contains []string
		excludes []string
	}{
		{
			name:     "info log",
			level:    "info",
			logFn:    func() { Info("resolving transaction") },
			contains: []string{"resolving transaction"},
		},
		{
			name:     "debug log with debug level",
			level:    "debug",
			logFn:    func() { Debug("populating installer") },
			contains: []string{"populating installer", "level=DEBUG"},
		},
		{
			name:     "debug log with info level",
			level:    "info",
			logFn:    func() { Debug("populating installer") },
			excludes: []string{"populating installer"},
		},
		{
			name:     "warn log with fields",
			level:    "warn",
			logFn:    func() { Warn("held back update", Fields{"package": "pepper", "count": 2}) },
			contains: []string{"held back update", "level=WARN", "package=pepper", "count=2"},
		},
		{
			name:     "success log",
			level:    "info",
			logFn:    func() { Success("transaction committed") },
			contains: []string{"transaction committed", "status=success"},
		},
		{
			name:     "formatted debug with fields",
			level:    "debug",
			logFn:    func() { DebugfWithFields(Fields{"unit": 3}, "undoing %s", "install") },
			contains: []string{"undoing install", "unit=3"},
		},
		{
			name:     "error level hides warnings",
			level:    "error",
			logFn:    func() { Warnf("lock held by %d", 42) },
			excludes: []string{"lock held"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := captureOutput(t, tt.level, FormatText, tt.logFn)
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
			for _, notWant := range tt.excludes {
				assert.NotContains(t, out, notWant)
			}
		})
	}
}

func TestJSONFormat(t *testing.T) {
	out := captureOutput(t, "info", FormatJSON, func() {
		Info("committed", Fields{"unit": 7})
	})
	var line map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out)), &line))
	assert.Equal(t, "committed", line["msg"])
	assert.EqualValues(t, 7, line["unit"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestWithAddsFields(t *testing.T) {
	out := captureOutput(t, "info", FormatText, func() {
		With(Fields{"txid": "abc"}).Info("step")
	})
	assert.Contains(t, out, "txid=abc")
}
