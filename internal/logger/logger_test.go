package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureOutput redirects logger output to a buffer for testing and
// restores the previous sink and level on cleanup.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := new(bytes.Buffer)

	mu.RLock()
	saved := current
	mu.RUnlock()
	savedLevel := GetLevel()

	InitWithWriter(buf, "", "", false)

	t.Cleanup(func() {
		mu.Lock()
		current = saved
		mu.Unlock()
		minLevel.Set(savedLevel.slog())
		rebuild()
	})

	return buf
}

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		level   string
		visible []string
		hidden  []string
	}{
		{"DEBUG", []string{"debug message", "info message", "warn message", "error message"}, nil},
		{"INFO", []string{"info message", "warn message", "error message"}, []string{"debug message"}},
		{"WARN", []string{"warn message", "error message"}, []string{"debug message", "info message"}},
		{"ERROR", []string{"error message"}, []string{"debug message", "info message", "warn message"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf := captureOutput(t)
			SetLevel(tt.level)

			Debug("debug message")
			Info("info message")
			Warn("warn message")
			Error("error message")

			out := buf.String()
			for _, s := range tt.visible {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.hidden {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("warning")
	require.NoError(t, err)
	assert.Equal(t, LevelWarn, l)

	l, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, LevelInfo, l)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestSetLevelIgnoresUnknown(t *testing.T) {
	captureOutput(t)
	SetLevel("WARN")
	SetLevel("verbose")
	assert.Equal(t, LevelWarn, GetLevel())
}

func TestContextFields(t *testing.T) {
	t.Run("ServiceAndPhaseArePrepended", func(t *testing.T) {
		buf := captureOutput(t)
		SetLevel("INFO")

		lc := NewLogContext("orders", LevelDebug).WithHandler("lifecycled.lifecycle", "lifecycle.setup", "StartService")
		ctx := WithContext(context.Background(), lc)
		InfoCtx(ctx, "hook finished", "extra", 1)

		out := buf.String()
		assert.Contains(t, out, "service=orders")
		assert.Contains(t, out, "event=lifecycle.setup")
		assert.Contains(t, out, "handler=StartService")
		assert.Contains(t, out, "extra=1")
		assert.Less(t, strings.Index(out, "service="), strings.Index(out, "extra="))
	})

	t.Run("ServiceLevelFiltersContextLogs", func(t *testing.T) {
		buf := captureOutput(t)
		SetLevel("DEBUG")

		ctx := WithContext(context.Background(), NewLogContext("quiet", LevelWarn))
		DebugCtx(ctx, "debug hidden")
		InfoCtx(ctx, "info hidden")
		WarnCtx(ctx, "warn shown")
		ErrorCtx(ctx, "error shown")

		out := buf.String()
		assert.NotContains(t, out, "hidden")
		assert.Contains(t, out, "warn shown")
		assert.Contains(t, out, "error shown")
	})

	t.Run("MissingContextIsHarmless", func(t *testing.T) {
		buf := captureOutput(t)
		InfoCtx(context.Background(), "plain")
		assert.Contains(t, buf.String(), "plain")
	})

	t.Run("CloneIsIndependent", func(t *testing.T) {
		lc := NewLogContext("a", LevelInfo)
		c := lc.WithTrace("trace", "span")
		assert.Empty(t, lc.TraceID)
		assert.Equal(t, "trace", c.TraceID)
		assert.Nil(t, (*LogContext)(nil).Clone())
	})
}

func TestJSONFormat(t *testing.T) {
	buf := captureOutput(t)
	SetLevel("INFO")
	SetFormat("json")

	Info("started service successfully", KeyService, "orders", KeyState, "ready")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "started service successfully", entry["msg"])
	assert.Equal(t, "orders", entry["service"])
	assert.Equal(t, "ready", entry["state"])
}

func TestColorTextHandler(t *testing.T) {
	t.Run("QuotesValuesWithSpaces", func(t *testing.T) {
		buf := new(bytes.Buffer)
		l := slog.New(NewColorTextHandler(buf, nil, false))
		l.Info("msg", "reason", "no transport handlers defined", "n", 3)

		out := buf.String()
		assert.Contains(t, out, `reason="no transport handlers defined"`)
		assert.Contains(t, out, "n=3")
		assert.Contains(t, out, "[INFO] msg")
	})

	t.Run("GroupsFlattenIntoDottedKeys", func(t *testing.T) {
		buf := new(bytes.Buffer)
		l := slog.New(NewColorTextHandler(buf, nil, false)).WithGroup("discovery").With("registry", "memory")
		l.Info("registered", "operation", "register")

		out := buf.String()
		assert.Contains(t, out, "discovery.registry=memory")
		assert.Contains(t, out, "discovery.operation=register")
	})

	t.Run("ErrorValues", func(t *testing.T) {
		buf := new(bytes.Buffer)
		l := slog.New(NewColorTextHandler(buf, nil, false))
		l.Error("failed", "error", errors.New("boom"))
		assert.Contains(t, buf.String(), "error=boom")
	})

	t.Run("ColorsLifecycleStates", func(t *testing.T) {
		buf := new(bytes.Buffer)
		l := slog.New(NewColorTextHandler(buf, nil, true))
		l.Info("started service successfully", "state", "ready")
		assert.Contains(t, buf.String(), "="+colorGreen+"ready"+colorReset)
	})

	t.Run("RespectsLevel", func(t *testing.T) {
		buf := new(bytes.Buffer)
		l := slog.New(NewColorTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelWarn}, false))
		l.Info("skipped")
		assert.Empty(t, buf.String())
	})
}

func TestInitWithFileOutput(t *testing.T) {
	captureOutput(t)

	path := filepath.Join(t.TempDir(), "lifecycled.log")
	require.NoError(t, Init(Config{Level: "INFO", Format: "text", Output: path}))
	Info("written to file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")

	assert.Error(t, Init(Config{Level: "LOUD"}))
	assert.Equal(t, LevelInfo, GetLevel(), "a rejected config leaves the level alone")
}

func TestFormat(t *testing.T) {
	captureOutput(t)
	SetFormat("JSON")
	assert.Equal(t, "json", Format())
	SetFormat("xml")
	assert.Equal(t, "json", Format())
}
