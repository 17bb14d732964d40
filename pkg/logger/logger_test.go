package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCapturingLogger(t *testing.T, level LogLevel, jsonOutput bool) (Logger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	l := NewLogger(&Config{
		Level:      level,
		Output:     buf,
		JSON:       jsonOutput,
		TimeFormat: "15:04:05",
	})
	return l, buf
}

func TestFromContext(t *testing.T) {
	t.Run("Should return the logger attached via ContextWithLogger", func(t *testing.T) {
		attached := NewLogger(TestConfig())
		ctx := ContextWithLogger(t.Context(), attached)

		got := FromContext(ctx)

		assert.Same(t, attached, got)
	})

	t.Run("Should fall back to the default logger when the context carries none", func(t *testing.T) {
		got := FromContext(t.Context())

		require.NotNil(t, got)
	})

	t.Run("Should fall back to the default logger when the context value isn't a Logger", func(t *testing.T) {
		ctx := context.WithValue(t.Context(), LoggerCtxKey, "not-a-logger")

		got := FromContext(ctx)

		require.NotNil(t, got)
	})

	t.Run("Should fall back to the default logger when the context value is a nil Logger", func(t *testing.T) {
		ctx := context.WithValue(t.Context(), LoggerCtxKey, (Logger)(nil))

		got := FromContext(ctx)

		require.NotNil(t, got)
	})

	t.Run("Should tolerate a nil context", func(t *testing.T) {
		got := FromContext(nil)

		require.NotNil(t, got)
	})
}

func TestLogLevel_ToCharmlogLevel(t *testing.T) {
	cases := map[LogLevel]int{
		DebugLevel:        -4,
		InfoLevel:         0,
		WarnLevel:         4,
		ErrorLevel:        8,
		NoLevel:           0,
		DisabledLevel:     1000,
		LogLevel("bogus"): 0,
	}
	for level, want := range cases {
		level := level
		want := want
		t.Run(string(level), func(t *testing.T) {
			assert.Equal(t, want, int(level.ToCharmlogLevel()))
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	t.Run("DefaultConfig targets stdout at info level", func(t *testing.T) {
		cfg := DefaultConfig()

		assert.Equal(t, InfoLevel, cfg.Level)
		assert.Equal(t, os.Stdout, cfg.Output)
		assert.False(t, cfg.JSON)
		assert.False(t, cfg.AddSource)
	})

	t.Run("TestConfig discards output at DisabledLevel", func(t *testing.T) {
		cfg := TestConfig()

		assert.Equal(t, DisabledLevel, cfg.Level)
		assert.Equal(t, io.Discard, cfg.Output)
		assert.False(t, cfg.JSON)
	})

	t.Run("IsTestEnvironment is true under go test", func(t *testing.T) {
		assert.True(t, IsTestEnvironment())
	})

	t.Run("NewLogger picks TestConfig when given nil under go test", func(t *testing.T) {
		l := NewLogger(nil)

		require.NotNil(t, l)
		// DisabledLevel per TestConfig: nothing should panic or block.
		l.Info("should be silently swallowed")
	})
}

func TestNewLogger_textOutput(t *testing.T) {
	l, buf := newCapturingLogger(t, InfoLevel, false)

	l.Info("normalized request accepted", "task_id", "send-email")

	assert.Contains(t, buf.String(), "normalized request accepted")
	assert.Contains(t, buf.String(), "task_id")
}

func TestNewLogger_jsonOutput(t *testing.T) {
	l, buf := newCapturingLogger(t, InfoLevel, true)

	l.Info("queued run", "run_id", "run_1")

	line := buf.String()
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &decoded))
	values := make([]any, 0, len(decoded))
	for _, v := range decoded {
		values = append(values, v)
	}
	assert.Contains(t, values, "queued run")
	assert.Contains(t, values, "run_1")
}

func TestLoggerLevels(t *testing.T) {
	t.Run("WarnLevel filters Debug and Info but keeps Warn and Error", func(t *testing.T) {
		l, buf := newCapturingLogger(t, WarnLevel, false)

		l.Debug("debug message")
		l.Info("info message")
		l.Warn("warn message")
		l.Error("error message")

		out := buf.String()
		assert.NotContains(t, out, "debug message")
		assert.NotContains(t, out, "info message")
		assert.Contains(t, out, "warn message")
		assert.Contains(t, out, "error message")
	})

	t.Run("DisabledLevel suppresses every level", func(t *testing.T) {
		l, buf := newCapturingLogger(t, DisabledLevel, false)

		l.Debug("d")
		l.Info("i")
		l.Warn("w")
		l.Error("e")

		assert.Empty(t, buf.String())
	})
}

func TestLogger_With(t *testing.T) {
	t.Run("With binds key/value pairs to every subsequent line", func(t *testing.T) {
		base, buf := newCapturingLogger(t, InfoLevel, false)

		scoped := base.With("component", "trigger", "task_id", "send-email")
		scoped.Info("resolved queue name")

		out := buf.String()
		assert.Contains(t, out, "component")
		assert.Contains(t, out, "trigger")
		assert.Contains(t, out, "task_id")
		assert.Contains(t, out, "resolved queue name")
	})

	t.Run("With does not mutate the parent logger's bound fields", func(t *testing.T) {
		base, buf := newCapturingLogger(t, InfoLevel, false)

		_ = base.With("scoped_only", "yes")
		base.Info("unscoped line")

		assert.NotContains(t, buf.String(), "scoped_only")
	})

	t.Run("With chains: a second With call adds to, not replaces, the first", func(t *testing.T) {
		base, buf := newCapturingLogger(t, InfoLevel, false)

		scoped := base.With("a", "1").With("b", "2")
		scoped.Info("chained")

		out := buf.String()
		assert.Contains(t, out, "a")
		assert.Contains(t, out, "b")
	})
}

func TestContextWithLogger_roundTrip(t *testing.T) {
	l, buf := newCapturingLogger(t, InfoLevel, false)
	ctx := ContextWithLogger(t.Context(), l)

	FromContext(ctx).Warn("propagated through context")

	assert.Contains(t, buf.String(), "propagated through context")
}
