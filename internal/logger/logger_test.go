package logger

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/librarian/internal/errors"
)

func TestNew_CustomWriter(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: slog.LevelInfo, Format: "json", Writer: &buf})
	log.Info("test message")

	assert.Contains(t, buf.String(), "test message")
	assert.Contains(t, buf.String(), `"level":"INFO"`)
}

func TestNew_FormatAutoDetection(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		wantJSON    bool
	}{
		{"production uses json", "production", true},
		{"development uses pretty", "development", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := New(Config{Level: slog.LevelInfo, Environment: tt.environment, Writer: &buf})
			log.Info("test")

			if tt.wantJSON {
				assert.Contains(t, buf.String(), `"msg":"test"`)
			} else {
				assert.Contains(t, buf.String(), "INF")
				assert.NotContains(t, buf.String(), `"msg"`)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.input))
		})
	}
}

func TestPrettyHandler_Handle(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log.Info("saved record", "kind", "disc", "count", 42)

	out := buf.String()
	assert.Contains(t, out, "saved record")
	assert.Contains(t, out, "kind=disc")
	assert.Contains(t, out, "count=42")
	assert.Contains(t, out, "INF")
}

func TestPrettyHandler_Enabled(t *testing.T) {
	h := NewPrettyHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelInfo})
	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestPrettyHandler_ComponentTag(t *testing.T) {
	var buf bytes.Buffer
	h := NewPrettyHandler(&buf, nil)

	log := slog.New(h.WithAttrs([]slog.Attr{slog.String("component", "store")}).WithGroup("index"))
	log.Info("rewritten", "entries", 3)
	log.Debug("hidden")

	out := buf.String()
	assert.Contains(t, out, "[store] rewritten entries=3")
	assert.NotContains(t, out, "component=")
	assert.NotContains(t, out, "hidden")

	buf.Reset()
	slog.New(h).Warn("bus busy", "component", "device")
	assert.Contains(t, buf.String(), "WRN")
	assert.Contains(t, buf.String(), "[device] bus busy")
}

func TestFormatValue(t *testing.T) {
	now := time.Now()
	assert.Equal(t, "test", formatValue(slog.StringValue("test")))
	assert.Equal(t, now.Format(time.RFC3339), formatValue(slog.TimeValue(now)))
	assert.Equal(t, "5s", formatValue(slog.DurationValue(5*time.Second)))
	assert.Equal(t, "42", formatValue(slog.IntValue(42)))
}

func TestLogger_WithError(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: slog.LevelInfo, Format: "json", Writer: &buf})
	log.WithError(fmt.Errorf("disk gone")).Info("something happened")

	assert.Contains(t, buf.String(), "disk gone")
}

func TestRecorder_KeepsMostRecent(t *testing.T) {
	rec := NewRecorder(3)
	log := slog.New(rec.Wrap(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	log.Info("not recorded")
	for i := range 5 {
		log.Warn(fmt.Sprintf("warning %d", i))
	}

	recent := rec.Recent()
	require.Len(t, recent, 3)
	assert.Equal(t, "warning 2", recent[0].Message)
	assert.Equal(t, "warning 4", recent[2].Message)
	assert.Equal(t, 5, rec.Count("system"))
}

func TestRecorder_Categories(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: slog.LevelError, Format: "json", Writer: &buf})

	log.WithComponent("worker").Warn("cover fetch failed", slog.Any("error", errors.Network(nil, "get")))
	log.Error("index rewrite failed", CategoryKey, "storage")

	recent := log.Recorder().Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, "network", recent[0].Category)
	assert.Equal(t, "worker", recent[0].Component)
	assert.Equal(t, "storage", recent[1].Category)

	assert.NotContains(t, buf.String(), "cover fetch failed")
	assert.Contains(t, buf.String(), "index rewrite failed")

	log.Recorder().Clear()
	assert.Empty(t, log.Recorder().Recent())
}
