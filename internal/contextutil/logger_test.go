package contextutil

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestLoggerFromContext(t *testing.T) {
	if got := LoggerFromContext(context.Background()); got != slog.Default() {
		t.Error("LoggerFromContext() without logger should return slog.Default()")
	}
	if got := LoggerFromContext(nil); got != slog.Default() {
		t.Error("LoggerFromContext(nil) should return slog.Default()")
	}

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	if got := LoggerFromContext(WithLogger(context.Background(), logger)); got != logger {
		t.Error("LoggerFromContext() should return the stored logger")
	}
}

func TestWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)))
	ctx = WithAttrs(ctx, "job", "scan")

	LoggerFromContext(ctx).Info("started")
	if !strings.Contains(buf.String(), "job=scan") {
		t.Errorf("log output = %q, want job=scan", buf.String())
	}
}
