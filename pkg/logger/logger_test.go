package logger

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestLoggerInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}
}

func TestInitWithWriter(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWithWriter(&buf); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	ctx := context.Background()
	Get().Info(ctx, "arm detected", String("side", "right"), Float64("torso_range", 12.5))

	out := buf.String()
	if !strings.Contains(out, "arm detected") {
		t.Errorf("expected message in output, got %q", out)
	}
	if !strings.Contains(out, "side=right") {
		t.Errorf("expected side field in output, got %q", out)
	}
	if !strings.Contains(out, "source=logger_test.go") && !strings.Contains(out, "source=pkg/logger/logger_test.go") {
		t.Errorf("expected caller source in output, got %q", out)
	}

	if err := InitWithWriter(nil); err == nil {
		t.Error("expected error for nil writer")
	}
}

func TestSetLevelString(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWithWriter(&buf); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	ctx := context.Background()

	Get().Debug(ctx, "hidden")
	if strings.Contains(buf.String(), "hidden") {
		t.Error("debug record written at info level")
	}

	if err := SetLevelString("DEBUG"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	Get().Debug(ctx, "visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Error("debug record missing at debug level")
	}

	for _, lvl := range []string{"", "info", "warn", "warning", "error"} {
		if err := SetLevelString(lvl); err != nil {
			t.Errorf("level %q rejected: %v", lvl, err)
		}
	}
	if err := SetLevelString("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestLoggerNamed(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWithWriter(&buf); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	Named("evaluator").Info(context.Background(), "test message", Error(errors.New("boom")))
	if !strings.Contains(buf.String(), "evaluator.error=boom") {
		t.Errorf("expected grouped field, got %q", buf.String())
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	ctx := context.Background()
	l.Info(ctx, "discarded")
	l.Error(ctx, "discarded")
	l.Named("x").Debug(ctx, "discarded")
}
