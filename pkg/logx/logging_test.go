package logx

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw  string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{" INFO ", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"ERROR", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"loud", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.raw, zerolog.InfoLevel); got != tt.want {
			t.Fatalf("parseLevel(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()
	if got := truncate("short", 100); got != "short" {
		t.Fatalf("got %q", got)
	}
	long := strings.Repeat("x", 50)
	got := truncate(long, 20)
	if len(got) != 20 || !strings.HasSuffix(got, "...") {
		t.Fatalf("got %q (len %d)", got, len(got))
	}
	if got := truncate(long, 5); got != "xxxxx" {
		t.Fatalf("tiny limit: got %q", got)
	}
	if got := truncate(long, 0); got != long {
		t.Fatalf("zero limit should pass through, got %q", got)
	}
}

func TestFormatTelegramJSON(t *testing.T) {
	t.Parallel()
	line := `{"level":"warn","time":"2026-02-05T08:00:00.000Z","message":"dispatch failed","post":12,"err":"boom"}`
	got := formatTelegramJSON([]byte(line))
	if !strings.HasPrefix(got, "[WARN] dispatch failed") {
		t.Fatalf("prefix wrong: %q", got)
	}
	if !strings.Contains(got, "post=12") || !strings.Contains(got, "err=boom") {
		t.Fatalf("fields missing: %q", got)
	}
	if strings.Contains(got, "time=") {
		t.Fatalf("time should be dropped: %q", got)
	}
}

func TestFormatTelegramJSONPlainFallback(t *testing.T) {
	t.Parallel()
	if got := formatTelegramJSON([]byte("not json at all\n")); got != "not json at all" {
		t.Fatalf("got %q", got)
	}
}

func TestNopLoggerIsZero(t *testing.T) {
	t.Parallel()
	var l Logger
	if !l.IsZero() {
		t.Fatal("zero value should report IsZero")
	}
	n := Nop()
	// Must not panic.
	n.Info("ignored", String("k", "v"), Err(nil))
	if n.With(Int("a", 1)).IsZero() {
		t.Fatal("logger with fields should not be zero")
	}
}
