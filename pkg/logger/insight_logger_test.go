package logger

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func TestLogger_PromotesKnownFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: LevelDebug, Output: &buf, Service: "test"})

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	ctx = context.WithValue(ctx, MailboxIDKey, "me")

	log.WithContext(ctx).
		WithField("run_id", "run-1").
		WithField("contacts", 3).
		WithError(errors.New("boom")).
		Info("analysis %s", "done")

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}

	if entry.Message != "analysis done" {
		t.Errorf("Message = %q, want %q", entry.Message, "analysis done")
	}
	if entry.RequestID != "req-1" || entry.MailboxID != "me" || entry.RunID != "run-1" {
		t.Errorf("promoted ids = %q/%q/%q", entry.RequestID, entry.MailboxID, entry.RunID)
	}
	if entry.Error != "boom" {
		t.Errorf("Error = %q, want boom", entry.Error)
	}
	if _, ok := entry.Fields["contacts"]; !ok {
		t.Errorf("Fields = %v, want contacts key", entry.Fields)
	}
	if _, ok := entry.Fields["run_id"]; ok {
		t.Errorf("run_id should not remain in Fields")
	}
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: LevelWarn, Output: &buf})

	log.Debug("hidden")
	log.Info("hidden")
	log.Warn("shown")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], `"level":"WARN"`) {
		t.Errorf("line = %s, want WARN level", lines[0])
	}
}

func TestLogger_FieldsDoNotLeakBetweenChildren(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Level: LevelInfo, Output: &buf})

	base.WithField("a", 1).Info("first")
	buf.Reset()
	base.Info("second")

	if strings.Contains(buf.String(), `"a"`) {
		t.Errorf("parent logger carries child field: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		"WARNING": LevelWarn,
		"error":   LevelError,
		"bogus":   LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
