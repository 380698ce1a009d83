package audit

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoggerWritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "audit.log")
	l := NewLogger(path, nil)
	ctx := context.Background()

	if err := l.Log(ctx, Event{Actor: "alice", Action: "auth.login", Outcome: OutcomeSuccess, SessionID: "sid-1"}); err != nil {
		t.Fatalf("Log() error: %v", err)
	}
	if err := l.Log(ctx, Event{Actor: "alice", Action: "employee.delete", Target: "7", Outcome: OutcomeSuccess}); err != nil {
		t.Fatalf("Log() error: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open audit log: %v", err)
	}
	defer f.Close()

	var events []Event
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e Event
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("decode audit line: %v", err)
		}
		events = append(events, e)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 audit lines, got %d", len(events))
	}
	if events[0].Action != "auth.login" || events[0].SessionID != "sid-1" || events[0].At.IsZero() {
		t.Fatalf("unexpected first event: %+v", events[0])
	}
	if events[1].Target != "7" {
		t.Fatalf("unexpected second event: %+v", events[1])
	}
}

func TestLoggerMirrorsToSlog(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger("", slog.New(slog.NewTextHandler(&buf, nil)))

	if err := l.Log(context.Background(), Event{Actor: "bob", Action: "auth.logout", Outcome: OutcomeSuccess}); err != nil {
		t.Fatalf("Log() error: %v", err)
	}
	if !strings.Contains(buf.String(), "action=auth.logout") {
		t.Fatalf("expected slog mirror, got %q", buf.String())
	}
}

func TestNilLoggerIsNoop(t *testing.T) {
	var l *Logger
	if err := l.Log(context.Background(), Event{Action: "x"}); err != nil {
		t.Fatalf("nil logger returned error: %v", err)
	}
}
