// Package audit appends security-relevant events as JSON lines.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Event identifies sessions by their id, never by token.
type Event struct {
	At        time.Time `json:"at"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Target    string    `json:"target,omitempty"`
	Outcome   string    `json:"outcome"`
	RequestID string    `json:"request_id,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	RemoteIP  string    `json:"remote_ip,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

type Logger struct {
	path    string
	log     *slog.Logger
	nowFunc func() time.Time

	mu sync.Mutex
}

// NewLogger writes to path; an empty path disables the file and keeps
// only the slog mirror. A nil log disables the mirror.
func NewLogger(path string, log *slog.Logger) *Logger {
	return &Logger{path: path, log: log, nowFunc: time.Now}
}

func (l *Logger) Log(ctx context.Context, e Event) error {
	if l == nil {
		return nil
	}
	if e.At.IsZero() {
		e.At = l.nowFunc().UTC()
	}
	if l.log != nil {
		l.log.InfoContext(ctx, "audit",
			"action", e.Action,
			"actor", e.Actor,
			"target", e.Target,
			"outcome", e.Outcome,
			"request_id", e.RequestID,
			"session_id", e.SessionID,
		)
	}
	if l.path == "" {
		return nil
	}

	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("mkdir audit log dir: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open audit log file: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("write audit log entry: %w", err)
	}
	return nil
}
