// Package audit emits an append-only JSON line per security-relevant action:
// role-admin mutations and session installs/clears.
package audit

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"
)

// Event is one audit record.
type Event struct {
	Action    string            `json:"action"`
	Actor     string            `json:"actor,omitempty"`
	Entity    string            `json:"entity,omitempty"`
	EntityID  string            `json:"entity_id,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	Meta      map[string]string `json:"meta,omitempty"`
}

type record struct {
	TS    string `json:"ts"`
	Level string `json:"level"`
	Msg   string `json:"msg"`
	Event
}

// Logger serializes audit events to a single writer.
type Logger struct {
	mu  sync.Mutex
	out io.Writer
	now func() time.Time
}

// Option configures a Logger.
type Option func(*Logger)

// WithNow overrides the timestamp source (useful for tests).
func WithNow(fn func() time.Time) Option {
	return func(l *Logger) {
		if fn != nil {
			l.now = fn
		}
	}
}

// New constructs a Logger. A nil writer falls back to stdout.
func New(out io.Writer, opts ...Option) *Logger {
	if out == nil {
		out = os.Stdout
	}
	l := &Logger{out: out, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record writes one event. Marshal failures are swallowed; auditing never
// takes down the request path.
func (l *Logger) Record(e Event) {
	if l == nil {
		return
	}
	rec := record{
		TS:    l.now().UTC().Format(time.RFC3339Nano),
		Level: "info",
		Msg:   "audit",
		Event: e,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.out.Write(append(data, '\n'))
}
