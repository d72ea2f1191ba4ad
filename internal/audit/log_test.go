package audit

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

func TestRecordWritesJSONLine(t *testing.T) {
	var buf bytes.Buffer
	fixed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	l := New(&buf, WithNow(func() time.Time { return fixed }))

	l.Record(Event{
		Action:    "rbac.role.create",
		Actor:     "admin-1",
		Entity:    "role",
		EntityID:  "r-1",
		RequestID: "req-1",
		Meta:      map[string]string{"name": "data_analyst"},
	})

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v (line %q)", err, buf.String())
	}
	if got["ts"] != "2026-03-01T10:00:00Z" {
		t.Fatalf("unexpected ts: %v", got["ts"])
	}
	if got["msg"] != "audit" || got["action"] != "rbac.role.create" || got["actor"] != "admin-1" {
		t.Fatalf("unexpected record: %v", got)
	}
	meta, _ := got["meta"].(map[string]any)
	if meta["name"] != "data_analyst" {
		t.Fatalf("unexpected meta: %v", got["meta"])
	}
}

func TestRecordOnNilLoggerIsNoop(t *testing.T) {
	var l *Logger
	l.Record(Event{Action: "noop"})
}
