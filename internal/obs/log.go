package obs

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

var (
	logMu  sync.Mutex
	logOut = log.New(os.Stdout, "", 0)
)

// SetLogOutput redirects service log lines, mainly for tests.
func SetLogOutput(w io.Writer) {
	logMu.Lock()
	defer logMu.Unlock()
	logOut = log.New(w, "", 0)
}

// Log emits one JSON line stamped with ts, level and msg. Caller fields with
// those keys are overwritten by the stamp.
func Log(level, msg string, fields map[string]any) {
	entry := make(map[string]any, len(fields)+3)
	for k, v := range fields {
		entry[k] = v
	}
	entry["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	entry["level"] = level
	entry["msg"] = msg

	logMu.Lock()
	defer logMu.Unlock()
	data, err := json.Marshal(entry)
	if err != nil {
		logOut.Println(`{"level":"error","msg":"log marshal failed"}`)
		return
	}
	logOut.Println(string(data))
}

// LogRequest records a completed HTTP request. The conventional fields are
// request_id, method, path, status and duration_ms; authz and session
// outcomes are counted separately as metrics.
func LogRequest(fields map[string]any) {
	Log("info", "request_complete", fields)
}
