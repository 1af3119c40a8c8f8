package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

var debugEnabled atomic.Bool

func init() {
	if raw := strings.TrimSpace(os.Getenv("LOG_DEBUG")); raw != "" {
		if parsed, err := strconv.ParseBool(raw); err == nil {
			debugEnabled.Store(parsed)
		}
	}
}

// SetDebug toggles debug-level output at runtime. Underwriting runs started
// with debug=true enable it for the duration of the run.
func SetDebug(enabled bool) {
	debugEnabled.Store(enabled)
}

// Info writes an info-level log line with the given fields.
func Info(msg string, fields map[string]any) {
	write("info", msg, fields)
}

// Error writes an error-level log line with the given fields.
func Error(msg string, fields map[string]any) {
	write("error", msg, fields)
}

// Debug writes a debug-level log line when debug output is enabled.
func Debug(msg string, fields map[string]any) {
	if !debugEnabled.Load() {
		return
	}
	write("debug", msg, fields)
}

func write(level, msg string, fields map[string]any) {
	entry := make(map[string]any, len(fields)+3)
	entry["ts"] = time.Now().UTC().Format(time.RFC3339)
	entry["level"] = level
	entry["msg"] = msg
	for k, v := range fields {
		entry[k] = v
	}
	data, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(os.Stdout, `{"ts":"%s","level":"error","msg":"logger marshal failed","err":%q}`+"\n", time.Now().UTC().Format(time.RFC3339), err.Error())
		return
	}
	fmt.Fprintln(os.Stdout, string(data))
}
