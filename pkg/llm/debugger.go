package llm

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// RequestDebugger writes raw LLM request and response payloads to disk
// for inspection. It centralizes directory creation, file naming, and
// safe writing; a disabled debugger is a no-op.
type RequestDebugger struct {
	dir     string
	enabled bool
}

// NewRequestDebugger creates a debugger for one provider.
// Dump directories are created lazily on the first write.
func NewRequestDebugger(provider string, enabled bool) *RequestDebugger {
	if !enabled {
		return &RequestDebugger{enabled: false}
	}
	return &RequestDebugger{
		dir:     filepath.Join("debug", "requests", provider),
		enabled: true,
	}
}

// Dump serializes the payload as JSON into a timestamped file.
// Failures are logged and swallowed; debugging must never break a request.
func (d *RequestDebugger) Dump(label string, payload any) {
	if !d.enabled {
		return
	}

	if err := os.MkdirAll(d.dir, 0755); err != nil {
		slog.Warn("Failed to create debug directory", "dir", d.dir, "error", err)
		return
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		slog.Warn("Failed to marshal debug payload", "label", label, "error", err)
		return
	}

	timestamp := time.Now().Format("20060102_150405.000")
	filename := filepath.Join(d.dir, fmt.Sprintf("%s_%s.json", timestamp, label))
	if err := os.WriteFile(filename, data, 0644); err != nil {
		slog.Warn("Failed to write debug file", "file", filename, "error", err)
	}
}
