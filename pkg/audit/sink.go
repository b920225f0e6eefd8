package audit

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// FileSink appends one newline-delimited JSON record per call to a daily
// file under Dir, named mcp_audit_YYYY-MM-DD.json. Grounded on
// original_source's MCPAuditLogger._write_audit_log.
type FileSink struct {
	dir    string
	mu     sync.Mutex
	logger *slog.Logger
}

// NewFileSink builds a FileSink writing under dir, creating it if necessary.
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileSink{dir: dir, logger: slog.Default().With("component", "audit_file_sink")}, nil
}

// Record appends rec to today's audit log file. A write failure is logged,
// not propagated — per spec.md §4.7 the audit trail is best-effort and must
// never fail the tool call it describes.
func (f *FileSink) Record(rec Record) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := filepath.Join(f.dir, "mcp_audit_"+rec.Timestamp.Format("2006-01-02")+".json")
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		f.logger.Warn("failed to open audit log file", "path", path, "error", err)
		return
	}
	defer file.Close()

	encoded, err := json.Marshal(rec)
	if err != nil {
		f.logger.Warn("failed to marshal audit record", "error", err)
		return
	}
	if _, err := file.Write(append(encoded, '\n')); err != nil {
		f.logger.Warn("failed to write audit record", "path", path, "error", err)
	}
}

// MemorySink accumulates records in-process; used in tests and for the
// telemetry sink's live-tail feed.
type MemorySink struct {
	mu      sync.Mutex
	records []Record
}

// NewMemorySink builds an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Record appends rec.
func (m *MemorySink) Record(rec Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
}

// Records returns a snapshot of all recorded entries.
func (m *MemorySink) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, len(m.records))
	copy(out, m.records)
	return out
}
