package telemetry

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Sink is the pluggable telemetry destination (spec.md §4.12 "Sink is
// pluggable"). Record never returns an error: a telemetry write must never
// fail the operation it describes (the same best-effort contract
// pkg/audit.Sink follows).
type Sink interface {
	Record(category Category, event any)
}

// FileSink is the default local sink: one newline-delimited JSON file per
// category per day (spec.md §4.12 "A default local sink writes
// newline-delimited JSON per day per category"), grounded on
// original_source's BankingTelemetry._write_to_local_json and this
// package's sibling pkg/audit.FileSink.
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
	return &FileSink{dir: dir, logger: slog.Default().With("component", "telemetry_file_sink")}, nil
}

// Record appends event to today's file for category. A write failure is
// logged, not propagated.
func (f *FileSink) Record(category Category, event any) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := filepath.Join(f.dir, string(category)+"_"+time.Now().UTC().Format("2006-01-02")+".json")
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		f.logger.Warn("failed to open telemetry log file", "path", path, "error", err)
		return
	}
	defer file.Close()

	encoded, err := json.Marshal(event)
	if err != nil {
		f.logger.Warn("failed to marshal telemetry event", "category", category, "error", err)
		return
	}
	if _, err := file.Write(append(encoded, '\n')); err != nil {
		f.logger.Warn("failed to write telemetry event", "path", path, "error", err)
	}
}

// recordedEvent pairs a category with the event recorded under it, for
// MemorySink's and pkg/opsstream's consumption.
type recordedEvent struct {
	Category Category
	Event    any
}

// MemorySink accumulates events in-process; used in tests and as the feed
// for pkg/opsstream's live dashboard fan-out.
type MemorySink struct {
	mu     sync.Mutex
	events []recordedEvent
	subs   []chan recordedEvent
}

// NewMemorySink builds an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Record appends event under category and fans it out to any subscribers.
func (m *MemorySink) Record(category Category, event any) {
	m.mu.Lock()
	rec := recordedEvent{Category: category, Event: event}
	m.events = append(m.events, rec)
	subs := make([]chan recordedEvent, len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- rec:
		default:
			// A slow subscriber never blocks ingestion; it misses events
			// instead (spec.md §4.12 telemetry is best-effort, not a
			// guaranteed-delivery bus).
		}
	}
}

// Events returns a snapshot of every event recorded so far, optionally
// filtered to one category (pass "" for all).
func (m *MemorySink) Events(category Category) []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]any, 0, len(m.events))
	for _, rec := range m.events {
		if category == "" || rec.Category == category {
			out = append(out, rec.Event)
		}
	}
	return out
}

// Subscribe registers a channel that receives every future Record call,
// for pkg/opsstream's WebSocket fan-out. The returned func unsubscribes.
func (m *MemorySink) Subscribe(buffer int) (<-chan recordedEvent, func()) {
	ch := make(chan recordedEvent, buffer)
	m.mu.Lock()
	m.subs = append(m.subs, ch)
	m.mu.Unlock()

	unsubscribe := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, existing := range m.subs {
			if existing == ch {
				m.subs = append(m.subs[:i], m.subs[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, unsubscribe
}
