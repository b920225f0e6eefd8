package telemetry

// MultiSink fans a single Record call out to every wrapped Sink, letting a
// process both persist events durably (FileSink) and feed them to a live
// in-process subscriber (MemorySink, consumed by pkg/opsstream) without the
// two sinks knowing about each other.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink builds a MultiSink over sinks, in the order Record will call
// them.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Record forwards event to every wrapped sink.
func (m *MultiSink) Record(category Category, event any) {
	for _, s := range m.sinks {
		s.Record(category, event)
	}
}
