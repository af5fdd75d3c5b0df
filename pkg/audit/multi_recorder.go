package audit

import (
	"context"
)

// SinkObserver is notified of each sink write. The metrics layer satisfies
// it.
type SinkObserver interface {
	ObserveAuditEvent(sink, status string, failed bool)
}

// MultiRecorder fans an event out to every configured sink synchronously.
// A failing sink does not stop delivery to the others; the first error is
// returned so the caller can log it.
type MultiRecorder struct {
	sinks    []namedSink
	observer SinkObserver
}

type namedSink struct {
	name string
	rec  Recorder
}

// NewMultiRecorder creates an empty fan-out recorder. observer may be nil.
func NewMultiRecorder(observer SinkObserver) *MultiRecorder {
	return &MultiRecorder{observer: observer}
}

// Add registers a sink under a name used in logs and metrics.
func (m *MultiRecorder) Add(name string, rec Recorder) {
	m.sinks = append(m.sinks, namedSink{name: name, rec: rec})
}

// Record implements Recorder.
func (m *MultiRecorder) Record(ctx context.Context, event *Event) error {
	var firstErr error
	for _, s := range m.sinks {
		err := s.rec.Record(ctx, event)
		if m.observer != nil {
			m.observer.ObserveAuditEvent(s.name, string(event.Status), err != nil)
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close closes all sinks, returning the first error.
func (m *MultiRecorder) Close() error {
	var firstErr error
	for _, s := range m.sinks {
		if err := s.rec.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
