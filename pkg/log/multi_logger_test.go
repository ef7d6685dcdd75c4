package log

import (
	"testing"
	"time"
)

// recordingLogger collects events for testing
type recordingLogger struct {
	events []Event
}

func (r *recordingLogger) Log(event Event) {
	r.events = append(r.events, event)
}

func TestMultiLoggerCallsAll(t *testing.T) {
	sink1 := &recordingLogger{}
	sink2 := &recordingLogger{}
	sink3 := &recordingLogger{}

	multi := NewMultiLogger(sink1, sink2, sink3)

	event := Event{
		Timestamp: time.Now(),
		RunID:     "run-123",
		Component: ComponentSession,
		Category:  CategoryActuation,
		DeviceID:  0x1234,
	}

	multi.Log(event)

	for i, sink := range []*recordingLogger{sink1, sink2, sink3} {
		if len(sink.events) != 1 {
			t.Errorf("sink %d: got %d events, want 1", i, len(sink.events))
			continue
		}
		if sink.events[0].RunID != "run-123" {
			t.Errorf("sink %d: RunID = %q, want %q", i, sink.events[0].RunID, "run-123")
		}
	}
}

func TestMultiLoggerEmptyList(t *testing.T) {
	multi := NewMultiLogger()

	// Should not panic with no sinks configured
	multi.Log(Event{
		Timestamp: time.Now(),
		RunID:     "run-123",
		Component: ComponentTap,
		Category:  CategoryInput,
	})
}

func TestMultiLoggerSingleLogger(t *testing.T) {
	sink := &recordingLogger{}
	multi := NewMultiLogger(sink)

	event := Event{
		Timestamp: time.Now(),
		RunID:     "run-456",
		Component: ComponentTrust,
		Category:  CategoryState,
	}

	multi.Log(event)

	if len(sink.events) != 1 {
		t.Fatalf("got %d events, want 1", len(sink.events))
	}
	if sink.events[0].Component != ComponentTrust {
		t.Errorf("Component = %v, want ComponentTrust", sink.events[0].Component)
	}
}
