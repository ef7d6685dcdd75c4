package log

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileLoggerCreatesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.flog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	defer logger.Close()

	// File should exist
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("capture file was not created")
	}
}

func TestFileLoggerWritesCBOR(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.flog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	event := Event{
		Timestamp: time.Now(),
		RunID:     "run-123",
		Component: ComponentSession,
		Category:  CategoryActuation,
		DeviceID:  0x1234,
		Actuation: &ActuationEvent{
			Kind:      "medium",
			Code:      4,
			Intensity: 0.8,
			Attempt:   1,
			Delivered: true,
		},
	}

	logger.Log(event)
	logger.Close()

	// Read the file and decode
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read capture file: %v", err)
	}

	if len(data) == 0 {
		t.Fatal("capture file is empty")
	}

	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("failed to decode event: %v", err)
	}

	if decoded.RunID != event.RunID {
		t.Errorf("RunID: got %q, want %q", decoded.RunID, event.RunID)
	}
	if decoded.DeviceID != event.DeviceID {
		t.Errorf("DeviceID: got %#x, want %#x", decoded.DeviceID, event.DeviceID)
	}
	if decoded.Actuation == nil {
		t.Error("Actuation is nil")
	} else {
		if decoded.Actuation.Code != 4 {
			t.Errorf("Actuation.Code: got %d, want 4", decoded.Actuation.Code)
		}
		if !decoded.Actuation.Delivered {
			t.Error("Actuation.Delivered = false, want true")
		}
	}
}

func TestFileLoggerAppends(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.flog")

	// Write first event
	logger1, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	logger1.Log(Event{
		Timestamp: time.Now(),
		RunID:     "run-1",
		Component: ComponentTap,
		Category:  CategoryInput,
		KeyDown:   &KeyDownEvent{},
	})
	logger1.Close()

	info1, _ := os.Stat(path)
	size1 := info1.Size()

	// Open again and write second event
	logger2, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed on reopen: %v", err)
	}
	logger2.Log(Event{
		Timestamp: time.Now(),
		RunID:     "run-2",
		Component: ComponentTap,
		Category:  CategoryInput,
		KeyDown:   &KeyDownEvent{},
	})
	logger2.Close()

	info2, _ := os.Stat(path)
	if info2.Size() <= size1 {
		t.Errorf("file size = %d after append, want > %d", info2.Size(), size1)
	}
}
