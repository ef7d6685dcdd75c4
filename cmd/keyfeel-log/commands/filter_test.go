package commands

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/keyfeel/keyfeel-go/pkg/log"
)

func countEvents(t *testing.T, path string) int {
	t.Helper()
	reader, err := log.NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	count := 0
	for {
		_, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		count++
	}
	return count
}

func TestFilterByComponent(t *testing.T) {
	ts := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, Component: log.ComponentTap, Category: log.CategoryInput, KeyDown: &log.KeyDownEvent{}},
		{Timestamp: ts, Component: log.ComponentSession, Category: log.CategoryActuation,
			Actuation: &log.ActuationEvent{Kind: "medium", Code: 4, Attempt: 1, Delivered: true}},
		{Timestamp: ts, Component: log.ComponentSession, Category: log.CategoryState},
	}

	path := createTestCaptureFile(t, events)
	out := filepath.Join(t.TempDir(), "filtered.flog")

	err := RunFilter(path, FilterOptions{Output: out, Component: "session"})
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}

	if got := countEvents(t, out); got != 2 {
		t.Errorf("filtered file has %d events, want 2", got)
	}
}

func TestFilterByTimeWindow(t *testing.T) {
	base := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: base, RunID: "run-1"},
		{Timestamp: base.Add(time.Minute), RunID: "run-1"},
		{Timestamp: base.Add(2 * time.Minute), RunID: "run-1"},
	}

	path := createTestCaptureFile(t, events)
	out := filepath.Join(t.TempDir(), "filtered.flog")

	err := RunFilter(path, FilterOptions{
		Output:    out,
		TimeStart: base.Add(30 * time.Second).Format(time.RFC3339),
		TimeEnd:   base.Add(90 * time.Second).Format(time.RFC3339),
	})
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}

	if got := countEvents(t, out); got != 1 {
		t.Errorf("filtered file has %d events, want 1", got)
	}
}

func TestFilterInvalidComponent(t *testing.T) {
	path := createTestCaptureFile(t, nil)
	out := filepath.Join(t.TempDir(), "filtered.flog")

	err := RunFilter(path, FilterOptions{Output: out, Component: "bogus"})
	if err == nil {
		t.Error("RunFilter with invalid component: error = nil, want error")
	}
}
