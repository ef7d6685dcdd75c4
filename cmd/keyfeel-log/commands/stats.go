package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/keyfeel/keyfeel-go/pkg/log"
)

// Stats holds aggregate statistics about a capture file.
type Stats struct {
	TotalEvents       int
	EventsByComponent map[log.Component]int
	EventsByCategory  map[log.Category]int
	Runs              map[string]*RunStatsEntry
	Actuations        int
	Delivered         int
	Retries           int
	KeyDowns          int
	Dropped           int
	Errors            int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// RunStatsEntry holds statistics for a single engine run.
type RunStatsEntry struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
	DeviceID  uint64
}

// RunStats analyzes the capture file and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open capture file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByComponent: make(map[log.Component]int),
		EventsByCategory:  make(map[log.Category]int),
		Runs:              make(map[string]*RunStatsEntry),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		stats.TotalEvents++
		stats.EventsByComponent[event.Component]++
		stats.EventsByCategory[event.Category]++

		// Track time range
		if stats.TimeRange.Start.IsZero() || event.Timestamp.Before(stats.TimeRange.Start) {
			stats.TimeRange.Start = event.Timestamp
		}
		if event.Timestamp.After(stats.TimeRange.End) {
			stats.TimeRange.End = event.Timestamp
		}

		// Track run stats
		run, ok := stats.Runs[event.RunID]
		if !ok {
			run = &RunStatsEntry{
				FirstSeen: event.Timestamp,
				LastSeen:  event.Timestamp,
			}
			stats.Runs[event.RunID] = run
		}
		run.Events++
		if event.Timestamp.After(run.LastSeen) {
			run.LastSeen = event.Timestamp
		}
		if event.DeviceID != 0 && run.DeviceID == 0 {
			run.DeviceID = event.DeviceID
		}

		if event.Actuation != nil {
			stats.Actuations++
			if event.Actuation.Delivered {
				stats.Delivered++
			}
			if event.Actuation.Attempt > 1 {
				stats.Retries++
			}
		}
		if event.KeyDown != nil {
			stats.KeyDowns++
			if event.KeyDown.Dropped {
				stats.Dropped++
			}
		}
		if event.Error != nil {
			stats.Errors++
		}
	}

	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Keyfeel Capture Statistics ===")
	fmt.Fprintln(w)

	// Time range
	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	// Total events
	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	// Events by component
	fmt.Fprintln(w, "Events by Component:")
	for _, comp := range []log.Component{log.ComponentDiscovery, log.ComponentSession, log.ComponentTap, log.ComponentTrust, log.ComponentService} {
		if count := stats.EventsByComponent[comp]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", comp.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	// Events by category
	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryActuation, log.CategoryInput, log.CategoryState, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	// Feedback summary
	if stats.KeyDowns > 0 || stats.Actuations > 0 {
		fmt.Fprintln(w, "Feedback:")
		fmt.Fprintf(w, "  Keystrokes:  %d", stats.KeyDowns)
		if stats.Dropped > 0 {
			fmt.Fprintf(w, " (%d dropped)", stats.Dropped)
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  Actuations:  %d (%d delivered", stats.Actuations, stats.Delivered)
		if stats.Retries > 0 {
			fmt.Fprintf(w, ", %d retries", stats.Retries)
		}
		fmt.Fprintln(w, ")")
		fmt.Fprintln(w)
	}

	// Runs
	fmt.Fprintf(w, "Runs: %d\n", len(stats.Runs))
	if len(stats.Runs) > 0 {
		// Sort by first seen time
		type runInfo struct {
			id    string
			stats *RunStatsEntry
		}
		runs := make([]runInfo, 0, len(stats.Runs))
		for id, rs := range stats.Runs {
			runs = append(runs, runInfo{id, rs})
		}
		sort.Slice(runs, func(i, j int) bool {
			return runs[i].stats.FirstSeen.Before(runs[j].stats.FirstSeen)
		})

		fmt.Fprintln(w, "")
		for _, r := range runs {
			duration := r.stats.LastSeen.Sub(r.stats.FirstSeen).Round(time.Millisecond)
			shortID := r.id
			if len(shortID) > 8 {
				shortID = shortID[:8]
			}
			fmt.Fprintf(w, "  [%s] %d events, duration %s\n", shortID, r.stats.Events, duration)
			if r.stats.DeviceID != 0 {
				fmt.Fprintf(w, "           Device: 0x%x\n", r.stats.DeviceID)
			}
		}
	}

	// Errors
	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
