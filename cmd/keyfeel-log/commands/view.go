// Package commands implements the keyfeel-log CLI commands.
package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/keyfeel/keyfeel-go/pkg/log"
)

// ViewFilter specifies criteria for filtering events in the view command.
type ViewFilter struct {
	Component *log.Component
	Category  *log.Category
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [run:id] COMPONENT Type
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	runID := shortenRunID(event.RunID)

	var typeLabel string
	switch {
	case event.Actuation != nil:
		typeLabel = "Actuation"
	case event.KeyDown != nil:
		typeLabel = "KeyDown"
	case event.StateChange != nil:
		typeLabel = "State"
	case event.Error != nil:
		typeLabel = "Error"
	default:
		typeLabel = "Unknown"
	}

	fmt.Fprintf(w, "%s [run:%s] %-9s %s\n", ts, runID, event.Component, typeLabel)

	if event.DeviceID != 0 {
		fmt.Fprintf(w, "  Device: 0x%x\n", event.DeviceID)
	}

	// Type-specific details
	switch {
	case event.Actuation != nil:
		formatActuationDetails(w, event.Actuation)
	case event.KeyDown != nil:
		formatKeyDownDetails(w, event.KeyDown)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w) // Blank line between events
}

// shortenRunID returns the first 8 characters of the run ID.
func shortenRunID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

// formatActuationDetails writes actuation-specific details.
func formatActuationDetails(w io.Writer, a *log.ActuationEvent) {
	fmt.Fprintf(w, "  Kind: %s (code %d)\n", a.Kind, a.Code)
	fmt.Fprintf(w, "  Intensity: %.2f\n", a.Intensity)
	fmt.Fprintf(w, "  Attempt: %d\n", a.Attempt)
	if a.Delivered {
		fmt.Fprintf(w, "  Delivered: yes\n")
	} else {
		fmt.Fprintf(w, "  Delivered: no\n")
	}
}

// formatKeyDownDetails writes keystroke details.
func formatKeyDownDetails(w io.Writer, k *log.KeyDownEvent) {
	if k.Dropped {
		fmt.Fprintf(w, "  Dropped: queue full\n")
	}
}

// formatStateChangeDetails writes state change details.
func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	fmt.Fprintf(w, "  Entity: %s\n", sc.Entity)
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

// formatErrorDetails writes error details.
func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Code != nil {
		fmt.Fprintf(w, "  Code: %d\n", *err.Code)
	}
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
}

// ParseComponentFlag parses a component string from command-line flag (case-insensitive).
func ParseComponentFlag(s string) (log.Component, error) {
	switch strings.ToLower(s) {
	case "discovery":
		return log.ComponentDiscovery, nil
	case "session":
		return log.ComponentSession, nil
	case "tap":
		return log.ComponentTap, nil
	case "trust":
		return log.ComponentTrust, nil
	case "service":
		return log.ComponentService, nil
	default:
		return 0, fmt.Errorf("invalid component: %s (must be discovery, session, tap, trust, or service)", s)
	}
}

// ParseCategoryFlag parses a category string from command-line flag (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "actuation":
		return log.CategoryActuation, nil
	case "input":
		return log.CategoryInput, nil
	case "state":
		return log.CategoryState, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be actuation, input, state, or error)", s)
	}
}

// RunView executes the view command.
func RunView(path string, filter ViewFilter, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, log.Filter{
		Component: filter.Component,
		Category:  filter.Category,
	})
	if err != nil {
		return fmt.Errorf("failed to open capture file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		formatEvent(output, event)
	}

	return nil
}
