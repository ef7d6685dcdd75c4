package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes capture events to an slog.Logger.
// Useful for development when you want to see engine events in console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level
// (Warn level for error events).
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("run_id", event.RunID),
		slog.String("component", event.Component.String()),
		slog.String("category", event.Category.String()),
	}

	if event.DeviceID != 0 {
		attrs = append(attrs, slog.Uint64("device_id", event.DeviceID))
	}

	// Add type-specific attributes
	switch {
	case event.Actuation != nil:
		attrs = append(attrs,
			slog.String("kind", event.Actuation.Kind),
			slog.Int("code", int(event.Actuation.Code)),
			slog.Float64("intensity", float64(event.Actuation.Intensity)),
			slog.Int("attempt", int(event.Actuation.Attempt)),
			slog.Bool("delivered", event.Actuation.Delivered),
		)
	case event.KeyDown != nil:
		if event.KeyDown.Dropped {
			attrs = append(attrs, slog.Bool("dropped", true))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("entity", event.StateChange.Entity.String()),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.OldState != "" {
			attrs = append(attrs, slog.String("old_state", event.StateChange.OldState))
		}
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Error != nil:
		attrs = append(attrs, slog.String("error", event.Error.Message))
		if event.Error.Code != nil {
			attrs = append(attrs, slog.Int("status", int(*event.Error.Code)))
		}
		if event.Error.Context != "" {
			attrs = append(attrs, slog.String("context", event.Error.Context))
		}
	}

	level := slog.LevelDebug
	if event.Category == CategoryError {
		level = slog.LevelWarn
	}
	a.logger.LogAttrs(context.Background(), level, "engine event", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
