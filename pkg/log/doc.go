// Package log provides structured event capture for the feedback engine.
//
// This package defines the Logger interface and Event types for recording
// what the engine did: actuations fired (and retried), tap lifecycle and
// re-enables, trust changes, and the failures that are deliberately never
// raised to callers. It is separate from operational logging (slog) -
// event capture provides a machine-readable trace for debugging wedged
// hardware and dropped feedback.
//
// Key-down capture records only that a keystroke was observed; key codes
// and characters are never recorded.
//
// # Basic Usage
//
// Applications configure capture by providing a Logger implementation:
//
//	// For development: log to console via slog
//	cfg.CaptureLogger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	cfg.CaptureLogger, _ = log.NewFileLogger("/var/log/keyfeel/engine.flog")
//
//	// Both: use MultiLogger
//	cfg.CaptureLogger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    log.NewFileLogger("/var/log/keyfeel/engine.flog"),
//	)
//
// # File Format
//
// Capture files use CBOR encoding with .flog extension. The keyfeel-log
// CLI tool provides viewing, filtering, and summary statistics.
package log
