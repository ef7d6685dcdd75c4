package eventtap

import (
	"log/slog"
	"sync"
	"time"

	"github.com/keyfeel/keyfeel-go/pkg/log"
	"github.com/keyfeel/keyfeel-go/pkg/native"
)

// DefaultQueueSize is the default key-down notification queue depth.
const DefaultQueueSize = 128

// State represents the tap state.
type State uint8

const (
	// StateStopped indicates no installed monitor.
	StateStopped State = iota

	// StateStarting indicates installation is in progress.
	StateStarting

	// StateRunning indicates the monitor is installed and attached.
	StateRunning
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "STOPPED"
	case StateStarting:
		return "STARTING"
	case StateRunning:
		return "RUNNING"
	default:
		return "UNKNOWN"
	}
}

// Authorizer reports whether global input observation is authorized.
// *trust.Gate satisfies this.
type Authorizer interface {
	Granted() bool
}

// KeyDown is one observed keystroke. Key codes are deliberately not
// carried; the engine only needs to know that a key went down.
type KeyDown struct {
	// At is when the callback observed the event.
	At time.Time
}

// Config configures a Tap.
type Config struct {
	// API is the native event tap binding. Required.
	API native.EventTapAPI

	// Gate authorizes tap installation. Required.
	Gate Authorizer

	// QueueSize overrides DefaultQueueSize. Mainly for tests.
	QueueSize int

	// Logger for operational output. nil means slog.Default().
	Logger *slog.Logger

	// Capture receives engine events. nil disables capture.
	Capture log.Logger

	// RunID stamps capture events. Optional.
	RunID string
}

// Tap owns the process's single keyboard monitor.
type Tap struct {
	mu sync.Mutex

	api  native.EventTapAPI
	gate Authorizer

	state State
	tap   native.TapRef
	src   native.SourceRef

	// events carries key-down notifications to the primary loop. The
	// callback posts without blocking and drops when full; feedback is
	// best-effort under load.
	events chan KeyDown

	logger  *slog.Logger
	capture log.Logger
	runID   string
}

// NewTap creates a Tap. The monitor is not installed until Start.
func NewTap(cfg Config) *Tap {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	capture := cfg.Capture
	if capture == nil {
		capture = log.NoopLogger{}
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Tap{
		api:     cfg.API,
		gate:    cfg.Gate,
		events:  make(chan KeyDown, size),
		logger:  logger,
		capture: capture,
		runID:   cfg.RunID,
	}
}

// Events returns the key-down notification channel. The channel is owned
// by the Tap and stays open for the Tap's lifetime.
func (t *Tap) Events() <-chan KeyDown {
	return t.events
}

// State returns the current tap state.
func (t *Tap) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Running reports whether the monitor is installed.
func (t *Tap) Running() bool {
	return t.State() == StateRunning
}

// Start installs the keyboard monitor. Returns true when the monitor is
// running (including when it already was). Returns false without any
// native call when trust has not been granted, and when the native
// installation fails.
func (t *Tap) Start() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == StateRunning {
		return true
	}
	if !t.gate.Granted() {
		t.logger.Debug("event tap start refused: not authorized")
		return false
	}

	t.state = StateStarting

	tap, err := t.api.CreateKeyDownTap(t.handleEvent)
	if err != nil {
		t.logger.Warn("event tap installation failed", "error", err)
		t.captureError(err, "install")
		t.state = StateStopped
		return false
	}

	src, err := t.api.CreateRunLoopSource(tap)
	if err != nil {
		t.logger.Warn("event tap source creation failed", "error", err)
		t.captureError(err, "install")
		t.api.ReleaseTap(tap)
		t.state = StateStopped
		return false
	}

	t.api.AddSource(src)
	t.tap = tap
	t.src = src
	t.state = StateRunning
	t.captureState(StateStopped, StateRunning, "")
	t.logger.Info("event tap running")
	return true
}

// Stop disables the monitor, detaches and releases the run-loop source,
// and clears the native handles. Idempotent.
func (t *Tap) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StateRunning {
		return
	}

	t.api.Enable(t.tap, false)
	t.api.RemoveSource(t.src)
	t.api.ReleaseSource(t.src)
	t.api.ReleaseTap(t.tap)
	t.tap = 0
	t.src = 0
	t.state = StateStopped
	t.captureState(StateRunning, StateStopped, "")
	t.logger.Info("event tap stopped")
}

// Toggle stops the monitor when running, otherwise starts it.
func (t *Tap) Toggle() {
	if t.Running() {
		t.Stop()
		return
	}
	t.Start()
}

// handleEvent is the native tap callback. It runs on the OS delivery
// thread and must return promptly: the OS holds keyboard delivery for the
// whole session while it runs. The event is always returned unmodified.
func (t *Tap) handleEvent(_ uintptr, eventType native.EventType, event native.EventRef) native.EventRef {
	if eventType.IsTapDisabled() {
		// The OS disabled the tap. Re-enable before returning,
		// unconditionally, or observation is permanently lost.
		t.mu.Lock()
		tap := t.tap
		t.mu.Unlock()
		if tap != 0 {
			t.api.Enable(tap, true)
		}
		t.captureError(errTapDisabled(eventType), "re-enable")
		return event
	}

	if eventType == native.EventKeyDown {
		select {
		case t.events <- KeyDown{At: time.Now()}:
		default:
			// Queue full: drop rather than stall keyboard delivery.
			t.capture.Log(log.Event{
				Timestamp: time.Now(),
				RunID:     t.runID,
				Component: log.ComponentTap,
				Category:  log.CategoryInput,
				KeyDown:   &log.KeyDownEvent{Dropped: true},
			})
		}
	}
	return event
}

func (t *Tap) captureState(oldState, newState State, reason string) {
	t.capture.Log(log.Event{
		Timestamp: time.Now(),
		RunID:     t.runID,
		Component: log.ComponentTap,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityTap,
			OldState: oldState.String(),
			NewState: newState.String(),
			Reason:   reason,
		},
	})
}

func (t *Tap) captureError(err error, ctx string) {
	t.capture.Log(log.Event{
		Timestamp: time.Now(),
		RunID:     t.runID,
		Component: log.ComponentTap,
		Category:  log.CategoryError,
		Error:     &log.ErrorEventData{Message: err.Error(), Context: ctx},
	})
}

// errTapDisabled describes which disable signal the OS delivered.
type errTapDisabled native.EventType

func (e errTapDisabled) Error() string {
	if native.EventType(e) == native.EventTapDisabledByTimeout {
		return "event tap disabled by timeout"
	}
	return "event tap disabled by user input"
}
