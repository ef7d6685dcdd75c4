package haptic

import (
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/keyfeel/keyfeel-go/pkg/log"
	"github.com/keyfeel/keyfeel-go/pkg/native"
)

// Session errors.
var (
	// ErrNoActuator indicates no actuator could be opened: registry
	// discovery found nothing and every fallback identifier failed.
	ErrNoActuator = errors.New("no actuator available")
)

// DeviceFinder locates the preferred actuation device.
// *discovery.Finder satisfies this.
type DeviceFinder interface {
	// Find returns the device identifier of the built-in actuation
	// device, or ok=false when none qualifies.
	Find() (deviceID uint64, ok bool)
}

// Config configures a Session.
type Config struct {
	// API is the native actuator binding. Required.
	API native.ActuatorAPI

	// Finder locates the preferred device. Required.
	Finder DeviceFinder

	// Fallback is the ordered legacy identifier list tried when Finder
	// comes up empty. Earlier entries are newer hardware generations.
	Fallback []uint64

	// Logger for operational output. nil means slog.Default().
	Logger *slog.Logger

	// Capture receives engine events. nil disables capture.
	Capture log.Logger

	// RunID stamps capture events. Optional.
	RunID string
}

// Session owns the process's single actuator handle.
//
// All methods take the session lock; callers on the primary loop and the
// interactive console can share one Session safely.
type Session struct {
	mu sync.Mutex

	api      native.ActuatorAPI
	finder   DeviceFinder
	fallback []uint64

	// Cached device id from the first successful open. Subsequent opens
	// skip discovery until Reinitialize discards it.
	deviceID    uint64
	deviceKnown bool

	ref  native.ActuatorRef
	open bool

	// available reports whether the last open attempt produced a usable
	// actuator.
	available bool

	logger  *slog.Logger
	capture log.Logger
	runID   string
}

// NewSession creates a Session. The actuator is not opened until the first
// Open or Trigger call.
func NewSession(cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	capture := cfg.Capture
	if capture == nil {
		capture = log.NoopLogger{}
	}
	return &Session{
		api:      cfg.API,
		finder:   cfg.Finder,
		fallback: cfg.Fallback,
		logger:   logger,
		capture:  capture,
		runID:    cfg.RunID,
	}
}

// IsOpen reports whether the actuator handle is open.
func (s *Session) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// IsAvailable reports whether the last open attempt produced a usable
// actuator.
func (s *Session) IsAvailable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.available
}

// DeviceID returns the bound device identifier, if one is known.
func (s *Session) DeviceID() (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deviceID, s.deviceKnown
}

// Open ensures the actuator handle is open. Returns ErrNoActuator when
// discovery and the whole fallback list are exhausted.
func (s *Session) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openLocked()
}

func (s *Session) openLocked() error {
	if s.open {
		return nil
	}

	// Candidate identifiers: the cached id if one is known, otherwise the
	// discovered id, otherwise the fallback table in order.
	var candidates []uint64
	switch {
	case s.deviceKnown:
		candidates = []uint64{s.deviceID}
	default:
		if id, ok := s.finder.Find(); ok {
			candidates = []uint64{id}
		} else {
			candidates = s.fallback
		}
	}

	for _, id := range candidates {
		ref, err := s.api.Create(id)
		if err != nil {
			s.logger.Debug("actuator create failed", "device_id", id, "error", err)
			continue
		}
		if err := s.api.Open(ref); err != nil {
			s.logger.Debug("actuator open failed", "device_id", id, "error", err)
			s.captureError(err, "open")
			s.api.Release(ref)
			continue
		}

		s.ref = ref
		s.deviceID = id
		s.deviceKnown = true
		s.open = true
		s.available = true
		s.captureState("CLOSED", "OPEN", "")
		s.logger.Info("actuator opened", "device_id", id)
		return nil
	}

	s.available = false
	s.logger.Warn("no actuator available", "candidates", len(candidates))
	return ErrNoActuator
}

// Close closes the actuator handle. Close failures are logged, never
// fatal, never retried; the session transitions to Closed regardless.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked("")
}

func (s *Session) closeLocked(reason string) {
	if !s.open {
		return
	}
	if err := s.api.Close(s.ref); err != nil {
		s.logger.Debug("actuator close failed", "error", err)
		s.captureError(err, "close")
	}
	s.api.Release(s.ref)
	s.ref = 0
	s.open = false
	s.captureState("OPEN", "CLOSED", reason)
}

// Reinitialize forces a close, discards the cached device id, and opens
// fresh. Use when the underlying hardware set may have changed.
func (s *Session) Reinitialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closeLocked("reinitialize")
	s.deviceID = 0
	s.deviceKnown = false
	return s.openLocked()
}

// Trigger fires one haptic pulse. It never returns an error: when no
// actuator is available or the bounded retry is exhausted, the failure is
// logged and the pulse is dropped.
//
// intensity is clamped to [0,1] unconditionally. On a native actuation
// failure the session closes, reopens once, and retries the pulse exactly
// once; a second failure gives up, leaving the handle in whatever state
// the reopen produced.
func (s *Session) Trigger(kind Kind, intensity float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		if err := s.openLocked(); err != nil {
			s.logger.Debug("feedback dropped: no actuator", "kind", kind.String())
			return
		}
	}

	clamped := clampIntensity(intensity)

	err := s.actuate(kind, clamped, 1)
	if err == nil {
		return
	}
	s.captureError(err, "actuate")

	// Bounded recovery: one close+reopen+retry cycle, then give up.
	s.closeLocked("actuation failure")
	if openErr := s.openLocked(); openErr != nil {
		s.logger.Warn("feedback dropped: reopen failed", "kind", kind.String(), "error", openErr)
		return
	}
	if retryErr := s.actuate(kind, clamped, 2); retryErr != nil {
		s.captureError(retryErr, "actuate retry")
		s.logger.Warn("feedback dropped after retry", "kind", kind.String(), "error", retryErr)
	}
}

// actuate performs one native actuate call and captures it.
func (s *Session) actuate(kind Kind, intensity float32, attempt uint8) error {
	err := s.api.Actuate(s.ref, kind.Code(), 0, intensity, 0)

	s.capture.Log(log.Event{
		Timestamp: time.Now(),
		RunID:     s.runID,
		Component: log.ComponentSession,
		Category:  log.CategoryActuation,
		DeviceID:  s.deviceID,
		Actuation: &log.ActuationEvent{
			Kind:      kind.String(),
			Code:      kind.Code(),
			Intensity: intensity,
			Attempt:   attempt,
			Delivered: err == nil,
		},
	})
	return err
}

func (s *Session) captureState(oldState, newState, reason string) {
	s.capture.Log(log.Event{
		Timestamp: time.Now(),
		RunID:     s.runID,
		Component: log.ComponentSession,
		Category:  log.CategoryState,
		DeviceID:  s.deviceID,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityActuator,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}

func (s *Session) captureError(err error, ctx string) {
	data := &log.ErrorEventData{Message: err.Error(), Context: ctx}
	if code, ok := native.StatusCode(err); ok {
		data.Code = &code
	}
	s.capture.Log(log.Event{
		Timestamp: time.Now(),
		RunID:     s.runID,
		Component: log.ComponentSession,
		Category:  log.CategoryError,
		DeviceID:  s.deviceID,
		Error:     data,
	})
}

// clampIntensity clamps to [0,1]. Out-of-range values are silently
// clamped, not rejected. NaN compares false against both bounds, so it
// needs its own case; it clamps to 0.
func clampIntensity(v float64) float32 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return float32(v)
	}
}
