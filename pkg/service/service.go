package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/keyfeel/keyfeel-go/pkg/discovery"
	"github.com/keyfeel/keyfeel-go/pkg/eventtap"
	"github.com/keyfeel/keyfeel-go/pkg/haptic"
	"github.com/keyfeel/keyfeel-go/pkg/log"
	"github.com/keyfeel/keyfeel-go/pkg/native"
	"github.com/keyfeel/keyfeel-go/pkg/persistence"
	"github.com/keyfeel/keyfeel-go/pkg/trust"
)

// Service errors.
var (
	ErrAlreadyStarted = errors.New("service already started")
	ErrNotStarted     = errors.New("service not started")
)

// Config configures the feedback service.
type Config struct {
	// Registry, Actuator, TapAPI and TrustAPI are the native bindings.
	// All four are required; tests inject fakes here.
	Registry native.DeviceRegistry
	Actuator native.ActuatorAPI
	TapAPI   native.EventTapAPI
	TrustAPI native.TrustAPI

	// Fallback is the legacy device identifier table. Zero value means
	// the built-in default.
	Fallback discovery.FallbackTable

	// Settings are the initial user preferences. nil means defaults.
	Settings *persistence.Settings

	// Store persists settings on change. Optional.
	Store *persistence.SettingsStore

	// PollInterval overrides the trust poll interval. Mainly for tests.
	PollInterval time.Duration

	// Logger for operational output. nil means slog.Default().
	Logger *slog.Logger

	// Capture receives engine events. nil disables capture.
	Capture log.Logger
}

// Status is a point-in-time snapshot for diagnostics.
type Status struct {
	RunID             string
	Enabled           bool
	Intensity         float64
	Pattern           haptic.Kind
	TrustGranted      bool
	TapState          eventtap.State
	ActuatorOpen      bool
	ActuatorAvailable bool
	DeviceID          uint64
	DeviceKnown       bool
}

// Service orchestrates keystroke feedback.
type Service struct {
	mu sync.RWMutex

	runID string

	gate    *trust.Gate
	tap     *eventtap.Tap
	session *haptic.Session
	finder  *discovery.Finder

	// User preferences, mirrored to the store on change.
	enabled   bool
	intensity float64
	pattern   haptic.Kind

	store *persistence.SettingsStore

	logger  *slog.Logger
	capture log.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// New creates the feedback service. Nothing runs until Start.
func New(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	capture := cfg.Capture
	if capture == nil {
		capture = log.NoopLogger{}
	}

	settings := cfg.Settings
	if settings == nil {
		settings = persistence.DefaultSettings()
	}
	pattern, err := haptic.ParseKind(settings.Pattern)
	if err != nil {
		logger.Warn("unknown feedback pattern in settings, using medium", "pattern", settings.Pattern)
		pattern = haptic.KindMedium
	}

	fallback := cfg.Fallback
	if len(fallback.Devices) == 0 {
		fallback = discovery.DefaultFallbackTable()
	}

	runID := uuid.New().String()

	s := &Service{
		runID:     runID,
		enabled:   settings.Enabled,
		intensity: settings.Intensity,
		pattern:   pattern,
		store:     cfg.Store,
		logger:    logger,
		capture:   capture,
	}

	s.finder = discovery.NewFinder(cfg.Registry, logger)
	s.session = haptic.NewSession(haptic.Config{
		API:      cfg.Actuator,
		Finder:   s.finder,
		Fallback: fallback.IDs(),
		Logger:   logger,
		Capture:  capture,
		RunID:    runID,
	})
	s.gate = trust.NewGate(trust.Config{
		API:          cfg.TrustAPI,
		PollInterval: cfg.PollInterval,
		Logger:       logger,
		Capture:      capture,
		RunID:        runID,
	})
	s.tap = eventtap.NewTap(eventtap.Config{
		API:     cfg.TapAPI,
		Gate:    s.gate,
		Logger:  logger,
		Capture: capture,
		RunID:   runID,
	})

	// Start observing as soon as the user grants access in settings.
	s.gate.OnGranted(func() {
		if s.Enabled() {
			s.tap.Start()
		}
	})

	return s
}

// RunID returns the unique identifier for this engine run.
func (s *Service) RunID() string { return s.runID }

// Gate returns the permission gate (for UI/console access).
func (s *Service) Gate() *trust.Gate { return s.gate }

// Start opens the actuator (best effort), starts the dispatch loop, and
// starts the event tap when enabled and authorized. When trust is
// missing, it requests authorization and lets the gate's poll start the
// tap later.
func (s *Service) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.mu.Unlock()

	// Hardware absence degrades the feature to inert, never fatal.
	if err := s.session.Open(); err != nil {
		s.logger.Warn("actuator unavailable at startup", "error", err)
	}

	s.wg.Add(1)
	go s.dispatchLoop()

	if s.Enabled() {
		if s.gate.Check() {
			s.tap.Start()
		} else {
			s.logger.Info("input monitoring not authorized, requesting")
			s.gate.Request()
		}
	}
	return nil
}

// Stop tears the engine down: tap, trust poll, dispatch loop, actuator.
// Both OS-level resources are released on every path.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	cancel := s.cancel
	s.mu.Unlock()

	s.tap.Stop()
	s.gate.StopPolling()
	cancel()
	s.wg.Wait()
	s.session.Close()
	s.logger.Info("feedback service stopped")
}

// dispatchLoop is the primary loop: it drains key-down notifications and
// fires the actuator.
func (s *Service) dispatchLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.tap.Events():
			kind, intensity, enabled := s.feedbackParams()
			if !enabled {
				continue
			}
			s.session.Trigger(kind, intensity)
		}
	}
}

func (s *Service) feedbackParams() (haptic.Kind, float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pattern, s.intensity, s.enabled
}

// Enabled reports whether keystroke feedback is on.
func (s *Service) Enabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled
}

// Intensity returns the configured feedback intensity.
func (s *Service) Intensity() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.intensity
}

// Pattern returns the selected feedback pattern.
func (s *Service) Pattern() haptic.Kind {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pattern
}

// SetEnabled turns keystroke feedback on or off, starting or stopping
// the tap accordingly, and persists the change.
func (s *Service) SetEnabled(enabled bool) {
	s.mu.Lock()
	changed := s.enabled != enabled
	s.enabled = enabled
	s.mu.Unlock()
	if !changed {
		return
	}

	if enabled {
		if s.gate.Check() {
			s.tap.Start()
		} else {
			s.gate.Request()
		}
	} else {
		s.tap.Stop()
	}
	s.persistSettings()
}

// SetIntensity updates the feedback intensity and persists the change.
// Values outside [0,1] are clamped at actuation time.
func (s *Service) SetIntensity(intensity float64) {
	s.mu.Lock()
	s.intensity = intensity
	s.mu.Unlock()
	s.persistSettings()
}

// SetPattern updates the feedback pattern and persists the change.
func (s *Service) SetPattern(kind haptic.Kind) {
	s.mu.Lock()
	s.pattern = kind
	s.mu.Unlock()
	s.persistSettings()
}

// Trigger fires one feedback pulse directly (console "trigger" command).
func (s *Service) Trigger(kind haptic.Kind, intensity float64) {
	s.session.Trigger(kind, intensity)
}

// Reinitialize rebinds the actuator from scratch. Use after hardware
// changes.
func (s *Service) Reinitialize() error {
	return s.session.Reinitialize()
}

// ListDevices returns the registry's multitouch devices for diagnostics.
func (s *Service) ListDevices() ([]native.DeviceProperties, error) {
	return s.finder.List()
}

// Status returns a diagnostics snapshot.
func (s *Service) Status() Status {
	deviceID, known := s.session.DeviceID()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		RunID:             s.runID,
		Enabled:           s.enabled,
		Intensity:         s.intensity,
		Pattern:           s.pattern,
		TrustGranted:      s.gate.Granted(),
		TapState:          s.tap.State(),
		ActuatorOpen:      s.session.IsOpen(),
		ActuatorAvailable: s.session.IsAvailable(),
		DeviceID:          deviceID,
		DeviceKnown:       known,
	}
}

// persistSettings writes the current preferences through the store.
func (s *Service) persistSettings() {
	if s.store == nil {
		return
	}
	s.mu.RLock()
	settings := &persistence.Settings{
		Enabled:   s.enabled,
		Intensity: s.intensity,
		Pattern:   s.pattern.String(),
	}
	s.mu.RUnlock()

	if err := s.store.Save(settings); err != nil {
		s.logger.Warn("failed to persist settings", "error", err)
	}
}
