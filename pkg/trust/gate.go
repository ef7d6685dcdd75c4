package trust

import (
	"log/slog"
	"sync"
	"time"

	"github.com/keyfeel/keyfeel-go/pkg/log"
	"github.com/keyfeel/keyfeel-go/pkg/native"
)

// DefaultPollInterval is how often the gate re-checks trust after a
// denied request.
const DefaultPollInterval = 1 * time.Second

// Config configures a Gate.
type Config struct {
	// API is the native trust binding. Required.
	API native.TrustAPI

	// PollInterval overrides DefaultPollInterval. Mainly for tests.
	PollInterval time.Duration

	// Logger for operational output. nil means slog.Default().
	Logger *slog.Logger

	// Capture receives engine events. nil disables capture.
	Capture log.Logger

	// RunID stamps capture events. Optional.
	RunID string
}

// Gate tracks input-monitoring authorization.
type Gate struct {
	mu sync.Mutex

	api          native.TrustAPI
	pollInterval time.Duration

	// Published trust flag, updated by Check and Request.
	granted bool

	// Active poll, nil when no poll is running. Closing the channel
	// stops the poll goroutine; at most one poll exists at a time.
	pollStop chan struct{}
	pollWG   sync.WaitGroup

	// onGranted fires once when a poll observes trust. It runs on the
	// poll goroutine; hand off to the primary loop before touching
	// shared session state.
	onGranted func()

	logger  *slog.Logger
	capture log.Logger
	runID   string
}

// NewGate creates a Gate. The trust flag starts at whatever the OS
// currently reports.
func NewGate(cfg Config) *Gate {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	capture := cfg.Capture
	if capture == nil {
		capture = log.NoopLogger{}
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	g := &Gate{
		api:          cfg.API,
		pollInterval: interval,
		logger:       logger,
		capture:      capture,
		runID:        cfg.RunID,
	}
	g.granted = cfg.API.IsTrusted()
	return g
}

// Granted returns the published trust flag without querying the OS.
func (g *Gate) Granted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.granted
}

// OnGranted sets a callback fired exactly once when a poll observes trust.
func (g *Gate) OnGranted(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onGranted = fn
}

// Check queries the OS (never prompting), updates the published flag, and
// returns the result. It never fails.
func (g *Gate) Check() bool {
	trusted := g.api.IsTrusted()

	g.mu.Lock()
	g.setGrantedLocked(trusted)
	g.mu.Unlock()

	return trusted
}

// Request triggers the OS authorization prompt unless already granted.
// When the immediate answer is no, a fixed-interval poll re-checks until
// trust is observed, then stops itself. Issuing a new Request while a
// poll is active replaces that poll.
func (g *Gate) Request() {
	trusted := g.api.IsTrustedWithPrompt(true)

	g.mu.Lock()
	defer g.mu.Unlock()

	g.setGrantedLocked(trusted)
	if trusted {
		g.stopPollLocked()
		return
	}
	g.startPollLocked()
}

// OpenSystemSettings asks the OS to show the relevant privacy settings
// pane. Best effort.
func (g *Gate) OpenSystemSettings() error {
	return g.api.OpenPrivacySettings()
}

// StopPolling cancels any active poll. Part of process teardown.
func (g *Gate) StopPolling() {
	g.mu.Lock()
	g.stopPollLocked()
	g.mu.Unlock()
	g.pollWG.Wait()
}

// Polling reports whether a poll is currently active.
func (g *Gate) Polling() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pollStop != nil
}

// startPollLocked starts the trust poll, replacing any active one.
func (g *Gate) startPollLocked() {
	g.stopPollLocked()

	stop := make(chan struct{})
	g.pollStop = stop
	g.pollWG.Add(1)

	go func() {
		defer g.pollWG.Done()

		ticker := time.NewTicker(g.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if !g.Check() {
					continue
				}

				g.mu.Lock()
				var fire func()
				if g.pollStop == stop {
					g.pollStop = nil
					fire = g.onGranted
				}
				g.mu.Unlock()

				if fire != nil {
					fire()
				}
				return
			}
		}
	}()
}

// stopPollLocked cancels the active poll, if any.
func (g *Gate) stopPollLocked() {
	if g.pollStop != nil {
		close(g.pollStop)
		g.pollStop = nil
	}
}

// setGrantedLocked updates the published flag and captures transitions.
func (g *Gate) setGrantedLocked(trusted bool) {
	if g.granted == trusted {
		return
	}
	old := stateName(g.granted)
	g.granted = trusted
	g.logger.Info("input monitoring trust changed", "granted", trusted)
	g.capture.Log(log.Event{
		Timestamp: time.Now(),
		RunID:     g.runID,
		Component: log.ComponentTrust,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityTrust,
			OldState: old,
			NewState: stateName(trusted),
		},
	})
}

func stateName(granted bool) string {
	if granted {
		return "GRANTED"
	}
	return "DENIED"
}
