package service_test

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyfeel/keyfeel-go/pkg/eventtap"
	"github.com/keyfeel/keyfeel-go/pkg/haptic"
	"github.com/keyfeel/keyfeel-go/pkg/native"
	"github.com/keyfeel/keyfeel-go/pkg/persistence"
	"github.com/keyfeel/keyfeel-go/pkg/service"
)

// fakePlatform bundles fakes for all native bindings.
type fakePlatform struct {
	registry *fakeRegistry
	actuator *fakeActuator
	tap      *fakeTapAPI
	trust    *fakeTrust
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		registry: &fakeRegistry{devices: []native.DeviceProperties{
			{MultitouchID: 0x1234, ActuationSupported: true, BuiltIn: true, Product: "Built-in Trackpad"},
		}},
		actuator: newFakeActuator(),
		tap:      &fakeTapAPI{},
		trust:    &fakeTrust{trusted: true},
	}
}

func (p *fakePlatform) config() service.Config {
	return service.Config{
		Registry:     p.registry,
		Actuator:     p.actuator,
		TapAPI:       p.tap,
		TrustAPI:     p.trust,
		PollInterval: 10 * time.Millisecond,
	}
}

type fakeRegistry struct {
	devices []native.DeviceProperties
}

func (r *fakeRegistry) Enumerate() (native.DeviceIterator, error) {
	return &fakeIterator{devices: r.devices}, nil
}

type fakeIterator struct {
	devices []native.DeviceProperties
	pos     int
}

func (it *fakeIterator) Next() (native.DeviceProperties, bool) {
	if it.pos >= len(it.devices) {
		return native.DeviceProperties{}, false
	}
	props := it.devices[it.pos]
	it.pos++
	return props, true
}

func (it *fakeIterator) Err() error { return nil }
func (it *fakeIterator) Close()     {}

type fakeActuator struct {
	mu         sync.Mutex
	failCreate bool
	nextRef    uintptr
	actuates   []int32
}

func newFakeActuator() *fakeActuator { return &fakeActuator{} }

func (f *fakeActuator) Create(uint64) (native.ActuatorRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate {
		return 0, native.ErrCreateFailed
	}
	f.nextRef++
	return native.ActuatorRef(f.nextRef), nil
}

func (f *fakeActuator) Open(native.ActuatorRef) error { return nil }

func (f *fakeActuator) Actuate(_ native.ActuatorRef, code int32, _ uint32, _ float32, _ float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actuates = append(f.actuates, code)
	return nil
}

func (f *fakeActuator) Close(native.ActuatorRef) error { return nil }
func (f *fakeActuator) IsOpen(native.ActuatorRef) bool { return true }
func (f *fakeActuator) Release(native.ActuatorRef)     {}

func (f *fakeActuator) actuateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.actuates)
}

func (f *fakeActuator) lastCode() int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.actuates) == 0 {
		return 0
	}
	return f.actuates[len(f.actuates)-1]
}

type fakeTapAPI struct {
	mu sync.Mutex
	cb native.TapCallback
}

func (f *fakeTapAPI) CreateKeyDownTap(cb native.TapCallback) (native.TapRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cb = cb
	return native.TapRef(1), nil
}

func (f *fakeTapAPI) Enable(native.TapRef, bool) {}

func (f *fakeTapAPI) CreateRunLoopSource(native.TapRef) (native.SourceRef, error) {
	return native.SourceRef(2), nil
}

func (f *fakeTapAPI) AddSource(native.SourceRef)     {}
func (f *fakeTapAPI) RemoveSource(native.SourceRef)  {}
func (f *fakeTapAPI) ReleaseTap(native.TapRef)       {}
func (f *fakeTapAPI) ReleaseSource(native.SourceRef) {}

// pressKey simulates one OS key-down delivery through the tap callback.
func (f *fakeTapAPI) pressKey(t *testing.T) {
	t.Helper()
	f.mu.Lock()
	cb := f.cb
	f.mu.Unlock()
	require.NotNil(t, cb, "no tap callback installed")
	cb(0, native.EventKeyDown, 1)
}

type fakeTrust struct {
	mu      sync.Mutex
	trusted bool
}

func (f *fakeTrust) IsTrusted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.trusted
}

func (f *fakeTrust) IsTrustedWithPrompt(bool) bool {
	return f.IsTrusted()
}

func (f *fakeTrust) OpenPrivacySettings() error { return nil }

func (f *fakeTrust) setTrusted(trusted bool) {
	f.mu.Lock()
	f.trusted = trusted
	f.mu.Unlock()
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestServiceKeystrokeProducesFeedback(t *testing.T) {
	p := newFakePlatform()
	svc := service.New(p.config())

	require.NoError(t, svc.Start())
	defer svc.Stop()

	st := svc.Status()
	assert.True(t, st.TrustGranted)
	assert.Equal(t, eventtap.StateRunning, st.TapState)
	assert.True(t, st.ActuatorOpen)
	assert.Equal(t, uint64(0x1234), st.DeviceID)

	p.tap.pressKey(t)

	waitFor(t, func() bool { return p.actuator.actuateCount() == 1 },
		"timeout waiting for feedback pulse")
	assert.Equal(t, haptic.KindMedium.Code(), p.actuator.lastCode())
}

func TestServiceWithoutHardwareStaysInert(t *testing.T) {
	p := newFakePlatform()
	p.registry.devices = nil
	p.actuator.failCreate = true

	svc := service.New(p.config())
	require.NoError(t, svc.Start())
	defer svc.Stop()

	st := svc.Status()
	assert.False(t, st.ActuatorOpen)
	assert.False(t, st.ActuatorAvailable)
	// The keyboard monitor still runs; feedback is simply dropped.
	assert.Equal(t, eventtap.StateRunning, st.TapState)

	p.tap.pressKey(t)
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, p.actuator.actuateCount())
}

func TestServiceStartsTapOnceTrustGranted(t *testing.T) {
	p := newFakePlatform()
	p.trust.setTrusted(false)

	svc := service.New(p.config())
	require.NoError(t, svc.Start())
	defer svc.Stop()

	st := svc.Status()
	assert.False(t, st.TrustGranted)
	assert.Equal(t, eventtap.StateStopped, st.TapState)
	assert.True(t, svc.Gate().Polling())

	// User grants access in system settings; the poll picks it up and
	// starts the tap.
	p.trust.setTrusted(true)

	waitFor(t, func() bool { return svc.Status().TapState == eventtap.StateRunning },
		"timeout waiting for tap start after grant")
	assert.True(t, svc.Status().TrustGranted)

	p.tap.pressKey(t)
	waitFor(t, func() bool { return p.actuator.actuateCount() == 1 },
		"timeout waiting for feedback pulse")
}

func TestServiceSetEnabled(t *testing.T) {
	p := newFakePlatform()
	svc := service.New(p.config())

	require.NoError(t, svc.Start())
	defer svc.Stop()

	svc.SetEnabled(false)
	assert.Equal(t, eventtap.StateStopped, svc.Status().TapState)

	// Key events that still arrive while disabled produce no feedback.
	p.tap.pressKey(t)
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, p.actuator.actuateCount())

	svc.SetEnabled(true)
	assert.Equal(t, eventtap.StateRunning, svc.Status().TapState)
}

func TestServiceSettingsApplied(t *testing.T) {
	p := newFakePlatform()
	cfg := p.config()
	cfg.Settings = &persistence.Settings{
		Enabled:   true,
		Intensity: 0.5,
		Pattern:   "strong",
	}

	svc := service.New(cfg)
	require.NoError(t, svc.Start())
	defer svc.Stop()

	p.tap.pressKey(t)

	waitFor(t, func() bool { return p.actuator.actuateCount() == 1 },
		"timeout waiting for feedback pulse")
	assert.Equal(t, haptic.KindStrong.Code(), p.actuator.lastCode())
}

func TestServiceDisabledAtStartup(t *testing.T) {
	p := newFakePlatform()
	cfg := p.config()
	cfg.Settings = &persistence.Settings{Enabled: false, Intensity: 1.0, Pattern: "medium"}

	svc := service.New(cfg)
	require.NoError(t, svc.Start())
	defer svc.Stop()

	// Disabled feedback never installs the monitor.
	assert.Equal(t, eventtap.StateStopped, svc.Status().TapState)
}

func TestServicePersistsSettings(t *testing.T) {
	p := newFakePlatform()
	path := filepath.Join(t.TempDir(), "settings.json")
	store := persistence.NewSettingsStore(path)

	cfg := p.config()
	cfg.Store = store

	svc := service.New(cfg)
	require.NoError(t, svc.Start())
	defer svc.Stop()

	svc.SetIntensity(0.3)
	svc.SetPattern(haptic.KindBuzz)

	saved, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, 0.3, saved.Intensity)
	assert.Equal(t, "buzz", saved.Pattern)
	assert.True(t, saved.Enabled)
}

func TestServiceStartStop(t *testing.T) {
	p := newFakePlatform()
	svc := service.New(p.config())

	require.NoError(t, svc.Start())
	assert.Equal(t, service.ErrAlreadyStarted, svc.Start())

	svc.Stop()
	assert.Equal(t, eventtap.StateStopped, svc.Status().TapState)

	// Stop is idempotent.
	svc.Stop()
}
