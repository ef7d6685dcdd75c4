package eventtap

import (
	"testing"

	"github.com/keyfeel/keyfeel-go/pkg/native"
)

// fakeTapAPI implements native.EventTapAPI and records every call.
type fakeTapAPI struct {
	failCreate bool
	failSource bool

	cb native.TapCallback

	creates        int
	sourceCreates  int
	adds           int
	removes        int
	tapReleases    int
	sourceReleases int
	enables        []bool
}

func (f *fakeTapAPI) CreateKeyDownTap(cb native.TapCallback) (native.TapRef, error) {
	f.creates++
	if f.failCreate {
		return 0, native.ErrTapCreateFailed
	}
	f.cb = cb
	return native.TapRef(1), nil
}

func (f *fakeTapAPI) Enable(_ native.TapRef, enabled bool) {
	f.enables = append(f.enables, enabled)
}

func (f *fakeTapAPI) CreateRunLoopSource(native.TapRef) (native.SourceRef, error) {
	f.sourceCreates++
	if f.failSource {
		return 0, native.ErrTapCreateFailed
	}
	return native.SourceRef(2), nil
}

func (f *fakeTapAPI) AddSource(native.SourceRef) { f.adds++ }

func (f *fakeTapAPI) RemoveSource(native.SourceRef) { f.removes++ }

func (f *fakeTapAPI) ReleaseTap(native.TapRef) { f.tapReleases++ }

func (f *fakeTapAPI) ReleaseSource(native.SourceRef) { f.sourceReleases++ }

// staticGate implements Authorizer with a fixed answer.
type staticGate bool

func (g staticGate) Granted() bool { return bool(g) }

func TestTapStartWithoutTrust(t *testing.T) {
	api := &fakeTapAPI{}
	tap := NewTap(Config{API: api, Gate: staticGate(false)})

	if tap.Start() {
		t.Error("Start() = true, want false without trust")
	}
	// No native call may happen before authorization.
	if api.creates != 0 {
		t.Errorf("creates = %d, want 0", api.creates)
	}
	if tap.State() != StateStopped {
		t.Errorf("State() = %v, want StateStopped", tap.State())
	}
}

func TestTapStartStop(t *testing.T) {
	api := &fakeTapAPI{}
	tap := NewTap(Config{API: api, Gate: staticGate(true)})

	if !tap.Start() {
		t.Fatal("Start() = false, want true")
	}
	if tap.State() != StateRunning {
		t.Errorf("State() = %v, want StateRunning", tap.State())
	}
	if api.creates != 1 || api.sourceCreates != 1 || api.adds != 1 {
		t.Errorf("creates/sourceCreates/adds = %d/%d/%d, want 1/1/1",
			api.creates, api.sourceCreates, api.adds)
	}

	// Second start is a no-op.
	if !tap.Start() {
		t.Error("second Start() = false, want true")
	}
	if api.creates != 1 {
		t.Errorf("creates = %d after second Start, want 1", api.creates)
	}

	tap.Stop()
	if tap.State() != StateStopped {
		t.Errorf("State() = %v, want StateStopped", tap.State())
	}
	if api.removes != 1 || api.sourceReleases != 1 || api.tapReleases != 1 {
		t.Errorf("removes/sourceReleases/tapReleases = %d/%d/%d, want 1/1/1",
			api.removes, api.sourceReleases, api.tapReleases)
	}
	if len(api.enables) != 1 || api.enables[0] != false {
		t.Errorf("enables = %v, want [false]", api.enables)
	}

	// Second stop is a no-op: the disable/detach sequence ran once.
	tap.Stop()
	if api.removes != 1 || len(api.enables) != 1 {
		t.Errorf("removes/enables = %d/%d after second Stop, want 1/1",
			api.removes, len(api.enables))
	}
}

func TestTapStartInstallFailure(t *testing.T) {
	api := &fakeTapAPI{failCreate: true}
	tap := NewTap(Config{API: api, Gate: staticGate(true)})

	if tap.Start() {
		t.Error("Start() = true, want false on install failure")
	}
	if tap.State() != StateStopped {
		t.Errorf("State() = %v, want StateStopped", tap.State())
	}
}

func TestTapStartSourceFailureReleasesTap(t *testing.T) {
	api := &fakeTapAPI{failSource: true}
	tap := NewTap(Config{API: api, Gate: staticGate(true)})

	if tap.Start() {
		t.Error("Start() = true, want false on source failure")
	}
	if api.tapReleases != 1 {
		t.Errorf("tapReleases = %d, want 1", api.tapReleases)
	}
	if tap.State() != StateStopped {
		t.Errorf("State() = %v, want StateStopped", tap.State())
	}
}

func TestTapCallbackDeliversKeyDown(t *testing.T) {
	api := &fakeTapAPI{}
	tap := NewTap(Config{API: api, Gate: staticGate(true)})

	if !tap.Start() {
		t.Fatal("Start() = false, want true")
	}

	event := native.EventRef(0xBEEF)
	got := api.cb(0, native.EventKeyDown, event)
	if got != event {
		t.Errorf("callback returned %#x, want event unmodified %#x", got, event)
	}

	select {
	case <-tap.Events():
	default:
		t.Error("no key-down notification on channel")
	}
}

func TestTapCallbackReenablesOnDisable(t *testing.T) {
	disableSignals := []native.EventType{
		native.EventTapDisabledByTimeout,
		native.EventTapDisabledByUserInput,
	}

	for _, sig := range disableSignals {
		api := &fakeTapAPI{}
		tap := NewTap(Config{API: api, Gate: staticGate(true)})

		if !tap.Start() {
			t.Fatal("Start() = false, want true")
		}

		event := native.EventRef(0xBEEF)
		got := api.cb(0, sig, event)
		if got != event {
			t.Errorf("callback returned %#x, want event unmodified %#x", got, event)
		}

		// The tap must be re-enabled on every disable signal.
		if len(api.enables) != 1 || api.enables[0] != true {
			t.Errorf("enables = %v after signal %#x, want [true]", api.enables, uint32(sig))
		}

		// A disable signal never produces a key-down notification.
		select {
		case <-tap.Events():
			t.Error("unexpected key-down notification for disable signal")
		default:
		}
	}
}

func TestTapCallbackReenablesOnEveryDisable(t *testing.T) {
	api := &fakeTapAPI{}
	tap := NewTap(Config{API: api, Gate: staticGate(true)})

	if !tap.Start() {
		t.Fatal("Start() = false, want true")
	}

	// The OS can disable the same tap repeatedly; every occurrence must
	// re-enable, not just the first.
	api.cb(0, native.EventTapDisabledByTimeout, 1)
	api.cb(0, native.EventTapDisabledByUserInput, 1)

	if len(api.enables) != 2 || api.enables[0] != true || api.enables[1] != true {
		t.Errorf("enables = %v, want [true true]", api.enables)
	}
}

func TestTapCallbackDropsWhenQueueFull(t *testing.T) {
	api := &fakeTapAPI{}
	tap := NewTap(Config{API: api, Gate: staticGate(true), QueueSize: 1})

	if !tap.Start() {
		t.Fatal("Start() = false, want true")
	}

	// Fill the queue, then overflow it. Both calls must return without
	// blocking.
	api.cb(0, native.EventKeyDown, 1)
	api.cb(0, native.EventKeyDown, 1)

	count := 0
	for {
		select {
		case <-tap.Events():
			count++
			continue
		default:
		}
		break
	}
	if count != 1 {
		t.Errorf("delivered notifications = %d, want 1 (second dropped)", count)
	}
}

func TestTapToggle(t *testing.T) {
	api := &fakeTapAPI{}
	tap := NewTap(Config{API: api, Gate: staticGate(true)})

	tap.Toggle()
	if !tap.Running() {
		t.Error("Running() = false after first Toggle, want true")
	}
	tap.Toggle()
	if tap.Running() {
		t.Error("Running() = true after second Toggle, want false")
	}
}
