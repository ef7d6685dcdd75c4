package native

import (
	"errors"
	"fmt"
)

// Binding errors.
var (
	// ErrUnsupported indicates the current platform has no native bindings.
	ErrUnsupported = errors.New("native bindings not supported on this platform")

	// ErrCreateFailed indicates the native create call returned a null reference.
	ErrCreateFailed = errors.New("native create returned null reference")

	// ErrTapCreateFailed indicates the event tap could not be installed.
	// The most common cause is missing input-monitoring authorization.
	ErrTapCreateFailed = errors.New("event tap creation failed")
)

// StatusError wraps a non-zero native status code.
type StatusError struct {
	// Op is the native operation that failed (e.g. "open", "actuate").
	Op string

	// Code is the raw status code returned by the native call.
	Code int32
}

// Error returns a human-readable description of the failure.
func (e *StatusError) Error() string {
	return fmt.Sprintf("native %s failed: status %d", e.Op, e.Code)
}

// StatusCode extracts the raw status code from err, if it carries one.
func StatusCode(err error) (int32, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code, true
	}
	return 0, false
}

// DeviceProperties is the property set read from a registry entry.
type DeviceProperties struct {
	// MultitouchID is the opaque 64-bit device identifier.
	MultitouchID uint64

	// ActuationSupported reports whether the device can produce haptic pulses.
	ActuationSupported bool

	// BuiltIn reports whether the device is the built-in trackpad
	// (as opposed to an external one).
	BuiltIn bool

	// Product is the human-readable device label.
	Product string
}

// DeviceRegistry queries the OS device registry for multitouch hardware.
type DeviceRegistry interface {
	// Enumerate returns an iterator over all devices of the multitouch
	// hardware class, in registry order. The caller must Close the
	// iterator on every path.
	Enumerate() (DeviceIterator, error)
}

// DeviceIterator walks registry entries. Iteration order is OS-defined.
type DeviceIterator interface {
	// Next returns the next device's properties. ok is false when the
	// iteration is exhausted or an error occurred (see Err).
	Next() (props DeviceProperties, ok bool)

	// Err returns the first error encountered while iterating, if any.
	Err() error

	// Close releases all registry iteration resources.
	// It is safe to call Close multiple times.
	Close()
}

// ActuatorRef is an opaque reference to a native actuator resource.
// The zero value means "no actuator".
type ActuatorRef uintptr

// ActuatorAPI drives the trackpad's force-feedback actuator.
type ActuatorAPI interface {
	// Create obtains an actuator reference for the given device ID.
	// Returns ErrCreateFailed if the device does not exist or cannot
	// be bound.
	Create(deviceID uint64) (ActuatorRef, error)

	// Open opens the actuator for actuation calls.
	Open(ref ActuatorRef) error

	// Actuate fires one haptic pulse. code is the fixed pattern code,
	// intensity is in [0,1]. The two remaining arguments are reserved
	// by the native API and passed through as zero.
	Actuate(ref ActuatorRef, code int32, reserved uint32, intensity float32, reservedF float32) error

	// Close closes the actuator.
	Close(ref ActuatorRef) error

	// IsOpen reports whether the actuator is currently open.
	IsOpen(ref ActuatorRef) bool

	// Release frees the native reference. ref must not be used afterwards.
	Release(ref ActuatorRef)
}

// EventRef is an opaque reference to a native input event.
type EventRef uintptr

// TapRef is an opaque reference to an installed event tap.
// The zero value means "no tap".
type TapRef uintptr

// SourceRef is an opaque reference to a tap's run-loop source.
type SourceRef uintptr

// EventType identifies the kind of event delivered to a tap callback.
type EventType uint32

// Event types delivered to tap callbacks.
const (
	// EventKeyDown is a keyboard key-down event.
	EventKeyDown EventType = 10

	// EventTapDisabledByTimeout signals the OS disabled the tap because
	// the callback exceeded its latency budget.
	EventTapDisabledByTimeout EventType = 0xFFFFFFFE

	// EventTapDisabledByUserInput signals the OS disabled the tap due to
	// excessive user input processing.
	EventTapDisabledByUserInput EventType = 0xFFFFFFFF
)

// IsTapDisabled reports whether t is one of the tap-disable signals.
func (t EventType) IsTapDisabled() bool {
	return t == EventTapDisabledByTimeout || t == EventTapDisabledByUserInput
}

// TapCallback is invoked once per observed event. It must return the event
// unmodified and must not block; the OS holds keyboard delivery for the
// whole session while the callback runs.
type TapCallback func(proxy uintptr, eventType EventType, event EventRef) EventRef

// EventTapAPI installs and controls the global keyboard monitor.
type EventTapAPI interface {
	// CreateKeyDownTap installs a session-scoped, listen-only tap that
	// observes key-down events only. Returns ErrTapCreateFailed when the
	// OS refuses the installation (typically missing authorization).
	CreateKeyDownTap(cb TapCallback) (TapRef, error)

	// Enable enables or disables an installed tap.
	Enable(tap TapRef, enabled bool)

	// CreateRunLoopSource creates the run-loop notification source for a tap.
	CreateRunLoopSource(tap TapRef) (SourceRef, error)

	// AddSource attaches a source to the process's primary run loop.
	// Safe to call from any goroutine.
	AddSource(src SourceRef)

	// RemoveSource detaches a source from the primary run loop.
	RemoveSource(src SourceRef)

	// ReleaseTap frees the tap reference.
	ReleaseTap(tap TapRef)

	// ReleaseSource frees the run-loop source reference.
	ReleaseSource(src SourceRef)
}

// TrustAPI queries the OS-level input-monitoring authorization.
type TrustAPI interface {
	// IsTrusted reports whether the process is authorized to observe
	// global input. Pure query, never prompts.
	IsTrusted() bool

	// IsTrustedWithPrompt is IsTrusted with an optional one-shot OS
	// authorization prompt.
	IsTrustedWithPrompt(prompt bool) bool

	// OpenPrivacySettings asks the OS to show the relevant privacy
	// settings pane. Best effort.
	OpenPrivacySettings() error
}

// RunLoop drives the primary native event loop the tap source is
// attached to. Run must be called from the main thread.
type RunLoop interface {
	// Run runs the loop until Stop is called.
	Run()

	// Stop stops the running loop. Safe to call from any goroutine.
	Stop()
}

// Platform bundles the native bindings for the current OS.
type Platform struct {
	Registry DeviceRegistry
	Actuator ActuatorAPI
	Tap      EventTapAPI
	Trust    TrustAPI
	Loop     RunLoop
}
