package log

import (
	"time"
)

// Event represents an engine event captured at any component.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// RunID uniquely identifies the engine run (UUID).
	RunID string `cbor:"2,keyasint"`

	// Component that produced the event.
	Component Component `cbor:"3,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"4,keyasint"`

	// DeviceID is the multitouch device identifier (populated once the
	// actuator session has bound a device).
	DeviceID uint64 `cbor:"5,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Actuation   *ActuationEvent   `cbor:"6,keyasint,omitempty"`  // Actuator pulses
	KeyDown     *KeyDownEvent     `cbor:"7,keyasint,omitempty"`  // Observed keystrokes
	StateChange *StateChangeEvent `cbor:"8,keyasint,omitempty"`  // Lifecycle transitions
	Error       *ErrorEventData   `cbor:"9,keyasint,omitempty"`  // Swallowed failures
}

// Component identifies which engine component captured the event.
type Component uint8

const (
	// ComponentDiscovery is the device registry walk.
	ComponentDiscovery Component = 0
	// ComponentSession is the actuator session.
	ComponentSession Component = 1
	// ComponentTap is the keyboard event tap.
	ComponentTap Component = 2
	// ComponentTrust is the permission gate.
	ComponentTrust Component = 3
	// ComponentService is the coordinating service.
	ComponentService Component = 4
)

// String returns the component name.
func (c Component) String() string {
	switch c {
	case ComponentDiscovery:
		return "DISCOVERY"
	case ComponentSession:
		return "SESSION"
	case ComponentTap:
		return "TAP"
	case ComponentTrust:
		return "TRUST"
	case ComponentService:
		return "SERVICE"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryActuation indicates a haptic pulse (attempted or delivered).
	CategoryActuation Category = 0
	// CategoryInput indicates an observed keystroke.
	CategoryInput Category = 1
	// CategoryState indicates a lifecycle state change.
	CategoryState Category = 2
	// CategoryError indicates a swallowed failure.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryActuation:
		return "ACTUATION"
	case CategoryInput:
		return "INPUT"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ActuationEvent captures one native actuate call.
type ActuationEvent struct {
	// Kind is the feedback pattern name.
	Kind string `cbor:"1,keyasint"`

	// Code is the fixed native pattern code.
	Code int32 `cbor:"2,keyasint"`

	// Intensity is the clamped intensity actually sent.
	Intensity float32 `cbor:"3,keyasint"`

	// Attempt is 1 for the first call, 2 for the bounded retry.
	Attempt uint8 `cbor:"4,keyasint"`

	// Delivered indicates whether the native call reported success.
	Delivered bool `cbor:"5,keyasint"`
}

// KeyDownEvent captures an observed keystroke.
// Key codes and characters are deliberately never recorded.
type KeyDownEvent struct {
	// Dropped indicates the notification was discarded because the
	// dispatch queue was full.
	Dropped bool `cbor:"1,keyasint,omitempty"`
}

// StateChangeEvent captures component lifecycle transitions.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityActuator indicates an actuator handle state change.
	StateEntityActuator StateEntity = 0
	// StateEntityTap indicates a tap state change.
	StateEntityTap StateEntity = 1
	// StateEntityTrust indicates a trust state change.
	StateEntityTrust StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityActuator:
		return "ACTUATOR"
	case StateEntityTap:
		return "TAP"
	case StateEntityTrust:
		return "TRUST"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures failures that have no caller-visible return value.
type ErrorEventData struct {
	// Message is the error message.
	Message string `cbor:"1,keyasint"`

	// Code is the native status code (if applicable).
	Code *int32 `cbor:"2,keyasint,omitempty"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
