// Package native defines the platform contracts the feedback engine binds to:
// the hardware device registry, the actuation API, the global keyboard event
// tap, and the input-monitoring trust query.
//
// The interfaces mirror the underlying OS calls closely so that the state
// machines built on top of them (pkg/discovery, pkg/haptic, pkg/eventtap,
// pkg/trust) stay platform-independent and fully testable with fakes.
// Load returns the real bindings on macOS (resolved at runtime via purego,
// no cgo) and ErrUnsupported elsewhere.
package native
