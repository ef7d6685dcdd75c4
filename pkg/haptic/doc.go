// Package haptic owns the actuator session: the lifecycle of the single
// opened trackpad actuator handle and the fire-and-forget Trigger call
// that drives it.
//
// A session is Closed or Open. Opening binds a device id (from registry
// discovery, or the legacy fallback table when discovery comes up empty)
// and opens the native actuator. Trigger clamps intensity to [0,1],
// fires one pulse, and on native failure performs exactly one bounded
// close+reopen+retry cycle before giving up. Failures never reach the
// caller; the capture log is the only propagation channel.
package haptic
