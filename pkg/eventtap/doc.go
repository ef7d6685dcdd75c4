// Package eventtap installs the global keyboard observer.
//
// The tap is session-scoped, listen-only, and observes key-down events
// only: every event passes through unmodified and un-delayed, so the
// target application always receives its keystroke. The native callback
// never blocks; key-down notifications are posted to a bounded channel
// and dropped when the consumer falls behind. When the OS disables the
// tap (timeout or excessive input), the callback re-enables it
// synchronously before returning, every time, so observation is never
// silently lost.
//
// Start refuses to install the tap while input-monitoring trust has not
// been granted.
package eventtap
