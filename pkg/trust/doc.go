// Package trust tracks the OS-level authorization required to observe
// global keyboard input.
//
// Check reflects OS state into a published boolean flag and never fails.
// Request triggers the one-shot OS prompt; when the immediate answer is
// no, a fixed-interval poll re-checks until the user grants access in the
// system settings, then stops itself exactly once. At most one poll is
// ever active.
package trust
