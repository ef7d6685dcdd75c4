// Package service coordinates the feedback engine: the permission gate,
// the keyboard event tap, and the actuator session.
//
// The service owns the primary dispatch loop. The tap's native callback
// only ever posts a notification; the loop drains those notifications and
// fires the actuator, so all session mutation happens on one goroutine
// (plus the console, serialized by the session's own lock). When trust is
// not yet granted, the service requests it and starts the tap as soon as
// the gate's poll observes the grant.
package service
