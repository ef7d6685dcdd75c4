// Package discovery locates the built-in actuation-capable multitouch
// device in the OS device registry.
//
// Find walks the registry in its native iteration order and returns the
// first device that is both actuation-capable and built-in; the registry
// order is the tie-break. When the registry yields nothing, the actuator
// session falls back to a fixed, ordered table of legacy device
// identifiers (newest hardware generation first). The table ships with a
// built-in default and can be replaced from a versioned YAML file, since
// the identifiers are undocumented magic numbers with no compatibility
// guarantee across OS releases.
package discovery
