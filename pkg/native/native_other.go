//go:build !darwin

package native

// Load returns ErrUnsupported: the actuator and event tap bindings only
// exist on macOS. The portable state machines remain usable with fakes.
func Load() (*Platform, error) {
	return nil, ErrUnsupported
}
