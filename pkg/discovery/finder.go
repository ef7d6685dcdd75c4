package discovery

import (
	"log/slog"

	"github.com/keyfeel/keyfeel-go/pkg/native"
)

// Finder locates the built-in actuation-capable device.
type Finder struct {
	registry native.DeviceRegistry
	logger   *slog.Logger
}

// NewFinder creates a Finder over the given device registry.
// logger may be nil, in which case slog.Default() is used.
func NewFinder(registry native.DeviceRegistry, logger *slog.Logger) *Finder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Finder{registry: registry, logger: logger}
}

// Find returns the identifier of the first registry device that is both
// actuation-capable and built-in. ok is false when no device qualifies or
// the registry query fails; failures are logged, never raised, and the
// caller is expected to fall back to the legacy identifier table.
func (f *Finder) Find() (deviceID uint64, ok bool) {
	iter, err := f.registry.Enumerate()
	if err != nil {
		f.logger.Debug("device registry query failed", "error", err)
		return 0, false
	}
	defer iter.Close()

	for {
		props, more := iter.Next()
		if !more {
			break
		}
		if props.ActuationSupported && props.BuiltIn {
			f.logger.Debug("found built-in actuation device",
				"device_id", props.MultitouchID,
				"product", props.Product,
			)
			return props.MultitouchID, true
		}
	}

	if err := iter.Err(); err != nil {
		f.logger.Debug("device registry enumeration failed", "error", err)
	}
	return 0, false
}

// List returns the properties of every multitouch device in the registry,
// in registry order. Intended for diagnostics ("devices" console command).
func (f *Finder) List() ([]native.DeviceProperties, error) {
	iter, err := f.registry.Enumerate()
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var devices []native.DeviceProperties
	for {
		props, more := iter.Next()
		if !more {
			break
		}
		devices = append(devices, props)
	}
	return devices, iter.Err()
}
