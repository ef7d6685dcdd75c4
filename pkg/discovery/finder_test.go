package discovery_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyfeel/keyfeel-go/pkg/discovery"
	"github.com/keyfeel/keyfeel-go/pkg/native"
)

// fakeRegistry implements native.DeviceRegistry over a fixed device list.
type fakeRegistry struct {
	devices      []native.DeviceProperties
	enumerateErr error
	iterErr      error

	iter *fakeIterator
}

func (r *fakeRegistry) Enumerate() (native.DeviceIterator, error) {
	if r.enumerateErr != nil {
		return nil, r.enumerateErr
	}
	r.iter = &fakeIterator{devices: r.devices, err: r.iterErr}
	return r.iter, nil
}

type fakeIterator struct {
	devices []native.DeviceProperties
	pos     int
	err     error
	closed  int
}

func (it *fakeIterator) Next() (native.DeviceProperties, bool) {
	if it.pos >= len(it.devices) {
		return native.DeviceProperties{}, false
	}
	props := it.devices[it.pos]
	it.pos++
	return props, true
}

func (it *fakeIterator) Err() error { return it.err }

func (it *fakeIterator) Close() { it.closed++ }

func TestFinderFindsBuiltInActuationDevice(t *testing.T) {
	registry := &fakeRegistry{devices: []native.DeviceProperties{
		{MultitouchID: 1, ActuationSupported: false, BuiltIn: true, Product: "Apple Internal Keyboard"},
		{MultitouchID: 2, ActuationSupported: true, BuiltIn: false, Product: "Magic Trackpad"},
		{MultitouchID: 3, ActuationSupported: true, BuiltIn: true, Product: "Built-in Trackpad"},
		{MultitouchID: 4, ActuationSupported: true, BuiltIn: true, Product: "Second Trackpad"},
	}}

	finder := discovery.NewFinder(registry, nil)
	id, ok := finder.Find()

	require.True(t, ok)
	// First qualifying device in registry order wins.
	assert.Equal(t, uint64(3), id)
	assert.Equal(t, 1, registry.iter.closed, "iterator must be closed")
}

func TestFinderNoQualifyingDevice(t *testing.T) {
	registry := &fakeRegistry{devices: []native.DeviceProperties{
		{MultitouchID: 1, ActuationSupported: true, BuiltIn: false},
		{MultitouchID: 2, ActuationSupported: false, BuiltIn: true},
	}}

	finder := discovery.NewFinder(registry, nil)
	_, ok := finder.Find()

	assert.False(t, ok)
	assert.Equal(t, 1, registry.iter.closed, "iterator must be closed")
}

func TestFinderRegistryQueryFailure(t *testing.T) {
	registry := &fakeRegistry{enumerateErr: errors.New("io registry unavailable")}

	finder := discovery.NewFinder(registry, nil)
	_, ok := finder.Find()

	// Query failures are swallowed; the caller falls back.
	assert.False(t, ok)
}

func TestFinderIterationFailure(t *testing.T) {
	registry := &fakeRegistry{iterErr: errors.New("property read failed")}

	finder := discovery.NewFinder(registry, nil)
	_, ok := finder.Find()

	assert.False(t, ok)
	assert.Equal(t, 1, registry.iter.closed, "iterator must be closed")
}

func TestFinderList(t *testing.T) {
	devices := []native.DeviceProperties{
		{MultitouchID: 1, Product: "One"},
		{MultitouchID: 2, Product: "Two"},
	}
	registry := &fakeRegistry{devices: devices}

	finder := discovery.NewFinder(registry, nil)
	got, err := finder.List()

	require.NoError(t, err)
	assert.Equal(t, devices, got)
	assert.Equal(t, 1, registry.iter.closed, "iterator must be closed")
}
