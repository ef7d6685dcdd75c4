package discovery

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FallbackTableVersion is the current fallback table format version.
const FallbackTableVersion = 1

// Fallback table errors.
var (
	ErrFallbackTableEmpty   = errors.New("fallback table has no devices")
	ErrFallbackTableVersion = errors.New("unsupported fallback table version")
)

// FallbackEntry is one legacy device identifier.
type FallbackEntry struct {
	// ID is the multitouch device identifier.
	ID uint64 `yaml:"id"`

	// Generation is a human-readable hardware generation label.
	Generation string `yaml:"generation,omitempty"`
}

// FallbackTable is the ordered list of legacy device identifiers tried
// when registry discovery comes up empty. Earlier entries represent newer
// hardware generations and are tried first; the order is load-bearing.
type FallbackTable struct {
	// Version is the table format version.
	Version int `yaml:"version"`

	// Devices are the identifiers, newest generation first.
	Devices []FallbackEntry `yaml:"devices"`
}

// DefaultFallbackTable returns the built-in identifier table.
func DefaultFallbackTable() FallbackTable {
	return FallbackTable{
		Version: FallbackTableVersion,
		Devices: []FallbackEntry{
			{ID: 0x200000001000000, Generation: "2016 and later"},
			{ID: 0x300000080500000, Generation: "2015"},
		},
	}
}

// LoadFallbackTable reads a fallback table from a YAML file.
func LoadFallbackTable(path string) (FallbackTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FallbackTable{}, err
	}

	var table FallbackTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return FallbackTable{}, fmt.Errorf("parse fallback table: %w", err)
	}
	if table.Version != FallbackTableVersion {
		return FallbackTable{}, fmt.Errorf("%w: %d", ErrFallbackTableVersion, table.Version)
	}
	if len(table.Devices) == 0 {
		return FallbackTable{}, ErrFallbackTableEmpty
	}
	return table, nil
}

// IDs returns the identifiers in table order.
func (t FallbackTable) IDs() []uint64 {
	ids := make([]uint64, len(t.Devices))
	for i, d := range t.Devices {
		ids[i] = d.ID
	}
	return ids
}
