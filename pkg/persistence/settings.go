package persistence

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// SettingsVersion is the current version of the settings file format.
const SettingsVersion = 1

// Settings contains the persisted user preferences.
type Settings struct {
	// Version is the settings file format version.
	Version int `json:"version"`

	// SavedAt is when the settings were last saved.
	SavedAt time.Time `json:"saved_at"`

	// Enabled is whether keystroke feedback is on.
	Enabled bool `json:"enabled"`

	// Intensity is the feedback intensity in [0,1].
	Intensity float64 `json:"intensity"`

	// Pattern is the selected feedback pattern name.
	Pattern string `json:"pattern"`
}

// DefaultSettings returns sensible out-of-the-box settings.
func DefaultSettings() *Settings {
	return &Settings{
		Version:   SettingsVersion,
		Enabled:   true,
		Intensity: 1.0,
		Pattern:   "medium",
	}
}

// SettingsStore manages persistence of settings to a JSON file.
type SettingsStore struct {
	mu   sync.Mutex
	path string
}

// NewSettingsStore creates a new settings store.
func NewSettingsStore(path string) *SettingsStore {
	return &SettingsStore{path: path}
}

// Save persists the settings to disk.
func (s *SettingsStore) Save(settings *Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Ensure parent directory exists
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	settings.Version = SettingsVersion
	settings.SavedAt = time.Now()

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, data, 0644)
}

// Load reads the settings from disk.
// Returns nil, nil if the file doesn't exist (use defaults).
func (s *SettingsStore) Load() (*Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	settings := &Settings{}
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, err
	}

	return settings, nil
}

// Clear removes the settings file.
func (s *SettingsStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
