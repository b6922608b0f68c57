// Package settings manages persistent user defaults for the poolherd CLI.
package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Settings holds persistent user preferences. Flags always override
// settings; settings override built-in defaults.
type Settings struct {
	// Username is the default SSH username when --username is not given
	Username string `json:"username,omitempty"`

	// SSHPort overrides the default SSH port (8022)
	SSHPort int `json:"ssh_port,omitempty"`

	// Workers overrides the default worker count (10)
	Workers int `json:"workers,omitempty"`

	// ConfigPath overrides the remote miner config path
	ConfigPath string `json:"config_path,omitempty"`

	// BackupDir overrides the remote backup directory
	BackupDir string `json:"backup_dir,omitempty"`
}

// DefaultSettingsPath returns the default path for the settings file
func DefaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "poolherd_settings.json"
	}
	return filepath.Join(home, ".poolherd", "settings.json")
}

// Load reads settings from the default location
func Load() (*Settings, error) {
	return LoadFrom(DefaultSettingsPath())
}

// LoadFrom reads settings from a specific path
func LoadFrom(path string) (*Settings, error) {
	s := &Settings{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return empty settings if file doesn't exist
			return s, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, s); err != nil {
		return nil, err
	}

	return s, nil
}

// Save writes settings to the default location
func (s *Settings) Save() error {
	return s.SaveTo(DefaultSettingsPath())
}

// SaveTo writes settings to a specific path
func (s *Settings) SaveTo(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// Clear resets all settings to defaults
func (s *Settings) Clear() {
	*s = Settings{}
}
