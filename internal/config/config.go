// Package config handles persistent user configuration for promptsync.
//
// Configuration is stored as JSON at ~/.config/promptsync/config.json (or the
// platform-equivalent path returned by os.UserConfigDir). Every key can be
// overridden for a single invocation with a PROMPTSYNC_<KEY> environment
// variable, e.g. PROMPTSYNC_CLOUD_SYNC=false.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

const (
	appDir   = "promptsync"
	fileName = "config.json"

	envPrefix = "PROMPTSYNC"
)

// pathOverride, when non-empty, replaces the default config file path.
// Intended for testing. Use SetPath / ResetPath to manage.
var pathOverride string

// SetPath overrides the config file path. Intended for testing.
func SetPath(p string) { pathOverride = p }

// ResetPath clears the path override, reverting to the default. Intended for testing.
func ResetPath() { pathOverride = "" }

// Config holds user preferences that persist across invocations.
type Config struct {
	// CloudSync is the user's sync preference. Records are still written
	// locally when it is off.
	CloudSync bool `json:"cloud_sync" mapstructure:"cloud_sync"`

	// CloudProvider names the registered cloud store ("http" or "none").
	CloudProvider string `json:"cloud_provider,omitempty" mapstructure:"cloud_provider"`

	// CloudEndpoint is the base URL of the document server.
	CloudEndpoint string `json:"cloud_endpoint,omitempty" mapstructure:"cloud_endpoint"`

	LogLevel string `json:"log_level,omitempty" mapstructure:"log_level"`

	// DeviceID is generated on first use and never changed afterwards.
	DeviceID string `json:"device_id,omitempty" mapstructure:"device_id"`
}

// envKeys are the settings that may be overridden from the environment.
// device_id is deliberately absent.
var envKeys = []string{"cloud_sync", "cloud_provider", "cloud_endpoint", "log_level"}

// Path returns the absolute path to the config file.
// If SetPath has been called, that value is returned instead.
func Path() (string, error) {
	if pathOverride != "" {
		return pathOverride, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: unable to determine config directory: %w", err)
	}
	return filepath.Join(base, appDir, fileName), nil
}

// Load returns the effective configuration: the file merged with
// PROMPTSYNC_* environment overrides. A missing file is not an error.
func Load() (*Config, error) {
	return loadFrom("", true)
}

// LoadFile reads only the config file, ignoring the environment. Use it
// when the result will be saved back.
func LoadFile() (*Config, error) {
	return loadFrom("", false)
}

func loadFrom(path string, withEnv bool) (*Config, error) {
	if path == "" {
		var err error
		path, err = Path()
		if err != nil {
			return nil, err
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetDefault("cloud_sync", true)

	if withEnv {
		v.SetEnvPrefix(envPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
		for _, key := range envKeys {
			if err := v.BindEnv(key); err != nil {
				return nil, fmt.Errorf("config: failed to bind %s: %w", key, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		var parseErr viper.ConfigParseError
		if errors.As(err, &parseErr) {
			return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
		}
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: failed to decode %s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes the config to disk, creating the parent directory if needed.
func (c *Config) Save() error {
	return c.saveTo("")
}

// saveTo writes the config to the given path. If path is empty, the
// default Path() is used.
func (c *Config) saveTo(path string) error {
	if path == "" {
		var err error
		path, err = Path()
		if err != nil {
			return err
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("config: failed to create directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("config: failed to marshal config: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: failed to write %s: %w", path, err)
	}

	return nil
}

// EnsureDeviceID returns the persisted device id, generating and saving one
// on first use.
func EnsureDeviceID() (string, error) {
	cfg, err := LoadFile()
	if err != nil {
		return "", err
	}
	if cfg.DeviceID != "" {
		return cfg.DeviceID, nil
	}

	cfg.DeviceID = uuid.NewString()
	if err := cfg.Save(); err != nil {
		return "", fmt.Errorf("config: failed to persist device id: %w", err)
	}
	return cfg.DeviceID, nil
}

// LoadFrom reads the config from the given path, including environment
// overrides. Intended for testing.
func LoadFrom(path string) (*Config, error) {
	return loadFrom(path, true)
}

// SaveTo writes the config to the given path. Intended for testing.
func (c *Config) SaveTo(path string) error {
	return c.saveTo(path)
}
