package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// KeySpec describes a single configuration key.
type KeySpec struct {
	// Name is the CLI-facing key name (e.g. "cloud-sync").
	Name string

	// Description is a short human-readable explanation shown in help text.
	Description string

	// ReadOnly keys can be shown but not set from the CLI.
	ReadOnly bool

	// Get returns the current value for this key from a loaded Config.
	Get func(cfg *Config) string

	// Set validates and applies a value for this key to the given Config (in
	// memory only; the caller is responsible for calling Save).
	Set func(cfg *Config, value string) error
}

// Keys is the authoritative list of all supported configuration keys.
// To add a new option: add a field to Config and append a KeySpec here.
var Keys = []KeySpec{
	{
		Name:        "cloud-sync",
		Description: "Push execution history to the cloud (true/false)",
		Get:         func(cfg *Config) string { return strconv.FormatBool(cfg.CloudSync) },
		Set: func(cfg *Config, v string) error {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("cloud-sync must be true or false, got %q", v)
			}
			cfg.CloudSync = b
			return nil
		},
	},
	{
		Name:        "cloud-provider",
		Description: "Cloud store backend: http or none",
		Get:         func(cfg *Config) string { return cfg.CloudProvider },
		Set: func(cfg *Config, v string) error {
			v = strings.ToLower(strings.TrimSpace(v))
			if v != "http" && v != "none" {
				return fmt.Errorf("cloud-provider must be http or none, got %q", v)
			}
			cfg.CloudProvider = v
			return nil
		},
	},
	{
		Name:        "cloud-endpoint",
		Description: "Base URL of the cloud document server",
		Get:         func(cfg *Config) string { return cfg.CloudEndpoint },
		Set: func(cfg *Config, v string) error {
			u, err := url.ParseRequestURI(strings.TrimSpace(v))
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return fmt.Errorf("cloud-endpoint must be an http(s) URL, got %q", v)
			}
			cfg.CloudEndpoint = strings.TrimRight(u.String(), "/")
			return nil
		},
	},
	{
		Name:        "log-level",
		Description: "Log verbosity: debug, info, warn or error",
		Get:         func(cfg *Config) string { return cfg.LogLevel },
		Set: func(cfg *Config, v string) error {
			v = strings.ToLower(strings.TrimSpace(v))
			switch v {
			case "debug", "info", "warn", "error":
				cfg.LogLevel = v
				return nil
			}
			return fmt.Errorf("log-level must be debug, info, warn or error, got %q", v)
		},
	},
	{
		Name:        "device-id",
		Description: "Identifier of this device (generated, read-only)",
		ReadOnly:    true,
		Get:         func(cfg *Config) string { return cfg.DeviceID },
		Set: func(cfg *Config, v string) error {
			return fmt.Errorf("device-id is read-only")
		},
	},
}

// Lookup returns the KeySpec for the given name, or nil if not found.
// The name is matched case-insensitively after trimming whitespace.
func Lookup(name string) *KeySpec {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for i := range Keys {
		if Keys[i].Name == normalized {
			return &Keys[i]
		}
	}
	return nil
}

// KeyNames returns the names of all registered keys.
func KeyNames() []string {
	names := make([]string, len(Keys))
	for i, k := range Keys {
		names[i] = k.Name
	}
	return names
}

// KeysHelp builds a formatted block listing all available keys and their
// descriptions, suitable for inclusion in Cobra Long help text.
func KeysHelp() string {
	if len(Keys) == 0 {
		return ""
	}

	maxLen := 0
	for _, k := range Keys {
		if len(k.Name) > maxLen {
			maxLen = len(k.Name)
		}
	}

	var b strings.Builder
	b.WriteString("Available keys:\n")
	for _, k := range Keys {
		fmt.Fprintf(&b, "  %-*s   %s\n", maxLen, k.Name, k.Description)
	}
	return b.String()
}
