// Package config manages CLI configuration and state persistence
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	// ConfigDirName is the name of the config directory
	ConfigDirName = ".lanping"
	// ConfigFileName is the name of the config file
	ConfigFileName = "config.json"

	// EnvPrefix prefixes every environment override
	EnvPrefix = "LANPING_"
)

// Config holds the CLI configuration. Zero values mean "use the protocol
// default".
type Config struct {
	// ID overrides the persisted node id
	ID string `json:"id,omitempty"`
	// Role is the role announced to peers and matched against filters
	Role string `json:"role,omitempty"`
	// Name is a human-readable label for this node
	Name string `json:"name,omitempty"`
	// Port is the UDP port to listen and broadcast on
	Port int `json:"port,omitempty"`
	// BroadcastAddress is where discovery requests are sent
	BroadcastAddress string `json:"broadcast_address,omitempty"`
	// BindHost restricts the socket to one local address
	BindHost string `json:"bind_host,omitempty"`
	// MetricsAddr serves Prometheus metrics when set (e.g. ":9324")
	MetricsAddr string `json:"metrics_addr,omitempty"`
	// Verbose enables debug logging
	Verbose bool `json:"verbose"`
}

// Paths holds commonly used paths
type Paths struct {
	// ConfigDir is ~/.lanping
	ConfigDir string
	// ConfigFile is ~/.lanping/config.json
	ConfigFile string
}

// GetPaths returns the standard paths
func GetPaths() (*Paths, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ConfigDirName)
	return &Paths{
		ConfigDir:  configDir,
		ConfigFile: filepath.Join(configDir, ConfigFileName),
	}, nil
}

// Default returns a new Config with default values
func Default() *Config {
	return &Config{}
}

// Load loads configuration from path, or from ~/.lanping/config.json when
// path is empty. A missing file yields defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		paths, err := GetPaths()
		if err != nil {
			return nil, err
		}
		path = paths.ConfigFile
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return config, nil
}

// Save writes configuration to path, or to ~/.lanping/config.json when path
// is empty
func (c *Config) Save(path string) error {
	if path == "" {
		paths, err := GetPaths()
		if err != nil {
			return err
		}
		path = paths.ConfigFile
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides fields from LANPING_* environment variables
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvPrefix + "ID"); v != "" {
		c.ID = v
	}
	if v := os.Getenv(EnvPrefix + "ROLE"); v != "" {
		c.Role = v
	}
	if v := os.Getenv(EnvPrefix + "NAME"); v != "" {
		c.Name = v
	}
	if v := os.Getenv(EnvPrefix + "PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sPORT %q: %w", EnvPrefix, v, err)
		}
		c.Port = port
	}
	if v := os.Getenv(EnvPrefix + "BROADCAST"); v != "" {
		c.BroadcastAddress = v
	}
	if v := os.Getenv(EnvPrefix + "BIND_HOST"); v != "" {
		c.BindHost = v
	}
	if v := os.Getenv(EnvPrefix + "METRICS_ADDR"); v != "" {
		c.MetricsAddr = v
	}
	if v := os.Getenv(EnvPrefix + "VERBOSE"); v != "" {
		verbose, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %sVERBOSE %q: %w", EnvPrefix, v, err)
		}
		c.Verbose = verbose
	}
	return c.Validate()
}

// Validate checks field ranges
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	return nil
}
