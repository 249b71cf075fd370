// Package config loads the master's runtime configuration. This is
// the external collaborator spec.md treats as out of scope; what's
// here is a concrete, minimal YAML-backed implementation of that
// contract so the daemon is runnable standalone.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// HostPort is a nullable (host, port) pair. A nil *HostPort means the
// corresponding socket is unconfigured; an empty Host means "bind to
// all interfaces" (0.0.0.0). Load replaces a nil ServerAddress with
// port 2342 on all interfaces, so only QueryAddress stays nil.
type HostPort struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Config holds every value spec.md §6 says the configuration
// collaborator must supply, plus the operator-facing HTTP dashboard
// address this repository adds.
type Config struct {
	ServerAddress  *HostPort `yaml:"server_address"`
	QueryAddress   *HostPort `yaml:"query_address"`
	BlockAddresses []string  `yaml:"block_addresses"`
	LogFile        string    `yaml:"log_file"`

	// QueryAdvertiseHost is the host game servers are told to
	// hole-punch back toward when QueryAddress.Host is unspecified
	// (bound to all interfaces) and so carries no usable outbound
	// address of its own. Leave empty to have the master discover its
	// own public address at startup; see internal/engine.Bind.
	QueryAdvertiseHost string `yaml:"query_advertise_host"`

	ServerTimeoutSeconds        int `yaml:"server_timeout_seconds"`
	MetadataRefreshTimeSeconds  int `yaml:"metadata_refresh_time_seconds"`

	// SigningKeySeedPath points at a file holding a raw 32-byte
	// ed25519 seed. Empty disables the signed-demo feature, matching
	// SIGNING_KEY = null in the original.
	SigningKeySeedPath string `yaml:"signing_key_seed_path"`
	NonceCacheSize     int    `yaml:"nonce_cache_size"`

	// HTTPAddr, if non-empty, is where the read-only operator
	// dashboard (internal/httpapi) listens. Empty disables it.
	HTTPAddr string `yaml:"http_addr"`
}

const (
	defaultServerTimeoutSeconds       = 2 * 60 * 60
	defaultMetadataRefreshTimeSeconds = 6 * 60 * 60
	defaultLogFile                    = "doommaster.log"
)

// Load reads and validates a YAML configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ServerTimeoutSeconds <= 0 {
		c.ServerTimeoutSeconds = defaultServerTimeoutSeconds
	}
	if c.MetadataRefreshTimeSeconds <= 0 {
		c.MetadataRefreshTimeSeconds = defaultMetadataRefreshTimeSeconds
	}
	if c.LogFile == "" {
		c.LogFile = defaultLogFile
	}
	if c.ServerAddress == nil {
		c.ServerAddress = &HostPort{Port: 2342}
	}
}

func (c *Config) validate() error {
	if c.ServerAddress.Port <= 0 {
		return fmt.Errorf("config: server_address.port must be set")
	}
	for _, p := range c.BlockAddresses {
		if p == "" {
			return fmt.Errorf("config: block_addresses entries must be non-empty")
		}
	}
	return nil
}

// SigningEnabled reports whether a signing key was configured.
func (c *Config) SigningEnabled() bool {
	return c.SigningKeySeedPath != ""
}
