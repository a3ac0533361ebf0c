// Package config provides configuration management for shardwallet.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/mrz1836/go-sanitize"
	"gopkg.in/yaml.v3"

	walleterr "github.com/shardwallet/shardwallet/pkg/errors"
)

// Config represents the application configuration.
type Config struct {
	Version    int              `yaml:"version"`
	Home       string           `yaml:"home"`
	Network    NetworkConfig    `yaml:"network"`
	Discovery  DiscoveryConfig  `yaml:"discovery"`
	Derivation DerivationConfig `yaml:"derivation"`
	Cache      CacheConfig      `yaml:"cache"`
	Output     OutputConfig     `yaml:"output"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// NetworkConfig defines explorer settings.
type NetworkConfig struct {
	ExplorerURL string  `yaml:"explorer_url"`
	RateLimit   float64 `yaml:"rate_limit"`
	Burst       int     `yaml:"burst"`
	Groups      int     `yaml:"groups"`
}

// DiscoveryConfig defines active-address discovery settings.
type DiscoveryConfig struct {
	GapLimit        int    `yaml:"gap_limit"`
	OracleBatchSize int    `yaml:"oracle_batch_size"`
	Mode            string `yaml:"mode"`
	MaxConcurrent   int    `yaml:"max_concurrent"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
}

// DerivationConfig defines key derivation settings.
type DerivationConfig struct {
	KeyType string `yaml:"key_type"`
	Account uint32 `yaml:"account"`
}

// CacheConfig defines the activity cache settings.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Size    int    `yaml:"size"`
	File    string `yaml:"file"`
}

// OutputConfig defines output formatting settings.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format"`
	Color         string `yaml:"color"`
	Verbose       bool   `yaml:"verbose"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Load reads configuration from the specified file. Missing keys keep
// their defaults.
func Load(path string) (*Config, error) {
	// #nosec G304 -- config file path is from validated user input
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, walleterr.WithDetails(walleterr.ErrConfigNotFound, map[string]string{"path": path})
	}
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, walleterr.WithDetails(walleterr.WithCause(walleterr.ErrConfigInvalid, err), map[string]string{"path": path})
	}

	return cfg, nil
}

// LoadOrDefault reads path if it exists and returns defaults otherwise.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, walleterr.ErrConfigNotFound) {
		return Defaults(), nil
	}
	return cfg, err
}

// Save writes configuration to the specified file.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate checks values that cannot be corrected silently.
func (c *Config) Validate() error {
	invalid := func(key, value string) error {
		return walleterr.WithDetails(walleterr.ErrConfigInvalid, map[string]string{key: value})
	}

	if c.Discovery.GapLimit <= 0 {
		return invalid("discovery.gap_limit", fmt.Sprintf("%d", c.Discovery.GapLimit))
	}
	if c.Discovery.OracleBatchSize < 0 {
		return invalid("discovery.oracle_batch_size", fmt.Sprintf("%d", c.Discovery.OracleBatchSize))
	}
	if c.Discovery.MaxConcurrent <= 0 {
		return invalid("discovery.max_concurrent", fmt.Sprintf("%d", c.Discovery.MaxConcurrent))
	}
	if c.Discovery.TimeoutSeconds < 0 {
		return invalid("discovery.timeout_seconds", fmt.Sprintf("%d", c.Discovery.TimeoutSeconds))
	}
	switch c.Discovery.Mode {
	case "", "parallel", "serialized":
	default:
		return invalid("discovery.mode", c.Discovery.Mode)
	}
	if c.Network.Groups < 0 {
		return invalid("network.groups", fmt.Sprintf("%d", c.Network.Groups))
	}
	switch c.Output.DefaultFormat {
	case "", "auto", "text", "json":
	default:
		return invalid("output.default_format", c.Output.DefaultFormat)
	}
	return nil
}

// Path returns the config file path inside home.
func Path(home string) string {
	return filepath.Join(ExpandPath(home), "config.yaml")
}

// GetHome returns the shardwallet home directory path.
func (c *Config) GetHome() string {
	return ExpandPath(c.Home)
}

// CachePath returns the activity cache file path. The default file is
// named after the explorer host so each network keeps its own answers.
func (c *Config) CachePath() string {
	if c.Cache.File != "" {
		return ExpandPath(c.Cache.File)
	}
	return filepath.Join(c.GetHome(), "cache", "activity-"+explorerKey(c.ExplorerURL())+".json")
}

// ExplorerURL returns the configured explorer base URL, or the default.
func (c *Config) ExplorerURL() string {
	if u := SanitizeURL(c.Network.ExplorerURL); u != "" {
		return u
	}
	return DefaultExplorerURL
}

// explorerKey turns the explorer host into a file name component.
func explorerKey(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "default"
	}
	host := strings.NewReplacer(".", "-", ":", "_").Replace(strings.ToLower(u.Host))
	if key := sanitize.PathName(host); key != "" {
		return key
	}
	return "default"
}

// GetLoggingLevel returns the configured logging level.
func (c *Config) GetLoggingLevel() string {
	return c.Logging.Level
}

// GetLoggingFile returns the configured log file path.
func (c *Config) GetLoggingFile() string {
	return c.Logging.File
}

// GetOutputFormat returns the default output format.
func (c *Config) GetOutputFormat() string {
	return c.Output.DefaultFormat
}

// IsVerbose returns true if verbose output is enabled.
func (c *Config) IsVerbose() bool {
	return c.Output.Verbose
}

// DefaultHome returns the default shardwallet home directory.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".shardwallet"
	}
	return filepath.Join(home, ".shardwallet")
}

// ExpandPath replaces a leading "~/" with the user's home directory.
func ExpandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
}
