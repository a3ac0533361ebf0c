package config

import (
	"os"
	"strconv"
	"strings"
)

// Environment variable names.
const (
	EnvHome          = "SHARDWALLET_HOME"
	EnvExplorerURL   = "SHARDWALLET_EXPLORER_URL"
	EnvGapLimit      = "SHARDWALLET_GAP_LIMIT"
	EnvDiscoveryMode = "SHARDWALLET_DISCOVERY_MODE"
	EnvOutputFormat  = "SHARDWALLET_OUTPUT_FORMAT"
	EnvVerbose       = "SHARDWALLET_VERBOSE"
	EnvLogLevel      = "SHARDWALLET_LOG_LEVEL"
	EnvNoColor       = "NO_COLOR"
)

// ApplyEnvironment applies environment variable overrides to the configuration.
func ApplyEnvironment(cfg *Config) {
	if v := os.Getenv(EnvHome); v != "" {
		cfg.Home = v
	}

	if v := os.Getenv(EnvExplorerURL); v != "" {
		cfg.Network.ExplorerURL = SanitizeURL(v)
	}

	// Invalid numbers are ignored rather than failing startup
	if v := os.Getenv(EnvGapLimit); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			cfg.Discovery.GapLimit = n
		}
	}

	if v := os.Getenv(EnvDiscoveryMode); v != "" {
		cfg.Discovery.Mode = strings.ToLower(strings.TrimSpace(v))
	}

	if v := os.Getenv(EnvOutputFormat); v != "" {
		cfg.Output.DefaultFormat = strings.ToLower(v)
	}

	if v := os.Getenv(EnvVerbose); v != "" {
		cfg.Output.Verbose = parseBool(v)
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}

	// NO_COLOR disables colored output
	if _, ok := os.LookupEnv(EnvNoColor); ok {
		cfg.Output.Color = "never"
	}
}

// parseBool parses a boolean string value.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "1" || s == "true" || s == "yes" || s == "on" {
		return true
	}
	b, _ := strconv.ParseBool(s)
	return b
}

// SanitizeURL trims whitespace, control characters and trailing slashes
// left behind by copy-paste.
func SanitizeURL(url string) string {
	url = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || r == ' ' {
			return -1
		}
		return r
	}, strings.TrimSpace(url))
	return strings.TrimRight(url, "/")
}
