package config

// DefaultExplorerURL is the public explorer backend used as activity oracle.
const DefaultExplorerURL = "https://backend.mainnet.alephium.org"

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		Version: 1,
		Home:    "~/.shardwallet",
		Network: NetworkConfig{
			ExplorerURL: DefaultExplorerURL,
			RateLimit:   5,
			Burst:       10,
			Groups:      4,
		},
		Discovery: DiscoveryConfig{
			GapLimit:        5,
			OracleBatchSize: 0, // one request per round
			Mode:            "parallel",
			MaxConcurrent:   4,
			TimeoutSeconds:  300,
		},
		Derivation: DerivationConfig{
			KeyType: "default",
			Account: 0,
		},
		Cache: CacheConfig{
			Enabled: true,
			Size:    10000,
		},
		Output: OutputConfig{
			DefaultFormat: "auto",
			Color:         "auto",
			Verbose:       false,
		},
		Logging: LoggingConfig{
			Level: "error",
			File:  "~/.shardwallet/shardwallet.log",
		},
	}
}
