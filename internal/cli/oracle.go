package cli

import (
	"errors"

	"github.com/shardwallet/shardwallet/internal/cache"
	"github.com/shardwallet/shardwallet/internal/config"
	"github.com/shardwallet/shardwallet/internal/discovery"
	"github.com/shardwallet/shardwallet/internal/explorer"
)

func noopPersist() error { return nil }

// newExplorerOracle builds the explorer client and, when enabled, wraps it
// in the persistent activity cache. The returned function writes learned
// addresses back to disk.
func newExplorerOracle(cfg *config.Config, useCache bool) (discovery.Oracle, func() error, error) {
	baseURL := cfg.ExplorerURL()
	client, err := explorer.NewClient(baseURL, &explorer.ClientOptions{
		RateLimit: cfg.Network.RateLimit,
		Burst:     cfg.Network.Burst,
	})
	if err != nil {
		return nil, nil, err
	}

	if !useCache || !cfg.Cache.Enabled {
		return client, noopPersist, nil
	}

	activity, err := cache.New(client, cfg.Cache.Size)
	if err != nil {
		return nil, nil, err
	}

	storage := cache.NewFileStorage(cfg.CachePath(), baseURL)
	// A corrupt file has already been moved aside; start empty.
	if err := storage.LoadInto(activity); err != nil && !errors.Is(err, cache.ErrCorruptCache) {
		return nil, nil, err
	}

	persist := func() error {
		if !activity.Dirty() {
			return nil
		}
		return storage.Save(activity)
	}
	return activity, persist, nil
}
