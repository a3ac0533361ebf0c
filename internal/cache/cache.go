// Package cache remembers addresses already known to be active.
//
// An address that has appeared on chain stays active forever, so positive
// answers can be reused indefinitely while negative answers must always go
// back to the explorer.
package cache

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/shardwallet/shardwallet/internal/metrics"
	walleterr "github.com/shardwallet/shardwallet/pkg/errors"
)

// DefaultSize is the default number of active addresses remembered.
const DefaultSize = 10000

// Oracle reports whether addresses have ever appeared on chain.
type Oracle interface {
	CheckActive(ctx context.Context, hashes []string) ([]bool, error)
}

// Entry is a remembered active address.
type Entry struct {
	Address string    `json:"address"`
	SeenAt  time.Time `json:"seen_at"`
}

// ActivityCache is an Oracle that answers known-active addresses from
// memory and forwards the rest to the wrapped oracle.
type ActivityCache struct {
	next    Oracle
	entries *lru.Cache[string, time.Time]

	mu    sync.Mutex
	dirty bool
}

// Compile-time interface check
var _ Oracle = (*ActivityCache)(nil)

// New wraps next with a cache of up to size active addresses.
func New(next Oracle, size int) (*ActivityCache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	entries, err := lru.New[string, time.Time](size)
	if err != nil {
		return nil, fmt.Errorf("creating activity cache: %w", err)
	}
	return &ActivityCache{next: next, entries: entries}, nil
}

// CheckActive answers cached addresses locally and asks the wrapped
// oracle about the others in one request, preserving input order.
func (c *ActivityCache) CheckActive(ctx context.Context, hashes []string) ([]bool, error) {
	out := make([]bool, len(hashes))
	missIdx := make([]int, 0, len(hashes))
	missHashes := make([]string, 0, len(hashes))

	for i, h := range hashes {
		if c.entries.Contains(h) {
			out[i] = true
			metrics.Global.RecordCacheHit()
			continue
		}
		metrics.Global.RecordCacheMiss()
		missIdx = append(missIdx, i)
		missHashes = append(missHashes, h)
	}

	if len(missHashes) == 0 {
		return out, nil
	}

	answers, err := c.next.CheckActive(ctx, missHashes)
	if err != nil {
		return nil, err
	}
	if len(answers) != len(missHashes) {
		return nil, walleterr.WithDetails(walleterr.ErrNetworkError, map[string]string{
			"reason": fmt.Sprintf("oracle returned %d results for %d addresses", len(answers), len(missHashes)),
		})
	}

	now := time.Now().UTC()
	for j, active := range answers {
		if !active {
			continue
		}
		out[missIdx[j]] = true
		c.entries.Add(missHashes[j], now)
		c.markDirty()
	}

	return out, nil
}

// Add records addresses as active.
func (c *ActivityCache) Add(entries ...Entry) {
	for _, e := range entries {
		if e.Address == "" {
			continue
		}
		seen := e.SeenAt
		if seen.IsZero() {
			seen = time.Now().UTC()
		}
		c.entries.Add(e.Address, seen)
	}
}

// Contains reports whether addr is known to be active.
func (c *ActivityCache) Contains(addr string) bool {
	return c.entries.Contains(addr)
}

// Len returns the number of remembered addresses.
func (c *ActivityCache) Len() int {
	return c.entries.Len()
}

// Entries returns the remembered addresses sorted by address.
func (c *ActivityCache) Entries() []Entry {
	keys := c.entries.Keys()
	out := make([]Entry, 0, len(keys))
	for _, k := range keys {
		if seen, ok := c.entries.Peek(k); ok {
			out = append(out, Entry{Address: k, SeenAt: seen})
		}
	}
	slices.SortFunc(out, func(a, b Entry) int {
		switch {
		case a.Address < b.Address:
			return -1
		case a.Address > b.Address:
			return 1
		default:
			return 0
		}
	})
	return out
}

// Dirty reports whether new addresses were learned since the last Clean.
func (c *ActivityCache) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

// Clean resets the dirty flag, typically after a save.
func (c *ActivityCache) Clean() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirty = false
}

func (c *ActivityCache) markDirty() {
	c.mu.Lock()
	c.dirty = true
	c.mu.Unlock()
}
