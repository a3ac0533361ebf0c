package discovery

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shardwallet/shardwallet/internal/address"
	"github.com/shardwallet/shardwallet/internal/metrics"
	walleterr "github.com/shardwallet/shardwallet/pkg/errors"
)

// AccountDiscovery runs one GroupScanner per group and merges their
// results in group order.
type AccountDiscovery struct {
	deriver Deriver
	oracle  Oracle
	opts    *Options
}

// NewAccountDiscovery creates a discovery over deriver and oracle.
func NewAccountDiscovery(deriver Deriver, oracle Oracle, opts *Options) *AccountDiscovery {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &AccountDiscovery{
		deriver: deriver,
		oracle:  oracle,
		opts:    opts,
	}
}

// groupResult is the output of a single group scan.
type groupResult struct {
	addresses []address.DerivedAddress
	stats     ScanStats
}

// Discover finds every active address of keyType across all groups.
// Indices in skip are neither derived nor checked. On any failure no
// partial result is returned.
func (a *AccountDiscovery) Discover(ctx context.Context, skip *SkipSet, keyType address.KeyType) (result *Result, err error) {
	defer func() { metrics.Global.RecordDiscovery(err) }()

	if err := a.opts.Validate(); err != nil {
		return nil, err
	}
	if !keyType.Valid() || !a.deriver.SupportsKeyType(keyType) {
		return nil, walleterr.WithDetails(ErrUnsupportedKeyType, map[string]string{"key_type": string(keyType)})
	}
	if err := ctx.Err(); err != nil {
		return nil, canceled(err)
	}

	start := time.Now()
	log := a.opts.logger()
	groups := a.opts.Groups

	deriver, err := a.buildDeriver()
	if err != nil {
		return nil, err
	}

	scanOpts := *a.opts
	if cb := a.opts.ProgressCallback; cb != nil {
		var mu sync.Mutex
		scanOpts.ProgressCallback = func(u ProgressUpdate) {
			mu.Lock()
			defer mu.Unlock()
			cb(u)
		}
	}

	limit := a.opts.MaxConcurrent
	if a.opts.Mode == ModeSerialized {
		limit = 1
	}

	log.Debug("discovering %s addresses in %d groups (gap %d, mode %s, skip %d)",
		keyType, groups, a.opts.GapLimit, a.opts.Mode, skip.Len())

	results := make([]groupResult, groups)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i := range groups {
		group := address.Group(i)
		g.Go(func() error {
			scanner := NewGroupScanner(group, keyType, deriver, a.oracle, skip, &scanOpts)
			found, err := scanner.Scan(gctx)
			if err != nil {
				return err
			}
			results[i] = groupResult{addresses: found, stats: scanner.Stats()}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("discovery failed: %v", err)
		return nil, err
	}

	result = &Result{
		Addresses:     []address.DerivedAddress{},
		KeyType:       keyType,
		GroupsScanned: groups,
	}
	for _, r := range results {
		result.Addresses = append(result.Addresses, r.addresses...)
		result.AddressesScanned += r.stats.AddressesScanned
		result.OracleCalls += r.stats.OracleCalls
		result.Rounds += r.stats.Rounds
	}
	result.Duration = time.Since(start)

	log.Debug("discovery finished: %d active addresses, %d oracle calls in %s",
		len(result.Addresses), result.OracleCalls, result.Duration)

	return result, nil
}

// buildDeriver layers the serialization lock and the shared memo over the
// caller's deriver.
func (a *AccountDiscovery) buildDeriver() (Deriver, error) {
	d := a.deriver
	if a.opts.Mode == ModeSerialized {
		d = &lockedDeriver{next: d}
	}
	if a.opts.MemoSize > 0 {
		memo, err := newMemoDeriver(d, a.opts.MemoSize)
		if err != nil {
			return nil, err
		}
		d = memo
	}
	return d, nil
}
