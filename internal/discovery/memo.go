package discovery

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/shardwallet/shardwallet/internal/address"
)

type memoKey struct {
	index   uint32
	keyType address.KeyType
}

// memoDeriver shares group-agnostic derivations between group scans.
// Every group scan walks the same global index space, so without it each
// index would be derived once per group. Concurrent requests for the same
// index are collapsed into one call to the underlying deriver.
type memoDeriver struct {
	next  Deriver
	cache *lru.Cache[memoKey, *address.DerivedAddress]
	group singleflight.Group
}

func newMemoDeriver(next Deriver, size int) (*memoDeriver, error) {
	cache, err := lru.New[memoKey, *address.DerivedAddress](size)
	if err != nil {
		return nil, err
	}
	return &memoDeriver{next: next, cache: cache}, nil
}

func (m *memoDeriver) SupportsKeyType(keyType address.KeyType) bool {
	return m.next.SupportsKeyType(keyType)
}

// DeriveAddress memoizes only group-agnostic requests. Targeted requests
// may return a later index and go straight to the underlying deriver.
func (m *memoDeriver) DeriveAddress(ctx context.Context, index uint32, keyType address.KeyType, targetGroup *address.Group) (*address.DerivedAddress, error) {
	if targetGroup != nil {
		return m.next.DeriveAddress(ctx, index, keyType, targetGroup)
	}

	key := memoKey{index: index, keyType: keyType}
	if addr, ok := m.cache.Get(key); ok {
		return copyAddress(addr), nil
	}

	v, err, _ := m.group.Do(fmt.Sprintf("%s/%d", keyType, index), func() (any, error) {
		// A flight that finished between the Get above and Do has
		// already stored its result.
		if addr, ok := m.cache.Get(key); ok {
			return addr, nil
		}
		addr, err := m.next.DeriveAddress(ctx, index, keyType, nil)
		if err != nil {
			return nil, err
		}
		m.cache.Add(key, addr)
		return addr, nil
	})
	if err != nil {
		return nil, err
	}
	return copyAddress(v.(*address.DerivedAddress)), nil
}

func copyAddress(a *address.DerivedAddress) *address.DerivedAddress {
	c := *a
	return &c
}

// lockedDeriver funnels every derivation through one mutex so that at most
// one request reaches the underlying deriver at a time.
type lockedDeriver struct {
	mu   sync.Mutex
	next Deriver
}

func (l *lockedDeriver) SupportsKeyType(keyType address.KeyType) bool {
	return l.next.SupportsKeyType(keyType)
}

func (l *lockedDeriver) DeriveAddress(ctx context.Context, index uint32, keyType address.KeyType, targetGroup *address.Group) (*address.DerivedAddress, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.next.DeriveAddress(ctx, index, keyType, targetGroup)
}
