package discovery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shardwallet/shardwallet/internal/address"
)

var (
	errMockDerive = errors.New("mock derive error")
	errMockOracle = errors.New("mock oracle error")
)

// mockDeriver places index i in group i % groups.
type mockDeriver struct {
	mu        sync.Mutex
	groups    int
	keyTypes  map[address.KeyType]bool
	derived   map[uint32]int
	failIndex map[uint32]error
	delay     time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func newMockDeriver(groups int) *mockDeriver {
	return &mockDeriver{
		groups:    groups,
		keyTypes:  map[address.KeyType]bool{address.KeyTypeDefault: true, address.KeyTypeSchnorr: true},
		derived:   make(map[uint32]int),
		failIndex: make(map[uint32]error),
	}
}

func mockHash(index uint32) string {
	return fmt.Sprintf("addr-%d", index)
}

func mockIndex(hash string) uint32 {
	var i uint32
	_, _ = fmt.Sscanf(hash, "addr-%d", &i)
	return i
}

func (d *mockDeriver) SupportsKeyType(keyType address.KeyType) bool {
	return d.keyTypes[keyType]
}

func (d *mockDeriver) DeriveAddress(ctx context.Context, index uint32, keyType address.KeyType, targetGroup *address.Group) (*address.DerivedAddress, error) {
	n := d.inFlight.Add(1)
	defer d.inFlight.Add(-1)
	for {
		current := d.maxInFlight.Load()
		if n <= current || d.maxInFlight.CompareAndSwap(current, n) {
			break
		}
	}

	if d.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(d.delay):
		}
	}

	for i := index; ; i++ {
		d.mu.Lock()
		d.derived[i]++
		err := d.failIndex[i]
		d.mu.Unlock()
		if err != nil {
			return nil, err
		}

		addr := &address.DerivedAddress{
			Hash:    mockHash(i),
			Index:   i,
			Group:   address.Group(i % uint32(d.groups)),
			KeyType: keyType,
			Path:    fmt.Sprintf("m/44'/1234'/0'/0/%d", i),
		}
		if targetGroup == nil || addr.Group == *targetGroup {
			return addr, nil
		}
		if i == address.MaxIndex {
			return nil, errMockDerive
		}
	}
}

func (d *mockDeriver) derivations(index uint32) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.derived[index]
}

func (d *mockDeriver) totalDerivations() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	total := 0
	for _, n := range d.derived {
		total += n
	}
	return total
}

// mockOracle answers from a fixed table of active indices.
type mockOracle struct {
	mu     sync.Mutex
	groups int
	active map[uint32]bool
	calls  [][]string

	callsByGroup map[address.Group]int
	// failCall fails the n-th (1-based) call made for a group.
	failCall map[address.Group]int
	// delayGroup slows every call made for a group.
	delayGroup map[address.Group]time.Duration
	// block makes every call wait for context cancellation.
	block bool
	// shortBy truncates every response.
	shortBy int
}

func newMockOracle(groups int, active ...uint32) *mockOracle {
	o := &mockOracle{
		groups:       groups,
		active:       make(map[uint32]bool),
		callsByGroup: make(map[address.Group]int),
		failCall:     make(map[address.Group]int),
		delayGroup:   make(map[address.Group]time.Duration),
	}
	for _, i := range active {
		o.active[i] = true
	}
	return o
}

func (o *mockOracle) CheckActive(ctx context.Context, hashes []string) ([]bool, error) {
	group := address.Group(mockIndex(hashes[0]) % uint32(o.groups))

	o.mu.Lock()
	o.calls = append(o.calls, append([]string(nil), hashes...))
	o.callsByGroup[group]++
	n := o.callsByGroup[group]
	fail := o.failCall[group] == n
	delay := o.delayGroup[group]
	o.mu.Unlock()

	if o.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	if fail {
		return nil, errMockOracle
	}

	out := make([]bool, 0, len(hashes))
	for _, h := range hashes {
		out = append(out, o.active[mockIndex(h)])
	}
	return out[:len(out)-min(o.shortBy, len(out))], nil
}

func (o *mockOracle) callCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.calls)
}

func (o *mockOracle) groupCalls(g address.Group) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.callsByGroup[g]
}

func (o *mockOracle) checked() map[string]int {
	o.mu.Lock()
	defer o.mu.Unlock()
	seen := make(map[string]int)
	for _, call := range o.calls {
		for _, h := range call {
			seen[h]++
		}
	}
	return seen
}

func indexes(addrs []address.DerivedAddress) []uint32 {
	out := make([]uint32, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, a.Index)
	}
	return out
}

func testOptions() *Options {
	opts := DefaultOptions()
	opts.Groups = 4
	return opts
}
