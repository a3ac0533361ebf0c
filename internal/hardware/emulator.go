package hardware

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tyler-smith/go-bip32"

	"github.com/shardwallet/shardwallet/internal/secure"
	"github.com/shardwallet/shardwallet/internal/wallet"
)

// ErrInvalidPath indicates a malformed derivation path.
var ErrInvalidPath = errors.New("invalid derivation path")

// Emulator is a Device backed by a local seed. It answers like a signer
// would, including an optional per-request latency, and is used to
// rehearse serialized discovery without a physical device.
type Emulator struct {
	mu       sync.Mutex
	seed     *secure.Bytes
	latency  time.Duration
	requests int
	closed   bool
}

// NewEmulator creates an emulator over seed. The seed slice is zeroed.
func NewEmulator(seed []byte, latency time.Duration) (*Emulator, error) {
	if len(seed) == 0 {
		return nil, wallet.ErrEmptySeed
	}
	return &Emulator{seed: secure.FromSlice(seed), latency: latency}, nil
}

// PublicKey derives the compressed public key at path.
func (e *Emulator) PublicKey(ctx context.Context, path string) ([]byte, error) {
	elems, err := ParsePath(path)
	if err != nil {
		return nil, err
	}

	if e.latency > 0 {
		timer := time.NewTimer(e.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrDeviceClosed
	}
	e.requests++

	key, err := bip32.NewMasterKey(e.seed.Bytes())
	if err != nil {
		return nil, err
	}
	for _, child := range elems {
		next, err := key.NewChildKey(child)
		secure.Zero(key.Key)
		if err != nil {
			return nil, err
		}
		key = next
	}
	defer secure.Zero(key.Key)

	return key.PublicKey().Key, nil
}

// Requests returns the number of key requests served.
func (e *Emulator) Requests() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.requests
}

// Close destroys the seed.
func (e *Emulator) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.closed {
		e.seed.Destroy()
		e.closed = true
	}
	return nil
}

// ParsePath parses a BIP32 path such as m/44'/1234'/0'/0/5 into child
// indices, with hardened elements offset by bip32.FirstHardenedChild.
func ParsePath(path string) ([]uint32, error) {
	parts := strings.Split(path, "/")
	if len(parts) < 2 || parts[0] != "m" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}

	out := make([]uint32, 0, len(parts)-1)
	for _, p := range parts[1:] {
		hardened := strings.HasSuffix(p, "'") || strings.HasSuffix(p, "h")
		p = strings.TrimRight(p, "'h")

		v, err := strconv.ParseUint(p, 10, 32)
		if err != nil || v >= uint64(bip32.FirstHardenedChild) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
		child := uint32(v)
		if hardened {
			child += bip32.FirstHardenedChild
		}
		out = append(out, child)
	}
	return out, nil
}
