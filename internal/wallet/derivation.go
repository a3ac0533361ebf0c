package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tyler-smith/go-bip32"

	"github.com/shardwallet/shardwallet/internal/address"
	"github.com/shardwallet/shardwallet/internal/metrics"
	"github.com/shardwallet/shardwallet/internal/secure"
)

// CoinType is the registered BIP44 coin type of the network.
const CoinType = 1234

var (
	// ErrDeriverClosed indicates the deriver's seed has been destroyed.
	ErrDeriverClosed = errors.New("deriver is closed")

	// ErrIndexExhausted indicates no index up to address.MaxIndex matched.
	ErrIndexExhausted = errors.New("address index space exhausted")

	// ErrEmptySeed indicates the seed is empty.
	ErrEmptySeed = errors.New("seed is empty")
)

// DerivationPath returns the BIP44 path of an external address.
func DerivationPath(account, index uint32) string {
	return fmt.Sprintf("m/44'/%d'/%d'/0/%d", CoinType, account, index)
}

// DeriverOptions configures a Deriver.
type DeriverOptions struct {
	// Account is the BIP44 account. Default: 0.
	Account uint32

	// Groups is the number of address groups. Default: address.TotalGroups.
	Groups int
}

// Deriver derives addresses locally from a BIP39 seed.
// It is safe for concurrent use.
type Deriver struct {
	mu        sync.Mutex
	seed      *secure.Bytes
	chainKey  *bip32.Key // m/44'/coin'/account'/0, derived lazily
	account   uint32
	groups    int
	closed    bool
	derivedFn func() // test hook
}

// NewDeriver creates a deriver from a seed. The seed slice is copied into
// locked memory and zeroed.
func NewDeriver(seed []byte, opts *DeriverOptions) (*Deriver, error) {
	if len(seed) == 0 {
		return nil, ErrEmptySeed
	}

	d := &Deriver{
		seed:   secure.FromSlice(seed),
		groups: address.TotalGroups,
	}
	if opts != nil {
		d.account = opts.Account
		if opts.Groups > 0 {
			d.groups = opts.Groups
		}
	}

	return d, nil
}

// NewDeriverFromMnemonic validates the mnemonic and creates a deriver.
func NewDeriverFromMnemonic(mnemonic, passphrase string, opts *DeriverOptions) (*Deriver, error) {
	seed, err := MnemonicToSeed(mnemonic, passphrase)
	if err != nil {
		return nil, err
	}
	return NewDeriver(seed, opts)
}

// SupportsKeyType reports whether the deriver can build addresses for keyType.
func (d *Deriver) SupportsKeyType(keyType address.KeyType) bool {
	return keyType.Valid()
}

// DeriveAddress derives the address at index. When targetGroup is set the
// deriver walks forward from index until an address lands in that group.
func (d *Deriver) DeriveAddress(ctx context.Context, index uint32, keyType address.KeyType, targetGroup *address.Group) (*address.DerivedAddress, error) {
	for i := index; ; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		addr, err := d.deriveAt(i, keyType)
		if err != nil {
			return nil, err
		}

		if targetGroup == nil || addr.Group == *targetGroup {
			return addr, nil
		}

		if i == address.MaxIndex {
			return nil, ErrIndexExhausted
		}
	}
}

// Close destroys the seed and cached chain key.
func (d *Deriver) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.chainKey != nil {
		secure.Zero(d.chainKey.Key)
		secure.Zero(d.chainKey.ChainCode)
		d.chainKey = nil
	}
	d.seed.Destroy()
	d.closed = true
}

// deriveAt derives the address at exactly index.
func (d *Deriver) deriveAt(index uint32, keyType address.KeyType) (*address.DerivedAddress, error) {
	chainKey, err := d.externalChainKey()
	if err != nil {
		return nil, err
	}

	child, err := chainKey.NewChildKey(index)
	if err != nil {
		return nil, fmt.Errorf("deriving index %d: %w", index, err)
	}
	defer secure.Zero(child.Key)

	addr, err := address.FromPublicKey(child.PublicKey().Key, keyType, d.groups)
	if err != nil {
		return nil, err
	}
	addr.Index = index
	addr.Path = DerivationPath(d.account, index)

	metrics.Global.RecordDerivation(nil)
	if d.derivedFn != nil {
		d.derivedFn()
	}
	return addr, nil
}

// externalChainKey returns m/44'/coin'/account'/0, deriving it on first use.
func (d *Deriver) externalChainKey() (*bip32.Key, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrDeriverClosed
	}
	if d.chainKey != nil {
		return d.chainKey, nil
	}

	key, err := bip32.NewMasterKey(d.seed.Bytes())
	if err != nil {
		return nil, fmt.Errorf("creating master key: %w", err)
	}

	for _, child := range []uint32{
		bip32.FirstHardenedChild + 44,
		bip32.FirstHardenedChild + CoinType,
		bip32.FirstHardenedChild + d.account,
		0,
	} {
		next, err := key.NewChildKey(child)
		secure.Zero(key.Key)
		if err != nil {
			return nil, fmt.Errorf("deriving path element %d: %w", child, err)
		}
		key = next
	}

	d.chainKey = key
	return key, nil
}
