// Package hardware derives addresses through a hardware signer.
//
// A device answers one public-key request at a time and each request can
// take seconds, so the Deriver holds a transport lock for every call and
// reports each round-trip to metrics.
package hardware

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shardwallet/shardwallet/internal/address"
	"github.com/shardwallet/shardwallet/internal/metrics"
	"github.com/shardwallet/shardwallet/internal/wallet"
	walleterr "github.com/shardwallet/shardwallet/pkg/errors"
)

var (
	// ErrUnsupportedKeyType indicates the device cannot produce the key type.
	ErrUnsupportedKeyType = errors.New("key type not supported by device")

	// ErrDeviceClosed indicates the device has been closed.
	ErrDeviceClosed = errors.New("device is closed")
)

// Device is a hardware signer transport.
type Device interface {
	// PublicKey returns the 33-byte compressed secp256k1 key at path.
	PublicKey(ctx context.Context, path string) ([]byte, error)

	// Close releases the transport.
	Close() error
}

// Options configures a Deriver.
type Options struct {
	// Account is the BIP44 account. Default: 0.
	Account uint32

	// Groups is the number of address groups. Default: address.TotalGroups.
	Groups int
}

// Deriver derives addresses on a Device. It is safe for concurrent use;
// calls are serialized on the device transport.
type Deriver struct {
	mu      sync.Mutex
	device  Device
	account uint32
	groups  int
}

// NewDeriver wraps device.
func NewDeriver(device Device, opts *Options) *Deriver {
	d := &Deriver{device: device, groups: address.TotalGroups}
	if opts != nil {
		d.account = opts.Account
		if opts.Groups > 0 {
			d.groups = opts.Groups
		}
	}
	return d
}

// SupportsKeyType reports whether keyType can be derived on the device.
// Devices only expose secp256k1 keys for the default lock script.
func (d *Deriver) SupportsKeyType(keyType address.KeyType) bool {
	return keyType == address.KeyTypeDefault
}

// DeriveAddress asks the device for the key at index. When targetGroup is
// set it keeps requesting successive indices until the address lands in
// that group.
func (d *Deriver) DeriveAddress(ctx context.Context, index uint32, keyType address.KeyType, targetGroup *address.Group) (*address.DerivedAddress, error) {
	if !d.SupportsKeyType(keyType) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKeyType, keyType)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device == nil {
		return nil, ErrDeviceClosed
	}

	for i := index; ; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		addr, err := d.requestAddress(ctx, i)
		if err != nil {
			return nil, err
		}
		if targetGroup == nil || addr.Group == *targetGroup {
			return addr, nil
		}

		if i == address.MaxIndex {
			return nil, wallet.ErrIndexExhausted
		}
	}
}

// requestAddress performs one device round-trip. d.mu must be held.
func (d *Deriver) requestAddress(ctx context.Context, index uint32) (*address.DerivedAddress, error) {
	path := wallet.DerivationPath(d.account, index)

	pubKey, err := d.device.PublicKey(ctx, path)
	metrics.Global.RecordDeviceCall(err)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, walleterr.WithDetails(walleterr.WithCause(walleterr.ErrDeviceError, err), map[string]string{"path": path})
	}

	addr, err := address.FromPublicKey(pubKey, address.KeyTypeDefault, d.groups)
	if err != nil {
		return nil, walleterr.WithCause(walleterr.ErrDeviceError, err)
	}
	addr.Index = index
	addr.Path = path
	return addr, nil
}

// Close closes the device transport.
func (d *Deriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device == nil {
		return nil
	}
	err := d.device.Close()
	d.device = nil
	return err
}
