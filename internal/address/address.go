// Package address models grouped (sharded) addresses: key types, groups,
// derived addresses and the encoding used to talk to the explorer.
package address

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"golang.org/x/crypto/blake2b"

	walleterr "github.com/shardwallet/shardwallet/pkg/errors"
)

const (
	// TotalGroups is the number of address groups on the network.
	TotalGroups = 4

	// MaxIndex is the highest non-hardened BIP32 child index.
	MaxIndex uint32 = 1<<31 - 1
)

// Address type prefixes.
const (
	prefixP2PKH byte = 0x00
	prefixP2SH  byte = 0x02
)

// Group identifies an address group (shard).
type Group uint8

// Valid reports whether g is a group of a network with the given number of groups.
func (g Group) Valid(groups int) bool {
	return int(g) < groups
}

// KeyType selects the signature scheme an address is built for.
type KeyType string

// Supported key types.
const (
	// KeyTypeDefault is secp256k1 ECDSA with a P2PKH lockup.
	KeyTypeDefault KeyType = "default"

	// KeyTypeSchnorr is BIP340 schnorr over secp256k1 with a script lockup.
	KeyTypeSchnorr KeyType = "bip340-schnorr"
)

// ErrUnknownKeyType indicates a key type outside the supported set.
var ErrUnknownKeyType = &walleterr.WalletError{
	Code:     "UNKNOWN_KEY_TYPE",
	Message:  "unknown key type",
	ExitCode: walleterr.ExitInput,
}

// KeyTypes lists every supported key type.
func KeyTypes() []KeyType {
	return []KeyType{KeyTypeDefault, KeyTypeSchnorr}
}

// ParseKeyType parses a key type name. An empty string selects the default.
func ParseKeyType(s string) (KeyType, error) {
	switch KeyType(strings.ToLower(strings.TrimSpace(s))) {
	case "", KeyTypeDefault:
		return KeyTypeDefault, nil
	case KeyTypeSchnorr:
		return KeyTypeSchnorr, nil
	default:
		return "", walleterr.WithDetails(ErrUnknownKeyType, map[string]string{"key_type": s})
	}
}

// Valid reports whether k is one of the supported key types.
func (k KeyType) Valid() bool {
	return k == KeyTypeDefault || k == KeyTypeSchnorr
}

// DerivedAddress is an address produced by a deriver for one index.
type DerivedAddress struct {
	// Hash is the base58 address string, the identifier the explorer understands.
	Hash string `json:"hash"`

	// PublicKey is the hex-encoded compressed public key.
	PublicKey string `json:"public_key"`

	// Index is the BIP32 child index the address was derived at.
	Index uint32 `json:"index"`

	// Group is the group the address lands in.
	Group Group `json:"group"`

	// KeyType is the scheme the address was built for.
	KeyType KeyType `json:"key_type"`

	// Path is the full derivation path, when known.
	Path string `json:"path,omitempty"`
}

// String returns the address hash.
func (a DerivedAddress) String() string {
	return a.Hash
}

// schnorr lockup template; the 32-byte x-only key sits between prefix and suffix.
//
//nolint:gochecknoglobals // Script template constants
var (
	schnorrLockPrefix = []byte{0x01, 0x01, 0x00, 0x00, 0x00, 0x00, 0x04, 0x58, 0x14, 0x40, 0x20}
	schnorrLockSuffix = []byte{0x86, 0x85}
)

// FromPublicKey builds the address for a compressed secp256k1 public key.
func FromPublicKey(pubKey []byte, keyType KeyType, groups int) (*DerivedAddress, error) {
	if groups <= 0 {
		return nil, fmt.Errorf("%w: groups must be positive", walleterr.ErrInvalidInput)
	}

	key, err := btcec.ParsePubKey(pubKey)
	if err != nil {
		return nil, walleterr.WithCause(walleterr.ErrInvalidPublicKey, err)
	}

	var prefix byte
	var hash [blake2b.Size256]byte
	switch keyType {
	case KeyTypeDefault:
		prefix = prefixP2PKH
		hash = blake2b.Sum256(key.SerializeCompressed())
	case KeyTypeSchnorr:
		prefix = prefixP2SH
		script := make([]byte, 0, len(schnorrLockPrefix)+schnorr.PubKeyBytesLen+len(schnorrLockSuffix))
		script = append(script, schnorrLockPrefix...)
		script = append(script, schnorr.SerializePubKey(key)...)
		script = append(script, schnorrLockSuffix...)
		hash = blake2b.Sum256(script)
	default:
		return nil, walleterr.WithDetails(ErrUnknownKeyType, map[string]string{"key_type": string(keyType)})
	}

	return &DerivedAddress{
		Hash:      Encode(prefix, hash[:]),
		PublicKey: hex.EncodeToString(key.SerializeCompressed()),
		Group:     GroupOfHash(hash[:], groups),
		KeyType:   keyType,
	}, nil
}
