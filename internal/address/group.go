package address

import (
	"github.com/btcsuite/btcd/btcutil/base58"

	walleterr "github.com/shardwallet/shardwallet/pkg/errors"
)

// hashLength is the length of a lockup hash in bytes.
const hashLength = 32

// GroupOfHash maps a lockup hash to its group.
// The hint is the djb hash of the lockup hash with the low bit set; the
// group is the xor of the hint's four bytes modulo the group count.
func GroupOfHash(hash []byte, groups int) Group {
	hint := djbHash(hash) | 1
	b := byte(hint>>24) ^ byte(hint>>16) ^ byte(hint>>8) ^ byte(hint)
	return Group(int(b) % groups)
}

// djbHash is the classic djb2 string hash over 32-bit wrapping arithmetic.
func djbHash(data []byte) uint32 {
	h := uint32(5381)
	for _, b := range data {
		h = (h << 5) + h + uint32(b)
	}
	return h
}

// Encode renders a typed lockup hash as a base58 address.
func Encode(prefix byte, hash []byte) string {
	raw := make([]byte, 0, 1+len(hash))
	raw = append(raw, prefix)
	raw = append(raw, hash...)
	return base58.Encode(raw)
}

// Decode parses a base58 address into its type prefix and lockup hash.
func Decode(addr string) (byte, []byte, error) {
	if addr == "" {
		return 0, nil, walleterr.ErrInvalidAddress
	}

	raw := base58.Decode(addr)
	if len(raw) != 1+hashLength {
		return 0, nil, walleterr.WithDetails(walleterr.ErrInvalidAddress, map[string]string{"address": addr})
	}

	prefix := raw[0]
	if prefix != prefixP2PKH && prefix != prefixP2SH {
		return 0, nil, walleterr.WithDetails(walleterr.ErrInvalidAddress, map[string]string{
			"address": addr,
			"reason":  "unsupported address type",
		})
	}

	return prefix, raw[1:], nil
}

// Validate checks that addr is a well-formed address.
func Validate(addr string) error {
	_, _, err := Decode(addr)
	return err
}

// GroupOf returns the group a base58 address belongs to.
func GroupOf(addr string, groups int) (Group, error) {
	_, hash, err := Decode(addr)
	if err != nil {
		return 0, err
	}
	return GroupOfHash(hash, groups), nil
}
