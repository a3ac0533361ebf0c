package address

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	walleterr "github.com/shardwallet/shardwallet/pkg/errors"
)

func testPubKey(t *testing.T, seed byte) []byte {
	t.Helper()
	priv, _ := btcec.PrivKeyFromBytes(bytes.Repeat([]byte{seed}, 32))
	return priv.PubKey().SerializeCompressed()
}

func TestParseKeyType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    KeyType
		wantErr bool
	}{
		{"", KeyTypeDefault, false},
		{"default", KeyTypeDefault, false},
		{" DEFAULT ", KeyTypeDefault, false},
		{"bip340-schnorr", KeyTypeSchnorr, false},
		{"ed25519", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			got, err := ParseKeyType(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownKeyType)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKeyTypeValid(t *testing.T) {
	t.Parallel()
	for _, kt := range KeyTypes() {
		assert.True(t, kt.Valid(), kt)
	}
	assert.False(t, KeyType("gost").Valid())
}

func TestGroupOfHash_InRange(t *testing.T) {
	t.Parallel()

	seen := make(map[Group]bool)
	for i := 0; i < 256; i++ {
		hash := bytes.Repeat([]byte{byte(i)}, hashLength)
		g := GroupOfHash(hash, TotalGroups)
		require.True(t, g.Valid(TotalGroups))
		seen[g] = true
	}
	// 256 distinct hashes spread over every group
	assert.Len(t, seen, TotalGroups)
}

func TestGroupOfHash_Deterministic(t *testing.T) {
	t.Parallel()
	hash := []byte("0123456789abcdef0123456789abcdef")
	assert.Equal(t, GroupOfHash(hash, TotalGroups), GroupOfHash(hash, TotalGroups))
	assert.Equal(t, Group(0), GroupOfHash(hash, 1))
}

func TestDjbHash(t *testing.T) {
	t.Parallel()
	assert.Equal(t, uint32(5381), djbHash(nil))
	// 5381*33 + 'a'
	assert.Equal(t, uint32(177670), djbHash([]byte("a")))
}

func TestEncodeDecode(t *testing.T) {
	t.Parallel()
	hash := bytes.Repeat([]byte{0xab}, hashLength)

	addr := Encode(prefixP2PKH, hash)
	prefix, decoded, err := Decode(addr)
	require.NoError(t, err)
	assert.Equal(t, prefixP2PKH, prefix)
	assert.Equal(t, hash, decoded)
	require.NoError(t, Validate(addr))

	g, err := GroupOf(addr, TotalGroups)
	require.NoError(t, err)
	assert.Equal(t, GroupOfHash(hash, TotalGroups), g)
}

func TestDecode_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		addr string
	}{
		{"empty", ""},
		{"bad characters", "0OIl"},
		{"too short", Encode(prefixP2PKH, []byte{1, 2, 3})},
		{"unknown prefix", Encode(0x09, bytes.Repeat([]byte{1}, hashLength))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, _, err := Decode(tt.addr)
			require.ErrorIs(t, err, walleterr.ErrInvalidAddress)
		})
	}
}

func TestFromPublicKey_Default(t *testing.T) {
	t.Parallel()
	pub := testPubKey(t, 7)

	addr, err := FromPublicKey(pub, KeyTypeDefault, TotalGroups)
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(pub), addr.PublicKey)
	assert.Equal(t, KeyTypeDefault, addr.KeyType)

	prefix, _, err := Decode(addr.Hash)
	require.NoError(t, err)
	assert.Equal(t, prefixP2PKH, prefix)

	g, err := GroupOf(addr.Hash, TotalGroups)
	require.NoError(t, err)
	assert.Equal(t, addr.Group, g)
}

func TestFromPublicKey_Schnorr(t *testing.T) {
	t.Parallel()
	pub := testPubKey(t, 7)

	def, err := FromPublicKey(pub, KeyTypeDefault, TotalGroups)
	require.NoError(t, err)
	sch, err := FromPublicKey(pub, KeyTypeSchnorr, TotalGroups)
	require.NoError(t, err)

	assert.NotEqual(t, def.Hash, sch.Hash)
	assert.Equal(t, def.PublicKey, sch.PublicKey)

	prefix, _, err := Decode(sch.Hash)
	require.NoError(t, err)
	assert.Equal(t, prefixP2SH, prefix)
}

func TestFromPublicKey_Errors(t *testing.T) {
	t.Parallel()

	_, err := FromPublicKey([]byte{0x02, 0x01}, KeyTypeDefault, TotalGroups)
	require.ErrorIs(t, err, walleterr.ErrInvalidPublicKey)

	_, err = FromPublicKey(testPubKey(t, 1), KeyType("rsa"), TotalGroups)
	require.ErrorIs(t, err, ErrUnknownKeyType)

	_, err = FromPublicKey(testPubKey(t, 1), KeyTypeDefault, 0)
	require.ErrorIs(t, err, walleterr.ErrInvalidInput)
}
