package discovery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shardwallet/shardwallet/internal/address"
)

func TestNextAddressForGroup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		group address.Group
		skip  *SkipSet
		want  uint32
	}{
		{name: "first index of group 0", group: 0, want: 0},
		{name: "first index of group 3", group: 3, want: 3},
		{name: "skipped index is passed over", group: 2, skip: NewSkipSet(2), want: 6},
		{name: "run of skipped indices", group: 1, skip: NewSkipSet(0, 1, 2, 3, 4, 5), want: 9},
		{name: "unrelated skips", group: 1, skip: NewSkipSet(0, 2), want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			addr, err := NextAddressForGroup(context.Background(), newMockDeriver(4), tt.group, address.KeyTypeDefault, tt.skip, 4)
			require.NoError(t, err)
			assert.Equal(t, tt.want, addr.Index)
			assert.Equal(t, tt.group, addr.Group)
		})
	}
}

func TestNextAddressForGroupErrors(t *testing.T) {
	t.Parallel()

	_, err := NextAddressForGroup(context.Background(), newMockDeriver(4), 4, address.KeyTypeDefault, nil, 0)
	require.ErrorIs(t, err, ErrInvalidGroup)

	deriver := newMockDeriver(4)
	deriver.keyTypes = map[address.KeyType]bool{address.KeyTypeDefault: true}
	_, err = NextAddressForGroup(context.Background(), deriver, 1, address.KeyTypeSchnorr, nil, 4)
	require.ErrorIs(t, err, ErrUnsupportedKeyType)

	failing := newMockDeriver(4)
	failing.failIndex[0] = errMockDerive
	_, err = NextAddressForGroup(context.Background(), failing, 0, address.KeyTypeDefault, nil, 4)
	require.ErrorIs(t, err, ErrDerivationFailed)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NextAddressForGroup(ctx, newMockDeriver(4), 0, address.KeyTypeDefault, nil, 4)
	require.ErrorIs(t, err, ErrDiscoveryCanceled)
}
