package discovery

import (
	"context"
	"fmt"

	"github.com/shardwallet/shardwallet/internal/address"
	walleterr "github.com/shardwallet/shardwallet/pkg/errors"
)

// NextAddressForGroup returns the address at the lowest index that is not
// in skip and lands in targetGroup. groups is the network group count;
// zero means address.TotalGroups.
func NextAddressForGroup(ctx context.Context, deriver Deriver, targetGroup address.Group, keyType address.KeyType, skip *SkipSet, groups int) (*address.DerivedAddress, error) {
	if groups == 0 {
		groups = address.TotalGroups
	}
	if !targetGroup.Valid(groups) {
		return nil, walleterr.WithDetails(ErrInvalidGroup, map[string]string{
			"group":  fmt.Sprintf("%d", targetGroup),
			"groups": fmt.Sprintf("%d", groups),
		})
	}
	if !keyType.Valid() || !deriver.SupportsKeyType(keyType) {
		return nil, walleterr.WithDetails(ErrUnsupportedKeyType, map[string]string{"key_type": string(keyType)})
	}

	from := uint32(0)
	for {
		if err := ctx.Err(); err != nil {
			return nil, canceled(err)
		}

		index, ok := skip.NextFree(from, address.MaxIndex)
		if !ok {
			return nil, ErrIndexSpaceExhausted
		}

		addr, err := deriver.DeriveAddress(ctx, index, keyType, &targetGroup)
		if err != nil {
			return nil, classify(ctx, ErrDerivationFailed, err, map[string]string{"index": fmt.Sprintf("%d", index)})
		}

		// The deriver may walk past skipped indices while looking for the group.
		if addr.Group == targetGroup && !skip.Contains(addr.Index) {
			return addr, nil
		}
		if addr.Index >= address.MaxIndex {
			return nil, ErrIndexSpaceExhausted
		}
		from = max(addr.Index, index) + 1
	}
}
