package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mrz1836/go-sanitize"
	"github.com/spf13/cobra"

	"github.com/shardwallet/shardwallet/internal/address"
	"github.com/shardwallet/shardwallet/internal/discovery"
	"github.com/shardwallet/shardwallet/internal/output"
	walleterr "github.com/shardwallet/shardwallet/pkg/errors"
)

// AddressResponse is the JSON response for address new.
type AddressResponse struct {
	Address   string          `json:"address"`
	Group     address.Group   `json:"group"`
	Index     uint32          `json:"index"`
	KeyType   address.KeyType `json:"key_type"`
	PublicKey string          `json:"public_key"`
	Path      string          `json:"path,omitempty"`
}

// GroupResponse is the JSON response for address group.
type GroupResponse struct {
	Address string        `json:"address"`
	Group   address.Group `json:"group"`
	Groups  int           `json:"groups"`
}

type addressNewFlags struct {
	signer  signerFlags
	group   int
	skip    string
	keyType string
	qr      bool
}

func newAddressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "address",
		Short: "Derive fresh addresses and inspect groups",
		Long:  `Work with individual addresses of an account.`,
	}
	cmd.AddCommand(newAddressNewCmd(), newAddressGroupCmd())
	return cmd
}

func newAddressNewCmd() *cobra.Command {
	f := &addressNewFlags{}

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Derive the next unused address in a group",
		Long: `Derive the lowest-index address that lands in --group and is not in --skip.

Pass the indices a discovery reported (its "skip" field) to get an address
that has never been handed out.

Examples:
  shardwallet address new --group 1
  shardwallet address new --group 3 --skip 0-11 --key-type bip340-schnorr
  shardwallet address new --group 0 --qr`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAddressNew(cmd, f)
		},
	}

	f.signer.register(cmd)
	cmd.Flags().IntVar(&f.group, "group", -1, "target group (required)")
	cmd.Flags().StringVar(&f.skip, "skip", "", "indices already in use, e.g. 0-4,9")
	cmd.Flags().StringVar(&f.keyType, "key-type", "", "key type: default, bip340-schnorr")
	cmd.Flags().BoolVar(&f.qr, "qr", false, "render the address as a QR code on a terminal")
	_ = cmd.MarkFlagRequired("group")

	return cmd
}

func runAddressNew(cmd *cobra.Command, f *addressNewFlags) error {
	cc := GetCmdContext(cmd)
	groups := networkGroups(cc)

	if f.group < 0 || f.group >= groups {
		return walleterr.WithDetails(discovery.ErrInvalidGroup, map[string]string{
			"group":  strconv.Itoa(f.group),
			"groups": strconv.Itoa(groups),
		})
	}

	keyTypeName := cc.Config.Derivation.KeyType
	if cmd.Flags().Changed("key-type") {
		keyTypeName = f.keyType
	}
	keyType, err := address.ParseKeyType(keyTypeName)
	if err != nil {
		return err
	}

	skip, err := discovery.ParseSkipSet(f.skip)
	if err != nil {
		return err
	}

	s, err := openSigner(cmd, cc, &f.signer)
	if err != nil {
		return err
	}
	defer s.close()

	addr, err := discovery.NextAddressForGroup(cmd.Context(), s.deriver, address.Group(f.group), keyType, skip, groups)
	if err != nil {
		return err
	}
	cc.Logger.Debug("fresh address group=%d index=%d", addr.Group, addr.Index)

	resp := AddressResponse{
		Address:   addr.Hash,
		Group:     addr.Group,
		Index:     addr.Index,
		KeyType:   addr.KeyType,
		PublicKey: addr.PublicKey,
		Path:      addr.Path,
	}

	return cc.Fmt.Emit(resp, func(w io.Writer) error {
		if _, err := fmt.Fprintf(w, "%s\n\n", cc.Fmt.Highlight(resp.Address)); err != nil {
			return err
		}
		tbl := output.NewTable()
		tbl.AddRow("Group:", strconv.Itoa(int(resp.Group)))
		tbl.AddRow("Index:", strconv.FormatUint(uint64(resp.Index), 10))
		tbl.AddRow("Key type:", string(resp.KeyType))
		tbl.AddRow("Path:", resp.Path)
		if err := tbl.Render(w); err != nil {
			return err
		}
		if f.qr {
			_, _ = fmt.Fprintln(w)
			output.RenderQR(w, resp.Address, output.DefaultQRConfig())
		}
		return nil
	})
}

func newAddressGroupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "group ADDRESS",
		Short: "Show which group an address belongs to",
		Long: `Decode a base58 address and print its group.

Example:
  shardwallet address group 1DrDyTvSYPuJzZqrhHTSCxmgUVpNkD3sjA3j3UWa9Pje`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := GetCmdContext(cmd)
			groups := networkGroups(cc)

			// Pasted addresses often carry quotes or line breaks.
			addr := sanitize.BitcoinAddress(strings.TrimSpace(args[0]))
			group, err := address.GroupOf(addr, groups)
			if err != nil {
				return walleterr.WithSuggestion(err, "addresses are base58 strings of a 1-byte type and a 32-byte hash")
			}

			resp := GroupResponse{Address: addr, Group: group, Groups: groups}
			return cc.Fmt.Emit(resp, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%d\n", resp.Group)
				return err
			})
		},
	}
}
