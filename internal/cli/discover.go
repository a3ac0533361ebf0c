package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/shardwallet/shardwallet/internal/address"
	"github.com/shardwallet/shardwallet/internal/discovery"
	"github.com/shardwallet/shardwallet/internal/metrics"
	"github.com/shardwallet/shardwallet/internal/output"
)

type discoverFlags struct {
	signer      signerFlags
	keyType     string
	skip        string
	gap         int
	oracleBatch int
	mode        string
	timeout     time.Duration
	noCache     bool
}

// DiscoverResponse is the JSON response for the discover command.
type DiscoverResponse struct {
	KeyType          address.KeyType           `json:"key_type"`
	Account          uint32                    `json:"account"`
	Mode             discovery.Mode            `json:"mode"`
	Groups           int                       `json:"groups"`
	Addresses        []DiscoverAddressResponse `json:"addresses"`
	ActiveByGroup    []int                     `json:"active_by_group"`
	AddressesScanned int                       `json:"addresses_scanned"`
	OracleCalls      int                       `json:"oracle_calls"`
	Rounds           int                       `json:"rounds"`
	DurationMs       int64                     `json:"duration_ms"`
	PassphraseUsed   bool                      `json:"passphrase_used,omitempty"`
	// Skip lists the found indices merged with the input skip set, ready
	// to pass to a follow-up run.
	Skip string `json:"skip,omitempty"`
}

// DiscoverAddressResponse is one active address.
type DiscoverAddressResponse struct {
	Group     address.Group `json:"group"`
	Index     uint32        `json:"index"`
	Address   string        `json:"address"`
	PublicKey string        `json:"public_key"`
	Path      string        `json:"path,omitempty"`
}

func newDiscoverCmd() *cobra.Command {
	f := &discoverFlags{}

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Find the active addresses of an account",
		Long: `Scan every address group of a BIP44 account and report the addresses
that have been used on chain.

Each group is scanned in rounds of --gap addresses that land in it. A round
with any active address starts another round; a quiet round ends the group.
Indices listed with --skip are never derived or checked, so a previous
result can be fed back to resume.

Examples:
  shardwallet discover --input "abandon abandon ... about"
  shardwallet discover --key-type bip340-schnorr --gap 20
  shardwallet discover --skip 0-9,42 -o json
  shardwallet discover --device-emulator`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDiscover(cmd, f)
		},
	}

	f.signer.register(cmd)
	cmd.Flags().StringVar(&f.keyType, "key-type", "", "key type: default, bip340-schnorr")
	cmd.Flags().StringVar(&f.skip, "skip", "", "indices to skip, e.g. 0-4,9")
	cmd.Flags().IntVar(&f.gap, "gap", discovery.DefaultGapLimit, "group addresses judged per round")
	cmd.Flags().IntVar(&f.oracleBatch, "oracle-batch", 0, "max addresses per explorer request (0: one request per round)")
	cmd.Flags().StringVar(&f.mode, "mode", "", "scheduling: parallel or serialized")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "abort after this long (default from config)")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "bypass the activity cache")

	return cmd
}

// discoveryOptions merges config and flags.
func discoveryOptions(cmd *cobra.Command, cc *CommandContext, f *discoverFlags) (*discovery.Options, time.Duration, error) {
	dc := cc.Config.Discovery

	opts := discovery.DefaultOptions()
	opts.Groups = networkGroups(cc)
	opts.GapLimit = dc.GapLimit
	opts.OracleBatchSize = dc.OracleBatchSize
	opts.MaxConcurrent = dc.MaxConcurrent
	opts.Logger = cc.Logger

	modeName := dc.Mode
	if cmd.Flags().Changed("gap") {
		opts.GapLimit = f.gap
	}
	if cmd.Flags().Changed("oracle-batch") {
		opts.OracleBatchSize = f.oracleBatch
	}
	if cmd.Flags().Changed("mode") {
		modeName = f.mode
	}
	mode, err := discovery.ParseMode(modeName)
	if err != nil {
		return nil, 0, err
	}
	opts.Mode = mode

	timeout := time.Duration(dc.TimeoutSeconds) * time.Second
	if cmd.Flags().Changed("timeout") {
		timeout = f.timeout
	}

	if err := opts.Validate(); err != nil {
		return nil, 0, err
	}
	return opts, timeout, nil
}

func runDiscover(cmd *cobra.Command, f *discoverFlags) error {
	cc := GetCmdContext(cmd)

	opts, timeout, err := discoveryOptions(cmd, cc, f)
	if err != nil {
		return err
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

	if s.hardware && opts.Mode != discovery.ModeSerialized {
		cc.Logger.Debug("hardware signer: switching from %s to serialized mode", opts.Mode)
		opts.Mode = discovery.ModeSerialized
	}

	oracle, persist, err := cc.NewOracle(cc.Config, !f.noCache)
	if err != nil {
		return err
	}
	defer func() {
		if err := persist(); err != nil {
			output.Warn(cc.Stderr, "could not save activity cache: %v", err)
		}
	}()

	if !cc.Fmt.IsJSON() {
		opts.ProgressCallback = progressPrinter(cc.Stderr)
	}

	ctx, cancel := contextWithTimeout(cmd, timeout)
	defer cancel()

	cc.Logger.Debug("discover key_type=%s mode=%s gap=%d batch=%d groups=%d skip=%d",
		keyType, opts.Mode, opts.GapLimit, opts.OracleBatchSize, opts.Groups, skip.Len())

	result, err := discovery.NewAccountDiscovery(s.deriver, oracle, opts).Discover(ctx, skip, keyType)
	if err != nil {
		cc.Logger.Error("discovery failed: %v", err)
		return err
	}
	cc.Logger.Debug("metrics %+v", metrics.Global.Snapshot())

	resp := newDiscoverResponse(result, opts, f.signer.account, skip)
	resp.PassphraseUsed = s.passphrase

	return cc.Fmt.Emit(resp, func(w io.Writer) error {
		return writeDiscoverText(w, cc.Fmt, resp)
	})
}

func newDiscoverResponse(result *discovery.Result, opts *discovery.Options, account uint32, skip *discovery.SkipSet) DiscoverResponse {
	resp := DiscoverResponse{
		KeyType:          result.KeyType,
		Account:          account,
		Mode:             opts.Mode,
		Groups:           result.GroupsScanned,
		Addresses:        make([]DiscoverAddressResponse, 0, len(result.Addresses)),
		ActiveByGroup:    make([]int, result.GroupsScanned),
		AddressesScanned: result.AddressesScanned,
		OracleCalls:      result.OracleCalls,
		Rounds:           result.Rounds,
		DurationMs:       result.Duration.Milliseconds(),
	}
	for _, a := range result.Addresses {
		resp.Addresses = append(resp.Addresses, DiscoverAddressResponse{
			Group:     a.Group,
			Index:     a.Index,
			Address:   a.Hash,
			PublicKey: a.PublicKey,
			Path:      a.Path,
		})
	}

	for g := range resp.ActiveByGroup {
		resp.ActiveByGroup[g] = len(result.ByGroup(address.Group(g)))
	}

	next := skip.Clone()
	next.Add(result.Indexes()...)
	resp.Skip = next.String()
	return resp
}

func writeDiscoverText(w io.Writer, fmtr *output.Formatter, resp DiscoverResponse) error {
	if len(resp.Addresses) == 0 {
		_, err := fmt.Fprintf(w, "No active addresses found (%d addresses checked in %d groups).\n",
			resp.AddressesScanned, resp.Groups)
		return err
	}

	if _, err := fmt.Fprintln(w, fmtr.Heading(fmt.Sprintf("Active addresses (%s, account %d)", resp.KeyType, resp.Account))); err != nil {
		return err
	}

	tbl := output.NewTable("GROUP", "INDEX", "ADDRESS").AlignRight(0, 1)
	for _, a := range resp.Addresses {
		tbl.AddRow(strconv.Itoa(int(a.Group)), strconv.FormatUint(uint64(a.Index), 10), fmtr.Highlight(a.Address))
	}
	if err := tbl.Render(w); err != nil {
		return err
	}

	_, err := fmt.Fprintln(w, fmtr.Muted(fmt.Sprintf(
		"\n%d active, %d checked, %d explorer requests, %d ms",
		len(resp.Addresses), resp.AddressesScanned, resp.OracleCalls, resp.DurationMs)))
	return err
}

// progressPrinter reports found addresses and finished groups on w.
func progressPrinter(w io.Writer) discovery.ProgressCallback {
	return func(u discovery.ProgressUpdate) {
		switch u.Phase {
		case discovery.PhaseFound:
			output.Info(w, "group %d: %s", u.Group, u.Message)
		case discovery.PhaseDone:
			output.Info(w, "group %d: done, %d active of %d checked", u.Group, u.ActiveFound, u.AddressesScanned)
		}
	}
}
