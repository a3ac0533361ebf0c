package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/shardwallet/shardwallet/internal/address"
	"github.com/shardwallet/shardwallet/internal/discovery"
	"github.com/shardwallet/shardwallet/internal/hardware"
	"github.com/shardwallet/shardwallet/internal/wallet"
	walleterr "github.com/shardwallet/shardwallet/pkg/errors"
)

// signerFlags select where keys come from.
type signerFlags struct {
	input          string
	passphrase     bool
	account        uint32
	deviceEmulator bool
	deviceLatency  time.Duration
}

func (f *signerFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.input, "input", "", "recovery phrase (prompted when omitted)")
	cmd.Flags().BoolVar(&f.passphrase, "passphrase", false, "prompt for a BIP39 passphrase")
	cmd.Flags().Uint32Var(&f.account, "account", 0, "BIP44 account")
	cmd.Flags().BoolVar(&f.deviceEmulator, "device-emulator", false, "derive through the hardware signer emulator (forces serialized mode)")
	cmd.Flags().DurationVar(&f.deviceLatency, "device-latency", 0, "simulated per-request latency of the emulated device")
}

// signer is an opened deriver plus its teardown.
type signer struct {
	deriver    discovery.Deriver
	close      func()
	hardware   bool
	passphrase bool
}

// openSigner reads the recovery phrase and builds the deriver. The seed
// never outlives this call outside locked memory.
func openSigner(cmd *cobra.Command, cc *CommandContext, f *signerFlags) (*signer, error) {
	if !cmd.Flags().Changed("account") {
		f.account = cc.Config.Derivation.Account
	}

	mnemonic := f.input
	if mnemonic == "" {
		var err error
		if mnemonic, err = promptMnemonicFn(cc.Stderr); err != nil {
			return nil, err
		}
	}
	if err := checkMnemonic(mnemonic); err != nil {
		return nil, err
	}

	var passphrase string
	if f.passphrase {
		var err error
		if passphrase, err = promptPassphraseFn(cc.Stderr); err != nil {
			return nil, err
		}
	}

	seed, err := wallet.MnemonicToSeed(mnemonic, passphrase)
	if err != nil {
		return nil, walleterr.WithCause(walleterr.ErrInvalidMnemonic, err)
	}

	groups := networkGroups(cc)
	if f.deviceEmulator {
		device, err := hardware.NewEmulator(seed, f.deviceLatency)
		if err != nil {
			return nil, err
		}
		d := hardware.NewDeriver(device, &hardware.Options{Account: f.account, Groups: groups})
		cc.Logger.Debug("using emulated hardware signer account=%d", f.account)
		return &signer{
			deriver:    d,
			close:      func() { _ = d.Close() },
			hardware:   true,
			passphrase: passphrase != "",
		}, nil
	}

	d, err := wallet.NewDeriver(seed, &wallet.DeriverOptions{Account: f.account, Groups: groups})
	if err != nil {
		return nil, err
	}
	return &signer{deriver: d, close: d.Close, passphrase: passphrase != ""}, nil
}

// networkGroups returns the configured group count, defaulting to the
// network constant.
func networkGroups(cc *CommandContext) int {
	if cc.Config.Network.Groups > 0 {
		return cc.Config.Network.Groups
	}
	return address.TotalGroups
}
