package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/shardwallet/shardwallet/internal/secure"
	"github.com/shardwallet/shardwallet/internal/wallet"
	walleterr "github.com/shardwallet/shardwallet/pkg/errors"
)

// Prompt hooks, replaced in tests.
//
//nolint:gochecknoglobals // Test seams for interactive input
var (
	promptMnemonicFn   = promptMnemonic
	promptPassphraseFn = promptPassphrase
)

// readSecret reads one line without echo when stdin is a terminal.
// The caller is responsible for zeroing the returned bytes.
func readSecret(w io.Writer, prompt string) ([]byte, error) {
	_, _ = fmt.Fprint(w, prompt)

	fd := int(os.Stdin.Fd()) //nolint:gosec // G115: Fd() fits in int on supported platforms
	if term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		_, _ = fmt.Fprintln(w)
		if err != nil {
			return nil, fmt.Errorf("reading input: %w", err)
		}
		return secret, nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadBytes('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	return []byte(strings.TrimRight(string(line), "\r\n")), nil
}

// promptMnemonic asks for the recovery phrase.
func promptMnemonic(w io.Writer) (string, error) {
	secret, err := readSecret(w, "Enter recovery phrase: ")
	if err != nil {
		return "", err
	}
	defer secure.Zero(secret)

	if len(strings.TrimSpace(string(secret))) == 0 {
		return "", walleterr.WithSuggestion(walleterr.ErrInvalidInput, "no recovery phrase provided")
	}
	return string(secret), nil
}

// promptPassphrase asks for the optional BIP39 passphrase twice.
func promptPassphrase(w io.Writer) (string, error) {
	passphrase, err := readSecret(w, "Enter BIP39 passphrase: ")
	if err != nil {
		return "", err
	}
	defer secure.Zero(passphrase)

	if len(passphrase) == 0 {
		return "", nil
	}

	confirm, err := readSecret(w, "Confirm passphrase: ")
	if err != nil {
		return "", err
	}
	defer secure.Zero(confirm)

	if string(passphrase) != string(confirm) {
		return "", walleterr.WithSuggestion(walleterr.ErrInvalidInput, "passphrases do not match")
	}
	return string(passphrase), nil
}

// checkMnemonic validates the phrase and names misspelled words.
func checkMnemonic(mnemonic string) error {
	err := wallet.ValidateMnemonic(mnemonic)
	if err == nil {
		return nil
	}

	suggestion := "the recovery phrase is not valid; check for missing words or a wrong word order"
	if typos := wallet.DetectTypos(mnemonic); len(typos) > 0 {
		suggestion = wallet.FormatTypoSuggestions(typos)
	}
	return walleterr.WithSuggestion(walleterr.WithCause(walleterr.ErrInvalidMnemonic, err), suggestion)
}
