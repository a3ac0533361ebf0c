package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shardwallet/shardwallet/internal/address"
	"github.com/shardwallet/shardwallet/internal/wallet"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

// usedBackend answers POST /addresses/used from a fixed set.
type usedBackend struct {
	mu       sync.Mutex
	used     map[string]bool
	requests int
	status   int
}

func (b *usedBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || r.URL.Path != "/addresses/used" {
		http.NotFound(w, r)
		return
	}
	var addrs []string
	if err := json.NewDecoder(r.Body).Decode(&addrs); err != nil {
		http.Error(w, "bad body", http.StatusBadRequest)
		return
	}

	b.mu.Lock()
	b.requests++
	status := b.status
	out := make([]bool, len(addrs))
	for i, a := range addrs {
		out[i] = b.used[a]
	}
	b.mu.Unlock()

	if status != 0 {
		http.Error(w, "nope", status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (b *usedBackend) requestCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requests
}

// testHome creates a home directory whose config points at explorerURL
// and keeps logs inside the directory.
func testHome(t *testing.T, explorerURL string) string {
	t.Helper()
	home := t.TempDir()
	if explorerURL == "" {
		explorerURL = "http://127.0.0.1:1"
	}
	cfg := "network:\n" +
		"  explorer_url: " + explorerURL + "\n" +
		"  rate_limit: -1\n" +
		"logging:\n" +
		"  level: debug\n" +
		"  file: " + filepath.Join(home, "test.log") + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(home, "config.yaml"), []byte(cfg), 0o600))
	return home
}

// execute runs the command tree and returns stdout, stderr and the error.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCmd(BuildInfo{Version: "v0.0.0-test", Commit: "abc", Date: "2026-01-01"})
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	err := run(context.Background(), root, args, &stderr)
	return stdout.String(), stderr.String(), err
}

// deriveAt derives the default-key address of the test mnemonic at index.
func deriveAt(t *testing.T, keyType address.KeyType, indexes ...uint32) []address.DerivedAddress {
	t.Helper()
	d, err := wallet.NewDeriverFromMnemonic(testMnemonic, "", nil)
	require.NoError(t, err)
	defer d.Close()

	out := make([]address.DerivedAddress, 0, len(indexes))
	for _, i := range indexes {
		a, err := d.DeriveAddress(context.Background(), i, keyType, nil)
		require.NoError(t, err)
		out = append(out, *a)
	}
	return out
}

// sortByGroup orders addresses the way discovery reports them.
func sortByGroup(addrs []address.DerivedAddress) {
	sort.Slice(addrs, func(i, j int) bool {
		if addrs[i].Group != addrs[j].Group {
			return addrs[i].Group < addrs[j].Group
		}
		return addrs[i].Index < addrs[j].Index
	})
}

func newUsedServer(t *testing.T, used []address.DerivedAddress) (*usedBackend, *httptest.Server) {
	t.Helper()
	backend := &usedBackend{used: map[string]bool{}}
	for _, a := range used {
		backend.used[a.Hash] = true
	}
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)
	return backend, srv
}

// withPrompts replaces the interactive prompts for one test.
func withPrompts(t *testing.T, mnemonic, passphrase string) {
	t.Helper()
	origMnemonic, origPassphrase := promptMnemonicFn, promptPassphraseFn
	t.Cleanup(func() {
		promptMnemonicFn, promptPassphraseFn = origMnemonic, origPassphrase
	})
	promptMnemonicFn = func(_ io.Writer) (string, error) { return mnemonic, nil }
	promptPassphraseFn = func(_ io.Writer) (string, error) { return passphrase, nil }
}

func itoa(i uint32) string {
	return strconv.FormatUint(uint64(i), 10)
}
