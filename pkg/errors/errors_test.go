package errors_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	walleterr "github.com/shardwallet/shardwallet/pkg/errors"
)

var (
	errInner     = errors.New("inner")
	errRootCause = errors.New("root cause")
	errPlain     = errors.New("plain error")
)

func TestExitCodes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"success", nil, walleterr.ExitSuccess},
		{"general error", walleterr.ErrGeneral, walleterr.ExitGeneral},
		{"input error", walleterr.ErrInvalidInput, walleterr.ExitInput},
		{"not found error", walleterr.ErrNotFound, walleterr.ExitNotFound},
		{"device error", walleterr.ErrDeviceError, walleterr.ExitDevice},
		{"network error", walleterr.ErrNetworkError, walleterr.ExitNetwork},
		{"canceled", walleterr.ErrCanceled, walleterr.ExitCanceled},
		{"plain error", errPlain, walleterr.ExitGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, walleterr.ExitCode(tt.err))
		})
	}
}

func TestExitCodeWrappedError(t *testing.T) {
	t.Parallel()
	wrapped := walleterr.Wrap(walleterr.ErrNotFound, "config %s", "main")
	assert.Equal(t, walleterr.ExitNotFound, walleterr.ExitCode(wrapped))
}

func TestWrapPreservesIdentity(t *testing.T) {
	t.Parallel()
	for _, sentinel := range []*walleterr.WalletError{
		walleterr.ErrGeneral,
		walleterr.ErrInvalidInput,
		walleterr.ErrNotFound,
		walleterr.ErrNetworkError,
		walleterr.ErrDeviceError,
	} {
		require.ErrorIs(t, walleterr.Wrap(sentinel, "wrapped"), sentinel)
	}
}

func TestWrapNil(t *testing.T) {
	t.Parallel()
	require.NoError(t, walleterr.Wrap(nil, "nothing"))
	require.NoError(t, walleterr.WithDetails(nil, nil))
	require.NoError(t, walleterr.WithSuggestion(nil, "x"))
	require.NoError(t, walleterr.WithCause(nil, errInner))
}

func TestWrapPlainError(t *testing.T) {
	t.Parallel()
	wrapped := walleterr.Wrap(errInner, "loading %d", 3)
	require.ErrorIs(t, wrapped, errInner)
	assert.Equal(t, "GENERAL_ERROR", walleterr.Code(wrapped))
	assert.Equal(t, "loading 3: inner", wrapped.Error())
}

func TestWithCause(t *testing.T) {
	t.Parallel()
	err := walleterr.WithCause(walleterr.ErrNetworkError, errRootCause)
	require.ErrorIs(t, err, walleterr.ErrNetworkError)
	require.ErrorIs(t, err, errRootCause)
	assert.Equal(t, "network communication failed: root cause", err.Error())
	assert.Equal(t, walleterr.ExitNetwork, walleterr.ExitCode(err))

	plain := walleterr.WithCause(errPlain, errRootCause)
	require.ErrorIs(t, plain, errPlain)
	require.ErrorIs(t, plain, errRootCause)
}

func TestWithDetailsSortedMessage(t *testing.T) {
	t.Parallel()
	err := walleterr.WithDetails(walleterr.ErrInvalidInput, map[string]string{
		"z": "last",
		"a": "first",
	})
	assert.Equal(t, "invalid input (a: first) (z: last)", err.Error())
	require.ErrorIs(t, err, walleterr.ErrInvalidInput)
}

func TestWithSuggestion(t *testing.T) {
	t.Parallel()
	err := walleterr.WithSuggestion(walleterr.ErrInvalidMnemonic, "check word 3")

	var we *walleterr.WalletError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, "check word 3", we.Suggestion)
	assert.Equal(t, "INVALID_MNEMONIC", we.Code)

	plain := walleterr.WithSuggestion(errPlain, "retry")
	require.ErrorAs(t, plain, &we)
	assert.Equal(t, "GENERAL_ERROR", we.Code)
	assert.Equal(t, "retry", we.Suggestion)
}

func TestCode(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "CONFIG_INVALID", walleterr.Code(walleterr.ErrConfigInvalid))
	assert.Equal(t, "GENERAL_ERROR", walleterr.Code(errPlain))
	assert.Equal(t, "CUSTOM", walleterr.Code(walleterr.New("CUSTOM", "custom")))
}

func TestIsMatchesByCode(t *testing.T) {
	t.Parallel()
	a := walleterr.New("SAME", "first")
	b := walleterr.New("SAME", "second")
	assert.True(t, walleterr.Is(a, b))
	assert.False(t, walleterr.Is(a, walleterr.ErrGeneral))
}
