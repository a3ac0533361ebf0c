package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	walleterr "github.com/shardwallet/shardwallet/pkg/errors"
)

var errBoom = errors.New("boom")

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errBoom }

func TestFormatError_Nil(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, FormatError(&buf, nil, FormatJSON))
	assert.Empty(t, buf.String())
}

func TestFormatError_WalletError_JSON(t *testing.T) {
	t.Parallel()
	err := walleterr.WithSuggestion(
		walleterr.WithDetails(
			walleterr.WithCause(walleterr.ErrNetworkError, errBoom),
			map[string]string{"group": "2"}),
		"retry later")

	var buf bytes.Buffer
	require.NoError(t, FormatError(&buf, err, FormatJSON))

	var out ErrorOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, walleterr.ErrNetworkError.Code, out.Error.Code)
	assert.Equal(t, walleterr.ErrNetworkError.Message, out.Error.Message)
	assert.Equal(t, map[string]string{"group": "2"}, out.Error.Details)
	assert.Equal(t, "boom", out.Error.Cause)
	assert.Equal(t, "retry later", out.Error.Suggestion)
	assert.Equal(t, walleterr.ExitNetwork, out.Error.ExitCode)
}

func TestFormatError_WalletError_Text(t *testing.T) {
	t.Parallel()
	err := walleterr.WithSuggestion(
		walleterr.WithDetails(walleterr.ErrInvalidAddress, map[string]string{"z": "1", "a": "2"}),
		"check the address")

	var buf bytes.Buffer
	require.NoError(t, FormatError(&buf, err, FormatText))

	want := "Error: " + walleterr.ErrInvalidAddress.Message + "\n" +
		"\nDetails:\n  a: 2\n  z: 1\n" +
		"\nSuggestion: check the address\n"
	assert.Equal(t, want, buf.String())
}

func TestFormatError_Generic(t *testing.T) {
	t.Parallel()

	var text bytes.Buffer
	require.NoError(t, FormatError(&text, errBoom, FormatText))
	assert.Equal(t, "Error: boom\n", text.String())

	var js bytes.Buffer
	require.NoError(t, FormatError(&js, errBoom, FormatJSON))
	assert.JSONEq(t, `{"error":{"code":"GENERAL_ERROR","message":"boom","exit_code":1}}`, js.String())
}

func TestFormatError_WriterError(t *testing.T) {
	t.Parallel()
	require.ErrorIs(t, FormatError(failingWriter{}, errBoom, FormatText), errBoom)
}
