package wallet

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

// BIP39 test vectors (passphrase "TREZOR") from https://github.com/trezor/python-mnemonic/blob/master/vectors.json
//
//nolint:gochecknoglobals // BIP39 test vectors from official specification
var bip39TestVectors = []struct {
	mnemonic string
	seed     string
}{
	{
		mnemonic: testMnemonic,
		seed:     "c55257c360c07c72029aebc1b53c05ed0362ada38ead3e3e9efa3708e53495531f09a6987599d18264c1e1c92f2cf141630c7a3c4ab7c81b2f001698e7463b04",
	},
	{
		mnemonic: "zoo zoo zoo zoo zoo zoo zoo zoo zoo zoo zoo wrong",
		seed:     "ac27495480225222079d7be181583751e86f571027b0497b5b5d11218e0a8a13332572917f0f8e5a589620c6f15b11c61dee327651a14c34e18231052e48c069",
	},
	{
		mnemonic: "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon art",
		seed:     "bda85446c68413707090a52022edd26a1c9462295029f2e60cd7c4f2bbd3097170af7a4d73245cafa9c3cca8d561a7c3de6f5d4a10be8ed2a5e608d68f92fcc8",
	},
}

func TestMnemonicToSeed_Vectors(t *testing.T) {
	t.Parallel()
	for _, vec := range bip39TestVectors {
		seed, err := MnemonicToSeed(vec.mnemonic, "TREZOR")
		require.NoError(t, err)
		assert.Equal(t, vec.seed, hex.EncodeToString(seed))
	}
}

func TestGenerateMnemonic(t *testing.T) {
	t.Parallel()
	for _, count := range []int{12, 15, 18, 21, 24} {
		mnemonic, err := GenerateMnemonic(count)
		require.NoError(t, err)
		assert.Len(t, strings.Fields(mnemonic), count)
		require.NoError(t, ValidateMnemonic(mnemonic))
	}

	_, err := GenerateMnemonic(13)
	require.ErrorIs(t, err, ErrInvalidWordCount)
}

func TestValidateMnemonic(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", testMnemonic, false},
		{"uppercase with commas", strings.ToUpper(strings.ReplaceAll(testMnemonic, " ", ", ")), false},
		{"empty", "", true},
		{"wrong count", "abandon abandon abandon", true},
		{"bad checksum", strings.Repeat("abandon ", 12), true},
		{"unknown word", strings.Replace(testMnemonic, "about", "aboot", 1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateMnemonic(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidMnemonic)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestNormalizeMnemonicInput(t *testing.T) {
	t.Parallel()
	input := "1. Abandon\n2) abandon\n- ability,  able"
	assert.Equal(t, "abandon abandon ability able", NormalizeMnemonicInput(input))
}

func TestDetectTypos(t *testing.T) {
	t.Parallel()
	phrase := strings.Replace(testMnemonic, "about", "abou", 1) + " qqqqqqqq"

	typos := DetectTypos(phrase)
	require.Len(t, typos, 2)
	assert.Equal(t, 11, typos[0].Index)
	assert.Equal(t, "about", typos[0].Suggestion)
	assert.Empty(t, typos[1].Suggestion)

	formatted := FormatTypoSuggestions(typos)
	assert.Contains(t, formatted, "Word 12: 'abou' - did you mean 'about'?")
	assert.Contains(t, formatted, "Word 13: 'qqqqqqqq' is not a valid BIP39 word")
}

func TestIsValidWord(t *testing.T) {
	t.Parallel()
	assert.True(t, IsValidWord("Zoo"))
	assert.False(t, IsValidWord("zzz"))
}
