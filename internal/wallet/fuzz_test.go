package wallet

import (
	"testing"
	"unicode/utf8"
)

// FuzzNormalizeMnemonicInput tests that normalization never panics and always
// returns valid UTF-8 output.
//
//nolint:gocognit // Fuzz tests need comprehensive validation
func FuzzNormalizeMnemonicInput(f *testing.F) {
	// Seed with various interesting inputs
	f.Add("")
	f.Add("abandon")
	f.Add("  abandon  abandon  ")
	f.Add("ABANDON ABILITY")
	f.Add("\t\n\r abandon \t ability \n")
	f.Add("abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about")
	f.Add(string([]byte{0xFF, 0xFE})) // Invalid UTF-8

	f.Fuzz(func(t *testing.T, input string) {
		result := NormalizeMnemonicInput(input)

		// Result should be valid UTF-8
		if !utf8.ValidString(result) {
			t.Errorf("NormalizeMnemonicInput returned invalid UTF-8 for input %q", input)
		}

		// Result should not have leading/trailing whitespace
		if len(result) > 0 && (result[0] == ' ' || result[len(result)-1] == ' ') {
			t.Errorf("NormalizeMnemonicInput returned string with leading/trailing whitespace for input %q", input)
		}

		// Result should be lowercase
		hasUpper := false
		for _, r := range result {
			if r >= 'A' && r <= 'Z' {
				hasUpper = true
				break
			}
		}
		if hasUpper {
			t.Errorf("NormalizeMnemonicInput returned uppercase character for input %q", input)
		}
	})
}

// FuzzValidateMnemonic tests that mnemonic validation never panics
// and only returns nil for valid BIP39 mnemonics.
func FuzzValidateMnemonic(f *testing.F) {
	// Valid 12-word mnemonic
	f.Add("abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about")
	// Invalid inputs
	f.Add("")
	f.Add("abandon")
	f.Add("invalid mnemonic phrase with many words that should fail validation")
	f.Add("abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon") // wrong checksum
	f.Add("   ")
	f.Add("\x00\x01\x02")

	f.Fuzz(func(t *testing.T, input string) {
		// Should not panic
		err := ValidateMnemonic(input)

		// If validation passes, verify it's actually a valid mnemonic
		if err == nil {
			normalized := NormalizeMnemonicInput(input)
			words := len(splitWords(normalized))
			if _, ok := entropyBits[words]; !ok {
				t.Errorf("ValidateMnemonic returned nil for %d-word input: %q", words, input)
			}
		}
	})
}

// FuzzSuggestWord tests that word suggestion never panics
// and returns reasonable suggestions for near-matches.
func FuzzSuggestWord(f *testing.F) {
	// Valid words
	f.Add("abandon")
	f.Add("ability")
	f.Add("zoo")
	// Near-typos (intentional misspellings for testing)
	f.Add("abondon")  //nolint:misspell // intentional typo
	f.Add("abaility") // intentional typo
	f.Add("zooo")     // intentional typo
	// Random strings
	f.Add("")
	f.Add("xyz")
	f.Add("verylongwordthatdoesnotexistinthewordlist")
	f.Add("\x00\x01\x02")

	f.Fuzz(func(t *testing.T, input string) {
		// Should not panic
		suggestion := SuggestWord(input)

		// If we got a suggestion, verify it's a valid BIP39 word
		if suggestion != "" && !IsValidWord(suggestion) {
			t.Errorf("SuggestWord returned invalid word %q for input %q", suggestion, input)
		}
	})
}

// FuzzDetectTypos tests that typo detection never panics
// and returns reasonable results.
//
//nolint:gocognit // Fuzz tests need comprehensive validation
func FuzzDetectTypos(f *testing.F) {
	f.Add("")
	f.Add("abandon ability")
	f.Add("abondon abaility") //nolint:misspell // intentional typos
	f.Add("abandon abaility") // intentional typo
	f.Add("abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about")

	f.Fuzz(func(t *testing.T, input string) {
		// Should not panic
		typos := DetectTypos(input)

		// Verify each typo result
		for _, typo := range typos {
			if typo.Index < 0 {
				t.Errorf("DetectTypos returned negative index for input %q", input)
			}
			if typo.Word == "" {
				t.Errorf("DetectTypos returned empty word for input %q", input)
			}
			if typo.Suggestion != "" && !IsValidWord(typo.Suggestion) {
				t.Errorf("DetectTypos returned invalid suggestion %q for input %q", typo.Suggestion, input)
			}
		}
	})
}

// splitWords splits a string into words on whitespace.
func splitWords(s string) []string {
	if s == "" {
		return nil
	}
	var words []string
	word := ""
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			if word != "" {
				words = append(words, word)
				word = ""
			}
		} else {
			word += string(r)
		}
	}
	if word != "" {
		words = append(words, word)
	}
	return words
}
