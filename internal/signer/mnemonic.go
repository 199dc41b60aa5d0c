package signer

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/tyler-smith/go-bip39"

	"github.com/mrz1836/signerd/pkg/signererr"
)

var (
	whitespaceRegex    = regexp.MustCompile(`\s+`)
	numberedListRegex  = regexp.MustCompile(`(?m)(?:^|\s)\d+[.):]\s*`)
	bulletListRegex    = regexp.MustCompile(`(?m)^\s*[-*•]\s*`)
)

// GenerateMnemonic creates a fresh BIP-39 mnemonic. wordCount must be 12
// (128 bits of entropy) or 24 (256 bits).
func GenerateMnemonic(wordCount int) (string, error) {
	var bitSize int
	switch wordCount {
	case 12:
		bitSize = 128
	case 24:
		bitSize = 256
	default:
		return "", signererr.WithDetails(signererr.ErrInvalidMnemonic, map[string]string{"reason": "word count must be 12 or 24"})
	}

	entropy, err := bip39.NewEntropy(bitSize)
	if err != nil {
		return "", signererr.Wrap(err, "generating entropy")
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", signererr.Wrap(err, "generating mnemonic")
	}
	return mnemonic, nil
}

// NormalizeMnemonicInput lowercases, strips list prefixes and commas, and
// collapses whitespace, so pasted recovery phrases from varied sources all
// validate the same way.
func NormalizeMnemonicInput(input string) string {
	input = strings.ToLower(input)
	input = numberedListRegex.ReplaceAllString(input, " ")
	input = bulletListRegex.ReplaceAllString(input, " ")
	input = strings.ReplaceAll(input, ",", " ")
	input = whitespaceRegex.ReplaceAllString(input, " ")
	return strings.TrimSpace(input)
}

// ValidateMnemonic checks word count, word-list membership, and checksum.
func ValidateMnemonic(mnemonic string) error {
	normalized := NormalizeMnemonicInput(mnemonic)
	words := strings.Fields(normalized)
	if len(words) != 12 && len(words) != 24 {
		return signererr.ErrInvalidMnemonic
	}
	if !bip39.IsMnemonicValid(normalized) {
		return signererr.ErrInvalidMnemonic
	}
	return nil
}

// MnemonicToSeed validates and converts a mnemonic into its 64-byte BIP-39
// seed. The passphrase is always empty for this signer: the mnemonic alone
// is the full recovery secret, matching original_source's single-factor
// recovery model.
func MnemonicToSeed(mnemonic string) ([]byte, error) {
	normalized := NormalizeMnemonicInput(mnemonic)
	if !bip39.IsMnemonicValid(normalized) {
		return nil, signererr.ErrInvalidMnemonic
	}
	return bip39.NewSeed(normalized, ""), nil
}

// IsValidWord reports whether word appears in the BIP-39 English word list.
func IsValidWord(word string) bool {
	word = strings.ToLower(word)
	for _, w := range bip39.GetWordList() {
		if w == word {
			return true
		}
	}
	return false
}

// MaxTypoDistance is the maximum Levenshtein distance considered a usable
// suggestion; beyond this the input is too different from any word.
const MaxTypoDistance = 2

// TypoInfo describes one misspelled word found during recovery input.
type TypoInfo struct {
	Index      int
	Word       string
	Suggestion string
	Distance   int
}

// SuggestWord returns the closest BIP-39 word to input, or "" if nothing is
// within MaxTypoDistance.
func SuggestWord(input string) string {
	input = strings.ToLower(input)
	wordList := bip39.GetWordList()

	minDist := math.MaxInt
	var suggestion string
	for _, word := range wordList {
		dist := levenshtein.ComputeDistance(input, word)
		if dist == 0 {
			return word
		}
		if dist < minDist {
			minDist = dist
			suggestion = word
		}
	}
	if minDist <= MaxTypoDistance {
		return suggestion
	}
	return ""
}

// DetectTypos scans a recovery phrase and reports every word that is not a
// valid BIP-39 word, together with its closest suggestion.
func DetectTypos(mnemonic string) []TypoInfo {
	if mnemonic == "" {
		return nil
	}
	words := strings.Fields(NormalizeMnemonicInput(mnemonic))
	var typos []TypoInfo
	for i, word := range words {
		if IsValidWord(word) {
			continue
		}
		suggestion := SuggestWord(word)
		distance := 0
		if suggestion != "" {
			distance = levenshtein.ComputeDistance(word, suggestion)
		}
		typos = append(typos, TypoInfo{Index: i, Word: word, Suggestion: suggestion, Distance: distance})
	}
	return typos
}

// FormatTypoSuggestions renders DetectTypos output as human-readable lines.
func FormatTypoSuggestions(typos []TypoInfo) string {
	if len(typos) == 0 {
		return ""
	}
	var b strings.Builder
	for i, typo := range typos {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("Word ")
		b.WriteString(strconv.Itoa(typo.Index + 1))
		b.WriteString(": '")
		b.WriteString(typo.Word)
		b.WriteByte('\'')
		if typo.Suggestion != "" {
			b.WriteString(" - did you mean '")
			b.WriteString(typo.Suggestion)
			b.WriteString("'?")
		} else {
			b.WriteString(" is not a valid BIP-39 word")
		}
	}
	return b.String()
}
