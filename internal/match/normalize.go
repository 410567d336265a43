package match

import (
	"regexp"
	"strings"
)

var (
	nonLetterDigit = regexp.MustCompile(`[^\p{L}\p{N}]+`)
	dosageToken    = regexp.MustCompile(`^\d+(\.\d+)?(mg|mcg|µg|ug|g|iu|ml|정|캡슐|포)$`)
)

// NormalizeText lowercases label or OCR text and folds every run of punctuation and
// whitespace to a single space, so "Omega-3" and "omega   3" compare equal.
func NormalizeText(input string) string {
	lower := strings.ToLower(strings.TrimSpace(input))
	lower = nonLetterDigit.ReplaceAllString(lower, " ")
	return strings.TrimSpace(lower)
}

// Compact drops the spaces from normalized text ("omega 3" -> "omega3").
func Compact(normalized string) string {
	return strings.ReplaceAll(normalized, " ", "")
}

// Tokens splits normalized text into words, dropping bare dosage tokens like "1000mg".
func Tokens(normalized string) []string {
	var out []string
	for _, field := range strings.Fields(normalized) {
		if dosageToken.MatchString(field) {
			continue
		}
		out = append(out, field)
	}
	return out
}

// Profile is the normalized form of a piece of package text.
type Profile struct {
	Original string
	Text     string
	Compact  string
	Tokens   []string
}

// NormalizeLabel builds the matching profile for OCR output. Dosage tokens are removed
// before compacting so "vitamin b1 100mg" does not compact into "vitaminb1100mg".
func NormalizeLabel(input string) Profile {
	text := NormalizeText(input)
	tokens := Tokens(text)
	return Profile{
		Original: input,
		Text:     text,
		Compact:  strings.Join(tokens, ""),
		Tokens:   tokens,
	}
}
