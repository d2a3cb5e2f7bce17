// Text normalization helpers for matching user display names and decoded QR
// payloads against word lists. Spammers pad names with punctuation, zero-width
// characters, and diacritics; normalization happens before any list check.
package keyword

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonNameChars = regexp.MustCompile(`[^\pL\pN\s]+`)
	invisibleSet = runes.In(unicode.Cf)
	combiningSet = runes.In(unicode.Mn)
)

// NormalizeName lowercases a display name, strips format/invisible characters,
// folds diacritics, and collapses internal whitespace to single spaces.
func NormalizeName(orig string) string {
	normFunc := transform.Chain(norm.NFD, runes.Remove(combiningSet), runes.Remove(invisibleSet), norm.NFC)
	folded, _, err := transform.String(normFunc, orig)
	if err != nil {
		slog.Warn("unicode normalization error", "err", err)
		folded = orig
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// TokenizeName splits a normalized display name into bare word tokens,
// dropping punctuation entirely.
func TokenizeName(orig string) []string {
	cleaned := nonNameChars.ReplaceAllString(NormalizeName(orig), " ")
	return strings.Fields(cleaned)
}
