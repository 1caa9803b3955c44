package identification

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeTitle drops filler separators (- _ | : .) and collapses whitespace.
// The result is what gets sent to TMDB as the search query.
func NormalizeTitle(title string) string {
	replaced := strings.Map(func(r rune) rune {
		switch r {
		case '-', '_', '|', ':', '.':
			return ' '
		}
		return r
	}, title)
	return strings.Join(strings.Fields(replaced), " ")
}

// comparisonKey is the form used for exact-title checks: normalized, with
// marks and punctuation stripped and case folded.
func comparisonKey(title string) string {
	normalized := NormalizeTitle(title)
	if normalized == "" {
		return ""
	}
	stripped, _, err := transform.String(transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Remove(runes.Predicate(func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})),
		norm.NFC,
	), normalized)
	if err != nil {
		stripped = normalized
	}
	return cases.Fold().String(strings.Join(strings.Fields(stripped), " "))
}
