package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// separatorRunes become word boundaries instead of being deleted so that
// "Ana-Maria" and "Ana Maria" fold to the same tokens.
var separatorRunes = map[rune]struct{}{
	'-': {}, '_': {}, '.': {}, ',': {}, '/': {}, '\\': {}, '|': {}, ';': {}, ':': {},
}

// StripAccents removes combining marks after canonical decomposition.
func StripAccents(value string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, value)
	if err != nil {
		return value
	}
	return out
}

// NormalizeName lowercases, strips accents and punctuation, and collapses
// whitespace.
func NormalizeName(value string) string {
	folded := strings.ToLower(StripAccents(value))
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		default:
			if _, ok := separatorRunes[r]; ok {
				b.WriteByte(' ')
			}
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// NameTokens returns the whitespace-separated tokens of the normalized name.
func NameTokens(value string) []string {
	return strings.Fields(NormalizeName(value))
}
