// Package category resolves raw product category paths to specification
// templates through a normalized three-level lookup index.
package category

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripDiacritics decomposes to NFD, drops combining marks, and
// recomposes, so "Aksesorë" and "Aksesore" land in the same bucket.
var stripDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// defaultPrefixes are catalog-export prefixes that carry no taxonomy
// meaning and are removed before matching.
var defaultPrefixes = []string{"GLOBE", "SHOP"}

// Normalize reduces a raw category name to its lookup bucket key: known
// prefixes removed, punctuation and underscores folded to spaces,
// diacritics stripped, lowercased, whitespace collapsed. The function is
// pure; two raw names normalizing identically share one bucket.
func Normalize(name string) string {
	s := strings.TrimSpace(name)
	for _, prefix := range defaultPrefixes {
		if len(s) > len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
			rest := s[len(prefix):]
			if rest[0] == '_' || rest[0] == '-' || rest[0] == ' ' {
				s = rest[1:]
				break
			}
		}
	}

	if stripped, _, err := transform.String(stripDiacritics, s); err == nil {
		s = stripped
	}

	var b strings.Builder
	for _, c := range s {
		switch {
		case unicode.IsLetter(c) || unicode.IsDigit(c):
			b.WriteRune(unicode.ToLower(c))
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
