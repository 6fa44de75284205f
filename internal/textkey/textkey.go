// Package textkey derives comparison keys for catalog names so that names
// differing only by case, accents or spacing resolve to the same row.
package textkey

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Clean trims s and collapses inner runs of whitespace to a single space.
func Clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Fold returns the case-insensitive key of s.
func Fold(s string) string {
	// Casers are stateful, one per call.
	return cases.Fold().String(Clean(s))
}

// Key returns the case- and accent-insensitive key of s.
func Key(s string) string {
	folded := Fold(s)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, folded)
	if err != nil {
		return folded
	}
	return out
}

// Equal reports whether a and b share the same Key.
func Equal(a, b string) bool {
	return Key(a) == Key(b)
}
