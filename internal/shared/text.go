package shared

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SearchKey folds s into a lower-case, accent-free form used for lookups,
// so "Muslo de Pollo" and "muslo de pollo" share the key "muslo de pollo".
func SearchKey(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// PersonName trims and title-cases a person's name.
func PersonName(s string) string {
	return cases.Title(language.Spanish).String(Clean(s))
}

// Clean trims s and collapses inner whitespace.
func Clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
