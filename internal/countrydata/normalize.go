// Package countrydata builds the merged country indicator dataset from a base
// market CSV and supplemental per-country sources.
package countrydata

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// aliases maps normalized keys used by supplemental sources onto the
// World Bank naming of the base dataset.
var aliases = map[string]string{
	"hongkong":   "hongkongsarchina",
	"southkorea": "korearep",
	"northkorea": "koreademrep",
	"turkey":     "turkiye",
	"egypt":      "egyptarabrep",
	"ivorycoast": "cotedivoire",
	"uae":        "unitedarabemirates",
	"uk":         "unitedkingdom",
}

// CountryKey folds a country name to its join key: accents stripped,
// lower-cased, letters and digits only, then aliased.
func CountryKey(name string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	key := b.String()
	if alias, ok := aliases[key]; ok {
		return alias
	}
	return key
}
