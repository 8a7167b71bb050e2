// Package match scores organization names against DDS roster providers.
package match

import (
	"regexp"
	"strings"
	"unicode"
)

// legalSuffixes lists entity suffixes dropped during name normalization.
// Matching is on whole words only, so "Incredible" keeps its "inc".
var legalSuffixes = map[string]struct{}{
	"inc":          {},
	"incorporated": {},
	"llc":          {},
	"corp":         {},
	"corporation":  {},
	"ltd":          {},
	"co":           {},
	"foundation":   {},
}

var (
	nonWordRe    = regexp.MustCompile(`[^\p{L}\p{N}\s\p{Zs}]+`)
	whitespaceRe = regexp.MustCompile(`[\s\p{Zs}]+`)
)

// Normalize canonicalizes an organization name for comparison by:
//  1. Converting to lowercase
//  2. Removing legal suffixes (Inc, LLC, Corp, Foundation, ...) as whole words
//  3. Stripping punctuation
//  4. Collapsing whitespace and trimming
func Normalize(name string) string {
	name = strings.ToLower(name)
	name = dropSuffixes(name)
	name = nonWordRe.ReplaceAllString(name, "")
	// Punctuation removal can expose a suffix ("c/o" becomes "co").
	name = dropSuffixes(name)
	name = whitespaceRe.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

// dropSuffixes removes every word run that is a legal suffix. A word run is
// a maximal sequence of letters, digits and underscores, the same unit a
// \b-delimited pattern sees.
func dropSuffixes(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	start := -1
	flush := func(end int) {
		word := s[start:end]
		if _, ok := legalSuffixes[word]; !ok {
			b.WriteString(word)
		}
		start = -1
	}

	for i, r := range s {
		if isWordRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			flush(i)
		}
		b.WriteRune(r)
	}
	if start >= 0 {
		flush(len(s))
	}
	return b.String()
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
