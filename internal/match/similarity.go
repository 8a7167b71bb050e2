package match

import (
	"strings"
	"unicode/utf8"

	"github.com/pmezard/go-difflib/difflib"
)

const (
	// containmentFloor is the minimum score granted when one normalized
	// name contains the other.
	containmentFloor = 0.75
	// containmentWeight scales the length ratio added on top of the floor.
	containmentWeight = 0.2
)

// Ratio returns the sequence-matcher similarity of a and b:
// 2*M / (len(a)+len(b)), where M is the total size of the matching blocks
// found by Ratcliff/Obershelp. Two empty strings score 1.0.
func Ratio(a, b string) float64 {
	return difflib.NewMatcher(runes(a), runes(b)).Ratio()
}

// Similarity scores two organization names in [0, 1].
//
// The base score is Ratio over the raw names. When the normalized form of
// either name contains the other, the score is raised to at least
// 0.75 + 0.2*(len(shorter)/len(longer)) so that
// "March Inc Of Manchester C/O Robert F Gorman" still matches
// "March, Inc. of Manchester".
func Similarity(a, b string) float64 {
	score := Ratio(a, b)

	// A name that normalizes to nothing ("Inc.") is contained in every
	// string and must not earn the boost.
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return score
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		if boosted := containmentScore(na, nb); boosted > score {
			score = boosted
		}
	}
	return score
}

func containmentScore(na, nb string) float64 {
	shorter, longer := utf8.RuneCountInString(na), utf8.RuneCountInString(nb)
	if shorter > longer {
		shorter, longer = longer, shorter
	}
	ratio := float64(shorter) / float64(max(longer, 1))
	return containmentFloor + ratio*containmentWeight
}

// runes splits s into one element per code point, the unit difflib compares.
func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
