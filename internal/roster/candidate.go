// Package roster parses DDS provider-by-town roster documents.
package roster

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// headings are roster page headers that never name a provider. Entries are
// compared against the uppercased line.
var headings = map[string]struct{}{
	"DDS QUALIFIED PROVIDERS BY TOWN": {},
	"DDS QUALIFIED PROVIDERS":         {},
	"QUALIFIED PROVIDERS BY TOWN":     {},
	"PROVIDER NAME":                   {},
	"LINK TO PROVIDER PROFILE":        {},
}

var dateRe = regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`)

// IsHeading reports whether line is a known roster header.
func IsHeading(line string) bool {
	_, ok := headings[strings.ToUpper(line)]
	return ok
}

// IsCandidateName reports whether line plausibly names an organization on
// the roster for town.
func IsCandidateName(line, town string) bool {
	switch {
	case line == "":
		return false
	case strings.Contains(line, "http://"), strings.Contains(line, "https://"):
		return false
	case IsHeading(line):
		return false
	case dateRe.MatchString(line):
		return false
	case isDigits(line):
		return false
	case town != "" && strings.EqualFold(line, town):
		return false
	case utf8.RuneCountInString(line) <= 2:
		return false
	}
	return true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
