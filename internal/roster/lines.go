package roster

import (
	"regexp"
	"strings"
)

var spaceRunRe = regexp.MustCompile(`[\s\p{Zs}]+`)

// CleanLine trims line and collapses internal whitespace, including
// no-break and other Unicode spaces, to single spaces.
func CleanLine(line string) string {
	return spaceRunRe.ReplaceAllString(strings.TrimSpace(line), " ")
}

// SplitLines turns per-page extracted text into cleaned, non-empty lines in
// document order.
func SplitLines(pages []string) []string {
	var lines []string
	for _, page := range pages {
		for _, raw := range strings.Split(strings.ReplaceAll(page, "\r\n", "\n"), "\n") {
			if cleaned := CleanLine(raw); cleaned != "" {
				lines = append(lines, cleaned)
			}
		}
	}
	return lines
}
