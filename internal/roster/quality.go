package roster

import (
	"regexp"
	"strings"
)

// qualityURLRe matches Quality Service Review links printed in provider
// profiles.
var qualityURLRe = regexp.MustCompile(`(?i)https?://[^\s\p{Zs}]+(?:qsr|quality)[^\s\p{Zs}]*\.pdf`)

// ExtractQualityURL returns the first quality report link in text, or "".
func ExtractQualityURL(text string) string {
	return qualityURLRe.FindString(text)
}

// IsQualityLink reports whether an embedded hyperlink points at a quality
// report.
func IsQualityLink(uri string) bool {
	lower := strings.ToLower(uri)
	return strings.Contains(lower, "qsr") || strings.Contains(lower, "quality")
}
