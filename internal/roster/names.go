package roster

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// profileToken marks provider profile documents, e.g. "acme_pp.pdf".
const profileToken = "_pp"

// fallbackName is used when nothing can be inferred from a link.
const fallbackName = "provider"

var pdfExtRe = regexp.MustCompile(`(?i)\.pdf$`)

// InferNameFromURL derives a display name from a PDF link's file name:
// "https://portal.ct.gov/-/media/DDS/provider_alpha/acme-services_pp.pdf"
// becomes "Acme Services".
func InferNameFromURL(link string) string {
	name := link
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name = pdfExtRe.ReplaceAllString(name, "")
	name = strings.ReplaceAll(name, profileToken, "")
	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)
	name = strings.TrimSpace(cases.Title(language.Und).String(name))
	if name == "" {
		return fallbackName
	}
	return name
}

// NormalizeTown canonicalizes a town name for lookups.
func NormalizeTown(name string) string {
	return strings.ToLower(CleanLine(name))
}
