package roster

import (
	"io"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/sells-group/dds-finder/internal/model"
)

// ParseTownIndex reads the DDS provider-by-town page and returns one Town
// per roster PDF link, sorted by name. Relative links are resolved against
// baseURL.
func ParseTownIndex(r io.Reader, baseURL string) ([]model.Town, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, eris.Wrap(err, "roster: parse base url")
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, eris.Wrap(err, "roster: parse town index")
	}

	var towns []model.Town
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}
		lower := strings.ToLower(href)
		if !strings.Contains(lower, "provider_town") || !strings.Contains(lower, ".pdf") {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		full := base.ResolveReference(ref).String()

		name := strings.TrimSpace(s.Text())
		if name == "" {
			name = InferNameFromURL(full)
		}
		towns = append(towns, model.Town{Name: name, PDFURL: full})
	})

	sort.SliceStable(towns, func(i, j int) bool {
		return strings.ToLower(towns[i].Name) < strings.ToLower(towns[j].Name)
	})
	return towns, nil
}

// FindTown returns the town whose normalized name equals name.
func FindTown(towns []model.Town, name string) (model.Town, bool) {
	key := NormalizeTown(name)
	for _, t := range towns {
		if NormalizeTown(t.Name) == key {
			return t, true
		}
	}
	return model.Town{}, false
}
