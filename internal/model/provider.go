package model

// Provider is a qualified service provider parsed from a town roster PDF.
type Provider struct {
	Name string `json:"name"`
	Link string `json:"url"`
	Town string `json:"town,omitempty"`
}

// Town is a roster entry from the DDS provider-by-town index.
type Town struct {
	Name   string `json:"name"`
	PDFURL string `json:"pdf_url"`
}

// ProviderMatch pairs a roster provider with the town it was matched in.
type ProviderMatch struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Town string `json:"town"`
}

// NewProviderMatch builds the API view of a matched provider.
func NewProviderMatch(p Provider, town string) ProviderMatch {
	if p.Town != "" {
		town = p.Town
	}
	return ProviderMatch{Name: p.Name, URL: p.Link, Town: town}
}
