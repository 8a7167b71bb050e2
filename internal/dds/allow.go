package dds

import (
	"net/url"
	"strings"
)

// DefaultAllowedHosts are the hosts that serve DDS documents.
var DefaultAllowedHosts = []string{"portal.ct.gov", "www.ct.gov", "ct.gov"}

var allowedPathMarkers = []string{"/provider_town/", "/provider_alpha/", "/qsr/", "/dds/", "quality"}

// IsAllowedPDF reports whether rawURL may be fetched on a caller's behalf:
// an http(s) URL on one of hosts whose path looks like a DDS document.
// An empty hosts list means DefaultAllowedHosts.
func IsAllowedPDF(rawURL string, hosts []string) bool {
	if rawURL == "" {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	if len(hosts) == 0 {
		hosts = DefaultAllowedHosts
	}
	host := strings.ToLower(u.Host)
	allowed := false
	for _, h := range hosts {
		if host == strings.ToLower(h) {
			allowed = true
			break
		}
	}
	if !allowed {
		return false
	}

	lower := strings.ToLower(rawURL)
	for _, m := range allowedPathMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
