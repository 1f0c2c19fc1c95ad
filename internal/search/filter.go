package search

import (
	"net/url"
	"strings"
)

// DefaultExcluded lists host substrings of social/media/forum sites whose
// pages are never usable as tour-guide sources.
var DefaultExcluded = []string{
	"tripadvisor.com",
	"reddit.com",
	"openstreetmap.org",
	"youtube.com",
	"facebook.com",
	"twitter.com",
	"instagram.com",
}

// ExcludedDomains is a fixed, read-only set of host substrings checked
// against result links.
type ExcludedDomains struct {
	substrings []string
}

// NewExcludedDomains builds the exclusion set. An empty slice falls back
// to DefaultExcluded.
func NewExcludedDomains(substrings []string) *ExcludedDomains {
	if len(substrings) == 0 {
		substrings = DefaultExcluded
	}
	copied := make([]string, len(substrings))
	for i, s := range substrings {
		copied[i] = strings.ToLower(s)
	}
	return &ExcludedDomains{substrings: copied}
}

// IsExcluded reports whether the URL's host contains any excluded
// substring. Malformed URLs are never excluded.
func (e *ExcludedDomains) IsExcluded(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Host)
	for _, sub := range e.substrings {
		if strings.Contains(host, sub) {
			return true
		}
	}
	return false
}
