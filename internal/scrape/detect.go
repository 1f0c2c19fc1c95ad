package scrape

import (
	"bytes"
	"net/http"
	"strings"
)

// detector examines a blocked response to determine which bot protection
// vendor challenged the request. Detection is observational only: a
// challenged page is still a soft failure, we just name the blocker in
// the logs.
type detector func(status int, header http.Header, body []byte) (string, bool)

var detectors = []detector{
	detectCloudflare,
	detectAkamai,
	detectDataDome,
}

func detectChallenge(status int, header http.Header, body []byte) (string, bool) {
	for _, d := range detectors {
		if source, ok := d(status, header, body); ok {
			return source, true
		}
	}
	return "", false
}

// detectCloudflare looks for common Cloudflare challenge/block signatures.
func detectCloudflare(status int, header http.Header, body []byte) (string, bool) {
	if status == http.StatusForbidden || status == http.StatusServiceUnavailable {
		if strings.Contains(strings.ToLower(header.Get("Server")), "cloudflare") {
			return "Cloudflare", true
		}
		if bytes.Contains(body, []byte("cf-browser-verification")) ||
			bytes.Contains(body, []byte("cf-turnstile")) ||
			bytes.Contains(body, []byte("Attention Required! | Cloudflare")) {
			return "Cloudflare", true
		}
	}
	return "", false
}

// detectAkamai looks for Akamai Bot Manager signatures.
func detectAkamai(status int, header http.Header, body []byte) (string, bool) {
	if status == http.StatusForbidden {
		if strings.Contains(strings.ToLower(header.Get("Server")), "akamai") {
			return "Akamai", true
		}
		// Akamai often returns a generic "Reference #" block page
		if bytes.Contains(body, []byte("Reference #")) && bytes.Contains(body, []byte("Access Denied")) {
			return "Akamai", true
		}
	}
	return "", false
}

// detectDataDome looks for DataDome challenge/block signatures.
func detectDataDome(status int, header http.Header, body []byte) (string, bool) {
	if status == http.StatusForbidden {
		if strings.Contains(strings.ToLower(header.Get("Server")), "datadome") {
			return "DataDome", true
		}
		if header.Get("X-DataDome") != "" || header.Get("X-DataDome-Response") != "" {
			return "DataDome", true
		}
		if bytes.Contains(body, []byte("geo.captcha-delivery.com")) || bytes.Contains(body, []byte("datadome")) {
			return "DataDome", true
		}
	}
	return "", false
}
