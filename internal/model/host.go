package model

import (
	"net/url"
	"strings"
)

// DeriveHost extracts the normalized host from a page URL.
// It returns false for an empty URL, a parse failure, or a URL without
// an authority. The port is dropped and the host is lower-cased.
func DeriveHost(rawURL string) (string, bool) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", false
	}
	return host, true
}

// ResolveHost accepts either a full URL or a bare host such as
// "example.com" and returns the normalized host.
func ResolveHost(arg string) (string, bool) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return "", false
	}
	if strings.Contains(arg, "://") {
		return DeriveHost(arg)
	}
	// Bare host, possibly with a port or a path.
	return DeriveHost("https://" + arg)
}
