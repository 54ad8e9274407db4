package extractor

import (
	"net/url"
	"strings"
)

// Platform recognises post URLs for one media-sharing site
type Platform interface {
	// Name returns the platform name (e.g., "instagram")
	Name() string

	// Match returns true if the URL points at a downloadable post.
	// Host matching is done by the registry. u is nil when rawURL
	// does not parse (e.g., a stray % escape in the path).
	Match(rawURL string, u *url.URL) bool
}

// platformsByHost maps hostnames to their platforms
var platformsByHost = map[string]Platform{}

// Register adds a platform for the given hostnames
func Register(p Platform, hosts ...string) {
	for _, host := range hosts {
		platformsByHost[strings.ToLower(host)] = p
	}
}

// Match finds the platform for a URL. Returns nil when the host is
// unknown or the path is not a post, reel or tv link.
func Match(rawURL string) Platform {
	u, err := url.Parse(rawURL)
	if err != nil {
		return matchUnparsed(rawURL)
	}
	if u.Host == "" {
		return nil
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil
	}

	host := strings.ToLower(u.Hostname())
	if p, ok := platformsByHost[host]; ok && p.Match(rawURL, u) {
		return p
	}
	if strings.HasPrefix(host, "www.") {
		if p, ok := platformsByHost[host[4:]]; ok && p.Match(rawURL, u) {
			return p
		}
	}
	return nil
}

// matchUnparsed asks every platform to match rawURL on its own
func matchUnparsed(rawURL string) Platform {
	for _, p := range platformsByHost {
		if p.Match(rawURL, nil) {
			return p
		}
	}
	return nil
}

// IsSupportedURL reports whether any registered platform accepts rawURL
func IsSupportedURL(rawURL string) bool {
	return Match(rawURL) != nil
}
