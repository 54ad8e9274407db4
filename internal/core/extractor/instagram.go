package extractor

import (
	"net/url"
	"regexp"
)

var instagramPostURL = regexp.MustCompile(`(?i)^https?://(www\.)?instagram\.com/(reel|p|tv)/`)

// InstagramPlatform accepts reel, post and IGTV links
type InstagramPlatform struct{}

func (p *InstagramPlatform) Name() string {
	return "instagram"
}

func (p *InstagramPlatform) Match(rawURL string, u *url.URL) bool {
	return instagramPostURL.MatchString(rawURL)
}

func init() {
	Register(&InstagramPlatform{},
		"instagram.com",
	)
}
