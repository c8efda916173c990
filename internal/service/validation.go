package service

import (
	"net/url"
	"strings"

	"github.com/nyaruka/phonenumbers"
	"golang.org/x/net/idna"
)

// SocialNetwork names a supported social platform.
type SocialNetwork string

const (
	NetworkTwitter  SocialNetwork = "twitter"
	NetworkLinkedIn SocialNetwork = "linkedin"
)

const fallbackPhoneRegion = "US"

var socialProfileHosts = map[SocialNetwork][]string{
	NetworkTwitter:  {"twitter.com", "x.com"},
	NetworkLinkedIn: {"linkedin.com"},
}

var socialHandleBase = map[SocialNetwork]string{
	NetworkTwitter:  "https://twitter.com/",
	NetworkLinkedIn: "https://linkedin.com/company/",
}

// ContactNormalizer cleans up the contact cells of an imported row: phone
// numbers become E.164, social cells accept bare handles or URLs and are
// canonicalized to https profile links, logo cells fall back to a placeholder.
type ContactNormalizer struct {
	DefaultRegion string
}

// NewContactNormalizer builds a normalizer for the given default phone region.
func NewContactNormalizer(defaultRegion string) *ContactNormalizer {
	region := strings.ToUpper(strings.TrimSpace(defaultRegion))
	if region == "" {
		region = fallbackPhoneRegion
	}
	return &ContactNormalizer{DefaultRegion: region}
}

// Phone returns the E.164 form of raw, or "" when it is not a valid number.
func (n *ContactNormalizer) Phone(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	number, err := phonenumbers.Parse(raw, n.DefaultRegion)
	if err != nil {
		return ""
	}
	if !phonenumbers.IsPossibleNumber(number) || !phonenumbers.IsValidNumber(number) {
		return ""
	}
	return phonenumbers.Format(number, phonenumbers.E164)
}

// SocialURL canonicalizes a social media cell. Bare handles are expanded to
// a profile URL on the network's primary host; URLs are kept when their host
// belongs to the network, with tracking queries dropped. Anything else maps
// to "".
func (n *ContactNormalizer) SocialURL(network SocialNetwork, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	if isBareHandle(raw) {
		base, ok := socialHandleBase[network]
		if !ok {
			return ""
		}
		return base + strings.TrimPrefix(raw, "@")
	}

	candidate := raw
	if !strings.Contains(candidate, "://") {
		candidate = "https://" + candidate
	}
	parsed, err := url.Parse(candidate)
	if err != nil || parsed.Host == "" {
		return ""
	}

	host := normalizeHost(parsed.Host)
	if host == "" {
		return ""
	}

	allowed := false
	for _, h := range socialProfileHosts[network] {
		if host == h || strings.HasSuffix(host, "."+h) {
			allowed = true
			break
		}
	}
	if !allowed {
		return ""
	}

	canonical := url.URL{Scheme: "https", Host: host, Path: strings.TrimSuffix(parsed.Path, "/")}
	return canonical.String()
}

// LogoURL validates a logo cell as an absolute http(s) URL and substitutes
// the shared placeholder when the cell is blank or unusable.
func (n *ContactNormalizer) LogoURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultLogoURL
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return defaultLogoURL
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return defaultLogoURL
	}
	if normalizeHost(parsed.Host) == "" {
		return defaultLogoURL
	}
	return raw
}

// isBareHandle reports whether the cell looks like "@acme" or "acme" rather
// than a URL.
func isBareHandle(value string) bool {
	return !strings.Contains(value, "/") && !strings.Contains(value, ".")
}

// normalizeHost lower-cases the host, strips a leading www. and validates it
// through the IDNA lookup profile. Returns "" for unusable hosts.
func normalizeHost(host string) string {
	host = strings.ToLower(host)
	if h, _, ok := strings.Cut(host, ":"); ok {
		host = h
	}
	host = strings.TrimPrefix(host, "www.")
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return ""
	}
	return ascii
}
