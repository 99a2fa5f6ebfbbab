package website

import (
	"net/url"
	"strings"
)

// NormalizeURL prefixes https:// when the input has no http(s) scheme and
// strips trailing slashes. Normalizing a normalized URL returns it unchanged.
func NormalizeURL(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	lower := strings.ToLower(s)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		s = "https://" + s
	}
	for strings.HasSuffix(s, "/") && !strings.HasSuffix(s, "://") {
		s = strings.TrimSuffix(s, "/")
	}
	return s
}

// Hostname returns the lower-cased host of raw without a leading "www.".
// It returns "" when raw cannot be parsed.
func Hostname(raw string) string {
	normalized := NormalizeURL(raw)
	if normalized == "" {
		return ""
	}
	u, err := url.Parse(normalized)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// SameDomain reports whether a and b resolve to the same hostname. Two
// unparsable inputs are not considered equal.
func SameDomain(a, b string) bool {
	ha := Hostname(a)
	if ha == "" {
		return false
	}
	return ha == Hostname(b)
}

