package search

import (
	"net/url"
	"strings"
)

var trackingParams = []string{
	"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content", "utm_id",
	"gclid", "fbclid",
}

// Canonical lowercases the host, drops the fragment and strips tracking
// parameters so the same article found through different links shares one
// fetch cache entry. Only absolute http(s) links are accepted.
func Canonical(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", false
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", false
	}
	u.Scheme = scheme
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	if u.RawQuery != "" {
		q := u.Query()
		removed := false
		for _, p := range trackingParams {
			if q.Has(p) {
				q.Del(p)
				removed = true
			}
		}
		if removed {
			u.RawQuery = q.Encode()
		}
	}
	return u.String(), true
}
