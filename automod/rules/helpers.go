package rules

import (
	"net/url"
	"regexp"
	"strings"
)

var urlRegex = regexp.MustCompile(`https?://[^\s<>"']+`)

// extractHosts returns the lowercased hosts of all URLs in text. Unparsable
// URLs are skipped.
func extractHosts(text string) []string {
	var hosts []string
	for _, raw := range urlRegex.FindAllString(text, -1) {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			continue
		}
		hosts = append(hosts, strings.ToLower(u.Hostname()))
	}
	return hosts
}

// hostAllowed matches host against the allow list by exact name or subdomain
// suffix, so "www.github.com" passes for "github.com".
func hostAllowed(host string, allowed []string) bool {
	for _, a := range allowed {
		if host == a || strings.HasSuffix(host, "."+a) {
			return true
		}
	}
	return false
}
