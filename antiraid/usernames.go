package antiraid

import (
	"regexp"
	"strings"
)

// Username shapes common in throwaway raid accounts: generated letter+digit
// tails and impersonation of giveaway or staff bots. Names are lower-cased
// before matching.
var suspiciousUsernamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^[a-z]+\d{4,}$`),
	regexp.MustCompile(`^[a-z]{1,2}\d+$`),
	regexp.MustCompile(`free.*nitro|nitro.*free`),
	regexp.MustCompile(`discord.*nitro|nitro.*discord`),
	regexp.MustCompile(`(nitro|h[a4]ven)[_-]?(gift|free|drop)`),
	regexp.MustCompile(`(admin|mod|staff)[_-]?bot`),
}

// SuspiciousUsername reports whether a username matches any of the throwaway
// account shapes.
func SuspiciousUsername(name string) bool {
	lower := strings.ToLower(name)
	for _, p := range suspiciousUsernamePatterns {
		if p.MatchString(lower) {
			return true
		}
	}
	return false
}
