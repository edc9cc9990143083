package rules

import (
	"regexp"
	"strings"

	"github.com/haven-social/warden/automod"
)

var inviteRegex = regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?(?:haven\.(?:gg|io|me|li)|haven\.chat/invite)/[a-zA-Z0-9-]+`)

// InviteMessageRule flags community invite links in any of their URL forms.
func InviteMessageRule(c *automod.MessageContext) error {
	if !c.Config.InviteFilter {
		return nil
	}
	if inviteRegex.MatchString(c.Msg.Content) {
		c.AddViolation("invite", 2, "invite link")
	}
	return nil
}

// ShortenerMessageRule flags URL shortener links whose host is not on the
// community allow list. Shortener entries match by substring so bare service
// names cover all their TLD variants.
func ShortenerMessageRule(c *automod.MessageContext) error {
	if !c.Config.LinkFilter {
		return nil
	}
	for _, host := range extractHosts(c.Msg.Content) {
		if hostAllowed(host, c.Config.AllowedHosts) {
			continue
		}
		for _, s := range c.Config.ShortenerHosts {
			if strings.Contains(host, s) {
				c.AddViolation("shortener", 3, "shortened link: "+host)
				return nil
			}
		}
	}
	return nil
}
