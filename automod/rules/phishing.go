package rules

import (
	"strings"

	"github.com/haven-social/warden/automod"
)

// PhishingMessageRule matches known scam phrases and lookalike domains. The
// highest-severity rule: a single hit is enough to reach the medium band on
// its own.
func PhishingMessageRule(c *automod.MessageContext) error {
	if !c.Config.PhishingFilter {
		return nil
	}
	lower := strings.ToLower(c.Msg.Content)
	for _, phrase := range c.Config.PhishingPhrases {
		if strings.Contains(lower, phrase) {
			c.AddViolation("phishing", 4, "scam phrase: "+phrase)
			return nil
		}
	}
	for _, domain := range c.Config.PhishingDomains {
		if strings.Contains(lower, domain) {
			c.AddViolation("phishing", 4, "lookalike domain: "+domain)
			return nil
		}
	}
	return nil
}
