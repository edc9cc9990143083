package rules

import (
	"strings"

	"github.com/haven-social/warden/automod"
	"github.com/haven-social/warden/automod/keyword"
)

// ProfanityMessageRule matches the community word list, including leetspeak
// spellings. One violation per message regardless of how many words hit.
func ProfanityMessageRule(c *automod.MessageContext) error {
	if !c.Config.ProfanityFilter {
		return nil
	}
	lower := strings.ToLower(c.Msg.Content)
	for _, word := range c.Config.ProfanityWords {
		if keyword.ContainsWord(lower, word) {
			c.AddViolation("profanity", 2, "matched word list")
			return nil
		}
	}
	return nil
}
