package rules

import (
	"fmt"

	"github.com/haven-social/warden/automod"
)

// MassMentionMessageRule counts user and role mentions together.
func MassMentionMessageRule(c *automod.MessageContext) error {
	if !c.Config.MassMentionFilter {
		return nil
	}
	n := len(c.Msg.UserMentions) + len(c.Msg.RoleMentions)
	if n >= c.Config.MentionThreshold {
		c.AddViolation("mass_mention", 3, fmt.Sprintf("%d mentions", n))
	}
	return nil
}
