package rules

import (
	"fmt"

	"github.com/haven-social/warden/automod"
)

// SpamMessageRule fires when an author exceeds the per-channel message rate.
// Every message is recorded against the window, violating or not.
func SpamMessageRule(c *automod.MessageContext) error {
	if !c.Config.SpamFilter {
		return nil
	}
	count := c.IncrementSpam()
	if count >= c.Config.SpamThreshold {
		c.AddViolation("spam", 3, fmt.Sprintf("%d messages in window", count))
	}
	return nil
}
