package rules

import (
	"fmt"
	"strings"

	"github.com/haven-social/warden/automod"
	"github.com/haven-social/warden/automod/keyword"
)

// RepeatedTextMessageRule compares the message against the author's recent
// bodies and fires on near-duplicates. Comparison is case-insensitive, and
// the current body is recorded either way so a run of copies keeps matching
// its predecessors.
func RepeatedTextMessageRule(c *automod.MessageContext) error {
	if !c.Config.RepeatedTextFilter {
		return nil
	}
	body := strings.ToLower(c.Msg.Content)
	for _, prev := range c.PriorBodies() {
		ratio := keyword.MatchRatio(body, prev.Body)
		if ratio >= c.Config.RepeatedThreshold {
			c.AddViolation("repeated_text", 2, fmt.Sprintf("similarity %.2f", ratio))
			return nil
		}
	}
	return nil
}
