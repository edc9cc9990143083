package rules

import (
	"github.com/haven-social/warden/automod"
)

func DefaultRules() automod.RuleSet {
	rules := automod.RuleSet{
		MessageRules: []automod.MessageRuleFunc{
			ProfanityMessageRule,
			SpamMessageRule,
			InviteMessageRule,
			ShortenerMessageRule,
			CapsMessageRule,
			EmojiSpamMessageRule,
			MassMentionMessageRule,
			RepeatedTextMessageRule,
			ZalgoMessageRule,
			PhishingMessageRule,
		},
	}
	return rules
}
