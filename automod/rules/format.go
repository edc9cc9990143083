package rules

import (
	"fmt"
	"regexp"
	"unicode"

	"github.com/haven-social/warden/automod"
)

// CapsMessageRule flags shouting: messages of at least the minimum length
// where the uppercase share of letters reaches the threshold. Messages with
// no letters at all are exempt.
func CapsMessageRule(c *automod.MessageContext) error {
	if !c.Config.CapsFilter {
		return nil
	}
	runes := []rune(c.Msg.Content)
	if len(runes) < c.Config.CapsMinLength {
		return nil
	}
	letters, uppers := 0, 0
	for _, r := range runes {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				uppers++
			}
		}
	}
	if letters == 0 {
		return nil
	}
	pct := uppers * 100 / letters
	if pct >= c.Config.CapsThreshold {
		c.AddViolation("caps", 1, fmt.Sprintf("%d%% uppercase", pct))
	}
	return nil
}

var customEmojiRegex = regexp.MustCompile(`<a?:\w+:\d+>`)

func countEmoji(text string) int {
	count := customEmojiRegex.FindAllStringIndex(text, -1)
	n := len(count)
	for _, r := range text {
		switch {
		case r >= 0x1F600 && r <= 0x1F64F, // emoticons
			r >= 0x1F300 && r <= 0x1F5FF, // symbols and pictographs
			r >= 0x1F680 && r <= 0x1F6FF, // transport
			r >= 0x1F1E0 && r <= 0x1F1FF: // flags
			n++
		}
	}
	return n
}

// EmojiSpamMessageRule counts custom platform emoji plus unicode emoji.
func EmojiSpamMessageRule(c *automod.MessageContext) error {
	if !c.Config.EmojiSpamFilter {
		return nil
	}
	if n := countEmoji(c.Msg.Content); n >= c.Config.EmojiThreshold {
		c.AddViolation("emoji_spam", 1, fmt.Sprintf("%d emoji", n))
	}
	return nil
}

func countCombining(text string) int {
	n := 0
	for _, r := range text {
		switch {
		case r >= 0x0300 && r <= 0x036F,
			r >= 0x1AB0 && r <= 0x1AFF,
			r >= 0x1DC0 && r <= 0x1DFF,
			r >= 0x20D0 && r <= 0x20FF,
			r >= 0xFE20 && r <= 0xFE2F:
			n++
		}
	}
	return n
}

// ZalgoMessageRule flags text abusing combining diacritics.
func ZalgoMessageRule(c *automod.MessageContext) error {
	if !c.Config.ZalgoFilter {
		return nil
	}
	if n := countCombining(c.Msg.Content); n >= c.Config.ZalgoThreshold {
		c.AddViolation("zalgo", 2, fmt.Sprintf("%d combining marks", n))
	}
	return nil
}
