package rules

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/haven-social/warden/automod"
	"github.com/haven-social/warden/gateway"
)

func msgContext(eng *automod.Engine, content string) automod.MessageContext {
	return eng.NewMessageContext(context.Background(), "g1", gateway.MessageEvent{
		MessageID: "m1",
		ChannelID: "ch1",
		AuthorID:  "u1",
		Content:   content,
	})
}

func TestProfanityMessageRule(t *testing.T) {
	assert := assert.New(t)
	eng := automod.EngineTestFixture()

	c := msgContext(&eng, "totally fine sentence")
	assert.NoError(ProfanityMessageRule(&c))
	assert.Empty(c.Violations())

	c = msgContext(&eng, "this is SHIT honestly")
	assert.NoError(ProfanityMessageRule(&c))
	assert.Len(c.Violations(), 1)
	assert.Equal("profanity", c.Violations()[0].Kind)
	assert.Equal(2, c.Violations()[0].Severity)

	// leetspeak spelling still matches
	c = msgContext(&eng, "what the $hit")
	assert.NoError(ProfanityMessageRule(&c))
	assert.Len(c.Violations(), 1)
}

func TestInviteMessageRule(t *testing.T) {
	assert := assert.New(t)
	eng := automod.EngineTestFixture()

	for _, content := range []string{
		"join us https://haven.gg/abc123",
		"join us haven.chat/invite/cool-server",
		"www.haven.io/xyz",
	} {
		c := msgContext(&eng, content)
		assert.NoError(InviteMessageRule(&c))
		assert.Len(c.Violations(), 1, "content: %s", content)
		assert.Equal("invite", c.Violations()[0].Kind)
	}

	c := msgContext(&eng, "see you on haven.chat later")
	assert.NoError(InviteMessageRule(&c))
	assert.Empty(c.Violations())
}

func TestShortenerMessageRule(t *testing.T) {
	assert := assert.New(t)
	eng := automod.EngineTestFixture()

	c := msgContext(&eng, "click https://bit.ly/3xyz fast")
	c.Config.LinkFilter = true
	assert.NoError(ShortenerMessageRule(&c))
	assert.Len(c.Violations(), 1)
	assert.Equal("shortener", c.Violations()[0].Kind)
	assert.Equal(3, c.Violations()[0].Severity)

	// allow-listed hosts pass even with the filter on
	c = msgContext(&eng, "repo at https://github.com/some/project")
	c.Config.LinkFilter = true
	assert.NoError(ShortenerMessageRule(&c))
	assert.Empty(c.Violations())

	// filter off by default
	c = msgContext(&eng, "click https://bit.ly/3xyz fast")
	assert.NoError(ShortenerMessageRule(&c))
	assert.Empty(c.Violations())
}

func TestCapsMessageRule(t *testing.T) {
	assert := assert.New(t)
	eng := automod.EngineTestFixture()

	c := msgContext(&eng, "STOP SPAMMING THE CHANNEL")
	assert.NoError(CapsMessageRule(&c))
	assert.Len(c.Violations(), 1)
	assert.Equal("caps", c.Violations()[0].Kind)
	assert.Equal(1, c.Violations()[0].Severity)

	// short messages are exempt regardless of ratio
	c = msgContext(&eng, "WAT")
	assert.NoError(CapsMessageRule(&c))
	assert.Empty(c.Violations())

	// no letters at all is exempt
	c = msgContext(&eng, "!!!! ???? 12345 !!!!")
	assert.NoError(CapsMessageRule(&c))
	assert.Empty(c.Violations())

	// exactly at the threshold fires: 7 of 10 letters uppercase
	c = msgContext(&eng, "AAAAAAAbcd")
	assert.NoError(CapsMessageRule(&c))
	assert.Len(c.Violations(), 1)

	// just below it does not: 6 of 10
	c = msgContext(&eng, "AAAAAAbcde")
	assert.NoError(CapsMessageRule(&c))
	assert.Empty(c.Violations())
}

func TestEmojiSpamMessageRule(t *testing.T) {
	assert := assert.New(t)
	eng := automod.EngineTestFixture()

	c := msgContext(&eng, strings.Repeat("😀", 8))
	assert.NoError(EmojiSpamMessageRule(&c))
	assert.Len(c.Violations(), 1)
	assert.Equal("emoji_spam", c.Violations()[0].Kind)

	// custom platform emoji count too
	c = msgContext(&eng, strings.Repeat("<:pog:12345> ", 8))
	assert.NoError(EmojiSpamMessageRule(&c))
	assert.Len(c.Violations(), 1)

	c = msgContext(&eng, "nice one 😀😀")
	assert.NoError(EmojiSpamMessageRule(&c))
	assert.Empty(c.Violations())
}

func TestZalgoMessageRule(t *testing.T) {
	assert := assert.New(t)
	eng := automod.EngineTestFixture()

	zalgo := "h" + strings.Repeat("́", 20) + "i"
	c := msgContext(&eng, zalgo)
	assert.NoError(ZalgoMessageRule(&c))
	assert.Len(c.Violations(), 1)
	assert.Equal("zalgo", c.Violations()[0].Kind)

	// accented text stays under the threshold
	c = msgContext(&eng, "très occupé aujourd'hui")
	assert.NoError(ZalgoMessageRule(&c))
	assert.Empty(c.Violations())
}

func TestMassMentionMessageRule(t *testing.T) {
	assert := assert.New(t)
	eng := automod.EngineTestFixture()

	c := eng.NewMessageContext(context.Background(), "g1", gateway.MessageEvent{
		MessageID:    "m1",
		ChannelID:    "ch1",
		AuthorID:     "u1",
		Content:      "everyone look",
		UserMentions: []string{"a", "b", "c", "d"},
		RoleMentions: []string{"r1", "r2"},
	})
	assert.NoError(MassMentionMessageRule(&c))
	assert.Len(c.Violations(), 1)
	assert.Equal("mass_mention", c.Violations()[0].Kind)
	assert.Equal(3, c.Violations()[0].Severity)

	c = eng.NewMessageContext(context.Background(), "g1", gateway.MessageEvent{
		MessageID:    "m2",
		ChannelID:    "ch1",
		AuthorID:     "u1",
		UserMentions: []string{"a", "b", "c"},
	})
	assert.NoError(MassMentionMessageRule(&c))
	assert.Empty(c.Violations())
}

func TestSpamMessageRule(t *testing.T) {
	assert := assert.New(t)
	eng := automod.EngineTestFixture()

	for i := 0; i < 5; i++ {
		c := msgContext(&eng, "hello")
		assert.NoError(SpamMessageRule(&c))
		assert.Empty(c.Violations(), "message %d", i+1)
	}
	c := msgContext(&eng, "hello")
	assert.NoError(SpamMessageRule(&c))
	assert.Len(c.Violations(), 1)
	assert.Equal("spam", c.Violations()[0].Kind)

	// a different channel has its own window
	c = eng.NewMessageContext(context.Background(), "g1", gateway.MessageEvent{
		MessageID: "m9", ChannelID: "ch2", AuthorID: "u1", Content: "hello",
	})
	assert.NoError(SpamMessageRule(&c))
	assert.Empty(c.Violations())
}

func TestRepeatedTextMessageRule(t *testing.T) {
	assert := assert.New(t)
	eng := automod.EngineTestFixture()

	c := msgContext(&eng, "buy cheap gems at my shop")
	assert.NoError(RepeatedTextMessageRule(&c))
	assert.Empty(c.Violations())

	// near-identical copy trips the similarity check
	c = msgContext(&eng, "buy cheap gems at my shop!!")
	assert.NoError(RepeatedTextMessageRule(&c))
	assert.Len(c.Violations(), 1)
	assert.Equal("repeated_text", c.Violations()[0].Kind)

	// unrelated follow-up is fine
	c = msgContext(&eng, "anyway how was the event")
	assert.NoError(RepeatedTextMessageRule(&c))
	assert.Empty(c.Violations())

	// a shouted copy of an earlier message still counts as a duplicate
	c = msgContext(&eng, "BUY CHEAP GEMS AT MY SHOP")
	assert.NoError(RepeatedTextMessageRule(&c))
	assert.Len(c.Violations(), 1)
	assert.Equal("repeated_text", c.Violations()[0].Kind)
}

func TestPhishingMessageRule(t *testing.T) {
	assert := assert.New(t)
	eng := automod.EngineTestFixture()

	c := msgContext(&eng, "FREE NITRO for the first 100 users")
	assert.NoError(PhishingMessageRule(&c))
	assert.Len(c.Violations(), 1)
	assert.Equal("phishing", c.Violations()[0].Kind)
	assert.Equal(4, c.Violations()[0].Severity)

	c = msgContext(&eng, "login at havenn.chat to keep your account")
	assert.NoError(PhishingMessageRule(&c))
	assert.Len(c.Violations(), 1)

	c = msgContext(&eng, "the gift shop downtown is great")
	assert.NoError(PhishingMessageRule(&c))
	assert.Empty(c.Violations())
}
