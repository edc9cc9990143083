// Package config holds the per-community moderation policy: filter toggles,
// thresholds, response durations, and the ticket SLA table. Process-level
// configuration (DB URLs, listen addresses) stays on CLI flags in cmd/warden.
package config

import (
	"time"

	"github.com/haven-social/warden/models"
)

// AutoMod controls the content rule engine for one community.
type AutoMod struct {
	Enabled bool `json:"enabled"`

	ProfanityFilter    bool `json:"profanity_filter"`
	SpamFilter         bool `json:"spam_filter"`
	InviteFilter       bool `json:"invite_filter"`
	LinkFilter         bool `json:"link_filter"`
	CapsFilter         bool `json:"caps_filter"`
	EmojiSpamFilter    bool `json:"emoji_spam_filter"`
	MassMentionFilter  bool `json:"mass_mention_filter"`
	RepeatedTextFilter bool `json:"repeated_text_filter"`
	ZalgoFilter        bool `json:"zalgo_filter"`
	PhishingFilter     bool `json:"phishing_filter"`

	// caps ratio as a percentage of letters, applied to messages of at least
	// CapsMinLength characters
	CapsThreshold int `json:"caps_threshold"`
	CapsMinLength int `json:"caps_min_length"`
	// combined custom + unicode emoji count
	EmojiThreshold int `json:"emoji_threshold"`
	// combined user + role mention count
	MentionThreshold int `json:"mention_threshold"`
	// messages per author per channel inside the spam window
	SpamThreshold int `json:"spam_threshold"`
	// similarity ratio against recent bodies
	RepeatedThreshold float64 `json:"repeated_threshold"`
	// combining-diacritic code points
	ZalgoThreshold int `json:"zalgo_threshold"`

	DeleteMessage bool `json:"delete_message"`
	WarnUser      bool `json:"warn_user"`
	// timeout durations for the medium and high severity bands, seconds
	TimeoutMediumSecs int `json:"timeout_medium_secs"`
	TimeoutHighSecs   int `json:"timeout_high_secs"`

	ProfanityWords  []string `json:"profanity_words,omitempty"`
	AllowedHosts    []string `json:"allowed_hosts,omitempty"`
	ShortenerHosts  []string `json:"shortener_hosts,omitempty"`
	PhishingPhrases []string `json:"phishing_phrases,omitempty"`
	PhishingDomains []string `json:"phishing_domains,omitempty"`
}

func (c *AutoMod) TimeoutMedium() time.Duration {
	return time.Duration(c.TimeoutMediumSecs) * time.Second
}

func (c *AutoMod) TimeoutHigh() time.Duration {
	return time.Duration(c.TimeoutHighSecs) * time.Second
}

// RejectAction is what a reject-tier join disposition does.
type RejectAction string

const (
	RejectKick       RejectAction = "kick"
	RejectBan        RejectAction = "ban"
	RejectQuarantine RejectAction = "quarantine"
)

// AntiRaid controls join scoring and population-level raid detection.
type AntiRaid struct {
	Enabled bool `json:"enabled"`
	// joins inside TimeWindow that constitute a raid burst, and the +4 rate
	// component of per-join scoring
	JoinThreshold  int `json:"join_threshold"`
	TimeWindowSecs int `json:"time_window_secs"`
	// response for reject-tier joins (score >= 5)
	Action RejectAction `json:"action"`
	// accounts younger than this score +3
	AccountAgeDays int  `json:"account_age_days"`
	DisallowBots   bool `json:"disallow_bots"`
}

func (c *AntiRaid) TimeWindow() time.Duration {
	return time.Duration(c.TimeWindowSecs) * time.Second
}

func (c *AntiRaid) AccountAgeThreshold() time.Duration {
	return time.Duration(c.AccountAgeDays) * 24 * time.Hour
}

// Tickets controls the SLA escalation sweep.
type Tickets struct {
	// SLA budget per priority, hours
	SLAHours map[models.TicketPriority]int `json:"sla_hours"`
	// escalation levels are capped here; the sweep never raises past it
	MaxEscalationLevel int `json:"max_escalation_level"`
	// fraction of the SLA budget after which a warning notification is due
	WarningFraction float64 `json:"warning_fraction"`
}

func (c *Tickets) SLAFor(p models.TicketPriority) time.Duration {
	h, ok := c.SLAHours[p]
	if !ok {
		h = 24
	}
	return time.Duration(h) * time.Hour
}

// Community is the full per-community policy.
type Community struct {
	AutoMod  AutoMod  `json:"automod"`
	AntiRaid AntiRaid `json:"antiraid"`
	Tickets  Tickets  `json:"tickets"`
}

// DefaultCommunity returns the policy applied when a community has no stored
// config.
func DefaultCommunity() Community {
	return Community{
		AutoMod: AutoMod{
			Enabled:            true,
			ProfanityFilter:    true,
			SpamFilter:         true,
			InviteFilter:       true,
			LinkFilter:         false,
			CapsFilter:         true,
			EmojiSpamFilter:    true,
			MassMentionFilter:  true,
			RepeatedTextFilter: true,
			ZalgoFilter:        true,
			PhishingFilter:     true,
			CapsThreshold:      70,
			CapsMinLength:      10,
			EmojiThreshold:     8,
			MentionThreshold:   6,
			SpamThreshold:      6,
			RepeatedThreshold:  0.85,
			ZalgoThreshold:     20,
			DeleteMessage:      true,
			WarnUser:           true,
			TimeoutMediumSecs:  300,
			TimeoutHighSecs:    600,
			ProfanityWords:     DefaultProfanityWords,
			AllowedHosts:       DefaultAllowedHosts,
			ShortenerHosts:     DefaultShortenerHosts,
			PhishingPhrases:    DefaultPhishingPhrases,
			PhishingDomains:    DefaultPhishingDomains,
		},
		AntiRaid: AntiRaid{
			Enabled:        true,
			JoinThreshold:  10,
			TimeWindowSecs: 60,
			Action:         RejectKick,
			AccountAgeDays: 7,
			DisallowBots:   true,
		},
		Tickets: Tickets{
			SLAHours: map[models.TicketPriority]int{
				models.TicketPriorityCritical: 1,
				models.TicketPriorityHigh:     4,
				models.TicketPriorityMedium:   24,
				models.TicketPriorityLow:      72,
			},
			MaxEscalationLevel: 2,
			WarningFraction:    0.75,
		},
	}
}

// Default filter lists. Communities override these wholesale via their stored
// config; there is no per-entry merge.
var (
	DefaultProfanityWords = []string{
		"fuck", "shit", "damn", "bitch", "asshole", "bastard",
	}
	DefaultAllowedHosts = []string{
		"haven.chat", "github.com", "youtube.com", "twitch.tv",
	}
	DefaultShortenerHosts = []string{
		"bit.ly", "tinyurl", "short.link",
	}
	DefaultPhishingPhrases = []string{
		"free nitro", "nitro gift", "free gift", "claim your",
		"click here to verify", "verify your account", "suspicious activity",
		"account will be deleted", "temporary suspension",
	}
	DefaultPhishingDomains = []string{
		"havenn.chat", "haven-gifts.com", "haven.gg.claim",
	}
)
