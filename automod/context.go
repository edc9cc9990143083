package automod

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/haven-social/warden/config"
	"github.com/haven-social/warden/gateway"
	"github.com/haven-social/warden/windowstore"
)

// MessageContext is the primary interface exposed to rules: one message, the
// community policy it is judged under, and accessors for the engine's
// windowed state. Rules record findings via AddViolation and never touch the
// platform or the store themselves.
type MessageContext struct {
	// Actual golang "context.Context", for timeouts on state lookups
	Ctx context.Context
	// errors from state accessors roll up here; the engine logs it after rules run
	Err error
	// pre-populated with community/channel/author fields, never nil
	Logger *slog.Logger

	CommunityID string
	Msg         gateway.MessageEvent
	Config      config.AutoMod

	engine  *Engine
	effects *Effects
}

// Violations returns the findings recorded so far.
func (c *MessageContext) Violations() []Violation {
	return c.effects.Violations
}

func (c *MessageContext) AddViolation(kind string, severity int, detail string) {
	c.effects.AddViolation(kind, severity, detail)
	violationCount.WithLabelValues(kind).Inc()
}

// IncrementSpam records this message against the author+channel spam window
// and returns the in-window count, including this message. Returns 0 and sets
// c.Err when the backing store fails.
func (c *MessageContext) IncrementSpam() int {
	key := fmt.Sprintf("%s/%s/%s", c.CommunityID, c.Msg.AuthorID, c.Msg.ChannelID)
	count, err := c.engine.SpamTracker.Record(c.Ctx, key)
	if err != nil {
		c.Err = fmt.Errorf("recording spam window: %w", err)
		return 0
	}
	return count
}

// PriorBodies records this message body in the author's history window and
// returns the bodies that preceded it inside the window. Bodies are stored
// lower-cased so similarity checks are case-insensitive.
func (c *MessageContext) PriorBodies() []windowstore.HistoryEntry {
	key := fmt.Sprintf("%s/%s", c.CommunityID, c.Msg.AuthorID)
	return c.engine.History.Push(key, strings.ToLower(c.Msg.Content))
}
