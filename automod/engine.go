// Package automod is the content rule engine: each message event runs through
// a set of rules which record violations, and the summed severity picks one
// escalating response tier. Rules are pure against MessageContext; all
// platform and store side-effects happen in the engine after rules finish.
package automod

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/haven-social/warden/config"
	"github.com/haven-social/warden/gateway"
	"github.com/haven-social/warden/models"
	"github.com/haven-social/warden/platform"
	"github.com/haven-social/warden/store"
	"github.com/haven-social/warden/windowstore"
)

// runtime for executing rules, managing windowed state, and recording
// moderation cases.
//
// NOTE: careful when initializing: no field may be nil.
type Engine struct {
	Logger      *slog.Logger
	Rules       RuleSet
	Configs     *config.Loader
	Store       store.Store
	Platform    platform.Client
	SpamTracker windowstore.WindowStore
	History     *windowstore.HistoryStore
	MemberCache *expirable.LRU[string, platform.MemberMeta]
}

// NewMemberCache builds the member metadata cache with the TTL the engine
// expects: short enough that moderator grants take effect quickly.
func NewMemberCache() *expirable.LRU[string, platform.MemberMeta] {
	return expirable.NewLRU[string, platform.MemberMeta](8192, nil, 5*time.Minute)
}

// ProcessMessage runs one message through the rule set and executes the
// decided response. Errors from individual platform calls degrade the
// response (logged, case marked unapplied) rather than failing the event.
func (eng *Engine) ProcessMessage(ctx context.Context, communityID string, msg *gateway.MessageEvent) error {
	// similar to an HTTP server, we want to recover any panics from rule execution
	defer func() {
		if r := recover(); r != nil {
			eng.Logger.Error("automod message execution exception", "err", r, "community", communityID, "message", msg.MessageID)
		}
	}()
	start := time.Now()
	defer func() {
		eventProcessDuration.Observe(time.Since(start).Seconds())
	}()
	eventProcessCount.Inc()

	cfg := eng.Configs.Community(ctx, communityID)
	if !cfg.AutoMod.Enabled {
		return nil
	}

	logger := eng.Logger.With("community", communityID, "channel", msg.ChannelID, "author", msg.AuthorID, "message", msg.MessageID)

	// moderators and bots bypass content rules entirely
	if member := eng.memberMeta(ctx, communityID, msg.AuthorID); member != nil && (member.IsModerator || member.IsBot) {
		return nil
	}

	eff := &Effects{}
	c := &MessageContext{
		Ctx:         ctx,
		Logger:      logger,
		CommunityID: communityID,
		Msg:         *msg,
		Config:      cfg.AutoMod,
		engine:      eng,
		effects:     eff,
	}
	if err := eng.Rules.CallMessageRules(c); err != nil {
		eventErrorCount.Inc()
		return fmt.Errorf("executing message rules: %w", err)
	}
	if c.Err != nil {
		// windowed state was unavailable; rules that needed it abstained
		logger.Warn("rule state lookup failed", "err", c.Err)
	}
	if len(eff.Violations) == 0 {
		return nil
	}

	total := eff.TotalSeverity()
	tier := DecideTier(total)
	actionCount.WithLabelValues(tier.String()).Inc()
	logger.Info("message violations", "kinds", eff.Kinds(), "severity", total, "tier", tier.String())

	if err := eng.persistViolations(ctx, communityID, msg, eff, tier); err != nil {
		logger.Error("persisting violations failed", "err", err)
	}

	return eng.respond(ctx, logger, communityID, msg, cfg.AutoMod, eff, total, tier)
}

func (eng *Engine) memberMeta(ctx context.Context, communityID, userID string) *platform.MemberMeta {
	key := communityID + "/" + userID
	if m, ok := eng.MemberCache.Get(key); ok {
		return &m
	}
	m, err := eng.Platform.GetMember(ctx, communityID, userID)
	if err != nil {
		eng.Logger.Warn("member lookup failed", "community", communityID, "user", userID, "err", err)
		return nil
	}
	eng.MemberCache.Add(key, *m)
	return m
}

func (eng *Engine) persistViolations(ctx context.Context, communityID string, msg *gateway.MessageEvent, eff *Effects, tier ResponseTier) error {
	now := time.Now()
	rows := make([]models.AutoModViolation, len(eff.Violations))
	for i, v := range eff.Violations {
		rows[i] = models.AutoModViolation{
			CommunityID: communityID,
			UserID:      msg.AuthorID,
			ChannelID:   msg.ChannelID,
			MessageID:   msg.MessageID,
			Kind:        v.Kind,
			Detail:      v.Detail,
			Severity:    v.Severity,
			ActionTaken: tier.String(),
			CreatedAt:   now,
		}
	}
	return eng.Store.RecordViolations(ctx, rows)
}

func (eng *Engine) respond(ctx context.Context, logger *slog.Logger, communityID string, msg *gateway.MessageEvent, cfg config.AutoMod, eff *Effects, total int, tier ResponseTier) error {
	deleted := false
	if tier >= TierDeleteWarn && cfg.DeleteMessage {
		err := eng.Platform.DeleteMessage(ctx, communityID, msg.ChannelID, msg.MessageID)
		switch {
		case err == nil, platform.IsNotFound(err):
			deleted = true
		default:
			// deletion failure never blocks the rest of the response
			logger.Warn("deleting message failed", "err", err)
		}
	}

	reason := "automod: " + strings.Join(eff.Kinds(), ", ")
	var caseID uint64
	unapplied := false

	switch tier {
	case TierTimeoutMedium, TierTimeoutHigh:
		dur := cfg.TimeoutMedium()
		if tier == TierTimeoutHigh {
			dur = cfg.TimeoutHigh()
		}
		until := time.Now().Add(dur)
		if err := eng.Platform.ApplyTimeout(ctx, communityID, msg.AuthorID, until, reason); err != nil {
			unapplied = true
			unappliedCount.Inc()
			if platform.IsPermissionDenied(err) {
				logger.Warn("timeout not applied, missing permission", "user", msg.AuthorID)
			} else {
				logger.Error("applying timeout failed", "err", err)
			}
		}
		caseID = eng.recordCase(ctx, logger, &models.ModerationCase{
			CommunityID:   communityID,
			SubjectUserID: msg.AuthorID,
			Action:        models.CaseActionMute,
			Reason:        fmt.Sprintf("%s (timeout %s)", reason, dur),
			Severity:      total,
			Unapplied:     unapplied,
		})
	case TierDeleteWarn:
		if cfg.WarnUser {
			caseID = eng.recordCase(ctx, logger, &models.ModerationCase{
				CommunityID:   communityID,
				SubjectUserID: msg.AuthorID,
				Action:        models.CaseActionWarn,
				Reason:        reason,
				Severity:      total,
			})
		}
	}

	eng.notifyModLog(ctx, logger, communityID, msg, eff, total, tier, deleted, caseID)
	return nil
}

func (eng *Engine) recordCase(ctx context.Context, logger *slog.Logger, c *models.ModerationCase) uint64 {
	id, err := eng.Store.CreateCase(ctx, c)
	if err != nil {
		logger.Error("recording moderation case failed", "err", err)
		return 0
	}
	return id
}

// warning-point bands; advisory only, surfaced to moderators in the mod log
func pointsAdvisory(points int) string {
	switch {
	case points >= 15:
		return "ban recommended"
	case points >= 10:
		return "kick recommended"
	case points >= 5:
		return "timeout recommended"
	}
	return ""
}

func (eng *Engine) notifyModLog(ctx context.Context, logger *slog.Logger, communityID string, msg *gateway.MessageEvent, eff *Effects, total int, tier ResponseTier, deleted bool, caseID uint64) {
	channel, err := eng.Configs.ModLogChannel(ctx, communityID)
	if err != nil {
		if !errors.Is(err, config.ErrNotConfigured) {
			logger.Warn("resolving mod-log channel failed", "err", err)
		}
		return
	}

	note := platform.Notification{
		Title: "AutoMod: " + tier.String(),
		Fields: []platform.NotificationField{
			{Name: "User", Value: msg.AuthorID},
			{Name: "Channel", Value: msg.ChannelID},
			{Name: "Rules", Value: strings.Join(eff.Kinds(), ", ")},
			{Name: "Severity", Value: fmt.Sprintf("%d", total)},
		},
	}
	if deleted {
		note.Fields = append(note.Fields, platform.NotificationField{Name: "Message", Value: "deleted"})
	}
	if caseID != 0 {
		note.Fields = append(note.Fields, platform.NotificationField{Name: "Case", Value: fmt.Sprintf("#%d", caseID)})
	}
	if points, err := eng.Store.CountWarningPoints(ctx, communityID, msg.AuthorID); err == nil && points > 0 {
		val := fmt.Sprintf("%d", points)
		if advisory := pointsAdvisory(points); advisory != "" {
			val += " (" + advisory + ")"
		}
		note.Fields = append(note.Fields, platform.NotificationField{Name: "Warning points", Value: val})
	}

	if err := eng.Platform.SendNotification(ctx, communityID, channel, note); err != nil {
		logger.Warn("mod-log notification failed", "err", err)
	}
}
