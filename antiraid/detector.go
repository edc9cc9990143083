// Package antiraid scores member joins and watches the per-community join
// rate. Each join gets a risk score from account heuristics plus the current
// rate; the score maps to pass, quarantine, or reject. A sustained burst
// additionally opens one security incident, debounced until the rate falls
// back under the threshold.
package antiraid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/haven-social/warden/config"
	"github.com/haven-social/warden/gateway"
	"github.com/haven-social/warden/models"
	"github.com/haven-social/warden/platform"
	"github.com/haven-social/warden/store"
	"github.com/haven-social/warden/windowstore"
)

// score contributions and disposition cut lines
const (
	scoreYoungAccount = 3
	scoreNoAvatar     = 1
	scoreSuspicious   = 2
	scoreBot          = 1
	scoreJoinBurst    = 4

	rejectScore     = 5
	quarantineScore = 3
)

// Detector evaluates joins for all communities. One instance is shared
// across the scheduler's workers.
type Detector struct {
	Logger      *slog.Logger
	Configs     *config.Loader
	Store       store.Store
	Platform    platform.Client
	JoinTracker windowstore.WindowStore

	Now func() time.Time

	lk sync.Mutex
	// community -> open incident row, cleared when the burst subsides
	openIncidents map[string]uint64
}

func NewDetector(logger *slog.Logger, configs *config.Loader, st store.Store, pc platform.Client, tracker windowstore.WindowStore) *Detector {
	return &Detector{
		Logger:        logger,
		Configs:       configs,
		Store:         st,
		Platform:      pc,
		JoinTracker:   tracker,
		Now:           time.Now,
		openIncidents: make(map[string]uint64),
	}
}

// ProcessJoin scores one join and executes its disposition. Platform call
// failures degrade the response and are logged; the JoinRecord is always
// written with the disposition that was decided, not what was achieved.
func (d *Detector) ProcessJoin(ctx context.Context, communityID string, join *gateway.MemberJoinEvent) error {
	defer func() {
		if r := recover(); r != nil {
			d.Logger.Error("antiraid join execution exception", "err", r, "community", communityID, "user", join.UserID)
		}
	}()
	joinProcessCount.Inc()

	cfg := d.Configs.Community(ctx, communityID)
	if !cfg.AntiRaid.Enabled {
		return nil
	}

	logger := d.Logger.With("community", communityID, "user", join.UserID, "username", join.Username)

	// record this join before reading the rate so the burst includes it
	rate, err := d.JoinTracker.Record(ctx, communityID)
	if err != nil {
		logger.Warn("recording join window failed", "err", err)
	}

	score := 0
	var reasons []string
	if age := d.Now().Sub(join.AccountCreated); age < cfg.AntiRaid.AccountAgeThreshold() {
		score += scoreYoungAccount
		reasons = append(reasons, fmt.Sprintf("account age %s", age.Round(time.Minute)))
	}
	if !join.HasAvatar {
		score += scoreNoAvatar
		reasons = append(reasons, "no avatar")
	}
	if SuspiciousUsername(join.Username) {
		score += scoreSuspicious
		reasons = append(reasons, "suspicious username")
	}
	if join.IsBot && cfg.AntiRaid.DisallowBots {
		score += scoreBot
		reasons = append(reasons, "bot account")
	}
	burst := rate >= cfg.AntiRaid.JoinThreshold
	// the score component only penalizes joins arriving at an already-full
	// window; the join that fills it opens the incident below but is scored
	// on its own merits
	if rate-1 >= cfg.AntiRaid.JoinThreshold {
		score += scoreJoinBurst
		reasons = append(reasons, fmt.Sprintf("join burst: %d in window", rate))
	}

	disposition := models.JoinPassed
	switch {
	case score >= rejectScore:
		disposition = models.JoinRejected
	case score >= quarantineScore:
		disposition = models.JoinQuarantined
	}
	joinDispositionCount.WithLabelValues(string(disposition)).Inc()

	if disposition != models.JoinPassed {
		logger.Info("join flagged", "score", score, "reasons", reasons, "disposition", disposition)
		d.respond(ctx, logger, communityID, join, cfg.AntiRaid, disposition, score, reasons)
	}

	if err := d.Store.RecordJoin(ctx, &models.JoinRecord{
		CommunityID:    communityID,
		UserID:         join.UserID,
		JoinedAt:       d.Now(),
		AccountCreated: join.AccountCreated,
		RiskScore:      score,
		Disposition:    disposition,
		Reasons:        strings.Join(reasons, "\n"),
	}); err != nil {
		logger.Error("persisting join record failed", "err", err)
	}

	d.trackBurst(ctx, logger, communityID, rate, burst)
	return nil
}

func (d *Detector) respond(ctx context.Context, logger *slog.Logger, communityID string, join *gateway.MemberJoinEvent, cfg config.AntiRaid, disposition models.JoinDisposition, score int, reasons []string) {
	reason := "antiraid: " + strings.Join(reasons, ", ")

	action := models.CaseActionQuarantine
	var actErr error
	if disposition == models.JoinRejected {
		switch cfg.Action {
		case config.RejectBan:
			action = models.CaseActionBan
			actErr = d.Platform.Ban(ctx, communityID, join.UserID, reason, 1)
		case config.RejectQuarantine:
			actErr = d.Quarantine(ctx, communityID, join.UserID)
		default:
			action = models.CaseActionKick
			actErr = d.Platform.Kick(ctx, communityID, join.UserID, reason)
		}
	} else {
		actErr = d.Quarantine(ctx, communityID, join.UserID)
	}

	unapplied := false
	if actErr != nil {
		unapplied = true
		if platform.IsPermissionDenied(actErr) {
			logger.Warn("join response not applied, missing permission", "action", action)
		} else {
			logger.Error("join response failed", "action", action, "err", actErr)
		}
	}

	if _, err := d.Store.CreateCase(ctx, &models.ModerationCase{
		CommunityID:   communityID,
		SubjectUserID: join.UserID,
		Action:        action,
		Reason:        reason,
		Severity:      score,
		Unapplied:     unapplied,
	}); err != nil {
		logger.Error("recording join case failed", "err", err)
	}

	d.notifySecurity(ctx, logger, communityID, platform.Notification{
		Title: "AntiRaid: " + string(disposition),
		Fields: []platform.NotificationField{
			{Name: "User", Value: fmt.Sprintf("%s (%s)", join.Username, join.UserID)},
			{Name: "Score", Value: fmt.Sprintf("%d", score)},
			{Name: "Reasons", Value: strings.Join(reasons, "; ")},
			{Name: "Action", Value: string(action)},
		},
	})
}

// trackBurst opens at most one incident per burst: the flag set on crossing
// the threshold is only cleared once the rolling rate drops below it again.
func (d *Detector) trackBurst(ctx context.Context, logger *slog.Logger, communityID string, rate int, burst bool) {
	d.lk.Lock()
	_, open := d.openIncidents[communityID]
	if burst && open {
		d.lk.Unlock()
		return
	}
	if !burst {
		delete(d.openIncidents, communityID)
		d.lk.Unlock()
		return
	}
	// mark first, create after; a failed insert leaves the flag set so a
	// storm does not hammer the store
	d.openIncidents[communityID] = 0
	d.lk.Unlock()

	incidentOpenCount.Inc()
	id, err := d.Store.CreateIncident(ctx, &models.SecurityIncident{
		CommunityID: communityID,
		Kind:        "raid_burst",
		Description: fmt.Sprintf("join rate reached %d inside the detection window; recommended: lock down channels, raise verification level, review recent joins", rate),
		Severity:    4,
		CreatedAt:   d.Now(),
	})
	if err != nil {
		logger.Error("recording raid incident failed", "err", err)
		return
	}
	d.lk.Lock()
	d.openIncidents[communityID] = id
	d.lk.Unlock()

	logger.Warn("raid burst detected", "rate", rate, "incident", id)
	d.notifySecurity(ctx, logger, communityID, platform.Notification{
		Title: "AntiRaid: raid burst",
		Body:  fmt.Sprintf("%d joins inside the detection window; new joins are being scored with the burst penalty", rate),
		Fields: []platform.NotificationField{
			{Name: "Incident", Value: fmt.Sprintf("#%d", id)},
			{Name: "Recommended", Value: "lock down channels; raise verification level; review recent joins"},
		},
	})
}

func (d *Detector) notifySecurity(ctx context.Context, logger *slog.Logger, communityID string, note platform.Notification) {
	channel, err := d.Configs.SecurityChannel(ctx, communityID)
	if err != nil {
		if !errors.Is(err, config.ErrNotConfigured) {
			logger.Warn("resolving security channel failed", "err", err)
		}
		return
	}
	if err := d.Platform.SendNotification(ctx, communityID, channel, note); err != nil {
		logger.Warn("security notification failed", "err", err)
	}
}
