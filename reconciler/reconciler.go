// Package reconciler executes deferred obligations: the periodic sweep over
// due scheduled actions, the ticket SLA sweep, and retention cleanup. All
// sweeps are safe to run from overlapping processes; the store's claim CAS
// guarantees each action executes at most once.
package reconciler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/haven-social/warden/config"
	"github.com/haven-social/warden/models"
	"github.com/haven-social/warden/platform"
	"github.com/haven-social/warden/store"
)

// DataIntegrityError marks an action that references state which no longer
// holds together (missing subject, unknown kind, dangling ticket). Such
// actions are marked failed with the error as detail and never retried.
type DataIntegrityError struct {
	ActionID uint64
	Msg      string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("action %d: %s", e.ActionID, e.Msg)
}

// Outcome is the result of one claimed action, for logging and tests.
type Outcome struct {
	ActionID uint64
	Kind     models.ActionKind
	Status   models.ActionStatus
	Detail   string
}

type Reconciler struct {
	Logger   *slog.Logger
	Store    store.Store
	Platform platform.Client
	Configs  *config.Loader

	// retention for non-ban cases, applied by Cleanup
	CaseRetention time.Duration
	// process-local trackers drained by Cleanup
	Prunables []interface{ Prune() }

	warned warnedTickets
}

// Sweep claims every due pending action and executes it. A failing action is
// marked failed with detail and does not stop the pass; the returned error
// only covers claiming itself.
func (r *Reconciler) Sweep(ctx context.Context, now time.Time) ([]Outcome, error) {
	claimed, err := r.Store.ClaimDueActions(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("claiming due actions: %w", err)
	}

	outcomes := make([]Outcome, 0, len(claimed))
	for _, a := range claimed {
		status := models.ActionStatusExecuted
		detail := ""
		if execErr := r.execute(ctx, &a); execErr != nil {
			status = models.ActionStatusFailed
			detail = execErr.Error()
			r.Logger.Error("scheduled action failed", "action", a.ID, "kind", a.Kind, "err", execErr)
		} else {
			r.Logger.Info("scheduled action executed", "action", a.ID, "kind", a.Kind, "community", a.CommunityID)
		}
		if err := r.Store.MarkActionOutcome(ctx, a.ID, status, detail); err != nil {
			r.Logger.Error("marking action outcome failed", "action", a.ID, "err", err)
		}
		actionSweepCount.WithLabelValues(string(a.Kind), string(status)).Inc()
		outcomes = append(outcomes, Outcome{ActionID: a.ID, Kind: a.Kind, Status: status, Detail: detail})
	}
	return outcomes, nil
}

func (r *Reconciler) execute(ctx context.Context, a *models.ScheduledAction) error {
	switch a.Kind {
	case models.ActionKindUnban:
		return r.executeUnban(ctx, a)
	case models.ActionKindRestoreRoles:
		return r.executeRestoreRoles(ctx, a)
	case models.ActionKindUnlockChannels:
		return r.executeUnlockChannels(ctx, a)
	case models.ActionKindEscalateTicket:
		return r.executeEscalateTicket(ctx, a)
	}
	return &DataIntegrityError{ActionID: a.ID, Msg: fmt.Sprintf("unknown action kind %q", a.Kind)}
}

func (r *Reconciler) executeUnban(ctx context.Context, a *models.ScheduledAction) error {
	if a.SubjectUserID == nil {
		return &DataIntegrityError{ActionID: a.ID, Msg: "unban action without subject"}
	}
	var p struct {
		Reason string `json:"reason"`
	}
	decodePayload(a.Payload, &p)
	if p.Reason == "" {
		p.Reason = "temporary ban expired"
	}

	err := r.Platform.Unban(ctx, a.CommunityID, *a.SubjectUserID, p.Reason)
	if err != nil && !platform.IsNotFound(err) {
		return err
	}
	// already-unbanned is success: the obligation is discharged either way
	if a.CaseID != nil {
		if err := r.Store.UpdateCaseStatus(ctx, *a.CaseID, models.CaseStatusExpired); err != nil {
			r.Logger.Warn("expiring case after unban failed", "case", *a.CaseID, "err", err)
		}
	}
	return nil
}

func (r *Reconciler) executeRestoreRoles(ctx context.Context, a *models.ScheduledAction) error {
	if a.SubjectUserID == nil {
		return &DataIntegrityError{ActionID: a.ID, Msg: "restore_roles action without subject"}
	}
	var p struct {
		Roles []string `json:"roles"`
	}
	decodePayload(a.Payload, &p)
	if len(p.Roles) == 0 {
		return &DataIntegrityError{ActionID: a.ID, Msg: "restore_roles action without roles"}
	}

	var firstErr error
	for _, role := range p.Roles {
		if err := r.Platform.AssignRole(ctx, a.CommunityID, *a.SubjectUserID, role); err != nil && !platform.IsNotFound(err) {
			if firstErr == nil {
				firstErr = err
			}
			r.Logger.Warn("restoring role failed", "action", a.ID, "role", role, "err", err)
		}
	}
	if firstErr != nil {
		return firstErr
	}
	if a.CaseID != nil {
		if err := r.Store.UpdateCaseStatus(ctx, *a.CaseID, models.CaseStatusExpired); err != nil {
			r.Logger.Warn("expiring case after role restore failed", "case", *a.CaseID, "err", err)
		}
	}
	return nil
}

func (r *Reconciler) executeUnlockChannels(ctx context.Context, a *models.ScheduledAction) error {
	var p struct {
		Channels []string `json:"channels"`
	}
	decodePayload(a.Payload, &p)
	if len(p.Channels) == 0 {
		return &DataIntegrityError{ActionID: a.ID, Msg: "unlock_channels action without channels"}
	}

	var firstErr error
	for _, ch := range p.Channels {
		if err := r.Platform.UnlockChannel(ctx, a.CommunityID, ch); err != nil && !platform.IsNotFound(err) {
			if firstErr == nil {
				firstErr = err
			}
			r.Logger.Warn("unlocking channel failed", "action", a.ID, "channel", ch, "err", err)
		}
	}
	return firstErr
}

func (r *Reconciler) executeEscalateTicket(ctx context.Context, a *models.ScheduledAction) error {
	var p struct {
		TicketID string `json:"ticket_id"`
	}
	decodePayload(a.Payload, &p)
	if p.TicketID == "" {
		return &DataIntegrityError{ActionID: a.ID, Msg: "escalate_ticket action without ticket_id"}
	}

	cfg := r.Configs.Community(ctx, a.CommunityID)
	t, err := r.Store.EscalateTicket(ctx, p.TicketID, cfg.Tickets.MaxEscalationLevel)
	if err != nil {
		return &DataIntegrityError{ActionID: a.ID, Msg: err.Error()}
	}
	r.notifySecurity(ctx, a.CommunityID, platform.Notification{
		Title: "Ticket escalated",
		Fields: []platform.NotificationField{
			{Name: "Ticket", Value: t.TicketID},
			{Name: "Priority", Value: string(t.Priority)},
			{Name: "Level", Value: fmt.Sprintf("%d", t.EscalationLevel)},
		},
	})
	return nil
}

// Cleanup prunes process-local trackers and applies case retention. Ban and
// temp-ban cases are never pruned.
func (r *Reconciler) Cleanup(ctx context.Context, now time.Time) error {
	for _, p := range r.Prunables {
		p.Prune()
	}
	if r.CaseRetention <= 0 {
		return nil
	}
	n, err := r.Store.PruneExpiredCases(ctx, now.Add(-r.CaseRetention))
	if err != nil {
		return fmt.Errorf("pruning cases: %w", err)
	}
	if n > 0 {
		r.Logger.Info("pruned old moderation cases", "count", n)
	}
	return nil
}

func (r *Reconciler) notifySecurity(ctx context.Context, communityID string, note platform.Notification) {
	channel, err := r.Configs.SecurityChannel(ctx, communityID)
	if err != nil {
		if !errors.Is(err, config.ErrNotConfigured) {
			r.Logger.Warn("resolving security channel failed", "community", communityID, "err", err)
		}
		return
	}
	if err := r.Platform.SendNotification(ctx, communityID, channel, note); err != nil {
		r.Logger.Warn("security notification failed", "community", communityID, "err", err)
	}
}

// decodePayload tolerates empty and malformed payloads; kind handlers
// validate the fields they need.
func decodePayload(payload string, v any) {
	if payload == "" {
		return
	}
	_ = json.Unmarshal([]byte(payload), v)
}
