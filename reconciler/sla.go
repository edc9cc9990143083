package reconciler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/haven-social/warden/platform"
)

// slaMaxLevel caps the global SLA sweep. Per-community caps apply to the
// targeted escalate_ticket action; the deadline sweep uses the default.
const slaMaxLevel = 2

// warnedTickets remembers which ticket+level pairs already got an SLA
// warning. Process-local: a restart re-warns at most once per ticket.
type warnedTickets struct {
	lk   sync.Mutex
	seen map[string]bool
}

func (w *warnedTickets) mark(key string) bool {
	w.lk.Lock()
	defer w.lk.Unlock()
	if w.seen == nil {
		w.seen = make(map[string]bool)
	}
	if w.seen[key] {
		return false
	}
	w.seen[key] = true
	return true
}

// SweepSLA escalates every ticket past its deadline and emits warning
// notifications for tickets past the warning fraction of their SLA budget.
func (r *Reconciler) SweepSLA(ctx context.Context, now time.Time) (int, error) {
	escalated, err := r.Store.EscalateDueTickets(ctx, now, slaMaxLevel)
	if err != nil {
		return 0, fmt.Errorf("escalating due tickets: %w", err)
	}
	for _, t := range escalated {
		ticketEscalationCount.Inc()
		r.Logger.Warn("ticket SLA breached", "ticket", t.TicketID, "community", t.CommunityID, "level", t.EscalationLevel)
		r.notifySecurity(ctx, t.CommunityID, platform.Notification{
			Title: "Ticket SLA breached",
			Fields: []platform.NotificationField{
				{Name: "Ticket", Value: t.TicketID},
				{Name: "Priority", Value: string(t.Priority)},
				{Name: "Level", Value: fmt.Sprintf("%d", t.EscalationLevel)},
			},
		})
	}

	r.warnNearingSLA(ctx, now)
	return len(escalated), nil
}

func (r *Reconciler) warnNearingSLA(ctx context.Context, now time.Time) {
	open, err := r.Store.ListOpenTicketsWithDeadline(ctx, now)
	if err != nil {
		r.Logger.Warn("listing open tickets failed", "err", err)
		return
	}
	for _, t := range open {
		cfg := r.Configs.Community(ctx, t.CommunityID)
		budget := t.SLADeadline.Sub(t.CreatedAt)
		if budget <= 0 {
			continue
		}
		elapsed := now.Sub(t.CreatedAt)
		if float64(elapsed) < cfg.Tickets.WarningFraction*float64(budget) {
			continue
		}
		if !r.warned.mark(fmt.Sprintf("%s/%d", t.TicketID, t.EscalationLevel)) {
			continue
		}
		r.notifySecurity(ctx, t.CommunityID, platform.Notification{
			Title: "Ticket nearing SLA",
			Body:  fmt.Sprintf("ticket %s has used %d%% of its SLA budget", t.TicketID, int(100*float64(elapsed)/float64(budget))),
			Fields: []platform.NotificationField{
				{Name: "Ticket", Value: t.TicketID},
				{Name: "Priority", Value: string(t.Priority)},
				{Name: "Deadline", Value: t.SLADeadline.Format(time.RFC3339)},
			},
		})
	}
}
