// Package store is the durable case/audit store: moderation cases, join
// records, scheduled actions, tickets, incidents, and per-community settings.
// It is the single source of truth shared by the detection engines and the
// reconciler; everything else is process-local cache.
package store

import (
	"context"
	"time"

	"github.com/haven-social/warden/models"
)

// Store is the persistence surface consumed by the engines and the
// reconciler. Implementations must make each method atomic: status
// transitions are compare-and-swap on the current status, so concurrent
// sweeps cannot double-claim one row.
type Store interface {
	// CreateCase inserts a case without a future obligation. Cases carrying a
	// non-nil ExpiresAt must go through CreateCaseWithExpiry so the reversing
	// scheduled action is created in the same transaction.
	CreateCase(ctx context.Context, c *models.ModerationCase) (uint64, error)
	// CreateCaseWithExpiry inserts the case plus its reversing scheduled
	// action (kind, payload) due at the case's ExpiresAt.
	CreateCaseWithExpiry(ctx context.Context, c *models.ModerationCase, kind models.ActionKind, payload string) (caseID uint64, actionID uint64, err error)
	UpdateCaseStatus(ctx context.Context, caseID uint64, status models.CaseStatus) error
	// ReverseCase marks the case reversed and cancels any still-pending
	// scheduled actions linked to it. Actions already claimed by a sweep are
	// left alone: a mid-flight execution completing is an accepted race.
	ReverseCase(ctx context.Context, caseID uint64, by string) error
	QueryCasesForUser(ctx context.Context, communityID, userID string) ([]models.ModerationCase, error)
	// CountWarningPoints sums severities of the user's active warn cases.
	CountWarningPoints(ctx context.Context, communityID, userID string) (int, error)

	RecordViolations(ctx context.Context, violations []models.AutoModViolation) error

	CreateScheduledAction(ctx context.Context, a *models.ScheduledAction) (uint64, error)
	// ClaimDueActions atomically moves due pending actions to in_flight and
	// returns the claimed rows. Rows another sweep already claimed are skipped.
	ClaimDueActions(ctx context.Context, now time.Time) ([]models.ScheduledAction, error)
	// MarkActionOutcome finishes an in_flight action. Terminal rows are left
	// untouched (idempotent no-op).
	MarkActionOutcome(ctx context.Context, actionID uint64, status models.ActionStatus, detail string) error

	RecordJoin(ctx context.Context, j *models.JoinRecord) error
	RecentJoinCount(ctx context.Context, communityID string, window time.Duration) (int, error)

	CreateIncident(ctx context.Context, inc *models.SecurityIncident) (uint64, error)
	ResolveIncident(ctx context.Context, incidentID uint64, by string) error

	CreateTicket(ctx context.Context, t *models.Ticket) (uint64, error)
	// EscalateDueTickets bumps escalation_level (monotone, capped at
	// maxLevel), flips status to escalated, and returns the updated tickets.
	EscalateDueTickets(ctx context.Context, now time.Time, maxLevel int) ([]models.Ticket, error)
	// EscalateTicket raises one ticket's level by one, same CAS discipline.
	// At or past maxLevel it is a no-op returning the current row.
	EscalateTicket(ctx context.Context, ticketID string, maxLevel int) (*models.Ticket, error)
	// ListOpenTicketsWithDeadline returns non-closed tickets whose SLA
	// deadline is still ahead of after, for the warning sweep.
	ListOpenTicketsWithDeadline(ctx context.Context, after time.Time) ([]models.Ticket, error)
	CloseTicket(ctx context.Context, ticketID string, by string) error

	GetCommunitySettings(ctx context.Context, communityID string) (*models.CommunitySettings, error)
	PutCommunitySettings(ctx context.Context, settings *models.CommunitySettings) error

	// PruneExpiredCases deletes non-ban cases older than the cutoff (audit
	// retention); ban and tempban cases are kept indefinitely.
	PruneExpiredCases(ctx context.Context, cutoff time.Time) (int64, error)
}
