package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haven-social/warden/models"
)

func testStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := SetupDatabase("sqlite://:memory:", 1)
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return NewGormStore(db)
}

func TestClaimDueActionsSingleWinner(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s := testStore(t)

	now := time.Now()
	_, err := s.CreateScheduledAction(ctx, &models.ScheduledAction{
		CommunityID: "g1",
		Kind:        models.ActionKindUnban,
		ExecuteAt:   now.Add(-time.Minute),
		CreatedBy:   "system",
	})
	assert.NoError(err)

	claimed, err := s.ClaimDueActions(ctx, now)
	assert.NoError(err)
	assert.Len(claimed, 1)
	assert.Equal(models.ActionStatusInFlight, claimed[0].Status)

	// a second overlapping sweep gets nothing
	again, err := s.ClaimDueActions(ctx, now)
	assert.NoError(err)
	assert.Empty(again)
}

func TestClaimSkipsFutureAndTerminal(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s := testStore(t)

	now := time.Now()
	dueID, err := s.CreateScheduledAction(ctx, &models.ScheduledAction{
		CommunityID: "g1", Kind: models.ActionKindUnban,
		ExecuteAt: now.Add(-time.Hour), CreatedBy: "system",
	})
	assert.NoError(err)
	_, err = s.CreateScheduledAction(ctx, &models.ScheduledAction{
		CommunityID: "g1", Kind: models.ActionKindUnban,
		ExecuteAt: now.Add(time.Hour), CreatedBy: "system",
	})
	assert.NoError(err)

	claimed, err := s.ClaimDueActions(ctx, now)
	assert.NoError(err)
	assert.Len(claimed, 1)
	assert.Equal(dueID, claimed[0].ID)

	assert.NoError(s.MarkActionOutcome(ctx, dueID, models.ActionStatusExecuted, ""))
	// marking again is a no-op, not an error
	assert.NoError(s.MarkActionOutcome(ctx, dueID, models.ActionStatusFailed, "late"))

	claimed, err = s.ClaimDueActions(ctx, now.Add(2*time.Hour))
	assert.NoError(err)
	assert.Len(claimed, 1)
	assert.NotEqual(dueID, claimed[0].ID)
}

func TestCreateCaseWithExpiryPairsAction(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s := testStore(t)

	expires := time.Now().Add(7 * 24 * time.Hour)
	caseID, actionID, err := s.CreateCaseWithExpiry(ctx, &models.ModerationCase{
		CommunityID:   "g1",
		SubjectUserID: "u1",
		Action:        models.CaseActionTempban,
		Reason:        "repeat offender",
		ExpiresAt:     &expires,
	}, models.ActionKindUnban, `{"reason":"temporary ban expired"}`)
	assert.NoError(err)
	assert.NotZero(caseID)
	assert.NotZero(actionID)

	// plain CreateCase refuses future obligations
	exp2 := time.Now().Add(time.Hour)
	_, err = s.CreateCase(ctx, &models.ModerationCase{
		CommunityID: "g1", SubjectUserID: "u2",
		Action: models.CaseActionMute, Reason: "x", ExpiresAt: &exp2,
	})
	assert.Error(err)
}

func TestReverseCaseCancelsPendingAction(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s := testStore(t)

	expires := time.Now().Add(24 * time.Hour)
	caseID, actionID, err := s.CreateCaseWithExpiry(ctx, &models.ModerationCase{
		CommunityID:   "g1",
		SubjectUserID: "u1",
		Action:        models.CaseActionTempban,
		Reason:        "x",
		ExpiresAt:     &expires,
	}, models.ActionKindUnban, "{}")
	assert.NoError(err)

	assert.NoError(s.ReverseCase(ctx, caseID, "mod-1"))

	claimed, err := s.ClaimDueActions(ctx, expires.Add(time.Minute))
	assert.NoError(err)
	assert.Empty(claimed, "cancelled action %d must not be claimable", actionID)

	cases, err := s.QueryCasesForUser(ctx, "g1", "u1")
	assert.NoError(err)
	assert.Len(cases, 1)
	assert.Equal(models.CaseStatusReversed, cases[0].Status)
}

func TestCountWarningPoints(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s := testStore(t)

	for _, sev := range []int{2, 3} {
		_, err := s.CreateCase(ctx, &models.ModerationCase{
			CommunityID: "g1", SubjectUserID: "u1",
			Action: models.CaseActionWarn, Reason: "x", Severity: sev,
		})
		assert.NoError(err)
	}
	// other actions and other users don't count
	_, err := s.CreateCase(ctx, &models.ModerationCase{
		CommunityID: "g1", SubjectUserID: "u1",
		Action: models.CaseActionKick, Reason: "x", Severity: 10,
	})
	assert.NoError(err)
	_, err = s.CreateCase(ctx, &models.ModerationCase{
		CommunityID: "g1", SubjectUserID: "u2",
		Action: models.CaseActionWarn, Reason: "x", Severity: 4,
	})
	assert.NoError(err)

	total, err := s.CountWarningPoints(ctx, "g1", "u1")
	assert.NoError(err)
	assert.Equal(5, total)
}

func TestEscalateDueTicketsMonotoneAndCapped(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s := testStore(t)

	deadline := time.Now().Add(-time.Hour)
	_, err := s.CreateTicket(ctx, &models.Ticket{
		TicketID:      "ticket-1",
		CommunityID:   "g1",
		SubjectUserID: "u1",
		Priority:      models.TicketPriorityHigh,
		SLADeadline:   &deadline,
	})
	assert.NoError(err)

	now := time.Now()
	esc, err := s.EscalateDueTickets(ctx, now, 2)
	assert.NoError(err)
	assert.Len(esc, 1)
	assert.Equal(1, esc[0].EscalationLevel)
	assert.Equal(models.TicketStatusEscalated, esc[0].Status)

	esc, err = s.EscalateDueTickets(ctx, now, 2)
	assert.NoError(err)
	assert.Len(esc, 1)
	assert.Equal(2, esc[0].EscalationLevel)

	// at the cap, nothing further
	esc, err = s.EscalateDueTickets(ctx, now, 2)
	assert.NoError(err)
	assert.Empty(esc)

	// closed tickets are never escalated
	assert.NoError(s.CloseTicket(ctx, "ticket-1", "staff-1"))
}

func TestRecentJoinCount(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s := testStore(t)

	assert.NoError(s.RecordJoin(ctx, &models.JoinRecord{
		CommunityID: "g1", UserID: "u1",
		JoinedAt: time.Now().Add(-30 * time.Second), Disposition: models.JoinPassed,
	}))
	assert.NoError(s.RecordJoin(ctx, &models.JoinRecord{
		CommunityID: "g1", UserID: "u2",
		JoinedAt: time.Now().Add(-10 * time.Minute), Disposition: models.JoinPassed,
	}))

	n, err := s.RecentJoinCount(ctx, "g1", time.Minute)
	assert.NoError(err)
	assert.Equal(1, n)
}
