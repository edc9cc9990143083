package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/haven-social/warden/models"
)

// GormStore is the gorm-backed Store implementation, usable against sqlite
// (single process) and postgres.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

var _ Store = (*GormStore)(nil)

func (s *GormStore) CreateCase(ctx context.Context, c *models.ModerationCase) (uint64, error) {
	if c.ExpiresAt != nil {
		return 0, fmt.Errorf("case with expiry must be created via CreateCaseWithExpiry")
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	if c.Status == "" {
		c.Status = models.CaseStatusActive
	}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return 0, fmt.Errorf("creating case: %w", err)
	}
	return c.ID, nil
}

func (s *GormStore) CreateCaseWithExpiry(ctx context.Context, c *models.ModerationCase, kind models.ActionKind, payload string) (uint64, uint64, error) {
	if c.ExpiresAt == nil {
		return 0, 0, fmt.Errorf("CreateCaseWithExpiry requires ExpiresAt")
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	if c.Status == "" {
		c.Status = models.CaseStatusActive
	}
	var action models.ScheduledAction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(c).Error; err != nil {
			return err
		}
		createdBy := "system"
		if c.ModeratorID != nil {
			createdBy = *c.ModeratorID
		}
		subject := c.SubjectUserID
		action = models.ScheduledAction{
			CommunityID:   c.CommunityID,
			SubjectUserID: &subject,
			Kind:          kind,
			Payload:       payload,
			ExecuteAt:     *c.ExpiresAt,
			CreatedBy:     createdBy,
			Status:        models.ActionStatusPending,
			CaseID:        &c.ID,
		}
		return tx.Create(&action).Error
	})
	if err != nil {
		return 0, 0, fmt.Errorf("creating case with expiry: %w", err)
	}
	return c.ID, action.ID, nil
}

func (s *GormStore) UpdateCaseStatus(ctx context.Context, caseID uint64, status models.CaseStatus) error {
	res := s.db.WithContext(ctx).Model(&models.ModerationCase{}).
		Where("id = ?", caseID).
		Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("updating case status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("case %d not found", caseID)
	}
	return nil
}

func (s *GormStore) ReverseCase(ctx context.Context, caseID uint64, by string) error {
	now := time.Now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.ModerationCase{}).
			Where("id = ? AND status = ?", caseID, models.CaseStatusActive).
			Updates(map[string]any{
				"status":      models.CaseStatusReversed,
				"reversed_at": now,
				"reversed_by": by,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("case %d not active", caseID)
		}
		// only still-pending actions are cancellable; in_flight ones finish
		return tx.Model(&models.ScheduledAction{}).
			Where("case_id = ? AND status = ?", caseID, models.ActionStatusPending).
			Updates(map[string]any{
				"status": models.ActionStatusCancelled,
				"detail": "case reversed by " + by,
			}).Error
	})
}

func (s *GormStore) QueryCasesForUser(ctx context.Context, communityID, userID string) ([]models.ModerationCase, error) {
	var cases []models.ModerationCase
	err := s.db.WithContext(ctx).
		Where("community_id = ? AND subject_user_id = ?", communityID, userID).
		Order("created_at desc").
		Find(&cases).Error
	if err != nil {
		return nil, fmt.Errorf("querying cases: %w", err)
	}
	return cases, nil
}

func (s *GormStore) CountWarningPoints(ctx context.Context, communityID, userID string) (int, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&models.ModerationCase{}).
		Select("COALESCE(SUM(severity), 0)").
		Where("community_id = ? AND subject_user_id = ? AND action = ? AND status = ?",
			communityID, userID, models.CaseActionWarn, models.CaseStatusActive).
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("counting warning points: %w", err)
	}
	return int(total), nil
}

func (s *GormStore) RecordViolations(ctx context.Context, violations []models.AutoModViolation) error {
	if len(violations) == 0 {
		return nil
	}
	for i := range violations {
		if violations[i].CreatedAt.IsZero() {
			violations[i].CreatedAt = time.Now()
		}
	}
	if err := s.db.WithContext(ctx).Create(&violations).Error; err != nil {
		return fmt.Errorf("recording violations: %w", err)
	}
	return nil
}

func (s *GormStore) CreateScheduledAction(ctx context.Context, a *models.ScheduledAction) (uint64, error) {
	if a.Status == "" {
		a.Status = models.ActionStatusPending
	}
	if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
		return 0, fmt.Errorf("creating scheduled action: %w", err)
	}
	return a.ID, nil
}

func (s *GormStore) ClaimDueActions(ctx context.Context, now time.Time) ([]models.ScheduledAction, error) {
	var due []models.ScheduledAction
	err := s.db.WithContext(ctx).
		Where("status = ? AND execute_at <= ?", models.ActionStatusPending, now).
		Order("execute_at asc").
		Find(&due).Error
	if err != nil {
		return nil, fmt.Errorf("selecting due actions: %w", err)
	}

	var claimed []models.ScheduledAction
	for _, a := range due {
		// per-row CAS: only one sweep wins the pending -> in_flight move
		res := s.db.WithContext(ctx).Model(&models.ScheduledAction{}).
			Where("id = ? AND status = ?", a.ID, models.ActionStatusPending).
			Update("status", models.ActionStatusInFlight)
		if res.Error != nil {
			return claimed, fmt.Errorf("claiming action %d: %w", a.ID, res.Error)
		}
		if res.RowsAffected == 1 {
			a.Status = models.ActionStatusInFlight
			claimed = append(claimed, a)
		}
	}
	return claimed, nil
}

func (s *GormStore) MarkActionOutcome(ctx context.Context, actionID uint64, status models.ActionStatus, detail string) error {
	if status != models.ActionStatusExecuted && status != models.ActionStatusFailed {
		return fmt.Errorf("invalid outcome status: %s", status)
	}
	res := s.db.WithContext(ctx).Model(&models.ScheduledAction{}).
		Where("id = ? AND status = ?", actionID, models.ActionStatusInFlight).
		Updates(map[string]any{"status": status, "detail": detail})
	if res.Error != nil {
		return fmt.Errorf("marking action outcome: %w", res.Error)
	}
	// zero rows means the action was already terminal; that is fine
	return nil
}

func (s *GormStore) RecordJoin(ctx context.Context, j *models.JoinRecord) error {
	if j.JoinedAt.IsZero() {
		j.JoinedAt = time.Now()
	}
	if err := s.db.WithContext(ctx).Create(j).Error; err != nil {
		return fmt.Errorf("recording join: %w", err)
	}
	return nil
}

func (s *GormStore) RecentJoinCount(ctx context.Context, communityID string, window time.Duration) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.JoinRecord{}).
		Where("community_id = ? AND joined_at > ?", communityID, time.Now().Add(-window)).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("counting recent joins: %w", err)
	}
	return int(count), nil
}

func (s *GormStore) CreateIncident(ctx context.Context, inc *models.SecurityIncident) (uint64, error) {
	if inc.CreatedAt.IsZero() {
		inc.CreatedAt = time.Now()
	}
	if err := s.db.WithContext(ctx).Create(inc).Error; err != nil {
		return 0, fmt.Errorf("creating incident: %w", err)
	}
	return inc.ID, nil
}

func (s *GormStore) ResolveIncident(ctx context.Context, incidentID uint64, by string) error {
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&models.SecurityIncident{}).
		Where("id = ? AND resolved = ?", incidentID, false).
		Updates(map[string]any{"resolved": true, "resolved_by": by, "resolved_at": now})
	if res.Error != nil {
		return fmt.Errorf("resolving incident: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("incident %d not found or already resolved", incidentID)
	}
	return nil
}

func (s *GormStore) CreateTicket(ctx context.Context, t *models.Ticket) (uint64, error) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	if t.LastActivity.IsZero() {
		t.LastActivity = t.CreatedAt
	}
	if t.Status == "" {
		t.Status = models.TicketStatusOpen
	}
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		return 0, fmt.Errorf("creating ticket: %w", err)
	}
	return t.ID, nil
}

func (s *GormStore) EscalateDueTickets(ctx context.Context, now time.Time, maxLevel int) ([]models.Ticket, error) {
	var due []models.Ticket
	err := s.db.WithContext(ctx).
		Where("sla_deadline IS NOT NULL AND sla_deadline < ? AND escalation_level < ? AND status <> ?",
			now, maxLevel, models.TicketStatusClosed).
		Find(&due).Error
	if err != nil {
		return nil, fmt.Errorf("selecting due tickets: %w", err)
	}

	var escalated []models.Ticket
	for _, t := range due {
		// CAS on the current level keeps escalation monotone under overlap
		res := s.db.WithContext(ctx).Model(&models.Ticket{}).
			Where("id = ? AND escalation_level = ?", t.ID, t.EscalationLevel).
			Updates(map[string]any{
				"escalation_level": t.EscalationLevel + 1,
				"status":           models.TicketStatusEscalated,
				"last_activity":    now,
			})
		if res.Error != nil {
			return escalated, fmt.Errorf("escalating ticket %d: %w", t.ID, res.Error)
		}
		if res.RowsAffected == 1 {
			t.EscalationLevel++
			t.Status = models.TicketStatusEscalated
			escalated = append(escalated, t)
		}
	}
	return escalated, nil
}

func (s *GormStore) EscalateTicket(ctx context.Context, ticketID string, maxLevel int) (*models.Ticket, error) {
	var t models.Ticket
	err := s.db.WithContext(ctx).First(&t, "ticket_id = ?", ticketID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("ticket %s not found", ticketID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading ticket: %w", err)
	}
	if t.Status == models.TicketStatusClosed {
		return nil, fmt.Errorf("ticket %s is closed", ticketID)
	}
	if t.EscalationLevel >= maxLevel {
		return &t, nil
	}
	res := s.db.WithContext(ctx).Model(&models.Ticket{}).
		Where("id = ? AND escalation_level = ?", t.ID, t.EscalationLevel).
		Updates(map[string]any{
			"escalation_level": t.EscalationLevel + 1,
			"status":           models.TicketStatusEscalated,
			"last_activity":    time.Now(),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("escalating ticket %s: %w", ticketID, res.Error)
	}
	if res.RowsAffected == 1 {
		t.EscalationLevel++
		t.Status = models.TicketStatusEscalated
	}
	return &t, nil
}

func (s *GormStore) ListOpenTicketsWithDeadline(ctx context.Context, after time.Time) ([]models.Ticket, error) {
	var out []models.Ticket
	err := s.db.WithContext(ctx).
		Where("status <> ? AND sla_deadline IS NOT NULL AND sla_deadline > ?",
			models.TicketStatusClosed, after).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("listing open tickets: %w", err)
	}
	return out, nil
}

func (s *GormStore) CloseTicket(ctx context.Context, ticketID string, by string) error {
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&models.Ticket{}).
		Where("ticket_id = ? AND status <> ?", ticketID, models.TicketStatusClosed).
		Updates(map[string]any{
			"status":        models.TicketStatusClosed,
			"closed_at":     now,
			"last_activity": now,
		})
	if res.Error != nil {
		return fmt.Errorf("closing ticket: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("ticket %s not found or already closed", ticketID)
	}
	return nil
}

func (s *GormStore) GetCommunitySettings(ctx context.Context, communityID string) (*models.CommunitySettings, error) {
	var settings models.CommunitySettings
	err := s.db.WithContext(ctx).First(&settings, "community_id = ?", communityID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading community settings: %w", err)
	}
	return &settings, nil
}

func (s *GormStore) PutCommunitySettings(ctx context.Context, settings *models.CommunitySettings) error {
	settings.UpdatedAt = time.Now()
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(settings).Error
	if err != nil {
		return fmt.Errorf("saving community settings: %w", err)
	}
	return nil
}

func (s *GormStore) PruneExpiredCases(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("created_at < ? AND action NOT IN ?", cutoff,
			[]models.CaseAction{models.CaseActionBan, models.CaseActionTempban}).
		Delete(&models.ModerationCase{})
	if res.Error != nil {
		return 0, fmt.Errorf("pruning cases: %w", res.Error)
	}
	return res.RowsAffected, nil
}
