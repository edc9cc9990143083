package models

import (
	"time"
)

// CaseAction is the moderation action a case records.
type CaseAction string

const (
	CaseActionWarn       CaseAction = "warn"
	CaseActionMute       CaseAction = "mute"
	CaseActionKick       CaseAction = "kick"
	CaseActionBan        CaseAction = "ban"
	CaseActionSoftban    CaseAction = "softban"
	CaseActionTempban    CaseAction = "tempban"
	CaseActionQuarantine CaseAction = "quarantine"
)

type CaseStatus string

const (
	CaseStatusActive   CaseStatus = "active"
	CaseStatusExpired  CaseStatus = "expired"
	CaseStatusReversed CaseStatus = "reversed"
)

// ModerationCase is the durable record of one moderation decision. Cases are
// never deleted; reversal and expiry only flip Status.
type ModerationCase struct {
	ID            uint64     `gorm:"primaryKey"`
	CommunityID   string     `gorm:"not null;index:idx_case_subject"`
	SubjectUserID string     `gorm:"not null;index:idx_case_subject"`
	Action        CaseAction `gorm:"not null"`
	Reason        string     `gorm:"not null"`
	// nil for system-issued cases
	ModeratorID *string
	Severity    int
	Status      CaseStatus `gorm:"not null;default:active"`
	// set when the deciding engine could not apply the platform action
	// (permission problem); surfaced to operators, never silently dropped
	Unapplied  bool
	CreatedAt  time.Time `gorm:"not null"`
	ExpiresAt  *time.Time
	ReversedAt *time.Time
	ReversedBy *string
}

type JoinDisposition string

const (
	JoinPassed      JoinDisposition = "passed"
	JoinQuarantined JoinDisposition = "quarantined"
	JoinRejected    JoinDisposition = "rejected"
)

// JoinRecord is written once per member join; Disposition is set at
// evaluation time and never mutated afterwards.
type JoinRecord struct {
	ID             uint64    `gorm:"primaryKey"`
	CommunityID    string    `gorm:"not null;index:idx_join_community"`
	UserID         string    `gorm:"not null"`
	JoinedAt       time.Time `gorm:"not null;index:idx_join_community"`
	AccountCreated time.Time
	RiskScore      int
	Disposition    JoinDisposition `gorm:"not null"`
	// newline-separated human-readable scoring reasons
	Reasons string
}

type ActionKind string

const (
	ActionKindUnban          ActionKind = "unban"
	ActionKindRestoreRoles   ActionKind = "restore_roles"
	ActionKindUnlockChannels ActionKind = "unlock_channels"
	ActionKindEscalateTicket ActionKind = "escalate_ticket"
)

type ActionStatus string

const (
	ActionStatusPending   ActionStatus = "pending"
	ActionStatusInFlight  ActionStatus = "in_flight"
	ActionStatusExecuted  ActionStatus = "executed"
	ActionStatusFailed    ActionStatus = "failed"
	ActionStatusCancelled ActionStatus = "cancelled"
)

// ScheduledAction is a deferred obligation with exactly-once transition out of
// pending: a sweep claims pending rows into in_flight before executing, so two
// overlapping sweeps can never both act on one row.
type ScheduledAction struct {
	ID            uint64 `gorm:"primaryKey"`
	CommunityID   string `gorm:"not null"`
	SubjectUserID *string
	Kind          ActionKind `gorm:"not null"`
	// opaque JSON payload, shape depends on Kind
	Payload   string
	ExecuteAt time.Time    `gorm:"not null;index"`
	CreatedBy string       `gorm:"not null"`
	Status    ActionStatus `gorm:"not null;default:pending;index"`
	// failure or cancellation detail
	Detail    string
	CaseID    *uint64 `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "low"
	TicketPriorityMedium   TicketPriority = "medium"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityCritical TicketPriority = "critical"
)

type TicketStatus string

const (
	TicketStatusOpen             TicketStatus = "open"
	TicketStatusInProgress       TicketStatus = "in_progress"
	TicketStatusAwaitingResponse TicketStatus = "awaiting_response"
	TicketStatusEscalated        TicketStatus = "escalated"
	TicketStatusClosed           TicketStatus = "closed"
)

// Ticket is a support/workflow entity that shares the reconciler's SLA sweep.
// EscalationLevel is monotonically non-decreasing; Closed is terminal.
type Ticket struct {
	ID              uint64 `gorm:"primaryKey"`
	TicketID        string `gorm:"uniqueIndex;not null"`
	CommunityID     string `gorm:"not null"`
	SubjectUserID   string `gorm:"not null"`
	Category        string
	Priority        TicketPriority `gorm:"not null;default:medium"`
	Status          TicketStatus   `gorm:"not null;default:open"`
	AssignedTo      *string
	SLADeadline     *time.Time `gorm:"index"`
	EscalationLevel int        `gorm:"not null;default:0"`
	LastActivity    time.Time
	CreatedAt       time.Time
	ClosedAt        *time.Time
}

// SecurityIncident records population-level events (raid bursts, rejected
// members) for operator review.
type SecurityIncident struct {
	ID          uint64 `gorm:"primaryKey"`
	CommunityID string `gorm:"not null;index"`
	Kind        string `gorm:"not null"`
	Description string
	Severity    int
	Resolved    bool `gorm:"not null;default:false"`
	ResolvedBy  *string
	ResolvedAt  *time.Time
	CreatedAt   time.Time `gorm:"not null"`
}

// AutoModViolation is the per-rule audit entry; one row per violated rule,
// written regardless of which response tier fired.
type AutoModViolation struct {
	ID          uint64 `gorm:"primaryKey"`
	CommunityID string `gorm:"not null;index"`
	UserID      string `gorm:"not null"`
	ChannelID   string
	MessageID   string
	Kind        string `gorm:"not null"`
	Detail      string
	Severity    int
	ActionTaken string
	CreatedAt   time.Time `gorm:"not null"`
}

// CommunitySettings holds per-community wiring (channels, roles) plus the
// JSON-encoded moderation config blob.
type CommunitySettings struct {
	CommunityID       string `gorm:"primaryKey"`
	ModLogChannelID   string
	SecurityChannelID string
	QuarantineRoleID  string
	// JSON-encoded config.Community; empty means coded defaults
	Config    string
	UpdatedAt time.Time
}
