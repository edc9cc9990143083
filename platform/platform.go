// Package platform is the boundary to the chat platform's REST surface. The
// detection engines depend only on the Client interface; the real transport
// lives in rest.go and a recording fake in testing.go.
package platform

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies platform call failures for the engines' control flow.
type ErrorKind int

const (
	// ErrTransient covers rate limits, network hiccups, and 5xx responses.
	// Logged and abandoned for the current event; retry policy belongs to the
	// caller of the platform API, not the detection engines.
	ErrTransient ErrorKind = iota
	// ErrPermissionDenied means the bot lacks the rights for the action.
	ErrPermissionDenied
	// ErrNotFound means the target no longer exists (message already deleted,
	// user already gone).
	ErrNotFound
)

// Error is the failure type returned by Client implementations.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("platform %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func IsPermissionDenied(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == ErrPermissionDenied
}

func IsNotFound(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == ErrNotFound
}

// MemberMeta is the gateway's view of a community member, fetched on demand
// and cached by the engines.
type MemberMeta struct {
	UserID    string
	Username  string
	CreatedAt time.Time
	HasAvatar bool
	IsBot     bool
	// elevated-trust capability: bypasses all content rules
	IsModerator bool
	Roles       []string
}

// RoleSpec describes a role for EnsureRole. AllowNameHints lists channel-name
// substrings (e.g. "quarantine", "verify") where the role keeps permission to
// interact; everywhere else interaction is denied.
type RoleSpec struct {
	Name           string   `json:"name"`
	Color          string   `json:"color,omitempty"`
	DenyInteract   bool     `json:"deny_interact"`
	AllowNameHints []string `json:"allow_name_hints,omitempty"`
}

// NotificationField is one labeled value inside a structured notification.
type NotificationField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Notification is structured content for mod-log and security channels. The
// platform side renders it; warden only fills it in.
type Notification struct {
	Title  string              `json:"title"`
	Body   string              `json:"body,omitempty"`
	Fields []NotificationField `json:"fields,omitempty"`
}

// Client is the outbound platform action surface. All calls are bounded by
// the platform transport's own timeouts; every failure is an *Error.
type Client interface {
	DeleteMessage(ctx context.Context, communityID, channelID, messageID string) error
	ApplyTimeout(ctx context.Context, communityID, userID string, until time.Time, reason string) error
	Kick(ctx context.Context, communityID, userID, reason string) error
	Ban(ctx context.Context, communityID, userID, reason string, deleteHistoryDays int) error
	Unban(ctx context.Context, communityID, userID, reason string) error
	AssignRole(ctx context.Context, communityID, userID, roleID string) error
	RemoveRole(ctx context.Context, communityID, userID, roleID string) error
	// EnsureRole is an idempotent get-or-create keyed on the role name.
	EnsureRole(ctx context.Context, communityID string, spec RoleSpec) (string, error)
	UnlockChannel(ctx context.Context, communityID, channelID string) error
	SendNotification(ctx context.Context, communityID, channelID string, note Notification) error
	GetMember(ctx context.Context, communityID, userID string) (*MemberMeta, error)
}
