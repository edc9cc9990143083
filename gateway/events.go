// Package gateway defines the ingress event stream: the wire event types the
// platform gateway delivers, a websocket subscriber, and a keyed scheduler
// that keeps per-community ordering while communities run in parallel.
package gateway

import (
	"time"
)

type EventKind string

const (
	EventKindMessage     EventKind = "message"
	EventKindMemberJoin  EventKind = "member_join"
	EventKindMemberLeave EventKind = "member_leave"
	EventKindReaction    EventKind = "reaction"
)

// Event is the discriminated union delivered by the gateway. Exactly one of
// the payload pointers is set, matching Kind. Events are consumed once and
// never persisted as-is.
type Event struct {
	Kind        EventKind `json:"kind"`
	CommunityID string    `json:"community_id"`
	// per-community timestamps are monotonically non-decreasing; no ordering
	// across communities
	Time time.Time `json:"time"`

	Message *MessageEvent     `json:"message,omitempty"`
	Join    *MemberJoinEvent  `json:"join,omitempty"`
	Leave   *MemberLeaveEvent `json:"leave,omitempty"`
	React   *ReactionEvent    `json:"reaction,omitempty"`
}

type MessageEvent struct {
	MessageID string `json:"message_id"`
	ChannelID string `json:"channel_id"`
	AuthorID  string `json:"author_id"`
	Content   string `json:"content"`
	// resolved mention lists, as delivered by the gateway
	UserMentions []string `json:"user_mentions,omitempty"`
	RoleMentions []string `json:"role_mentions,omitempty"`
}

type MemberJoinEvent struct {
	UserID         string    `json:"user_id"`
	Username       string    `json:"username"`
	AccountCreated time.Time `json:"account_created"`
	HasAvatar      bool      `json:"has_avatar"`
	IsBot          bool      `json:"is_bot"`
}

type MemberLeaveEvent struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

type ReactionEvent struct {
	MessageID string `json:"message_id"`
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
	Emoji     string `json:"emoji"`
	Removed   bool   `json:"removed,omitempty"`
}
