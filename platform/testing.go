package platform

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Call records one invocation against the Recorder, for assertions.
type Call struct {
	Op          string
	CommunityID string
	UserID      string
	ChannelID   string
	MessageID   string
	RoleID      string
	Until       time.Time
	Reason      string
	Note        Notification
}

// Recorder is an in-memory Client for tests. Errs maps op name to a forced
// error; Members seeds GetMember responses keyed "community/user".
type Recorder struct {
	lk      sync.Mutex
	Calls   []Call
	Errs    map[string]error
	Members map[string]*MemberMeta
	// role name -> id handed out by EnsureRole
	roles map[string]string
}

func NewRecorder() *Recorder {
	return &Recorder{
		Errs:    make(map[string]error),
		Members: make(map[string]*MemberMeta),
		roles:   make(map[string]string),
	}
}

func (r *Recorder) record(c Call) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	r.Calls = append(r.Calls, c)
	if err, ok := r.Errs[c.Op]; ok {
		return err
	}
	return nil
}

// CallsFor returns the recorded calls matching op.
func (r *Recorder) CallsFor(op string) []Call {
	r.lk.Lock()
	defer r.lk.Unlock()
	var out []Call
	for _, c := range r.Calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func (r *Recorder) DeleteMessage(ctx context.Context, communityID, channelID, messageID string) error {
	return r.record(Call{Op: "deleteMessage", CommunityID: communityID, ChannelID: channelID, MessageID: messageID})
}

func (r *Recorder) ApplyTimeout(ctx context.Context, communityID, userID string, until time.Time, reason string) error {
	return r.record(Call{Op: "applyTimeout", CommunityID: communityID, UserID: userID, Until: until, Reason: reason})
}

func (r *Recorder) Kick(ctx context.Context, communityID, userID, reason string) error {
	return r.record(Call{Op: "kick", CommunityID: communityID, UserID: userID, Reason: reason})
}

func (r *Recorder) Ban(ctx context.Context, communityID, userID, reason string, deleteHistoryDays int) error {
	return r.record(Call{Op: "ban", CommunityID: communityID, UserID: userID, Reason: reason})
}

func (r *Recorder) Unban(ctx context.Context, communityID, userID, reason string) error {
	return r.record(Call{Op: "unban", CommunityID: communityID, UserID: userID, Reason: reason})
}

func (r *Recorder) AssignRole(ctx context.Context, communityID, userID, roleID string) error {
	return r.record(Call{Op: "assignRole", CommunityID: communityID, UserID: userID, RoleID: roleID})
}

func (r *Recorder) RemoveRole(ctx context.Context, communityID, userID, roleID string) error {
	return r.record(Call{Op: "removeRole", CommunityID: communityID, UserID: userID, RoleID: roleID})
}

func (r *Recorder) EnsureRole(ctx context.Context, communityID string, spec RoleSpec) (string, error) {
	if err := r.record(Call{Op: "ensureRole", CommunityID: communityID}); err != nil {
		return "", err
	}
	r.lk.Lock()
	defer r.lk.Unlock()
	key := communityID + "/" + spec.Name
	if id, ok := r.roles[key]; ok {
		return id, nil
	}
	id := fmt.Sprintf("role-%d", len(r.roles)+1)
	r.roles[key] = id
	return id, nil
}

func (r *Recorder) UnlockChannel(ctx context.Context, communityID, channelID string) error {
	return r.record(Call{Op: "unlockChannel", CommunityID: communityID, ChannelID: channelID})
}

func (r *Recorder) SendNotification(ctx context.Context, communityID, channelID string, note Notification) error {
	return r.record(Call{Op: "sendNotification", CommunityID: communityID, ChannelID: channelID, Note: note})
}

func (r *Recorder) GetMember(ctx context.Context, communityID, userID string) (*MemberMeta, error) {
	if err := r.record(Call{Op: "getMember", CommunityID: communityID, UserID: userID}); err != nil {
		return nil, err
	}
	r.lk.Lock()
	defer r.lk.Unlock()
	if m, ok := r.Members[communityID+"/"+userID]; ok {
		return m, nil
	}
	// unknown members look like ordinary established accounts
	return &MemberMeta{
		UserID:    userID,
		Username:  "member-" + userID,
		CreatedAt: time.Now().Add(-365 * 24 * time.Hour),
		HasAvatar: true,
	}, nil
}
