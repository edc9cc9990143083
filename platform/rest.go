package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

// RESTClient talks to the platform's moderation REST API. Transient failures
// are retried by the underlying retryablehttp client; an outbound rate limiter
// keeps warden under the platform's global request budget.
type RESTClient struct {
	Host  string
	Token string

	http    *retryablehttp.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewRESTClient(host, token string, requestsPerSec int, logger *slog.Logger) *RESTClient {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 250 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.Logger = nil
	rc.HTTPClient.Timeout = 30 * time.Second
	return &RESTClient{
		Host:    host,
		Token:   token,
		http:    rc,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSec), requestsPerSec),
		logger:  logger.With("system", "platform-rest"),
	}
}

func (c *RESTClient) do(ctx context.Context, op, method, path string, body any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &Error{Kind: ErrTransient, Op: op, Err: err}
	}

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: ErrTransient, Op: op, Err: err}
		}
		rdr = bytes.NewReader(b)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.Host+path, rdr)
	if err != nil {
		return &Error{Kind: ErrTransient, Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Kind: ErrTransient, Op: op, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden:
		return &Error{Kind: ErrPermissionDenied, Op: op, Err: fmt.Errorf("HTTP 403")}
	case resp.StatusCode == http.StatusNotFound:
		return &Error{Kind: ErrNotFound, Op: op, Err: fmt.Errorf("HTTP 404")}
	case resp.StatusCode >= 400:
		return &Error{Kind: ErrTransient, Op: op, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &Error{Kind: ErrTransient, Op: op, Err: fmt.Errorf("decoding response: %w", err)}
		}
	}
	return nil
}

func (c *RESTClient) DeleteMessage(ctx context.Context, communityID, channelID, messageID string) error {
	path := fmt.Sprintf("/api/v1/communities/%s/channels/%s/messages/%s", communityID, channelID, messageID)
	return c.do(ctx, "deleteMessage", http.MethodDelete, path, nil, nil)
}

func (c *RESTClient) ApplyTimeout(ctx context.Context, communityID, userID string, until time.Time, reason string) error {
	path := fmt.Sprintf("/api/v1/communities/%s/members/%s/timeout", communityID, userID)
	body := map[string]any{"until": until.UTC().Format(time.RFC3339), "reason": reason}
	return c.do(ctx, "applyTimeout", http.MethodPut, path, body, nil)
}

func (c *RESTClient) Kick(ctx context.Context, communityID, userID, reason string) error {
	path := fmt.Sprintf("/api/v1/communities/%s/members/%s", communityID, userID)
	body := map[string]any{"reason": reason}
	return c.do(ctx, "kick", http.MethodDelete, path, body, nil)
}

func (c *RESTClient) Ban(ctx context.Context, communityID, userID, reason string, deleteHistoryDays int) error {
	path := fmt.Sprintf("/api/v1/communities/%s/bans/%s", communityID, userID)
	body := map[string]any{"reason": reason, "delete_history_days": deleteHistoryDays}
	return c.do(ctx, "ban", http.MethodPut, path, body, nil)
}

func (c *RESTClient) Unban(ctx context.Context, communityID, userID, reason string) error {
	path := fmt.Sprintf("/api/v1/communities/%s/bans/%s", communityID, userID)
	body := map[string]any{"reason": reason}
	return c.do(ctx, "unban", http.MethodDelete, path, body, nil)
}

func (c *RESTClient) AssignRole(ctx context.Context, communityID, userID, roleID string) error {
	path := fmt.Sprintf("/api/v1/communities/%s/members/%s/roles/%s", communityID, userID, roleID)
	return c.do(ctx, "assignRole", http.MethodPut, path, nil, nil)
}

func (c *RESTClient) RemoveRole(ctx context.Context, communityID, userID, roleID string) error {
	path := fmt.Sprintf("/api/v1/communities/%s/members/%s/roles/%s", communityID, userID, roleID)
	return c.do(ctx, "removeRole", http.MethodDelete, path, nil, nil)
}

func (c *RESTClient) EnsureRole(ctx context.Context, communityID string, spec RoleSpec) (string, error) {
	path := fmt.Sprintf("/api/v1/communities/%s/roles/ensure", communityID)
	var out struct {
		RoleID string `json:"role_id"`
	}
	if err := c.do(ctx, "ensureRole", http.MethodPost, path, spec, &out); err != nil {
		return "", err
	}
	return out.RoleID, nil
}

func (c *RESTClient) UnlockChannel(ctx context.Context, communityID, channelID string) error {
	path := fmt.Sprintf("/api/v1/communities/%s/channels/%s/lock", communityID, channelID)
	return c.do(ctx, "unlockChannel", http.MethodDelete, path, nil, nil)
}

func (c *RESTClient) SendNotification(ctx context.Context, communityID, channelID string, note Notification) error {
	path := fmt.Sprintf("/api/v1/communities/%s/channels/%s/notifications", communityID, channelID)
	return c.do(ctx, "sendNotification", http.MethodPost, path, note, nil)
}

func (c *RESTClient) GetMember(ctx context.Context, communityID, userID string) (*MemberMeta, error) {
	path := fmt.Sprintf("/api/v1/communities/%s/members/%s", communityID, userID)
	var out struct {
		UserID      string    `json:"user_id"`
		Username    string    `json:"username"`
		CreatedAt   time.Time `json:"created_at"`
		HasAvatar   bool      `json:"has_avatar"`
		IsBot       bool      `json:"is_bot"`
		IsModerator bool      `json:"is_moderator"`
		Roles       []string  `json:"roles"`
	}
	if err := c.do(ctx, "getMember", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &MemberMeta{
		UserID:      out.UserID,
		Username:    out.Username,
		CreatedAt:   out.CreatedAt,
		HasAvatar:   out.HasAvatar,
		IsBot:       out.IsBot,
		IsModerator: out.IsModerator,
		Roles:       out.Roles,
	}, nil
}
