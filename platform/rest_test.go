package platform

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRESTClientGetMember(t *testing.T) {
	assert := assert.New(t)

	var gotPath, gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"user_id":      "u1",
			"username":     "alice",
			"created_at":   time.Now().Add(-48 * time.Hour).Format(time.RFC3339),
			"has_avatar":   true,
			"is_moderator": true,
		})
	}))
	defer ts.Close()

	c := NewRESTClient(ts.URL, "secret-token", 100, slog.Default())
	m, err := c.GetMember(context.Background(), "g1", "u1")
	require.NoError(t, err)

	assert.Equal("/api/v1/communities/g1/members/u1", gotPath)
	assert.Equal("Bearer secret-token", gotAuth)
	assert.Equal("alice", m.Username)
	assert.True(m.IsModerator)
}

func TestRESTClientErrorKinds(t *testing.T) {
	assert := assert.New(t)

	status := http.StatusForbidden
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	defer ts.Close()

	c := NewRESTClient(ts.URL, "tok", 100, slog.Default())
	ctx := context.Background()

	err := c.Kick(ctx, "g1", "u1", "nope")
	assert.True(IsPermissionDenied(err))
	assert.False(IsNotFound(err))

	status = http.StatusNotFound
	err = c.Unban(ctx, "g1", "u1", "expired")
	assert.True(IsNotFound(err))

	status = http.StatusBadRequest
	err = c.DeleteMessage(ctx, "g1", "ch1", "m1")
	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(ErrTransient, pe.Kind)
	assert.Equal("deleteMessage", pe.Op)
}
