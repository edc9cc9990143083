package config

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/haven-social/warden/models"
)

func TestDefaultCommunity(t *testing.T) {
	assert := assert.New(t)

	cfg := DefaultCommunity()
	assert.True(cfg.AutoMod.Enabled)
	assert.Equal(70, cfg.AutoMod.CapsThreshold)
	assert.Equal(6, cfg.AutoMod.SpamThreshold)
	assert.Equal(5*time.Minute, cfg.AutoMod.TimeoutMedium())
	assert.Equal(10*time.Minute, cfg.AutoMod.TimeoutHigh())

	assert.Equal(10, cfg.AntiRaid.JoinThreshold)
	assert.Equal(time.Minute, cfg.AntiRaid.TimeWindow())
	assert.Equal(7*24*time.Hour, cfg.AntiRaid.AccountAgeThreshold())
	assert.Equal(RejectKick, cfg.AntiRaid.Action)

	assert.Equal(time.Hour, cfg.Tickets.SLAFor(models.TicketPriorityCritical))
	assert.Equal(72*time.Hour, cfg.Tickets.SLAFor(models.TicketPriorityLow))
	// unknown priorities get the medium budget
	assert.Equal(24*time.Hour, cfg.Tickets.SLAFor(models.TicketPriority("whatever")))
}

type stubSource struct {
	settings *models.CommunitySettings
}

func (s *stubSource) GetCommunitySettings(ctx context.Context, communityID string) (*models.CommunitySettings, error) {
	return s.settings, nil
}

func (s *stubSource) PutCommunitySettings(ctx context.Context, settings *models.CommunitySettings) error {
	s.settings = settings
	return nil
}

func TestLoaderFallsBackToDefaults(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	// no stored row at all
	l := NewLoader(&stubSource{}, slog.Default())
	cfg := l.Community(ctx, "g1")
	assert.Equal(DefaultCommunity(), cfg)

	// stored row with a garbage blob
	l = NewLoader(&stubSource{settings: &models.CommunitySettings{
		CommunityID: "g1",
		Config:      "{not json",
	}}, slog.Default())
	cfg = l.Community(ctx, "g1")
	assert.Equal(DefaultCommunity(), cfg)
}

func TestLoaderStoredOverrides(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	custom := DefaultCommunity()
	custom.AutoMod.SpamThreshold = 3
	custom.AntiRaid.Action = RejectBan
	blob, err := json.Marshal(custom)
	assert.NoError(err)

	src := &stubSource{settings: &models.CommunitySettings{
		CommunityID: "g1",
		Config:      string(blob),
	}}
	l := NewLoader(src, slog.Default())

	cfg := l.Community(ctx, "g1")
	assert.Equal(3, cfg.AutoMod.SpamThreshold)
	assert.Equal(RejectBan, cfg.AntiRaid.Action)

	// cached until invalidated
	src.settings.Config = ""
	cfg = l.Community(ctx, "g1")
	assert.Equal(3, cfg.AutoMod.SpamThreshold)

	l.Invalidate("g1")
	cfg = l.Community(ctx, "g1")
	assert.Equal(DefaultCommunity().AutoMod.SpamThreshold, cfg.AutoMod.SpamThreshold)
}

func TestChannelLookups(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	l := NewLoader(&stubSource{}, slog.Default())
	_, err := l.ModLogChannel(ctx, "g1")
	assert.ErrorIs(err, ErrNotConfigured)

	l = NewLoader(&stubSource{settings: &models.CommunitySettings{
		CommunityID:       "g1",
		ModLogChannelID:   "modlog",
		SecurityChannelID: "security",
	}}, slog.Default())

	ch, err := l.ModLogChannel(ctx, "g1")
	assert.NoError(err)
	assert.Equal("modlog", ch)
	ch, err = l.SecurityChannel(ctx, "g1")
	assert.NoError(err)
	assert.Equal("security", ch)
}
