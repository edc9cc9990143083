package config

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/haven-social/warden/models"
)

// ErrNotConfigured marks an optional wiring gap (no mod-log channel, no
// security channel). Callers skip the affected notification step and carry on;
// it must never suppress the underlying moderation action.
var ErrNotConfigured = fmt.Errorf("community wiring not configured")

// SettingsSource is the slice of the case store the loader needs.
type SettingsSource interface {
	GetCommunitySettings(ctx context.Context, communityID string) (*models.CommunitySettings, error)
	PutCommunitySettings(ctx context.Context, settings *models.CommunitySettings) error
}

// Loader resolves per-community policy from the store, with defaults for
// unconfigured communities and a short-TTL read cache so the hot message path
// does not hit the DB per event.
type Loader struct {
	Source SettingsSource
	Logger *slog.Logger

	cache *expirable.LRU[string, Community]
}

func NewLoader(source SettingsSource, logger *slog.Logger) *Loader {
	return &Loader{
		Source: source,
		Logger: logger,
		cache:  expirable.NewLRU[string, Community](4096, nil, 30*time.Second),
	}
}

// Community returns the policy for a community. A missing or unparsable
// stored config falls back to defaults; parse failures are logged, not fatal.
func (l *Loader) Community(ctx context.Context, communityID string) Community {
	if cfg, ok := l.cache.Get(communityID); ok {
		return cfg
	}
	cfg := DefaultCommunity()
	settings, err := l.Source.GetCommunitySettings(ctx, communityID)
	if err != nil {
		l.Logger.Warn("loading community settings failed, using defaults", "community", communityID, "err", err)
		return cfg
	}
	if settings != nil && settings.Config != "" {
		if err := json.Unmarshal([]byte(settings.Config), &cfg); err != nil {
			l.Logger.Warn("invalid community config blob, using defaults", "community", communityID, "err", err)
			cfg = DefaultCommunity()
		}
	}
	l.cache.Add(communityID, cfg)
	return cfg
}

// Settings returns the raw wiring row (channels, quarantine role). Unlike
// Community this is not cached: callers that mutate it need fresh reads.
func (l *Loader) Settings(ctx context.Context, communityID string) (*models.CommunitySettings, error) {
	return l.Source.GetCommunitySettings(ctx, communityID)
}

// ModLogChannel returns the configured mod-log channel or ErrNotConfigured.
func (l *Loader) ModLogChannel(ctx context.Context, communityID string) (string, error) {
	settings, err := l.Source.GetCommunitySettings(ctx, communityID)
	if err != nil {
		return "", err
	}
	if settings == nil || settings.ModLogChannelID == "" {
		return "", ErrNotConfigured
	}
	return settings.ModLogChannelID, nil
}

// SecurityChannel returns the configured security alert channel or ErrNotConfigured.
func (l *Loader) SecurityChannel(ctx context.Context, communityID string) (string, error) {
	settings, err := l.Source.GetCommunitySettings(ctx, communityID)
	if err != nil {
		return "", err
	}
	if settings == nil || settings.SecurityChannelID == "" {
		return "", ErrNotConfigured
	}
	return settings.SecurityChannelID, nil
}

// Invalidate drops a community from the read cache, for use after config writes.
func (l *Loader) Invalidate(communityID string) {
	l.cache.Remove(communityID)
}
