package automod

import (
	"context"
	"log/slog"
	"time"

	"github.com/haven-social/warden/config"
	"github.com/haven-social/warden/gateway"
	"github.com/haven-social/warden/models"
	"github.com/haven-social/warden/platform"
	"github.com/haven-social/warden/windowstore"
)

// MemSettings is a map-backed config.SettingsSource for tests.
type MemSettings struct {
	Rows map[string]*models.CommunitySettings
}

func NewMemSettings() *MemSettings {
	return &MemSettings{Rows: make(map[string]*models.CommunitySettings)}
}

func (m *MemSettings) GetCommunitySettings(ctx context.Context, communityID string) (*models.CommunitySettings, error) {
	return m.Rows[communityID], nil
}

func (m *MemSettings) PutCommunitySettings(ctx context.Context, settings *models.CommunitySettings) error {
	m.Rows[settings.CommunityID] = settings
	return nil
}

// EngineTestFixture builds an engine on in-memory state and the platform
// recorder. Rules and Store start empty; tests fill in what they exercise.
func EngineTestFixture() Engine {
	logger := slog.Default()
	return Engine{
		Logger:      logger,
		Configs:     config.NewLoader(NewMemSettings(), logger),
		Platform:    platform.NewRecorder(),
		SpamTracker: windowstore.NewMemWindowStore(10 * time.Second),
		History:     windowstore.NewHistoryStore(1024, time.Minute, 10),
		MemberCache: NewMemberCache(),
	}
}

// NewMessageContext builds a rule-ready context for one message, resolving
// the community policy the way ProcessMessage does.
func (eng *Engine) NewMessageContext(ctx context.Context, communityID string, msg gateway.MessageEvent) MessageContext {
	cfg := eng.Configs.Community(ctx, communityID)
	return MessageContext{
		Ctx:         ctx,
		Logger:      eng.Logger.With("community", communityID, "author", msg.AuthorID),
		CommunityID: communityID,
		Msg:         msg,
		Config:      cfg.AutoMod,
		engine:      eng,
		effects:     &Effects{},
	}
}
