package antiraid

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/haven-social/warden/config"
	"github.com/haven-social/warden/gateway"
	"github.com/haven-social/warden/models"
	"github.com/haven-social/warden/platform"
	"github.com/haven-social/warden/store"
	"github.com/haven-social/warden/windowstore"
)

func TestSuspiciousUsername(t *testing.T) {
	assert := assert.New(t)

	for _, name := range []string{
		"xyz1234567", "Xyz1234567", "ab99887",
		"free_nitro_here", "discordnitro4u", "nitro-gift", "HavenGift",
		"Admin_Bot", "the_modbot",
	} {
		assert.True(SuspiciousUsername(name), name)
	}

	for _, name := range []string{"alice", "bob_the_builder", "Kay", "gamer42"} {
		assert.False(SuspiciousUsername(name), name)
	}
}

func detectorFixture(t *testing.T) (*Detector, *platform.Recorder, *gorm.DB) {
	t.Helper()
	db, err := store.SetupDatabase("sqlite://:memory:", 1)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(db))

	st := store.NewGormStore(db)
	logger := slog.Default()
	rec := platform.NewRecorder()
	d := NewDetector(logger, config.NewLoader(st, logger), st, rec, windowstore.NewMemWindowStore(time.Minute))
	return d, rec, db
}

func oldAccountJoin(user string) *gateway.MemberJoinEvent {
	return &gateway.MemberJoinEvent{
		UserID:         user,
		Username:       "regular_" + user,
		AccountCreated: time.Now().Add(-90 * 24 * time.Hour),
		HasAvatar:      true,
	}
}

func TestProcessJoinPass(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	d, rec, db := detectorFixture(t)

	assert.NoError(d.ProcessJoin(ctx, "g1", oldAccountJoin("u1")))
	assert.Empty(rec.CallsFor("kick"))
	assert.Empty(rec.CallsFor("assignRole"))

	var recs []models.JoinRecord
	require.NoError(t, db.Find(&recs).Error)
	assert.Len(recs, 1)
	assert.Equal(models.JoinPassed, recs[0].Disposition)
	assert.Equal(0, recs[0].RiskScore)
}

func TestProcessJoinReject(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	d, rec, db := detectorFixture(t)

	// young account (+3), no avatar (+1), generated username (+2) = 6
	err := d.ProcessJoin(ctx, "g1", &gateway.MemberJoinEvent{
		UserID:         "u1",
		Username:       "xyz1234567",
		AccountCreated: time.Now().Add(-time.Hour),
		HasAvatar:      false,
	})
	assert.NoError(err)

	kicks := rec.CallsFor("kick")
	assert.Len(kicks, 1)
	assert.Equal("u1", kicks[0].UserID)

	var recs []models.JoinRecord
	require.NoError(t, db.Find(&recs).Error)
	assert.Len(recs, 1)
	assert.Equal(models.JoinRejected, recs[0].Disposition)
	assert.Equal(6, recs[0].RiskScore)

	var cases []models.ModerationCase
	require.NoError(t, db.Find(&cases).Error)
	assert.Len(cases, 1)
	assert.Equal(models.CaseActionKick, cases[0].Action)
}

func TestProcessJoinQuarantineProvisionsRoleOnce(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	d, rec, db := detectorFixture(t)

	// young account alone (+3) lands in the quarantine band
	young := func(user string) *gateway.MemberJoinEvent {
		return &gateway.MemberJoinEvent{
			UserID:         user,
			Username:       "legit_looking_name",
			AccountCreated: time.Now().Add(-time.Hour),
			HasAvatar:      true,
		}
	}

	assert.NoError(d.ProcessJoin(ctx, "g1", young("u1")))
	assert.NoError(d.ProcessJoin(ctx, "g1", young("u2")))

	// role created once, assigned twice
	assert.Len(rec.CallsFor("ensureRole"), 1)
	assigns := rec.CallsFor("assignRole")
	assert.Len(assigns, 2)
	assert.Equal(assigns[0].RoleID, assigns[1].RoleID)

	var settings models.CommunitySettings
	require.NoError(t, db.First(&settings, "community_id = ?", "g1").Error)
	assert.Equal(assigns[0].RoleID, settings.QuarantineRoleID)
}

func TestRaidBurstOpensOneIncident(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	d, rec, db := detectorFixture(t)

	st := store.NewGormStore(db)
	require.NoError(t, st.PutCommunitySettings(ctx, &models.CommunitySettings{
		CommunityID:       "g1",
		SecurityChannelID: "security",
	}))

	// clean accounts, but the burst penalty alone quarantines them once the
	// rate crosses the threshold
	for i := 0; i < 15; i++ {
		assert.NoError(d.ProcessJoin(ctx, "g1", oldAccountJoin(fmt.Sprintf("u%d", i))))
	}

	var incidents []models.SecurityIncident
	require.NoError(t, db.Find(&incidents).Error)
	assert.Len(incidents, 1)
	assert.Equal("raid_burst", incidents[0].Kind)

	burstNotes := 0
	for _, c := range rec.CallsFor("sendNotification") {
		if c.Note.Title == "AntiRaid: raid burst" {
			burstNotes++
		}
	}
	assert.Equal(1, burstNotes)

	// the 10th join fills the window and opens the incident, but only joins
	// arriving at the already-full window carry the +4 burst score
	var tenth models.JoinRecord
	require.NoError(t, db.First(&tenth, "user_id = ?", "u9").Error)
	assert.Equal(models.JoinPassed, tenth.Disposition)
	assert.Equal(0, tenth.RiskScore)

	var quarantined int64
	require.NoError(t, db.Model(&models.JoinRecord{}).Where("disposition = ?", models.JoinQuarantined).Count(&quarantined).Error)
	assert.Equal(int64(5), quarantined)

	// once the rate subsides the debounce flag clears, and a later burst
	// opens a fresh incident
	d.trackBurst(ctx, d.Logger, "g1", 2, false)
	d.trackBurst(ctx, d.Logger, "g1", 12, true)
	require.NoError(t, db.Find(&incidents).Error)
	assert.Len(incidents, 2)
}
