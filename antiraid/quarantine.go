package antiraid

import (
	"context"
	"fmt"
	"time"

	"github.com/haven-social/warden/models"
	"github.com/haven-social/warden/platform"
)

// QuarantineRoleName is the role EnsureRole provisions when a community has
// none configured.
const QuarantineRoleName = "Quarantine"

// Quarantine puts a member behind the community's quarantine role,
// provisioning the role on first use. The provisioned role denies
// interaction everywhere except verification-style channels, and its ID is
// persisted so later joins skip the provisioning round trip.
func (d *Detector) Quarantine(ctx context.Context, communityID, userID string) error {
	roleID, err := d.quarantineRole(ctx, communityID)
	if err != nil {
		return fmt.Errorf("resolving quarantine role: %w", err)
	}
	return d.Platform.AssignRole(ctx, communityID, userID, roleID)
}

func (d *Detector) quarantineRole(ctx context.Context, communityID string) (string, error) {
	settings, err := d.Configs.Settings(ctx, communityID)
	if err != nil {
		return "", err
	}
	if settings != nil && settings.QuarantineRoleID != "" {
		return settings.QuarantineRoleID, nil
	}

	roleID, err := d.Platform.EnsureRole(ctx, communityID, platform.RoleSpec{
		Name:           QuarantineRoleName,
		DenyInteract:   true,
		AllowNameHints: []string{"quarantine", "verify"},
	})
	if err != nil {
		return "", err
	}

	if settings == nil {
		settings = &models.CommunitySettings{CommunityID: communityID}
	}
	settings.QuarantineRoleID = roleID
	settings.UpdatedAt = time.Now()
	if err := d.Configs.Source.PutCommunitySettings(ctx, settings); err != nil {
		// role exists on the platform either way; next join re-resolves it
		d.Logger.Warn("persisting quarantine role failed", "community", communityID, "err", err)
	}
	d.Configs.Invalidate(communityID)
	return roleID, nil
}
