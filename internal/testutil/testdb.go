package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"org-task-management-api/internal/config"
	"org-task-management-api/internal/database"
	"org-task-management-api/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewTestDB opens a migrated SQLite database in a per-test temp dir. A file
// is used instead of :memory: so every pooled connection sees the same data.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db") + "?_pragma=busy_timeout(5000)"
	db, err := database.Open(config.DatabaseConfig{Driver: "sqlite", DSN: dsn, LogLevel: "silent"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// SeedUser inserts a user with the given org roles.
func SeedUser(t testing.TB, db *gorm.DB, id, name string, roles map[string]models.OrgRole) models.User {
	t.Helper()
	u := models.User{ID: id, Name: name, Email: id + "@example.com"}
	require.NoError(t, db.Create(&u).Error)
	for orgID, role := range roles {
		require.NoError(t, db.Create(&models.Membership{UserID: id, OrganizationID: orgID, Role: role}).Error)
		require.NoError(t, db.Create(&models.OrganizationMember{OrganizationID: orgID, UserID: id}).Error)
	}
	return u
}

// SeedOrg inserts an organization owned by ownerID.
func SeedOrg(t testing.TB, db *gorm.DB, id, ownerID string) models.Organization {
	t.Helper()
	org := models.Organization{ID: id, Name: "Org " + id, OwnerID: ownerID, InviteSlug: "invite-" + id}
	require.NoError(t, db.Omit("Members", "JoinRequests").Create(&org).Error)
	return org
}

// Day returns a UTC midnight time offset from today by days.
func Day(days int) *time.Time {
	now := time.Now().UTC()
	d := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, days)
	return &d
}
