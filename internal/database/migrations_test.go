package database

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shorif2005/projectflow/internal/models"
)

func TestAutoMigrateCreatesAllTables(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, AutoMigrate(db))

	migrator := db.Migrator()
	tables := []interface{}{
		&models.User{},
		&models.Profile{},
		&models.EmailOTP{},
		&models.Session{},
		&models.Project{},
		&models.Task{},
		&models.TaskInvite{},
		&models.ProjectMessage{},
		&models.ActivityLog{},
		&models.CacheEntry{},
	}
	for _, table := range tables {
		require.True(t, migrator.HasTable(table), "expected table for %T", table)
	}
}

func TestAutoMigrateTaskInviteIndexes(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, AutoMigrate(db))

	migrator := db.Migrator()
	require.True(t, migrator.HasIndex(&models.TaskInvite{}, "idx_task_invites_email_active"))
	require.True(t, migrator.HasColumn(&models.TaskInvite{}, "token"))
	require.True(t, migrator.HasColumn(&models.Task{}, "assignee_email"))
}
