package services

import (
	"testing"
	"time"

	"github.com/uestcqxq/tetrisByKiro/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupOldGameRecords(t *testing.T) {
	db := newTestDB(t)
	svc := NewCleanupService(db, time.Hour, 30, 180)
	user := createTestUser(t, db, "cleanup_user")
	now := time.Now().UTC()

	addRecord(t, db, user.ID, 100, now.AddDate(0, 0, -40))
	kept := addRecord(t, db, user.ID, 200, now.AddDate(0, 0, -5))

	deleted, err := svc.CleanupOldGameRecords()
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	var remaining []models.GameRecord
	db.Find(&remaining)
	require.Len(t, remaining, 1)
	assert.Equal(t, kept.ID, remaining[0].ID)
}

func TestCleanupInactiveUsersSparesPlayers(t *testing.T) {
	db := newTestDB(t)
	svc := NewCleanupService(db, time.Hour, 365, 30)
	now := time.Now().UTC()

	idle := createTestUser(t, db, "long_idle")
	player := createTestUser(t, db, "idle_but_played")
	require.NoError(t, db.Model(idle).Update("last_active", now.AddDate(0, 0, -60)).Error)
	require.NoError(t, db.Model(player).Update("last_active", now.AddDate(0, 0, -60)).Error)
	addRecord(t, db, player.ID, 100, now.AddDate(0, 0, -60))

	deleted, err := svc.CleanupInactiveUsers()
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	var users []models.User
	db.Find(&users)
	require.Len(t, users, 1)
	assert.Equal(t, player.ID, users[0].ID, "users with records are never removed")
}

func TestCleanupDuplicateRecordsKeepsNewest(t *testing.T) {
	db := newTestDB(t)
	svc := NewCleanupService(db, time.Hour, 365, 180)
	user := createTestUser(t, db, "dup_user")
	day := time.Now().UTC().Truncate(24 * time.Hour)

	addRecord(t, db, user.ID, 500, day.Add(1*time.Hour))
	addRecord(t, db, user.ID, 500, day.Add(2*time.Hour))
	newest := addRecord(t, db, user.ID, 500, day.Add(3*time.Hour))
	other := addRecord(t, db, user.ID, 700, day.Add(4*time.Hour))

	deleted, err := svc.CleanupDuplicateRecords()
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	var remaining []models.GameRecord
	db.Order("score ASC").Find(&remaining)
	require.Len(t, remaining, 2)
	assert.Equal(t, newest.ID, remaining[0].ID)
	assert.Equal(t, other.ID, remaining[1].ID)
}
