package services

import (
	"testing"
	"time"

	"github.com/uestcqxq/tetrisByKiro/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveGameScoreEchoesInput(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "echo_user")
	svc := NewGameService(db, 1000)

	record, err := svc.SaveGameScore(user.ID, 12500, 5, 42, 300)
	require.NoError(t, err)

	assert.NotEmpty(t, record.ID)
	assert.Equal(t, user.ID, record.UserID)
	assert.Equal(t, 12500, record.Score)
	assert.Equal(t, 5, record.Level)
	assert.Equal(t, 42, record.LinesCleared)
	assert.Equal(t, 300, record.GameDuration)

	var stored models.GameRecord
	require.NoError(t, db.First(&stored, "id = ?", record.ID).Error)
	assert.Equal(t, record.Score, stored.Score)
}

func TestSaveGameScoreValidation(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "valid_user")
	svc := NewGameService(db, 1000)

	cases := []struct {
		name     string
		userID   string
		score    int
		level    int
		lines    int
		duration int
		field    string
	}{
		{"unknown user", "missing-id", 100, 1, 5, 60, "user_id"},
		{"negative score", user.ID, -1, 1, 5, 60, "score"},
		{"score above max", user.ID, 1000000000, 1, 5, 60, "score"},
		{"level zero", user.ID, 100, 0, 5, 60, "level"},
		{"level above max", user.ID, 100, 100, 500, 60, "level"},
		{"negative lines", user.ID, 100, 1, -1, 60, "lines_cleared"},
		{"lines above max", user.ID, 100, 1, 10000, 60, "lines_cleared"},
		{"duration zero", user.ID, 100, 1, 5, 0, "game_duration"},
		{"duration above max", user.ID, 100, 1, 5, 7201, "game_duration"},
		{"score without lines", user.ID, 100, 1, 0, 60, "lines_cleared"},
		{"high level low lines", user.ID, 5000, 11, 9, 60, "level"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.SaveGameScore(tc.userID, tc.score, tc.level, tc.lines, tc.duration)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tc.field, vErr.Field)
		})
	}

	// nothing should have been persisted
	var count int64
	db.Model(&models.GameRecord{}).Count(&count)
	assert.Zero(t, count)
}

func TestSaveGameScoreBoundaries(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "boundary_user")
	svc := NewGameService(db, 1000)

	// score=0 carries no lines-cleared requirement, and level=10 is
	// not above the cross-field threshold
	_, err := svc.SaveGameScore(user.ID, 0, 10, 0, 60)
	require.NoError(t, err)

	// level=11 with exactly 10 lines is the lowest accepted combination
	_, err = svc.SaveGameScore(user.ID, 500, 11, 10, 60)
	require.NoError(t, err)
}

func TestRetentionCapEvictsOldest(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "capped_user")
	svc := NewGameService(db, 3)

	base := time.Now().UTC().Add(-time.Hour)
	oldest := addRecord(t, db, user.ID, 100, base)
	addRecord(t, db, user.ID, 200, base.Add(time.Minute))
	addRecord(t, db, user.ID, 300, base.Add(2*time.Minute))

	_, err := svc.SaveGameScore(user.ID, 400, 2, 4, 60)
	require.NoError(t, err)

	var count int64
	db.Model(&models.GameRecord{}).Where("user_id = ?", user.ID).Count(&count)
	assert.EqualValues(t, 3, count)

	var gone int64
	db.Model(&models.GameRecord{}).Where("id = ?", oldest.ID).Count(&gone)
	assert.Zero(t, gone, "oldest record should have been evicted")
}

func TestGetUserGameHistoryNewestFirst(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "history_user")
	svc := NewGameService(db, 1000)

	base := time.Now().UTC().Add(-time.Hour)
	addRecord(t, db, user.ID, 100, base)
	addRecord(t, db, user.ID, 200, base.Add(time.Minute))
	addRecord(t, db, user.ID, 300, base.Add(2*time.Minute))

	records, err := svc.GetUserGameHistory(user.ID, 2, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 300, records[0].Score)
	assert.Equal(t, 200, records[1].Score)
}
