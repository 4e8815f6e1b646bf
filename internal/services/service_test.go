package services

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/uestcqxq/tetrisByKiro/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// a named shared-cache memory DB keeps gorm's pooled connections
	// on the same database
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.GameRecord{}))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()

	user := models.User{
		ID:         uuid.NewString(),
		Username:   username,
		LastActive: time.Now().UTC(),
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func addRecord(t *testing.T, db *gorm.DB, userID string, score int, createdAt time.Time) *models.GameRecord {
	t.Helper()

	lines := 0
	if score > 0 {
		lines = score/100 + 1
	}
	record := models.GameRecord{
		ID:           uuid.NewString(),
		UserID:       userID,
		Score:        score,
		Level:        1,
		LinesCleared: lines,
		GameDuration: 60,
		CreatedAt:    createdAt,
	}
	require.NoError(t, db.Create(&record).Error)
	return &record
}
