package services

import (
	"fmt"
	"log"
	"time"

	"github.com/uestcqxq/tetrisByKiro/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GameService persists game results. Validation happens before any
// mutation; the per-user retention cap is enforced inside the same
// transaction as the insert.
type GameService struct {
	db         *gorm.DB
	maxRecords int
}

func NewGameService(db *gorm.DB, maxRecordsPerUser int) *GameService {
	if maxRecordsPerUser <= 0 {
		maxRecordsPerUser = 1000
	}
	return &GameService{db: db, maxRecords: maxRecordsPerUser}
}

// SaveGameScore validates and persists one game result, evicting the
// user's oldest record first when the retention cap is reached.
func (s *GameService) SaveGameScore(userID string, score, level, linesCleared, gameDuration int) (*models.GameRecord, error) {
	if err := s.ValidateScore(userID, score, level, linesCleared, gameDuration); err != nil {
		return nil, err
	}

	record := models.GameRecord{
		ID:           uuid.NewString(),
		UserID:       userID,
		Score:        score,
		Level:        level,
		LinesCleared: linesCleared,
		GameDuration: gameDuration,
		CreatedAt:    time.Now().UTC(),
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.GameRecord{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
			return err
		}
		if count >= int64(s.maxRecords) {
			var oldest models.GameRecord
			if err := tx.Where("user_id = ?", userID).Order("created_at ASC").First(&oldest).Error; err != nil {
				return err
			}
			if err := tx.Delete(&oldest).Error; err != nil {
				return err
			}
			log.Printf("game: evicted oldest record for user %s (cap %d)", userID, s.maxRecords)
		}

		if err := tx.Create(&record).Error; err != nil {
			return err
		}

		return tx.Model(&models.User{}).Where("id = ?", userID).
			Update("last_active", time.Now().UTC()).Error
	})
	if err != nil {
		return nil, storageErr("save_game_score", err)
	}

	return &record, nil
}

// ValidateScore applies all range and cross-field checks, including
// the user-existence check against the user directory.
func (s *GameService) ValidateScore(userID string, score, level, linesCleared, gameDuration int) error {
	if userID == "" {
		return validationErr("user_id", "must not be empty")
	}

	var count int64
	if err := s.db.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return storageErr("validate_score", err)
	}
	if count == 0 {
		return validationErr("user_id", "user not found")
	}

	if score < models.MinScore || score > models.MaxScore {
		return validationErr("score", rangeMsg(models.MinScore, models.MaxScore))
	}
	if level < models.MinLevel || level > models.MaxLevel {
		return validationErr("level", rangeMsg(models.MinLevel, models.MaxLevel))
	}
	if linesCleared < models.MinLines || linesCleared > models.MaxLines {
		return validationErr("lines_cleared", rangeMsg(models.MinLines, models.MaxLines))
	}
	if gameDuration < models.MinDuration || gameDuration > models.MaxDuration {
		return validationErr("game_duration", rangeMsg(models.MinDuration, models.MaxDuration))
	}

	// A score cannot be earned without clearing lines.
	if score > 0 && linesCleared == 0 {
		return validationErr("lines_cleared", "score without cleared lines")
	}
	// High level with almost no progress is implausible.
	if level > 10 && linesCleared < 10 {
		return validationErr("level", "level does not match lines cleared")
	}

	return nil
}

// GetUserGameHistory returns the user's records, newest first.
func (s *GameService) GetUserGameHistory(userID string, limit, offset int) ([]models.GameRecord, error) {
	var records []models.GameRecord
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, storageErr("get_user_game_history", err)
	}
	return records, nil
}

func (s *GameService) DeleteUserGames(userID string) (int64, error) {
	res := s.db.Where("user_id = ?", userID).Delete(&models.GameRecord{})
	if res.Error != nil {
		return 0, storageErr("delete_user_games", res.Error)
	}
	return res.RowsAffected, nil
}

func rangeMsg(min, max int) string {
	return fmt.Sprintf("must be between %d and %d", min, max)
}
