package models

import "time"

// GameRecord is immutable once created; cleanup jobs are the only
// thing that deletes rows.
type GameRecord struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	UserID       string    `gorm:"size:36;not null;index" json:"user_id"`
	Score        int       `gorm:"not null;index" json:"score"`
	Level        int       `gorm:"not null" json:"level"`
	LinesCleared int       `gorm:"not null" json:"lines_cleared"`
	GameDuration int       `gorm:"not null" json:"game_duration"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
}

const (
	MinScore    = 0
	MaxScore    = 999999999
	MinLevel    = 1
	MaxLevel    = 99
	MinLines    = 0
	MaxLines    = 9999
	MinDuration = 1
	MaxDuration = 7200
)
