package models

import "time"

type User struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	Username   string    `gorm:"size:50;uniqueIndex;not null" json:"username"`
	LastActive time.Time `gorm:"not null" json:"last_active"`
	CreatedAt  time.Time `json:"created_at"`
}
