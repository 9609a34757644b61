package models

import (
	"time"

	"gorm.io/gorm"
)

// UserStreak counts consecutive calendar days with activity.
// LastActivityDate is stored as midnight UTC of the local calendar day.
type UserStreak struct {
	ID               string     `gorm:"primaryKey;type:uuid" json:"id"`
	UserID           string     `gorm:"uniqueIndex;not null" json:"user_id"`
	CurrentStreak    int        `gorm:"not null;default:0" json:"current_streak"`
	LongestStreak    int        `gorm:"not null;default:0" json:"longest_streak"`
	LastActivityDate *time.Time `json:"last_activity_date,omitempty"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (s *UserStreak) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
