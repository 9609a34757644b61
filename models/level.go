package models

import (
	"time"

	"gorm.io/gorm"
)

// Level is a catalog entry: reaching XPRequired grants LevelNumber.
type Level struct {
	LevelNumber int       `gorm:"primaryKey;autoIncrement:false" json:"level_number" mapstructure:"level_number"`
	Name        string    `gorm:"not null" json:"name" mapstructure:"name"`
	XPRequired  int64     `gorm:"not null" json:"xp_required" mapstructure:"xp_required"`
	Icon        string    `gorm:"size:16" json:"icon" mapstructure:"icon"`
	Color       string    `gorm:"size:16" json:"color" mapstructure:"color"`
	IsActive    bool      `gorm:"not null" json:"is_active" mapstructure:"-"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"-"`
}

// UserLevel tracks cumulative XP for one user (denormalized level for fast reads)
type UserLevel struct {
	ID            string     `gorm:"primaryKey;type:uuid" json:"id"`
	UserID        string     `gorm:"uniqueIndex;not null" json:"user_id"` // external user id
	XP            int64      `gorm:"not null;default:0;index" json:"xp"`
	Level         int        `gorm:"not null;default:1" json:"level"`
	LevelName     string     `gorm:"not null;default:'Newbie'" json:"level_name"`
	LastLevelUpAt *time.Time `json:"last_level_up_at,omitempty"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *UserLevel) BeforeCreate(tx *gorm.DB) error {
	ensureID(&u.ID)
	return nil
}
