package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// ensureID fills an empty string primary key with a fresh UUID.
func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

// All returns every model managed by AutoMigrate, in dependency order.
func All() []interface{} {
	return []interface{}{
		&ForumUser{},
		&Level{},
		&UserLevel{},
		&Badge{},
		&UserBadge{},
		&UserStreak{},
		&Tag{},
		&Topic{},
		&TopicLike{},
		&Bookmark{},
		&Reply{},
		&ReplyLike{},
		&ReportReason{},
		&Report{},
	}
}
