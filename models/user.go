package models

import (
	"time"

	"gorm.io/gorm"
)

// ForumUser is a local snapshot of the identity owned by the profile service.
// Populated via sync worker; everything else references ExternalUserID.
type ForumUser struct {
	ID                string    `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID    string    `gorm:"uniqueIndex;not null" json:"external_user_id"`
	Username          string    `gorm:"index;not null" json:"username"`
	ProfilePictureURL *string   `json:"profile_picture_url,omitempty"`
	CreatedAt         time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt         time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (u *ForumUser) BeforeCreate(tx *gorm.DB) error {
	ensureID(&u.ID)
	return nil
}
