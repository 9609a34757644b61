package services

import (
	"context"
	"strings"

	"forum-engagement-system/models"

	"gorm.io/gorm"
)

// UserDirectory reads the local mirror of forum users.
type UserDirectory struct {
	DB *gorm.DB
}

func NewUserDirectory(db *gorm.DB) *UserDirectory {
	return &UserDirectory{DB: db}
}

type UserSummary struct {
	ExternalUserID    string  `json:"external_user_id"`
	Username          string  `json:"username"`
	ProfilePictureURL *string `json:"profile_picture_url,omitempty"`
}

// Search matches usernames case-insensitively. limit is clamped to 1..100.
func (s *UserDirectory) Search(ctx context.Context, query string, limit int) ([]UserSummary, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	db := s.DB.WithContext(ctx).Model(&models.ForumUser{}).Order("username ASC").Limit(limit)
	if q := strings.ToLower(strings.TrimSpace(query)); q != "" {
		db = db.Where("LOWER(username) LIKE ?", "%"+q+"%")
	}

	var users []models.ForumUser
	if err := db.Find(&users).Error; err != nil {
		return nil, err
	}

	res := make([]UserSummary, len(users))
	for i, u := range users {
		res[i] = UserSummary{
			ExternalUserID:    u.ExternalUserID,
			Username:          u.Username,
			ProfilePictureURL: u.ProfilePictureURL,
		}
	}
	return res, nil
}
