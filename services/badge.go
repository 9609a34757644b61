package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"forum-engagement-system/models"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProgressUpdate is either a relative increment or an absolute value.
type ProgressUpdate struct {
	delta    int
	value    int
	absolute bool
}

// Increment advances progress by n.
func Increment(n int) ProgressUpdate { return ProgressUpdate{delta: n} }

// SetTo replaces progress with v. It may lower progress of a locked badge.
func SetTo(v int) ProgressUpdate { return ProgressUpdate{value: v, absolute: true} }

func (u ProgressUpdate) apply(current int) int {
	next := current + u.delta
	if u.absolute {
		next = u.value
	}
	if next < 0 {
		return 0
	}
	return next
}

// BadgeSummary is returned to callers when a badge unlocks.
type BadgeSummary struct {
	ID          string          `json:"id"`
	Key         models.BadgeKey `json:"key"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Icon        string          `json:"icon"`
	XPReward    int64           `json:"xp_reward"`
}

func summarize(b models.Badge) BadgeSummary {
	return BadgeSummary{
		ID:          b.ID,
		Key:         b.Key,
		Name:        b.Name,
		Description: b.Description,
		Icon:        b.Icon,
		XPReward:    b.XPReward,
	}
}

// UserBadgeView joins a catalog badge with the user's progress on it.
type UserBadgeView struct {
	ID                 string               `json:"id"`
	Key                models.BadgeKey      `json:"key"`
	Name               string               `json:"name"`
	Icon               string               `json:"icon"`
	Category           models.BadgeCategory `json:"category"`
	Description        string               `json:"description"`
	Requirement        string               `json:"requirement"`
	RequiredCount      int                  `json:"required_count"`
	XPReward           int64                `json:"xp_reward"`
	Progress           int                  `json:"progress"`
	Unlocked           bool                 `json:"unlocked"`
	UnlockedAt         *time.Time           `json:"unlocked_at,omitempty"`
	ProgressPercentage float64              `json:"progress_percentage"`
}

// UnlockedBadge is one unlock event, used by the stream endpoint.
type UnlockedBadge struct {
	BadgeSummary
	UnlockedAt time.Time `json:"unlocked_at"`
}

type BadgeService struct {
	DB          *gorm.DB
	Clock       clockwork.Clock
	Progression *ProgressionService
}

func NewBadgeService(db *gorm.DB, clock clockwork.Clock, progression *ProgressionService) *BadgeService {
	return &BadgeService{DB: db, Clock: clock, Progression: progression}
}

// UpdateProgress applies upd to the user's progress on the badge identified by key.
// It returns a summary only when this call unlocked the badge. Unknown or
// inactive badges are ignored.
func (s *BadgeService) UpdateProgress(ctx context.Context, userID string, key models.BadgeKey, upd ProgressUpdate) (*BadgeSummary, error) {
	var unlocked *BadgeSummary
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		unlocked, err = s.updateProgressTx(tx, userID, key, upd)
		return err
	})
	if err != nil {
		return nil, err
	}
	return unlocked, nil
}

func (s *BadgeService) updateProgressTx(tx *gorm.DB, userID string, key models.BadgeKey, upd ProgressUpdate) (*BadgeSummary, error) {
	var badge models.Badge
	err := tx.Where("badge_key = ? AND is_active = ?", key, true).First(&badge).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	// Two attempts: the first insert may lose a race against a concurrent
	// first event for the same (user, badge); the retry then sees the row.
	for attempt := 0; attempt < 2; attempt++ {
		var ub models.UserBadge
		err := tx.Clauses(forUpdate).Where("user_id = ? AND badge_id = ?", userID, badge.ID).First(&ub).Error
		exists := err == nil
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		if !exists {
			ub = models.UserBadge{UserID: userID, BadgeID: badge.ID}
		}
		if ub.Unlocked {
			return nil, nil
		}

		progress := upd.apply(ub.Progress)
		unlock := progress >= badge.RequirementCount
		if unlock {
			now := s.Clock.Now()
			progress = badge.RequirementCount
			ub.Unlocked = true
			ub.UnlockedAt = &now
		}
		ub.Progress = progress

		if exists {
			if err := tx.Save(&ub).Error; err != nil {
				return nil, err
			}
		} else {
			if progress == 0 && !unlock {
				return nil, nil
			}
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&ub)
			if res.Error != nil {
				return nil, res.Error
			}
			if res.RowsAffected == 0 {
				continue
			}
		}

		if !unlock {
			return nil, nil
		}
		if badge.XPReward > 0 {
			if _, err := s.Progression.awardXPTx(tx, userID, badge.XPReward, "badge:"+string(badge.Key)); err != nil {
				return nil, err
			}
		}
		log.Printf("🎖️ [GAMIFICATION] Badge unlocked: %s → %s (+%d XP)", badge.Name, userID, badge.XPReward)
		summary := summarize(badge)
		return &summary, nil
	}
	return nil, fmt.Errorf("update badge %s for %s: row vanished after insert conflict", key, userID)
}

// UserBadges lists every active badge with the user's progress, defaulting
// to zero for badges the user never touched.
func (s *BadgeService) UserBadges(ctx context.Context, userID string) ([]UserBadgeView, error) {
	badges, err := ActiveBadges(ctx, s.DB)
	if err != nil {
		return nil, err
	}

	var rows []models.UserBadge
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, err
	}
	byBadge := make(map[string]models.UserBadge, len(rows))
	for _, r := range rows {
		byBadge[r.BadgeID] = r
	}

	views := make([]UserBadgeView, 0, len(badges))
	for _, b := range badges {
		ub := byBadge[b.ID]
		v := UserBadgeView{
			ID:            b.ID,
			Key:           b.Key,
			Name:          b.Name,
			Icon:          b.Icon,
			Category:      b.Category,
			Description:   b.Description,
			Requirement:   b.Requirement,
			RequiredCount: b.RequirementCount,
			XPReward:      b.XPReward,
			Progress:      ub.Progress,
			Unlocked:      ub.Unlocked,
			UnlockedAt:    ub.UnlockedAt,
		}
		switch {
		case ub.Unlocked:
			v.ProgressPercentage = 100
		case b.RequirementCount > 0:
			v.ProgressPercentage = float64(ub.Progress) / float64(b.RequirementCount) * 100
			if v.ProgressPercentage > 100 {
				v.ProgressPercentage = 100
			}
		}
		views = append(views, v)
	}
	return views, nil
}

// UnlockedSince returns the user's unlocks strictly after since, oldest first.
func (s *BadgeService) UnlockedSince(ctx context.Context, userID string, since time.Time) ([]UnlockedBadge, error) {
	var rows []models.UserBadge
	err := s.DB.WithContext(ctx).
		Preload("Badge").
		Where("user_id = ? AND unlocked = ? AND unlocked_at > ?", userID, true, since).
		Order("unlocked_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]UnlockedBadge, 0, len(rows))
	for _, r := range rows {
		if r.UnlockedAt == nil {
			continue
		}
		out = append(out, UnlockedBadge{BadgeSummary: summarize(r.Badge), UnlockedAt: *r.UnlockedAt})
	}
	return out, nil
}
