package models

import (
	"time"

	"gorm.io/gorm"
)

// BadgeKey is the stable identifier code uses to address a badge.
// Display names may be edited by administrators; keys may not.
type BadgeKey string

const (
	BadgeFirstPost      BadgeKey = "first_post"
	BadgeTenPosts       BadgeKey = "ten_posts"
	BadgeFiftyPosts     BadgeKey = "fifty_posts"
	BadgeHundredReplies BadgeKey = "hundred_replies"
	BadgeExpertMechanic BadgeKey = "expert_mechanic"

	BadgeTenLikes     BadgeKey = "ten_likes"
	BadgeFiftyLikes   BadgeKey = "fifty_likes"
	BadgeHundredLikes BadgeKey = "hundred_likes"

	BadgeWellReceived  BadgeKey = "well_received"
	BadgeCrowdFavorite BadgeKey = "crowd_favorite"
	BadgeCommunityIcon BadgeKey = "community_icon"

	BadgeHelpfulContributor BadgeKey = "helpful_contributor"
	BadgeProblemSolver      BadgeKey = "problem_solver"
	BadgeExpertHelper       BadgeKey = "expert_helper"

	BadgeStreak3   BadgeKey = "streak_3"
	BadgeStreak7   BadgeKey = "streak_7"
	BadgeStreak30  BadgeKey = "streak_30"
	BadgeStreak100 BadgeKey = "streak_100"

	BadgeEarlyAdopter     BadgeKey = "early_adopter"
	BadgeForumAnniversary BadgeKey = "forum_anniversary"
	BadgeBookworm         BadgeKey = "bookworm"
	BadgeModeratorFriend  BadgeKey = "moderator_friend"
)

type BadgeCategory string

const (
	BadgeCategoryContribution BadgeCategory = "contribution"
	BadgeCategorySocial       BadgeCategory = "social"
	BadgeCategoryHelpful      BadgeCategory = "helpful"
	BadgeCategoryStreaks      BadgeCategory = "streaks"
	BadgeCategorySpecial      BadgeCategory = "special"
)

// Valid reports whether c is one of the known categories.
func (c BadgeCategory) Valid() bool {
	switch c {
	case BadgeCategoryContribution, BadgeCategorySocial, BadgeCategoryHelpful,
		BadgeCategoryStreaks, BadgeCategorySpecial:
		return true
	}
	return false
}

// Badge: catalog definition (seeded from code or a catalog file)
type Badge struct {
	ID               string        `gorm:"primaryKey;type:uuid" json:"id"`
	Key              BadgeKey      `gorm:"column:badge_key;uniqueIndex;not null;size:64" json:"key" mapstructure:"key"`
	Name             string        `gorm:"uniqueIndex;not null;size:100" json:"name" mapstructure:"name"`
	Icon             string        `gorm:"size:16" json:"icon" mapstructure:"icon"`
	Category         BadgeCategory `gorm:"size:20;not null;default:'contribution'" json:"category" mapstructure:"category"`
	Description      string        `gorm:"type:text" json:"description" mapstructure:"description"`
	Requirement      string        `gorm:"type:text" json:"requirement" mapstructure:"requirement"`
	RequirementCount int           `gorm:"not null;default:1" json:"requirement_count" mapstructure:"requirement_count"`
	XPReward         int64         `gorm:"not null" json:"xp_reward" mapstructure:"xp_reward"`
	IsActive         bool          `gorm:"not null" json:"is_active" mapstructure:"-"`
	Order            int           `gorm:"column:sort_order;not null;default:0" json:"order" mapstructure:"order"`
	CreatedAt        time.Time     `gorm:"autoCreateTime" json:"-"`
}

func (b *Badge) BeforeCreate(tx *gorm.DB) error {
	ensureID(&b.ID)
	return nil
}

// UserBadge: per-user progress towards a badge. Rows exist only once progress
// is nonzero or the badge is unlocked.
type UserBadge struct {
	ID         string     `gorm:"primaryKey;type:uuid" json:"id"`
	UserID     string     `gorm:"not null;uniqueIndex:idx_user_badge" json:"user_id"`
	BadgeID    string     `gorm:"type:uuid;not null;uniqueIndex:idx_user_badge;index" json:"badge_id"`
	Progress   int        `gorm:"not null;default:0" json:"progress"`
	Unlocked   bool       `gorm:"not null;default:false;index" json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Badge Badge `gorm:"foreignKey:BadgeID;constraint:OnDelete:CASCADE" json:"-"`
}

func (u *UserBadge) BeforeCreate(tx *gorm.DB) error {
	ensureID(&u.ID)
	return nil
}
