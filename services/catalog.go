package services

import (
	"context"
	"fmt"
	"sort"

	"forum-engagement-system/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Badge groups the orchestrator advances for each event.
var (
	TopicBadges      = []models.BadgeKey{models.BadgeFirstPost, models.BadgeTenPosts, models.BadgeFiftyPosts, models.BadgeExpertMechanic}
	ReplyBadges      = []models.BadgeKey{models.BadgeHundredReplies, models.BadgeExpertMechanic}
	LikeBadges       = []models.BadgeKey{models.BadgeTenLikes, models.BadgeFiftyLikes, models.BadgeHundredLikes}
	TopicLikesBadges = []models.BadgeKey{models.BadgeWellReceived, models.BadgeCrowdFavorite, models.BadgeCommunityIcon}
	BookmarkBadges   = []models.BadgeKey{models.BadgeBookworm}
	StreakBadges     = []models.BadgeKey{models.BadgeStreak3, models.BadgeStreak7, models.BadgeStreak30, models.BadgeStreak100}
)

// DefaultBadges is the catalog seeded on first boot.
var DefaultBadges = []models.Badge{
	// Contribution
	{Key: models.BadgeFirstPost, Name: "First Post", Icon: "📚", Category: models.BadgeCategoryContribution,
		Description: "Created your first forum post", Requirement: "Create 1 post", RequirementCount: 1, XPReward: 50, Order: 1},
	{Key: models.BadgeTenPosts, Name: "10 Posts", Icon: "📝", Category: models.BadgeCategoryContribution,
		Description: "Posted 10 topics in the forum", Requirement: "Create 10 posts", RequirementCount: 10, XPReward: 100, Order: 2},
	{Key: models.BadgeFiftyPosts, Name: "50 Posts", Icon: "✍️", Category: models.BadgeCategoryContribution,
		Description: "Posted 50 topics in the forum", Requirement: "Create 50 posts", RequirementCount: 50, XPReward: 250, Order: 3},
	{Key: models.BadgeHundredReplies, Name: "100 Replies", Icon: "💯", Category: models.BadgeCategoryContribution,
		Description: "Reply to 100 topics", Requirement: "Create 100 replies", RequirementCount: 100, XPReward: 300, Order: 4},
	{Key: models.BadgeExpertMechanic, Name: "Expert Mechanic", Icon: "🔧", Category: models.BadgeCategoryContribution,
		Description: "Become an expert in automotive topics", Requirement: "Create 200 posts/replies", RequirementCount: 200, XPReward: 500, Order: 5},

	// Social
	{Key: models.BadgeTenLikes, Name: "10 Likes", Icon: "👍", Category: models.BadgeCategorySocial,
		Description: "Received 10 likes on your posts", Requirement: "Get 10 likes", RequirementCount: 10, XPReward: 50, Order: 6},
	{Key: models.BadgeFiftyLikes, Name: "50 Likes", Icon: "❤️", Category: models.BadgeCategorySocial,
		Description: "Received 50 likes on your posts", Requirement: "Get 50 likes", RequirementCount: 50, XPReward: 150, Order: 7},
	{Key: models.BadgeHundredLikes, Name: "100 Likes", Icon: "💖", Category: models.BadgeCategorySocial,
		Description: "Received 100 likes on your posts", Requirement: "Get 100 likes", RequirementCount: 100, XPReward: 300, Order: 8},
	{Key: models.BadgeWellReceived, Name: "Well Received", Icon: "👏", Category: models.BadgeCategorySocial,
		Description: "Your topics collected 10 likes", Requirement: "Get 10 likes on your topics", RequirementCount: 10, XPReward: 50, Order: 9},
	{Key: models.BadgeCrowdFavorite, Name: "Crowd Favorite", Icon: "🎉", Category: models.BadgeCategorySocial,
		Description: "Your topics collected 50 likes", Requirement: "Get 50 likes on your topics", RequirementCount: 50, XPReward: 150, Order: 10},
	{Key: models.BadgeCommunityIcon, Name: "Community Icon", Icon: "👑", Category: models.BadgeCategorySocial,
		Description: "Your topics collected 100 likes", Requirement: "Get 100 likes on your topics", RequirementCount: 100, XPReward: 300, Order: 11},

	// Helpful
	{Key: models.BadgeHelpfulContributor, Name: "Helpful Contributor", Icon: "🏅", Category: models.BadgeCategoryHelpful,
		Description: "You helped 10 users get answers", Requirement: "Help 10 users", RequirementCount: 10, XPReward: 100, Order: 12},
	{Key: models.BadgeProblemSolver, Name: "Problem Solver", Icon: "🎯", Category: models.BadgeCategoryHelpful,
		Description: "Solved 25 user problems", Requirement: "Help 25 users", RequirementCount: 25, XPReward: 200, Order: 13},
	{Key: models.BadgeExpertHelper, Name: "Expert Helper", Icon: "⭐", Category: models.BadgeCategoryHelpful,
		Description: "Helped 50 users find solutions", Requirement: "Help 50 users", RequirementCount: 50, XPReward: 400, Order: 14},

	// Streaks
	{Key: models.BadgeStreak3, Name: "3 Days Active", Icon: "🔥", Category: models.BadgeCategoryStreaks,
		Description: "Visited the forum for 3 consecutive days", Requirement: "3-day streak", RequirementCount: 3, XPReward: 30, Order: 15},
	{Key: models.BadgeStreak7, Name: "7 Days Active", Icon: "🌟", Category: models.BadgeCategoryStreaks,
		Description: "Visited the forum for 7 consecutive days", Requirement: "7-day streak", RequirementCount: 7, XPReward: 70, Order: 16},
	{Key: models.BadgeStreak30, Name: "30 Days Active", Icon: "🕒", Category: models.BadgeCategoryStreaks,
		Description: "Visit the forum for 30 consecutive days", Requirement: "30-day streak", RequirementCount: 30, XPReward: 300, Order: 17},
	{Key: models.BadgeStreak100, Name: "100 Days Active", Icon: "💎", Category: models.BadgeCategoryStreaks,
		Description: "Visit the forum for 100 consecutive days", Requirement: "100-day streak", RequirementCount: 100, XPReward: 1000, Order: 18},

	// Special
	{Key: models.BadgeEarlyAdopter, Name: "Early Adopter", Icon: "🚀", Category: models.BadgeCategorySpecial,
		Description: "One of the first members of the forum", Requirement: "Join in the first month", RequirementCount: 1, XPReward: 500, Order: 19},
	{Key: models.BadgeForumAnniversary, Name: "Forum Anniversary", Icon: "🏆", Category: models.BadgeCategorySpecial,
		Description: "Celebrate 1 year on the forum", Requirement: "Member for 1 year", RequirementCount: 365, XPReward: 1000, Order: 20},
	{Key: models.BadgeBookworm, Name: "Bookworm", Icon: "📖", Category: models.BadgeCategorySpecial,
		Description: "Bookmarked 50 topics", Requirement: "Bookmark 50 topics", RequirementCount: 50, XPReward: 150, Order: 21},
	{Key: models.BadgeModeratorFriend, Name: "Moderator Friend", Icon: "🛡️", Category: models.BadgeCategorySpecial,
		Description: "Helped moderate the forum", Requirement: "Report 10 inappropriate posts", RequirementCount: 10, XPReward: 200, Order: 22},
}

// levelStep is the XP between consecutive default levels.
const levelStep = 500

// DefaultLevels: named levels 1-10, Elite 11-20, Legendary 21-30.
var DefaultLevels = defaultLadder([]models.Level{
	{LevelNumber: 1, Name: "Newbie", Icon: "🌱", Color: "#94a3b8"},
	{LevelNumber: 2, Name: "Beginner", Icon: "🔰", Color: "#64748b"},
	{LevelNumber: 3, Name: "Member", Icon: "⭐", Color: "#3b82f6"},
	{LevelNumber: 4, Name: "Active Member", Icon: "✨", Color: "#2563eb"},
	{LevelNumber: 5, Name: "Contributor", Icon: "💬", Color: "#0ea5e9"},
	{LevelNumber: 6, Name: "Regular", Icon: "🎖️", Color: "#14b8a6"},
	{LevelNumber: 7, Name: "Expert", Icon: "🧠", Color: "#22c55e"},
	{LevelNumber: 8, Name: "Veteran", Icon: "🛡️", Color: "#eab308"},
	{LevelNumber: 9, Name: "Master", Icon: "🥇", Color: "#f97316"},
	{LevelNumber: 10, Name: "Legend", Icon: "🏆", Color: "#ef4444"},
})

func defaultLadder(named []models.Level) []models.Level {
	levels := append([]models.Level(nil), named...)
	for n := len(named) + 1; n <= 30; n++ {
		l := models.Level{LevelNumber: n, Name: "Elite", Icon: "💠", Color: "#a855f7"}
		if n > 20 {
			l.Name, l.Icon, l.Color = "Legendary", "👑", "#d946ef"
		}
		levels = append(levels, l)
	}
	for i := range levels {
		levels[i].XPRequired = int64(levels[i].LevelNumber-1) * levelStep
	}
	return levels
}

func init() {
	for i := range DefaultBadges {
		DefaultBadges[i].IsActive = true
	}
	for i := range DefaultLevels {
		DefaultLevels[i].IsActive = true
	}
}

// ValidateBadges checks key/name uniqueness and numeric bounds.
func ValidateBadges(badges []models.Badge) error {
	keys := make(map[models.BadgeKey]bool, len(badges))
	names := make(map[string]bool, len(badges))
	for _, b := range badges {
		if b.Key == "" || b.Name == "" {
			return Validation("badge key and name are required")
		}
		if keys[b.Key] {
			return Validation("duplicate badge key %q", b.Key)
		}
		if names[b.Name] {
			return Validation("duplicate badge name %q", b.Name)
		}
		keys[b.Key], names[b.Name] = true, true
		if !b.Category.Valid() {
			return Validation("badge %q has unknown category %q", b.Key, b.Category)
		}
		if b.RequirementCount < 1 {
			return Validation("badge %q: requirement_count must be at least 1", b.Key)
		}
		if b.XPReward < 0 {
			return Validation("badge %q: xp_reward must not be negative", b.Key)
		}
	}
	return nil
}

// ValidateLevels requires level 1 at 0 XP and thresholds strictly increasing
// with level number.
func ValidateLevels(levels []models.Level) error {
	if len(levels) == 0 {
		return Validation("level catalog is empty")
	}
	sorted := append([]models.Level(nil), levels...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LevelNumber < sorted[j].LevelNumber })
	if sorted[0].LevelNumber != 1 || sorted[0].XPRequired != 0 {
		return Validation("level 1 must exist and require 0 XP")
	}
	for i := 1; i < len(sorted); i++ {
		if sorted[i].LevelNumber == sorted[i-1].LevelNumber {
			return Validation("duplicate level number %d", sorted[i].LevelNumber)
		}
		if sorted[i].XPRequired <= sorted[i-1].XPRequired {
			return Validation("level %d must require more XP than level %d", sorted[i].LevelNumber, sorted[i-1].LevelNumber)
		}
	}
	return nil
}

// SeedCatalog upserts badges by key and levels by number (update-or-create).
func SeedCatalog(ctx context.Context, db *gorm.DB, badges []models.Badge, levels []models.Level) error {
	if err := ValidateBadges(badges); err != nil {
		return err
	}
	if err := ValidateLevels(levels); err != nil {
		return err
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range badges {
			b := badges[i]
			b.ID = ""
			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "badge_key"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"name", "icon", "category", "description", "requirement",
					"requirement_count", "xp_reward", "is_active", "sort_order",
				}),
			}).Create(&b).Error
			if err != nil {
				return fmt.Errorf("seed badge %s: %w", b.Key, err)
			}
		}
		for i := range levels {
			l := levels[i]
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "level_number"}},
				DoUpdates: clause.AssignmentColumns([]string{"name", "xp_required", "icon", "color", "is_active"}),
			}).Create(&l).Error
			if err != nil {
				return fmt.Errorf("seed level %d: %w", l.LevelNumber, err)
			}
		}
		return nil
	})
}

// ActiveBadges returns the active catalog in display order.
func ActiveBadges(ctx context.Context, db *gorm.DB) ([]models.Badge, error) {
	var badges []models.Badge
	err := db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_order ASC, name ASC").
		Find(&badges).Error
	return badges, err
}

// BadgesByCategory groups badges by category, keeping their order.
func BadgesByCategory(badges []models.Badge) map[models.BadgeCategory][]models.Badge {
	out := make(map[models.BadgeCategory][]models.Badge)
	for _, b := range badges {
		out[b.Category] = append(out[b.Category], b)
	}
	return out
}

// ActiveLevels returns active catalog levels ordered by level number.
func ActiveLevels(ctx context.Context, db *gorm.DB) ([]models.Level, error) {
	var levels []models.Level
	err := db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("level_number ASC").
		Find(&levels).Error
	return levels, err
}
