package services

import (
	"context"

	"forum-engagement-system/config"
	"forum-engagement-system/models"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

// TrackResult is what every tracked event reports back to the caller.
// XPAwarded covers the event itself; badge bonuses show up in TotalXP.
type TrackResult struct {
	XPAwarded      int64          `json:"xp_awarded"`
	BadgesUnlocked []BadgeSummary `json:"badges_unlocked"`
	TotalXP        int64          `json:"total_xp"`
	Level          int            `json:"level"`
}

type StreakResult struct {
	TrackResult
	CurrentStreak int  `json:"current_streak"`
	LongestStreak int  `json:"longest_streak"`
	Advanced      bool `json:"advanced"`
}

type TopicLikesResult struct {
	TotalLikes     int64          `json:"total_likes"`
	BadgesUnlocked []BadgeSummary `json:"badges_unlocked"`
}

type ReportsBadgeResult struct {
	TotalReports  int64         `json:"total_reports"`
	BadgeUnlocked *BadgeSummary `json:"badge_unlocked"`
}

// UserGamification is the profile card: level, badges, streak and rank.
type UserGamification struct {
	LevelData           *LevelProgress    `json:"level_data"`
	Badges              []UserBadgeView   `json:"badges"`
	StreakData          models.UserStreak `json:"streak_data"`
	LeaderboardPosition int64             `json:"leaderboard_position"`
}

// GamificationService dispatches forum events to the ledger, the badge
// trackers and the streak tracker. Each public method is one transaction.
type GamificationService struct {
	DB          *gorm.DB
	Rewards     config.XPRewards
	Progression *ProgressionService
	Badges      *BadgeService
	Streaks     *StreakService
}

func NewGamificationService(db *gorm.DB, clock clockwork.Clock, cfg *config.Config) *GamificationService {
	progression := NewProgressionService(db, clock)
	return &GamificationService{
		DB:          db,
		Rewards:     cfg.XP,
		Progression: progression,
		Badges:      NewBadgeService(db, clock, progression),
		Streaks:     NewStreakService(db, clock, cfg.Location),
	}
}

func (s *GamificationService) inTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.DB.WithContext(ctx).Transaction(fn)
}

func (s *GamificationService) track(tx *gorm.DB, userID string, xp int64, reason string, keys []models.BadgeKey, upd ProgressUpdate) (*TrackResult, error) {
	if userID == "" {
		return nil, Validation("user id is required")
	}
	res := &TrackResult{BadgesUnlocked: []BadgeSummary{}}
	if xp > 0 {
		if _, err := s.Progression.awardXPTx(tx, userID, xp, reason); err != nil {
			return nil, err
		}
		res.XPAwarded = xp
	}
	unlocked, err := s.advance(tx, userID, keys, upd)
	if err != nil {
		return nil, err
	}
	res.BadgesUnlocked = unlocked
	return res, s.fillTotals(tx, userID, res)
}

func (s *GamificationService) advance(tx *gorm.DB, userID string, keys []models.BadgeKey, upd ProgressUpdate) ([]BadgeSummary, error) {
	unlocked := []BadgeSummary{}
	for _, key := range keys {
		b, err := s.Badges.updateProgressTx(tx, userID, key, upd)
		if err != nil {
			return nil, err
		}
		if b != nil {
			unlocked = append(unlocked, *b)
		}
	}
	return unlocked, nil
}

func (s *GamificationService) fillTotals(tx *gorm.DB, userID string, res *TrackResult) error {
	ul, err := currentLevelTx(tx, userID)
	if err != nil {
		return err
	}
	res.TotalXP = ul.XP
	res.Level = ul.Level
	return nil
}

func (s *GamificationService) TrackTopicCreated(ctx context.Context, userID string) (res *TrackResult, err error) {
	err = s.inTx(ctx, func(tx *gorm.DB) error {
		res, err = s.TrackTopicCreatedTx(tx, userID)
		return err
	})
	return res, err
}

func (s *GamificationService) TrackTopicCreatedTx(tx *gorm.DB, userID string) (*TrackResult, error) {
	return s.track(tx, userID, s.Rewards.TopicCreated, "topic_created", TopicBadges, Increment(1))
}

func (s *GamificationService) TrackReplyCreated(ctx context.Context, userID string) (res *TrackResult, err error) {
	err = s.inTx(ctx, func(tx *gorm.DB) error {
		res, err = s.TrackReplyCreatedTx(tx, userID)
		return err
	})
	return res, err
}

func (s *GamificationService) TrackReplyCreatedTx(tx *gorm.DB, userID string) (*TrackResult, error) {
	return s.track(tx, userID, s.Rewards.ReplyCreated, "reply_created", ReplyBadges, Increment(1))
}

func (s *GamificationService) TrackLikeReceived(ctx context.Context, userID string) (res *TrackResult, err error) {
	err = s.inTx(ctx, func(tx *gorm.DB) error {
		res, err = s.TrackLikeReceivedTx(tx, userID)
		return err
	})
	return res, err
}

func (s *GamificationService) TrackLikeReceivedTx(tx *gorm.DB, userID string) (*TrackResult, error) {
	return s.track(tx, userID, s.Rewards.LikeReceived, "like_received", LikeBadges, Increment(1))
}

func (s *GamificationService) TrackBookmarkCreated(ctx context.Context, userID string) (res *TrackResult, err error) {
	err = s.inTx(ctx, func(tx *gorm.DB) error {
		res, err = s.TrackBookmarkCreatedTx(tx, userID)
		return err
	})
	return res, err
}

func (s *GamificationService) TrackBookmarkCreatedTx(tx *gorm.DB, userID string) (*TrackResult, error) {
	return s.track(tx, userID, s.Rewards.BookmarkCreated, "bookmark_created", BookmarkBadges, Increment(1))
}

// UpdateDailyStreak touches the streak. Daily-login XP is paid once per
// calendar day, on the call that advances or restarts the streak. Repeat calls
// on the same day pay nothing (XPAwarded is 0) but still re-evaluate the
// streak badge tiers.
func (s *GamificationService) UpdateDailyStreak(ctx context.Context, userID string) (res *StreakResult, err error) {
	err = s.inTx(ctx, func(tx *gorm.DB) error {
		res, err = s.UpdateDailyStreakTx(tx, userID)
		return err
	})
	return res, err
}

func (s *GamificationService) UpdateDailyStreakTx(tx *gorm.DB, userID string) (*StreakResult, error) {
	st, advanced, err := s.Streaks.touchTx(tx, userID)
	if err != nil {
		return nil, err
	}
	var xp int64
	if advanced {
		xp = s.Rewards.DailyLogin
	}
	tr, err := s.track(tx, userID, xp, "daily_login", StreakBadges, SetTo(st.CurrentStreak))
	if err != nil {
		return nil, err
	}
	return &StreakResult{
		TrackResult:   *tr,
		CurrentStreak: st.CurrentStreak,
		LongestStreak: st.LongestStreak,
		Advanced:      advanced,
	}, nil
}

// CheckTopicLikesBadges recounts likes across the author's topics and sets
// the topic-likes tiers to that total.
func (s *GamificationService) CheckTopicLikesBadges(ctx context.Context, authorID string) (res *TopicLikesResult, err error) {
	err = s.inTx(ctx, func(tx *gorm.DB) error {
		res, err = s.CheckTopicLikesBadgesTx(tx, authorID)
		return err
	})
	return res, err
}

func (s *GamificationService) CheckTopicLikesBadgesTx(tx *gorm.DB, authorID string) (*TopicLikesResult, error) {
	var total int64
	err := tx.Model(&models.TopicLike{}).
		Joins("JOIN topics ON topics.id = topic_likes.topic_id").
		Where("topics.author_id = ? AND topics.deleted_at IS NULL", authorID).
		Count(&total).Error
	if err != nil {
		return nil, err
	}
	unlocked, err := s.advance(tx, authorID, TopicLikesBadges, SetTo(int(total)))
	if err != nil {
		return nil, err
	}
	return &TopicLikesResult{TotalLikes: total, BadgesUnlocked: unlocked}, nil
}

// CheckReportsBadge sets the moderator badge progress to the reporter's
// report count.
func (s *GamificationService) CheckReportsBadge(ctx context.Context, reporterID string) (res *ReportsBadgeResult, err error) {
	err = s.inTx(ctx, func(tx *gorm.DB) error {
		res, err = s.CheckReportsBadgeTx(tx, reporterID)
		return err
	})
	return res, err
}

func (s *GamificationService) CheckReportsBadgeTx(tx *gorm.DB, reporterID string) (*ReportsBadgeResult, error) {
	var total int64
	if err := tx.Model(&models.Report{}).Where("reporter_id = ?", reporterID).Count(&total).Error; err != nil {
		return nil, err
	}
	b, err := s.Badges.updateProgressTx(tx, reporterID, models.BadgeModeratorFriend, SetTo(int(total)))
	if err != nil {
		return nil, err
	}
	return &ReportsBadgeResult{TotalReports: total, BadgeUnlocked: b}, nil
}

// UserGamification assembles the read-only profile view.
func (s *GamificationService) UserGamification(ctx context.Context, userID string) (*UserGamification, error) {
	level, err := s.Progression.LevelProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	badges, err := s.Badges.UserBadges(ctx, userID)
	if err != nil {
		return nil, err
	}
	streak, err := s.Streaks.Streak(ctx, userID)
	if err != nil {
		return nil, err
	}
	var ahead int64
	if err := s.DB.WithContext(ctx).Model(&models.UserLevel{}).Where("xp > ?", level.XP).Count(&ahead).Error; err != nil {
		return nil, err
	}
	return &UserGamification{
		LevelData:           level,
		Badges:              badges,
		StreakData:          streak,
		LeaderboardPosition: ahead + 1,
	}, nil
}
