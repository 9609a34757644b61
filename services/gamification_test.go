package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"forum-engagement-system/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestFirstTopicUnlocksFirstPost(t *testing.T) {
	f := newFixture(t)

	res, err := f.gamification.TrackTopicCreated(context.Background(), "u1")
	require.NoError(t, err)
	require.EqualValues(t, 10, res.XPAwarded)
	require.Equal(t, []string{"First Post"}, badgeNames(res.BadgesUnlocked))
	require.EqualValues(t, 60, res.TotalXP)
	require.Equal(t, 1, res.Level)
}

func TestTenTopicsUnlockTenPosts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var last *TrackResult
	for i := 0; i < 10; i++ {
		res, err := f.gamification.TrackTopicCreated(ctx, "u1")
		require.NoError(t, err)
		if i > 0 && i < 9 {
			require.Empty(t, res.BadgesUnlocked)
		}
		last = res
	}
	require.Equal(t, []string{"10 Posts"}, badgeNames(last.BadgesUnlocked))
	require.EqualValues(t, 250, last.TotalXP)

	fifty, ok := f.userBadge(t, "u1", models.BadgeFiftyPosts)
	require.True(t, ok)
	require.Equal(t, 10, fifty.Progress)
	require.False(t, fifty.Unlocked)
}

func TestEventRewards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reply, err := f.gamification.TrackReplyCreated(ctx, "u1")
	require.NoError(t, err)
	require.EqualValues(t, 5, reply.XPAwarded)
	require.Empty(t, reply.BadgesUnlocked)

	like, err := f.gamification.TrackLikeReceived(ctx, "u1")
	require.NoError(t, err)
	require.EqualValues(t, 2, like.XPAwarded)

	bookmark, err := f.gamification.TrackBookmarkCreated(ctx, "u1")
	require.NoError(t, err)
	require.EqualValues(t, 1, bookmark.XPAwarded)
	require.EqualValues(t, 8, bookmark.TotalXP)

	hundred, ok := f.userBadge(t, "u1", models.BadgeHundredReplies)
	require.True(t, ok)
	require.Equal(t, 1, hundred.Progress)
	mechanic, ok := f.userBadge(t, "u1", models.BadgeExpertMechanic)
	require.True(t, ok)
	require.Equal(t, 1, mechanic.Progress)
	bookworm, ok := f.userBadge(t, "u1", models.BadgeBookworm)
	require.True(t, ok)
	require.Equal(t, 1, bookworm.Progress)

	_, err = f.gamification.TrackLikeReceived(ctx, "")
	kind, _ := KindOf(err)
	require.Equal(t, KindValidation, kind)
}

func TestTenLikesUnlockTenLikes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var last *TrackResult
	for i := 0; i < 10; i++ {
		res, err := f.gamification.TrackLikeReceived(ctx, "u1")
		require.NoError(t, err)
		last = res
	}
	require.Equal(t, []string{"10 Likes"}, badgeNames(last.BadgesUnlocked))
	require.EqualValues(t, 20+50, last.TotalXP)
}

func TestSeventhDayUnlocksStreakTiers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	yesterday := f.gamification.Streaks.Today().AddDate(0, 0, -1)
	require.NoError(t, f.db.Create(&models.UserStreak{
		UserID:           "u1",
		CurrentStreak:    6,
		LongestStreak:    6,
		LastActivityDate: &yesterday,
	}).Error)

	res, err := f.gamification.UpdateDailyStreak(ctx, "u1")
	require.NoError(t, err)
	require.True(t, res.Advanced)
	require.Equal(t, 7, res.CurrentStreak)
	require.Equal(t, 7, res.LongestStreak)
	require.EqualValues(t, 5, res.XPAwarded)
	require.ElementsMatch(t, []string{"3 Days Active", "7 Days Active"}, badgeNames(res.BadgesUnlocked))
	require.EqualValues(t, 5+30+70, res.TotalXP)

	thirty, ok := f.userBadge(t, "u1", models.BadgeStreak30)
	require.True(t, ok)
	require.Equal(t, 7, thirty.Progress)
}

func TestDailyStreakTwiceSameDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.gamification.UpdateDailyStreak(ctx, "u1")
	require.NoError(t, err)
	require.True(t, first.Advanced)
	require.Equal(t, 1, first.CurrentStreak)
	require.EqualValues(t, 5, first.TotalXP)

	f.clock.Advance(3 * time.Hour)
	second, err := f.gamification.UpdateDailyStreak(ctx, "u1")
	require.NoError(t, err)
	require.False(t, second.Advanced)
	require.Zero(t, second.XPAwarded)
	require.Empty(t, second.BadgesUnlocked)
	require.Equal(t, 1, second.CurrentStreak)
	require.EqualValues(t, 5, second.TotalXP)
}

func TestStreakBreakLowersLockedTierProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := f.gamification.UpdateDailyStreak(ctx, "u1")
		require.NoError(t, err)
		f.clock.Advance(24 * time.Hour)
	}
	seven, _ := f.userBadge(t, "u1", models.BadgeStreak7)
	require.Equal(t, 5, seven.Progress)

	f.clock.Advance(48 * time.Hour)
	res, err := f.gamification.UpdateDailyStreak(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 1, res.CurrentStreak)
	require.Equal(t, 5, res.LongestStreak)

	seven, _ = f.userBadge(t, "u1", models.BadgeStreak7)
	require.Equal(t, 1, seven.Progress)
	three, _ := f.userBadge(t, "u1", models.BadgeStreak3)
	require.True(t, three.Unlocked)
	require.Equal(t, 3, three.Progress)
}

func TestCheckTopicLikesBadges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.topic(t, "author")
	second := f.topic(t, "author")
	for i := 0; i < 6; i++ {
		require.NoError(t, f.db.Create(&models.TopicLike{TopicID: first.ID, UserID: fmt.Sprintf("fan-%d", i)}).Error)
	}
	for i := 0; i < 4; i++ {
		require.NoError(t, f.db.Create(&models.TopicLike{TopicID: second.ID, UserID: fmt.Sprintf("fan-%d", i)}).Error)
	}
	other := f.topic(t, "someone-else")
	require.NoError(t, f.db.Create(&models.TopicLike{TopicID: other.ID, UserID: "fan-0"}).Error)

	res, err := f.gamification.CheckTopicLikesBadges(ctx, "author")
	require.NoError(t, err)
	require.EqualValues(t, 10, res.TotalLikes)
	require.Equal(t, []string{"Well Received"}, badgeNames(res.BadgesUnlocked))
	require.EqualValues(t, 50, f.xp(t, "author"))

	again, err := f.gamification.CheckTopicLikesBadges(ctx, "author")
	require.NoError(t, err)
	require.Empty(t, again.BadgesUnlocked)
	require.EqualValues(t, 50, f.xp(t, "author"))
}

func TestTopicLikesIgnoreDeletedTopics(t *testing.T) {
	f := newFixture(t)
	topic := f.topic(t, "author")
	for i := 0; i < 10; i++ {
		require.NoError(t, f.db.Create(&models.TopicLike{TopicID: topic.ID, UserID: fmt.Sprintf("fan-%d", i)}).Error)
	}
	require.NoError(t, f.db.Delete(topic).Error)

	res, err := f.gamification.CheckTopicLikesBadges(context.Background(), "author")
	require.NoError(t, err)
	require.Zero(t, res.TotalLikes)
	require.Empty(t, res.BadgesUnlocked)
}

func TestUserGamificationPosition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.gamification.Progression.AwardXP(ctx, "u1", 100, "test")
	require.NoError(t, err)
	_, err = f.gamification.Progression.AwardXP(ctx, "u2", 50, "test")
	require.NoError(t, err)
	_, err = f.gamification.Progression.AwardXP(ctx, "u3", 50, "test")
	require.NoError(t, err)

	view, err := f.gamification.UserGamification(ctx, "u2")
	require.NoError(t, err)
	require.EqualValues(t, 2, view.LeaderboardPosition)
	require.EqualValues(t, 50, view.LevelData.XP)
	require.Len(t, view.Badges, len(DefaultBadges))

	top, err := f.gamification.UserGamification(ctx, "u1")
	require.NoError(t, err)
	require.EqualValues(t, 1, top.LeaderboardPosition)
}

func TestCancelledContextWritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.gamification.TrackTopicCreated(ctx, "u1")
	require.Error(t, err)

	var levels, badges int64
	require.NoError(t, f.db.Model(&models.UserLevel{}).Count(&levels).Error)
	require.NoError(t, f.db.Model(&models.UserBadge{}).Count(&badges).Error)
	require.Zero(t, levels)
	require.Zero(t, badges)
}

func TestFailedEventRollsBackXP(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Award succeeds inside the transaction, then the callback fails.
	err := f.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := f.gamification.TrackTopicCreatedTx(tx, "u1"); err != nil {
			return err
		}
		return ErrTopicNotFound
	})
	require.ErrorIs(t, err, ErrTopicNotFound)
	require.Zero(t, f.xp(t, "u1"))
	_, ok := f.userBadge(t, "u1", models.BadgeFirstPost)
	require.False(t, ok)
}
