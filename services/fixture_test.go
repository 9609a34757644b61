package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"forum-engagement-system/config"
	"forum-engagement-system/models"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testEpoch = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

// newTestDB opens a per-test in-memory database with the default catalog.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	require.NoError(t, SeedCatalog(context.Background(), db, DefaultBadges, DefaultLevels))
	require.NoError(t, SeedReportReasons(context.Background(), db))
	return db
}

type fixture struct {
	db           *gorm.DB
	clock        *clockwork.FakeClock
	gamification *GamificationService
	forum        *ForumService
	moderation   *ModerationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	clock := clockwork.NewFakeClockAt(testEpoch)
	cfg := &config.Config{XP: config.DefaultXPRewards, Location: time.UTC}
	g := NewGamificationService(db, clock, cfg)
	return &fixture{
		db:           db,
		clock:        clock,
		gamification: g,
		forum:        NewForumService(db, clock, g),
		moderation:   NewModerationService(db, clock, g),
	}
}

func (f *fixture) xp(t *testing.T, userID string) int64 {
	t.Helper()
	ul, err := currentLevelTx(f.db, userID)
	require.NoError(t, err)
	return ul.XP
}

// userBadge returns the stored progress row, if any.
func (f *fixture) userBadge(t *testing.T, userID string, key models.BadgeKey) (models.UserBadge, bool) {
	t.Helper()
	var ub models.UserBadge
	err := f.db.Joins("JOIN badges ON badges.id = user_badges.badge_id").
		Where("user_badges.user_id = ? AND badges.badge_key = ?", userID, key).
		First(&ub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ub, false
	}
	require.NoError(t, err)
	return ub, true
}

func (f *fixture) topic(t *testing.T, authorID string) *models.Topic {
	t.Helper()
	topic := &models.Topic{AuthorID: authorID, Title: "Brake noise at low speed"}
	require.NoError(t, f.db.Create(topic).Error)
	return topic
}

// reply inserts a reply directly, one second after the previous one.
func (f *fixture) reply(t *testing.T, topicID, authorID string, parentID *string) *models.Reply {
	t.Helper()
	f.clock.Advance(time.Second)
	r := &models.Reply{TopicID: topicID, AuthorID: authorID, ParentID: parentID, Content: "check the pads", CreatedAt: f.clock.Now()}
	require.NoError(t, f.db.Create(r).Error)
	return r
}

func (f *fixture) reasonID(t *testing.T) string {
	t.Helper()
	var reason models.ReportReason
	require.NoError(t, f.db.Where("is_active = ?", true).Order("sort_order").First(&reason).Error)
	return reason.ID
}

func badgeNames(summaries []BadgeSummary) []string {
	names := make([]string, len(summaries))
	for i, b := range summaries {
		names[i] = b.Name
	}
	return names
}
