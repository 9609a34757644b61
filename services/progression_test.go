package services

import (
	"context"
	"sync"
	"testing"

	"forum-engagement-system/models"

	"github.com/stretchr/testify/require"
)

func shiftedLevels(from int, delta int64) []models.Level {
	levels := make([]models.Level, len(DefaultLevels))
	copy(levels, DefaultLevels)
	for i := range levels {
		if levels[i].LevelNumber >= from {
			levels[i].XPRequired += delta
		}
	}
	return levels
}

func TestAwardXPCreatesLedgerLazily(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var count int64
	require.NoError(t, f.db.Model(&models.UserLevel{}).Count(&count).Error)
	require.Zero(t, count)

	ul, err := f.gamification.Progression.AwardXP(ctx, "u1", 10, "test")
	require.NoError(t, err)
	require.EqualValues(t, 10, ul.XP)
	require.Equal(t, 1, ul.Level)
	require.Equal(t, "Newbie", ul.LevelName)
	require.Nil(t, ul.LastLevelUpAt)

	require.NoError(t, f.db.Model(&models.UserLevel{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestAwardXPLevelsUp(t *testing.T) {
	f := newFixture(t)

	ul, err := f.gamification.Progression.AwardXP(context.Background(), "u1", 1000, "test")
	require.NoError(t, err)
	require.Equal(t, 3, ul.Level)
	require.Equal(t, "Member", ul.LevelName)
	require.NotNil(t, ul.LastLevelUpAt)
	require.True(t, ul.LastLevelUpAt.Equal(testEpoch))
}

func TestAwardXPRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.gamification.Progression.AwardXP(ctx, "u1", -1, "test")
	kind, ok := KindOf(err)
	require.True(t, ok)
	require.Equal(t, KindValidation, kind)

	_, err = f.gamification.Progression.AwardXP(ctx, "", 5, "test")
	kind, _ = KindOf(err)
	require.Equal(t, KindValidation, kind)
}

func TestLevelNeverDecreasesWhenThresholdsRise(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.gamification.Progression

	_, err := p.AwardXP(ctx, "u1", 1000, "test")
	require.NoError(t, err)

	require.NoError(t, SeedCatalog(ctx, f.db, DefaultBadges, shiftedLevels(3, 10000)))

	ul, err := p.AwardXP(ctx, "u1", 1, "test")
	require.NoError(t, err)
	require.Equal(t, 3, ul.Level)
	require.Equal(t, "Member", ul.LevelName)

	changed, err := p.RecalculateLevels(ctx)
	require.NoError(t, err)
	require.Zero(t, changed)

	lp, err := p.LevelProgress(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 3, lp.Level)
}

func TestRecalculateLevelsRaisesToCatalog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.gamification.Progression

	_, err := p.AwardXP(ctx, "u1", 600, "test")
	require.NoError(t, err)
	_, err = p.AwardXP(ctx, "u2", 10, "test")
	require.NoError(t, err)

	levels := make([]models.Level, len(DefaultLevels))
	copy(levels, DefaultLevels)
	levels[2].XPRequired = 550
	require.NoError(t, SeedCatalog(ctx, f.db, DefaultBadges, levels))

	changed, err := p.RecalculateLevels(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, changed)

	ul, err := currentLevelTx(f.db, "u1")
	require.NoError(t, err)
	require.Equal(t, 3, ul.Level)
}

func TestConcurrentAwardsDoNotLoseUpdates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.gamification.Progression.AwardXP(ctx, "u1", 5, "reply_created")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	require.EqualValues(t, 100, f.xp(t, "u1"))
}

func TestBuildLevelProgress(t *testing.T) {
	tests := []struct {
		name      string
		ul        models.UserLevel
		currentXP int64
		toNext    int64
		pct       float64
		next      int
	}{
		{"fresh user", models.UserLevel{XP: 0, Level: 1}, 0, 500, 0, 2},
		{"halfway through level 2", models.UserLevel{XP: 750, Level: 2}, 250, 250, 50, 3},
		{"on threshold", models.UserLevel{XP: 1000, Level: 3}, 0, 500, 0, 4},
		{"elite tier", models.UserLevel{XP: 5200, Level: 11}, 200, 300, 40, 12},
		{"max level", models.UserLevel{XP: 30000, Level: 30}, 15500, 0, 100, 0},
		{"level kept above xp", models.UserLevel{XP: 900, Level: 3}, 0, 600, 0, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := BuildLevelProgress(tt.ul, DefaultLevels)
			require.Equal(t, tt.currentXP, p.CurrentXP)
			require.Equal(t, tt.toNext, p.XPToNextLevel)
			require.InDelta(t, tt.pct, p.XPProgressPercentage, 0.001)
			if tt.next == 0 {
				require.Nil(t, p.NextLevel)
			} else {
				require.Equal(t, tt.next, p.NextLevel.LevelNumber)
			}
			require.GreaterOrEqual(t, p.XPProgressPercentage, 0.0)
			require.LessOrEqual(t, p.XPProgressPercentage, 100.0)
		})
	}
}

func TestLevelProgressForUnknownUser(t *testing.T) {
	f := newFixture(t)

	lp, err := f.gamification.Progression.LevelProgress(context.Background(), "ghost")
	require.NoError(t, err)
	require.Equal(t, 1, lp.Level)
	require.Zero(t, lp.XP)
	require.EqualValues(t, 500, lp.XPToNextLevel)

	var count int64
	require.NoError(t, f.db.Model(&models.UserLevel{}).Count(&count).Error)
	require.Zero(t, count)
}
