package services

import (
	"context"
	"log"
	"time"

	"forum-engagement-system/models"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
)

// Backfills re-derive gamification state from source data. Every job is
// idempotent: levels only rise and badge updates are absolute.
type Backfills struct {
	Gamification *GamificationService
	Clock        clockwork.Clock
	Location     *time.Location

	sched gocron.Scheduler
}

func NewBackfills(gamification *GamificationService, clock clockwork.Clock, loc *time.Location) *Backfills {
	if loc == nil {
		loc = time.UTC
	}
	return &Backfills{Gamification: gamification, Clock: clock, Location: loc}
}

// Start registers the jobs and starts the scheduler.
func (b *Backfills) Start() error {
	sched, err := gocron.NewScheduler(gocron.WithClock(b.Clock), gocron.WithLocation(b.Location))
	if err != nil {
		return err
	}

	jobs := []struct {
		name string
		def  gocron.JobDefinition
		run  func(ctx context.Context) (int, error)
	}{
		{"recalculate-levels", gocron.DurationJob(time.Hour), b.Gamification.Progression.RecalculateLevels},
		{"streak-badges", gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(0, 5, 0))), b.Gamification.RefreshStreakBadges},
		{"moderator-badges", gocron.DurationJob(time.Hour), b.Gamification.RefreshReportBadges},
		{"topic-likes-badges", gocron.DurationJob(time.Hour), b.Gamification.RefreshTopicLikesBadges},
	}
	for _, j := range jobs {
		name, run := j.name, j.run
		_, err := sched.NewJob(j.def, gocron.NewTask(func() {
			n, err := run(context.Background())
			if err != nil {
				log.Printf("[Scheduler] %s failed: %v", name, err)
				return
			}
			log.Printf("✅ [Scheduler] %s: %d updated", name, n)
		}), gocron.WithName(name), gocron.WithSingletonMode(gocron.LimitModeReschedule))
		if err != nil {
			_ = sched.Shutdown()
			return err
		}
	}

	sched.Start()
	b.sched = sched
	return nil
}

// JobNames lists registered jobs; empty before Start.
func (b *Backfills) JobNames() []string {
	if b.sched == nil {
		return nil
	}
	var names []string
	for _, j := range b.sched.Jobs() {
		names = append(names, j.Name())
	}
	return names
}

func (b *Backfills) Shutdown() error {
	if b.sched == nil {
		return nil
	}
	return b.sched.Shutdown()
}

// RefreshStreakBadges sets every streak tier to each user's current streak.
func (s *GamificationService) RefreshStreakBadges(ctx context.Context) (int, error) {
	var streaks []models.UserStreak
	if err := s.DB.WithContext(ctx).Where("current_streak > 0").Find(&streaks).Error; err != nil {
		return 0, err
	}
	unlocked := 0
	for _, st := range streaks {
		for _, key := range StreakBadges {
			b, err := s.Badges.UpdateProgress(ctx, st.UserID, key, SetTo(st.CurrentStreak))
			if err != nil {
				return unlocked, err
			}
			if b != nil {
				unlocked++
			}
		}
	}
	return unlocked, nil
}

// RefreshReportBadges re-runs the moderator badge check for every reporter.
func (s *GamificationService) RefreshReportBadges(ctx context.Context) (int, error) {
	var reporters []string
	if err := s.DB.WithContext(ctx).Model(&models.Report{}).Distinct().Pluck("reporter_id", &reporters).Error; err != nil {
		return 0, err
	}
	unlocked := 0
	for _, id := range reporters {
		res, err := s.CheckReportsBadge(ctx, id)
		if err != nil {
			return unlocked, err
		}
		if res.BadgeUnlocked != nil {
			unlocked++
		}
	}
	return unlocked, nil
}

// RefreshTopicLikesBadges re-runs the topic-likes check for every topic author.
func (s *GamificationService) RefreshTopicLikesBadges(ctx context.Context) (int, error) {
	var authors []string
	if err := s.DB.WithContext(ctx).Model(&models.Topic{}).Distinct().Pluck("author_id", &authors).Error; err != nil {
		return 0, err
	}
	unlocked := 0
	for _, id := range authors {
		res, err := s.CheckTopicLikesBadges(ctx, id)
		if err != nil {
			return unlocked, err
		}
		unlocked += len(res.BadgesUnlocked)
	}
	return unlocked, nil
}
