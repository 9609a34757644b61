package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"forum-engagement-system/models"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StreakService tracks consecutive calendar days of activity. Days are
// counted in Location, the forum's configured timezone.
type StreakService struct {
	DB       *gorm.DB
	Clock    clockwork.Clock
	Location *time.Location
}

func NewStreakService(db *gorm.DB, clock clockwork.Clock, loc *time.Location) *StreakService {
	if loc == nil {
		loc = time.UTC
	}
	return &StreakService{DB: db, Clock: clock, Location: loc}
}

// Today returns the current local calendar day as midnight UTC.
func (s *StreakService) Today() time.Time {
	now := s.Clock.Now().In(s.Location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func calendarDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// advanceStreak moves st to today. It reports whether the streak changed,
// which is false for a second touch on the same day.
func advanceStreak(st *models.UserStreak, today time.Time) bool {
	if st.LastActivityDate == nil {
		st.CurrentStreak = 1
	} else {
		days := int(today.Sub(calendarDay(*st.LastActivityDate)).Hours() / 24)
		switch {
		case days <= 0:
			// Same day, or a date behind the stored one after a timezone change.
			return false
		case days == 1:
			st.CurrentStreak++
		default:
			st.CurrentStreak = 1
		}
	}
	if st.CurrentStreak > st.LongestStreak {
		st.LongestStreak = st.CurrentStreak
	}
	st.LastActivityDate = &today
	return true
}

// Touch records activity for today.
func (s *StreakService) Touch(ctx context.Context, userID string) (*models.UserStreak, bool, error) {
	var (
		st       *models.UserStreak
		advanced bool
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		st, advanced, err = s.touchTx(tx, userID)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return st, advanced, nil
}

func (s *StreakService) touchTx(tx *gorm.DB, userID string) (*models.UserStreak, bool, error) {
	if userID == "" {
		return nil, false, Validation("user id is required")
	}
	seed := models.UserStreak{UserID: userID}
	if err := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&seed).Error; err != nil {
		return nil, false, fmt.Errorf("ensure streak for %s: %w", userID, err)
	}
	var st models.UserStreak
	if err := tx.Clauses(forUpdate).Where("user_id = ?", userID).First(&st).Error; err != nil {
		return nil, false, fmt.Errorf("lock streak for %s: %w", userID, err)
	}

	if !advanceStreak(&st, s.Today()) {
		return &st, false, nil
	}
	if err := tx.Save(&st).Error; err != nil {
		return nil, false, err
	}
	return &st, true, nil
}

// Streak reads the stored streak, or a zero streak for unknown users.
func (s *StreakService) Streak(ctx context.Context, userID string) (models.UserStreak, error) {
	var st models.UserStreak
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.UserStreak{UserID: userID}, nil
	}
	return st, err
}
