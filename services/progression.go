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

var forUpdate = clause.Locking{Strength: "UPDATE"}

// ProgressionService is the XP ledger: cumulative XP and the derived level.
type ProgressionService struct {
	DB    *gorm.DB
	Clock clockwork.Clock
}

func NewProgressionService(db *gorm.DB, clock clockwork.Clock) *ProgressionService {
	return &ProgressionService{DB: db, Clock: clock}
}

// LevelProgress is the read model for a user's position inside the level table.
type LevelProgress struct {
	UserID               string        `json:"user_id"`
	XP                   int64         `json:"xp"`
	Level                int           `json:"level"`
	LevelName            string        `json:"level_name"`
	CurrentXP            int64         `json:"current_xp"`
	XPToNextLevel        int64         `json:"xp_to_next_level"`
	XPProgressPercentage float64       `json:"xp_progress_percentage"`
	CurrentLevel         *models.Level `json:"current_level,omitempty"`
	NextLevel            *models.Level `json:"next_level,omitempty"`
}

// lockUserLevel creates the row on first use, then reads it FOR UPDATE so
// concurrent awards to the same user serialize on it.
func lockUserLevel(tx *gorm.DB, userID string) (*models.UserLevel, error) {
	seed := models.UserLevel{UserID: userID, Level: 1, LevelName: "Newbie"}
	if err := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&seed).Error; err != nil {
		return nil, fmt.Errorf("ensure user level for %s: %w", userID, err)
	}
	var ul models.UserLevel
	if err := tx.Clauses(forUpdate).Where("user_id = ?", userID).First(&ul).Error; err != nil {
		return nil, fmt.Errorf("lock user level for %s: %w", userID, err)
	}
	return &ul, nil
}

func loadLevels(tx *gorm.DB) ([]models.Level, error) {
	var levels []models.Level
	err := tx.Where("is_active = ?", true).Order("level_number ASC").Find(&levels).Error
	return levels, err
}

// levelFor returns the highest level whose threshold is <= xp.
// levels must be ordered by level number.
func levelFor(levels []models.Level, xp int64) *models.Level {
	var found *models.Level
	for i := range levels {
		if levels[i].XPRequired <= xp {
			found = &levels[i]
		}
	}
	return found
}

// applyLevel raises ul.Level to match its XP. It never lowers it.
func applyLevel(ul *models.UserLevel, levels []models.Level, now time.Time) bool {
	lvl := levelFor(levels, ul.XP)
	if lvl == nil || lvl.LevelNumber <= ul.Level {
		if cur := levelByNumber(levels, ul.Level); cur != nil {
			ul.LevelName = cur.Name
		}
		return false
	}
	ul.Level = lvl.LevelNumber
	ul.LevelName = lvl.Name
	ul.LastLevelUpAt = &now
	return true
}

func levelByNumber(levels []models.Level, number int) *models.Level {
	for i := range levels {
		if levels[i].LevelNumber == number {
			return &levels[i]
		}
	}
	return nil
}

// AwardXP atomically adds XP and recomputes the level.
func (s *ProgressionService) AwardXP(ctx context.Context, userID string, amount int64, reason string) (*models.UserLevel, error) {
	var updated *models.UserLevel
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		updated, err = s.awardXPTx(tx, userID, amount, reason)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *ProgressionService) awardXPTx(tx *gorm.DB, userID string, amount int64, reason string) (*models.UserLevel, error) {
	if userID == "" {
		return nil, Validation("user id is required")
	}
	if amount < 0 {
		return nil, Validation("xp amount must not be negative")
	}

	ul, err := lockUserLevel(tx, userID)
	if err != nil {
		return nil, err
	}
	levels, err := loadLevels(tx)
	if err != nil {
		return nil, err
	}

	ul.XP += amount
	leveledUp := applyLevel(ul, levels, s.Clock.Now())

	if err := tx.Save(ul).Error; err != nil {
		return nil, err
	}

	if leveledUp {
		log.Printf("⬆️  [GAMIFICATION] Level up: %s → Lvl=%d (%s), XP=%d", userID, ul.Level, ul.LevelName, ul.XP)
	}
	log.Printf("🎮 [GAMIFICATION] XP awarded: %s +%d → XP=%d (reason: %s)", userID, amount, ul.XP, reason)
	return ul, nil
}

// currentLevelTx reads the ledger row without creating it.
func currentLevelTx(tx *gorm.DB, userID string) (models.UserLevel, error) {
	var ul models.UserLevel
	err := tx.Where("user_id = ?", userID).First(&ul).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.UserLevel{UserID: userID, Level: 1, LevelName: "Newbie"}, nil
	}
	return ul, err
}

// LevelProgress reports XP inside the current level. Users without a ledger
// row are reported at level 1 with zero XP.
func (s *ProgressionService) LevelProgress(ctx context.Context, userID string) (*LevelProgress, error) {
	db := s.DB.WithContext(ctx)
	ul, err := currentLevelTx(db, userID)
	if err != nil {
		return nil, err
	}
	levels, err := loadLevels(db)
	if err != nil {
		return nil, err
	}
	p := BuildLevelProgress(ul, levels)
	return &p, nil
}

// BuildLevelProgress derives progress figures from the gap between the
// user's level entry and the next one. At max level it reports 100%.
func BuildLevelProgress(ul models.UserLevel, levels []models.Level) LevelProgress {
	p := LevelProgress{
		UserID:    ul.UserID,
		XP:        ul.XP,
		Level:     ul.Level,
		LevelName: ul.LevelName,
	}

	var current, next *models.Level
	for i := range levels {
		if levels[i].LevelNumber <= ul.Level {
			current = &levels[i]
		} else if next == nil {
			next = &levels[i]
		}
	}

	var floor int64
	if current != nil {
		floor = current.XPRequired
		p.CurrentLevel = current
		if p.LevelName == "" {
			p.LevelName = current.Name
		}
	}
	p.CurrentXP = ul.XP - floor
	if p.CurrentXP < 0 {
		p.CurrentXP = 0
	}

	if next == nil {
		p.XPProgressPercentage = 100
		return p
	}
	p.NextLevel = next
	p.XPToNextLevel = next.XPRequired - ul.XP
	if p.XPToNextLevel < 0 {
		p.XPToNextLevel = 0
	}
	gap := next.XPRequired - floor
	if gap <= 0 {
		p.XPProgressPercentage = 100
		return p
	}
	pct := float64(p.CurrentXP) / float64(gap) * 100
	if pct > 100 {
		pct = 100
	}
	p.XPProgressPercentage = pct
	return p
}

// RecalculateLevels re-derives every stored level from the current catalog.
// Levels only move up.
func (s *ProgressionService) RecalculateLevels(ctx context.Context) (int, error) {
	var userIDs []string
	if err := s.DB.WithContext(ctx).Model(&models.UserLevel{}).Pluck("user_id", &userIDs).Error; err != nil {
		return 0, err
	}

	changed := 0
	for _, userID := range userIDs {
		err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var ul models.UserLevel
			if err := tx.Clauses(forUpdate).Where("user_id = ?", userID).First(&ul).Error; err != nil {
				return err
			}
			levels, err := loadLevels(tx)
			if err != nil {
				return err
			}
			before := ul.Level
			applyLevel(&ul, levels, s.Clock.Now())
			if ul.Level != before {
				changed++
				log.Printf("[Scheduler] %s: Level %d → %d (%s) [%d XP]", userID, before, ul.Level, ul.LevelName, ul.XP)
			}
			return tx.Save(&ul).Error
		})
		if err != nil {
			return changed, fmt.Errorf("recalculate level for %s: %w", userID, err)
		}
	}
	return changed, nil
}
