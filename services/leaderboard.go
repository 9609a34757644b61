package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"forum-engagement-system/models"
)

const (
	defaultLeaderboardSize = 10
	maxLeaderboardSize     = 100
)

// Cache is the subset of a JSON cache the leaderboard needs.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type LeaderboardEntry struct {
	Rank      int    `json:"rank"`
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	XP        int64  `json:"xp"`
	Level     int    `json:"level"`
	LevelName string `json:"level_name"`
}

type LeaderboardService struct {
	Progression *ProgressionService
	Cache       Cache
	TTL         time.Duration
}

// NewLeaderboardService builds the service. A nil cache reads straight from the database.
func NewLeaderboardService(progression *ProgressionService, cache Cache, ttl time.Duration) *LeaderboardService {
	return &LeaderboardService{Progression: progression, Cache: cache, TTL: ttl}
}

func leaderboardKey(limit int) string {
	return fmt.Sprintf("leaderboard:top:%d", limit)
}

// Top returns the highest-XP users. Cache failures fall back to the database.
func (s *LeaderboardService) Top(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = defaultLeaderboardSize
	}
	if limit > maxLeaderboardSize {
		limit = maxLeaderboardSize
	}

	key := leaderboardKey(limit)
	if s.Cache != nil {
		var cached []LeaderboardEntry
		if err := s.Cache.GetJSON(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	var rows []struct {
		UserID    string
		Username  *string
		XP        int64
		Level     int
		LevelName string
	}
	err := s.Progression.DB.WithContext(ctx).
		Model(&models.UserLevel{}).
		Select("user_levels.user_id, forum_users.username, user_levels.xp, user_levels.level, user_levels.level_name").
		Joins("LEFT JOIN forum_users ON forum_users.external_user_id = user_levels.user_id").
		Order("user_levels.xp DESC, user_levels.user_id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, len(rows))
	for i, r := range rows {
		entries[i] = LeaderboardEntry{
			Rank:      i + 1,
			UserID:    r.UserID,
			XP:        r.XP,
			Level:     r.Level,
			LevelName: r.LevelName,
		}
		if r.Username != nil {
			entries[i].Username = *r.Username
		}
	}

	if s.Cache != nil {
		if err := s.Cache.SetJSON(ctx, key, entries, s.TTL); err != nil {
			log.Printf("⚠️ [LEADERBOARD] cache write failed: %v", err)
		}
	}
	return entries, nil
}

// Invalidate drops every cached page size.
func (s *LeaderboardService) Invalidate(ctx context.Context) {
	if s.Cache == nil {
		return
	}
	keys := make([]string, 0, maxLeaderboardSize)
	for n := 1; n <= maxLeaderboardSize; n++ {
		keys = append(keys, leaderboardKey(n))
	}
	if err := s.Cache.Delete(ctx, keys...); err != nil {
		log.Printf("⚠️ [LEADERBOARD] cache invalidate failed: %v", err)
	}
}
