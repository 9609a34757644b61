package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// XPRewards define XP credited per domain event.
type XPRewards struct {
	TopicCreated    int64
	ReplyCreated    int64
	LikeReceived    int64
	BookmarkCreated int64
	DailyLogin      int64
}

var DefaultXPRewards = XPRewards{
	TopicCreated:    10,
	ReplyCreated:    5,
	LikeReceived:    2,
	BookmarkCreated: 1,
	DailyLogin:      5,
}

type Config struct {
	Port           string
	DatabaseURL    string
	GatewayToken   string
	AllowedOrigins string
	RedisURL       string
	CatalogFile    string
	SyncServiceURL string
	ServiceToken   string
	AuthServiceURL string
	Location       *time.Location
	XP             XPRewards
	LeaderboardTTL time.Duration
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	cfg := &Config{
		Port:           getEnv("PORT", "5200"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		GatewayToken:   os.Getenv("GATEWAY_TOKEN"),
		AllowedOrigins: normalizeOrigins(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		RedisURL:       os.Getenv("REDIS_URL"),
		CatalogFile:    os.Getenv("CATALOG_FILE"),
		SyncServiceURL: os.Getenv("SYNC_SERVICE_URL"),
		AuthServiceURL: os.Getenv("AUTH_SERVICE_URL"),
		XP:             DefaultXPRewards,
		LeaderboardTTL: time.Minute,
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}
	if cfg.GatewayToken == "" {
		return nil, fmt.Errorf("GATEWAY_TOKEN environment variable not set")
	}

	cfg.ServiceToken = getEnv("SERVICE_TOKEN", cfg.GatewayToken)

	loc, err := time.LoadLocation(getEnv("FORUM_TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid FORUM_TIMEZONE: %w", err)
	}
	cfg.Location = loc

	overrides := []struct {
		key string
		dst *int64
	}{
		{"XP_TOPIC_CREATED", &cfg.XP.TopicCreated},
		{"XP_REPLY_CREATED", &cfg.XP.ReplyCreated},
		{"XP_LIKE_RECEIVED", &cfg.XP.LikeReceived},
		{"XP_BOOKMARK_CREATED", &cfg.XP.BookmarkCreated},
		{"XP_DAILY_LOGIN", &cfg.XP.DailyLogin},
	}
	for _, o := range overrides {
		raw := os.Getenv(o.key)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("%s must be a non-negative integer, got %q", o.key, raw)
		}
		*o.dst = v
	}

	if raw := os.Getenv("LEADERBOARD_CACHE_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid LEADERBOARD_CACHE_TTL: %w", err)
		}
		cfg.LeaderboardTTL = ttl
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// normalizeOrigins trims spaces around each comma-separated origin.
func normalizeOrigins(raw string) string {
	parts := strings.Split(raw, ",")
	for i, origin := range parts {
		parts[i] = strings.TrimSpace(origin)
	}
	return strings.Join(parts, ",")
}
