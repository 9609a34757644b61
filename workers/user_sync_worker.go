package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"forum-engagement-system/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const profilesPath = "/api/v1/public/profiles"

// RemoteProfile is one entry of the profile service change feed.
type RemoteProfile struct {
	ExternalID        string    `json:"external_id"`
	Username          string    `json:"username"`
	ProfilePictureURL *string   `json:"profile_picture_url,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type profileChanges struct {
	Users []RemoteProfile `json:"users"`
}

// UserSyncWorker mirrors usernames from the profile service into forum_users.
type UserSyncWorker struct {
	db           *gorm.DB
	interval     time.Duration
	baseURL      *url.URL
	serviceToken string
	httpClient   *http.Client
}

func NewUserSyncWorker(db *gorm.DB, syncServiceBaseURL, serviceToken string, interval time.Duration) (*UserSyncWorker, error) {
	base, err := url.Parse(syncServiceBaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid sync service URL %q", syncServiceBaseURL)
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &UserSyncWorker{
		db:           db,
		interval:     interval,
		baseURL:      base,
		serviceToken: serviceToken,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (w *UserSyncWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting User Sync Worker (profile service → forum_users)…")
	go w.run(ctx)
}

func (w *UserSyncWorker) run(ctx context.Context) {
	if _, err := w.SyncOnce(ctx); err != nil {
		log.Printf("⚠️ [SYNC] initial sync failed: %v", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, err := w.SyncOnce(ctx); err != nil {
				log.Printf("❌ [SYNC] batch failed: %v", err)
			}
		case <-ctx.Done():
			log.Println("⏹️ User Sync Worker stopped")
			return
		}
	}
}

// lastSyncTime is the newest mirrored updated_at, or the epoch.
func (w *UserSyncWorker) lastSyncTime(ctx context.Context) time.Time {
	var latest models.ForumUser
	err := w.db.WithContext(ctx).Order("updated_at DESC").First(&latest).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("⚠️ [SYNC] reading last sync time: %v", err)
		}
		return time.Unix(0, 0).UTC()
	}
	return latest.UpdatedAt
}

// SyncOnce fetches changes since the last mirrored update and upserts them.
// It returns the number of rows written.
func (w *UserSyncWorker) SyncOnce(ctx context.Context) (int, error) {
	since := w.lastSyncTime(ctx).UTC().Format(time.RFC3339)

	endpoint := w.baseURL.JoinPath(profilesPath)
	q := endpoint.Query()
	q.Set("since", since)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request to sync service failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, fmt.Errorf("sync service returned %d: %s", resp.StatusCode, string(body))
	}

	var changes profileChanges
	if err := json.NewDecoder(resp.Body).Decode(&changes); err != nil {
		return 0, fmt.Errorf("decode sync response: %w", err)
	}
	if len(changes.Users) == 0 {
		return 0, nil
	}

	upserted := 0
	for _, remote := range changes.Users {
		if remote.ExternalID == "" || remote.Username == "" {
			log.Printf("[SYNC] ⚠️ skipping profile without id or username: %+v", remote)
			continue
		}
		local := models.ForumUser{
			ExternalUserID:    remote.ExternalID,
			Username:          remote.Username,
			ProfilePictureURL: remote.ProfilePictureURL,
			CreatedAt:         remote.CreatedAt,
			UpdatedAt:         remote.UpdatedAt,
		}
		err := w.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"username", "profile_picture_url", "updated_at"}),
		}).Create(&local).Error
		if err != nil {
			log.Printf("[SYNC] ⚠️ upsert failed for %s: %v", remote.ExternalID, err)
			continue
		}
		upserted++
	}

	log.Printf("[SYNC] ✅ %d/%d profiles mirrored since %s", upserted, len(changes.Users), since)
	return upserted, nil
}
