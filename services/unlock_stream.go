package services

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
)

var unlockPollInterval = 2 * time.Second

// writeUnlockEvents emits one SSE "badge_unlocked" event per unlock, or a
// keep-alive comment when there is nothing to send.
func writeUnlockEvents(w io.Writer, unlocks []UnlockedBadge) error {
	if len(unlocks) == 0 {
		_, err := io.WriteString(w, ":\n\n")
		return err
	}
	for _, u := range unlocks {
		payload, err := json.Marshal(u)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "event: badge_unlocked\ndata: %s\n\n", payload); err != nil {
			return err
		}
	}
	return nil
}

// pollUnlocks returns unlocks after cursor and the advanced cursor.
func (s *BadgeService) pollUnlocks(ctx context.Context, userID string, cursor time.Time) ([]UnlockedBadge, time.Time, error) {
	unlocks, err := s.UnlockedSince(ctx, userID, cursor)
	if err != nil || len(unlocks) == 0 {
		return nil, cursor, err
	}
	return unlocks, unlocks[len(unlocks)-1].UnlockedAt, nil
}

// StreamUnlocksSSE streams badges the authenticated user unlocks while connected.
func (s *BadgeService) StreamUnlocksSSE(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	reqCtx := c.Context()
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ticker := s.Clock.NewTicker(unlockPollInterval)
		defer ticker.Stop()

		cursor := s.Clock.Now()

		w.WriteString(":\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		for {
			select {
			case <-ticker.Chan():
				unlocks, next, err := s.pollUnlocks(context.Background(), userID, cursor)
				if err != nil {
					log.Printf("[SSE] unlock query error for user %s: %v", userID, err)
				}
				cursor = next

				if err := writeUnlockEvents(w, unlocks); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					// client disconnected
					return
				}

			case <-reqCtx.Done():
				return
			}
		}
	})

	return nil
}
