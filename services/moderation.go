package services

import (
	"context"
	"errors"
	"log"
	"strings"

	"forum-engagement-system/models"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

type ModerationService struct {
	DB           *gorm.DB
	Clock        clockwork.Clock
	Gamification *GamificationService
}

func NewModerationService(db *gorm.DB, clock clockwork.Clock, gamification *GamificationService) *ModerationService {
	return &ModerationService{DB: db, Clock: clock, Gamification: gamification}
}

// CreateReport files a report against a reply and refreshes the reporter's
// moderator badge in the same transaction.
func (s *ModerationService) CreateReport(ctx context.Context, reporterID, replyID, reasonID, note string) (*models.Report, error) {
	if reporterID == "" {
		return nil, Validation("reporter is required")
	}
	if replyID == "" {
		return nil, Validation("reply_id is required")
	}
	if reasonID == "" {
		return nil, Validation("reason_id is required")
	}

	var report *models.Report
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var reply models.Reply
		if err := tx.Where("id = ?", replyID).First(&reply).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrReplyNotFound
			}
			return err
		}
		if reply.AuthorID == reporterID {
			return ErrSelfReport
		}

		var reason models.ReportReason
		if err := tx.Where("id = ? AND is_active = ?", reasonID, true).First(&reason).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrReasonNotFound
			}
			return err
		}

		report = &models.Report{
			ReplyID:        reply.ID,
			ReporterID:     reporterID,
			ReasonID:       &reason.ID,
			AdditionalInfo: strings.TrimSpace(note),
			Status:         models.ReportStatusPending,
			CreatedAt:      s.Clock.Now(),
		}
		if err := tx.Create(report).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateReport
			}
			return err
		}
		report.Reason = &reason

		if _, err := s.Gamification.CheckReportsBadgeTx(tx, reporterID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("🚩 [MODERATION] Report %s filed by %s on reply %s", report.ID, reporterID, replyID)
	return report, nil
}

// ResolveReport moves a report out of pending. Re-applying the current
// status is a no-op; switching between review outcomes is rejected.
func (s *ModerationService) ResolveReport(ctx context.Context, reportID string, status models.ReportStatus, reviewerID string) (*models.Report, error) {
	if !status.Terminal() {
		return nil, Validation("status must be one of reviewed, resolved, dismissed")
	}
	if reviewerID == "" {
		return nil, Validation("reviewer is required")
	}

	var report models.Report
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(forUpdate).Where("id = ?", reportID).First(&report).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrReportNotFound
			}
			return err
		}

		if report.Status == status {
			return tx.Preload("Reason").First(&report, "id = ?", report.ID).Error
		}
		if report.Status.Terminal() {
			return ErrInvalidTransition
		}

		report.Status = status
		if report.ReviewedBy == nil {
			report.ReviewedBy = &reviewerID
		}
		if report.ReviewedAt == nil {
			now := s.Clock.Now()
			report.ReviewedAt = &now
		}
		if err := tx.Save(&report).Error; err != nil {
			return err
		}

		if status == models.ReportStatusResolved {
			res := tx.Model(&models.Reply{}).Where("id = ?", report.ReplyID).Update("is_hidden", true)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected > 0 {
				log.Printf("🙈 [MODERATION] Reply %s hidden by report %s", report.ReplyID, report.ID)
			}
		}
		return tx.Preload("Reason").First(&report, "id = ?", report.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// ListReports returns reports newest first, optionally filtered by status.
func (s *ModerationService) ListReports(ctx context.Context, status models.ReportStatus) ([]models.Report, error) {
	q := s.DB.WithContext(ctx).Preload("Reason").Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var reports []models.Report
	if err := q.Find(&reports).Error; err != nil {
		return nil, err
	}
	return reports, nil
}

func (s *ModerationService) ReportReasons(ctx context.Context) ([]models.ReportReason, error) {
	var reasons []models.ReportReason
	err := s.DB.WithContext(ctx).Where("is_active = ?", true).Order("sort_order ASC, title ASC").Find(&reasons).Error
	return reasons, err
}

// DefaultReportReasons is seeded when the reasons table is empty.
var DefaultReportReasons = []models.ReportReason{
	{Title: "Spam or advertising", Description: "Unwanted commercial content or repetitive messages", IsActive: true, Order: 1},
	{Title: "Harassment or bullying", Description: "Content that threatens, harasses, or bullies others", IsActive: true, Order: 2},
	{Title: "Hate speech or discrimination", Description: "Content promoting hate against people based on identity", IsActive: true, Order: 3},
	{Title: "Inappropriate content", Description: "Content that is offensive, vulgar, or not suitable", IsActive: true, Order: 4},
	{Title: "Misinformation", Description: "False or misleading information", IsActive: true, Order: 5},
	{Title: "Off-topic or irrelevant", Description: "Content that does not relate to the discussion", IsActive: true, Order: 6},
	{Title: "Other", Description: "Other reasons not listed above", IsActive: true, Order: 7},
}

// SeedReportReasons inserts the defaults into an empty reasons table.
func SeedReportReasons(ctx context.Context, db *gorm.DB) error {
	var count int64
	if err := db.WithContext(ctx).Model(&models.ReportReason{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	reasons := make([]models.ReportReason, len(DefaultReportReasons))
	copy(reasons, DefaultReportReasons)
	return db.WithContext(ctx).Create(&reasons).Error
}
