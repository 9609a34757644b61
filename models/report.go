package models

import (
	"time"

	"gorm.io/gorm"
)

type ReportStatus string

const (
	ReportStatusPending   ReportStatus = "pending"
	ReportStatusReviewed  ReportStatus = "reviewed"
	ReportStatusResolved  ReportStatus = "resolved"
	ReportStatusDismissed ReportStatus = "dismissed"
)

// Terminal reports whether s is one of the review outcomes.
func (s ReportStatus) Terminal() bool {
	return s == ReportStatusReviewed || s == ReportStatusResolved || s == ReportStatusDismissed
}

type ReportReason struct {
	ID          string    `gorm:"primaryKey;type:uuid" json:"id"`
	Title       string    `gorm:"not null;size:200" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	IsActive    bool      `gorm:"not null" json:"is_active"`
	Order       int       `gorm:"column:sort_order;not null;default:0" json:"order"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"-"`
}

func (r *ReportReason) BeforeCreate(tx *gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

// Report flags a reply. At most one per (reply, reporter), enforced by index.
type Report struct {
	ID             string       `gorm:"primaryKey;type:uuid" json:"id"`
	ReplyID        string       `gorm:"type:uuid;not null;uniqueIndex:idx_report_reply_reporter" json:"reply_id"`
	ReporterID     string       `gorm:"not null;uniqueIndex:idx_report_reply_reporter;index" json:"reporter_id"`
	ReasonID       *string      `gorm:"type:uuid" json:"reason_id,omitempty"`
	AdditionalInfo string       `gorm:"type:text" json:"additional_info"`
	Status         ReportStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	ReviewedBy     *string      `json:"reviewed_by,omitempty"`
	ReviewedAt     *time.Time   `json:"reviewed_at,omitempty"`
	CreatedAt      time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"autoUpdateTime" json:"updated_at"`

	Reason *ReportReason `gorm:"foreignKey:ReasonID;constraint:OnDelete:SET NULL" json:"reason,omitempty"`
}

func (r *Report) BeforeCreate(tx *gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
