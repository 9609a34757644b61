package models

import (
	"time"

	"gorm.io/gorm"
)

type Tag struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null;size:50" json:"name"`
	Slug      string    `gorm:"uniqueIndex;not null;size:50" json:"slug"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"-"`
}

func (t *Tag) BeforeCreate(tx *gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

// Topic is the minimal forum post the engagement core needs.
type Topic struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	AuthorID string `gorm:"not null;index" json:"author_id"`
	Title    string `gorm:"not null;size:200" json:"title"`
	Content  string `gorm:"type:text" json:"content"`
	Tags     []Tag  `gorm:"many2many:topic_tags;" json:"tags"`
	Timestamps
}

func (t *Topic) BeforeCreate(tx *gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

type TopicLike struct {
	TopicID   string    `gorm:"primaryKey;type:uuid" json:"topic_id"`
	UserID    string    `gorm:"primaryKey" json:"user_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type Bookmark struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string    `gorm:"not null;uniqueIndex:idx_bookmark_user_topic" json:"user_id"`
	TopicID   string    `gorm:"type:uuid;not null;uniqueIndex:idx_bookmark_user_topic;index" json:"topic_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (b *Bookmark) BeforeCreate(tx *gorm.DB) error {
	ensureID(&b.ID)
	return nil
}

// Reply belongs to a topic and optionally to a parent reply, forming a forest.
type Reply struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	TopicID   string    `gorm:"type:uuid;not null;index:idx_reply_topic_created" json:"topic_id"`
	AuthorID  string    `gorm:"not null;index" json:"author_id"`
	ParentID  *string   `gorm:"type:uuid;index" json:"parent_id,omitempty"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	IsHidden  bool      `gorm:"not null;default:false" json:"is_hidden"`
	CreatedAt time.Time `gorm:"not null;index:idx_reply_topic_created" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (r *Reply) BeforeCreate(tx *gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

type ReplyLike struct {
	ReplyID   string    `gorm:"primaryKey;type:uuid" json:"reply_id"`
	UserID    string    `gorm:"primaryKey" json:"user_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
