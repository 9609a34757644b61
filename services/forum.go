package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"forum-engagement-system/models"

	"github.com/gosimple/slug"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxTagsPerTopic = 5

// ForumService owns the content primitives that drive gamification events:
// topics, replies, likes and bookmarks.
type ForumService struct {
	DB           *gorm.DB
	Clock        clockwork.Clock
	Gamification *GamificationService
}

func NewForumService(db *gorm.DB, clock clockwork.Clock, gamification *GamificationService) *ForumService {
	return &ForumService{DB: db, Clock: clock, Gamification: gamification}
}

// LikeResult reports the new like count and what the content author earned.
type LikeResult struct {
	LikesCount int64             `json:"likes_count"`
	Author     *TrackResult      `json:"author_rewards"`
	TopicLikes *TopicLikesResult `json:"topic_likes,omitempty"`
}

// normalizeTags trims, slugs and de-duplicates tag names.
func normalizeTags(names []string) ([]models.Tag, error) {
	seen := map[string]bool{}
	var tags []models.Tag
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		s := slug.Make(name)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		tags = append(tags, models.Tag{Name: name, Slug: s})
	}
	if len(tags) > maxTagsPerTopic {
		return nil, Validation("a topic can have at most %d tags", maxTagsPerTopic)
	}
	return tags, nil
}

func findOrCreateTag(tx *gorm.DB, tag models.Tag) (models.Tag, error) {
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&tag).Error; err != nil {
		return tag, err
	}
	var existing models.Tag
	err := tx.Where("slug = ?", tag.Slug).First(&existing).Error
	return existing, err
}

// CreateTopic stores a topic with its tags and credits the author.
func (s *ForumService) CreateTopic(ctx context.Context, authorID, title, content string, tagNames []string) (*models.Topic, *TrackResult, error) {
	title = strings.TrimSpace(title)
	if authorID == "" {
		return nil, nil, Validation("author is required")
	}
	if title == "" {
		return nil, nil, Validation("title is required")
	}
	tags, err := normalizeTags(tagNames)
	if err != nil {
		return nil, nil, err
	}

	topic := &models.Topic{AuthorID: authorID, Title: title, Content: content}
	var result *TrackResult
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, t := range tags {
			stored, err := findOrCreateTag(tx, t)
			if err != nil {
				return fmt.Errorf("tag %q: %w", t.Name, err)
			}
			topic.Tags = append(topic.Tags, stored)
		}
		topic.CreatedAt = s.Clock.Now()
		if err := tx.Omit("Tags.*").Create(topic).Error; err != nil {
			return err
		}
		var err error
		result, err = s.Gamification.TrackTopicCreatedTx(tx, authorID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	log.Printf("📝 [FORUM] Topic %s created by %s", topic.ID, authorID)
	return topic, result, nil
}

func findTopic(tx *gorm.DB, topicID string) (*models.Topic, error) {
	var topic models.Topic
	if err := tx.Where("id = ?", topicID).First(&topic).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTopicNotFound
		}
		return nil, err
	}
	return &topic, nil
}

func findReply(tx *gorm.DB, replyID string) (*models.Reply, error) {
	var reply models.Reply
	if err := tx.Where("id = ?", replyID).First(&reply).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReplyNotFound
		}
		return nil, err
	}
	return &reply, nil
}

// CreateReply adds a reply, optionally under a parent in the same topic.
func (s *ForumService) CreateReply(ctx context.Context, authorID, topicID string, parentID *string, content string) (*models.Reply, *TrackResult, error) {
	content = strings.TrimSpace(content)
	if authorID == "" {
		return nil, nil, Validation("author is required")
	}
	if content == "" {
		return nil, nil, Validation("content is required")
	}
	if parentID != nil && *parentID == "" {
		parentID = nil
	}

	var (
		reply  *models.Reply
		result *TrackResult
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findTopic(tx, topicID); err != nil {
			return err
		}
		if parentID != nil {
			parent, err := findReply(tx, *parentID)
			if err != nil {
				return err
			}
			if !replyVisible(parent, authorID) {
				return ErrReplyNotFound
			}
			if parent.TopicID != topicID {
				return Validation("parent reply belongs to another topic")
			}
		}

		reply = &models.Reply{
			TopicID:   topicID,
			AuthorID:  authorID,
			ParentID:  parentID,
			Content:   content,
			CreatedAt: s.Clock.Now(),
		}
		if err := tx.Create(reply).Error; err != nil {
			return err
		}
		var err error
		result, err = s.Gamification.TrackReplyCreatedTx(tx, authorID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return reply, result, nil
}

// DeleteReply removes a reply and everything below it. Only the author may
// delete.
func (s *ForumService) DeleteReply(ctx context.Context, actorID, replyID string) (int, error) {
	deleted := 0
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reply, err := findReply(tx, replyID)
		if err != nil {
			return err
		}
		if reply.AuthorID != actorID {
			return ErrNotReplyAuthor
		}

		var siblings []models.Reply
		if err := tx.Select("id", "parent_id").Where("topic_id = ?", reply.TopicID).Find(&siblings).Error; err != nil {
			return err
		}
		byParent := map[string][]string{}
		for _, r := range siblings {
			if r.ParentID != nil {
				byParent[*r.ParentID] = append(byParent[*r.ParentID], r.ID)
			}
		}
		ids := []string{reply.ID}
		for i := 0; i < len(ids); i++ {
			ids = append(ids, byParent[ids[i]]...)
		}

		if err := tx.Where("reply_id IN ?", ids).Delete(&models.ReplyLike{}).Error; err != nil {
			return err
		}
		if err := tx.Where("reply_id IN ?", ids).Delete(&models.Report{}).Error; err != nil {
			return err
		}
		res := tx.Where("id IN ?", ids).Delete(&models.Reply{})
		if res.Error != nil {
			return res.Error
		}
		deleted = int(res.RowsAffected)
		return nil
	})
	if err != nil {
		return 0, err
	}
	log.Printf("🗑️ [FORUM] Reply %s deleted by %s (%d replies removed)", replyID, actorID, deleted)
	return deleted, nil
}

// LikeTopic records a like and credits the topic author, including the
// topic-likes badge recount.
func (s *ForumService) LikeTopic(ctx context.Context, userID, topicID string) (*LikeResult, error) {
	var out LikeResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		topic, err := findTopic(tx, topicID)
		if err != nil {
			return err
		}
		if topic.AuthorID == userID {
			return ErrSelfLike
		}
		like := models.TopicLike{TopicID: topic.ID, UserID: userID, CreatedAt: s.Clock.Now()}
		if err := tx.Create(&like).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyLiked
			}
			return err
		}
		if out.Author, err = s.Gamification.TrackLikeReceivedTx(tx, topic.AuthorID); err != nil {
			return err
		}
		if out.TopicLikes, err = s.Gamification.CheckTopicLikesBadgesTx(tx, topic.AuthorID); err != nil {
			return err
		}
		return tx.Model(&models.TopicLike{}).Where("topic_id = ?", topic.ID).Count(&out.LikesCount).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// LikeReply records a like on a reply and credits its author.
func (s *ForumService) LikeReply(ctx context.Context, userID, replyID string) (*LikeResult, error) {
	var out LikeResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reply, err := findReply(tx, replyID)
		if err != nil {
			return err
		}
		if !replyVisible(reply, userID) {
			return ErrReplyNotFound
		}
		if reply.AuthorID == userID {
			return ErrSelfLike
		}
		like := models.ReplyLike{ReplyID: reply.ID, UserID: userID, CreatedAt: s.Clock.Now()}
		if err := tx.Create(&like).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyLiked
			}
			return err
		}
		if out.Author, err = s.Gamification.TrackLikeReceivedTx(tx, reply.AuthorID); err != nil {
			return err
		}
		return tx.Model(&models.ReplyLike{}).Where("reply_id = ?", reply.ID).Count(&out.LikesCount).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// BookmarkTopic saves a topic for the user and credits the bookmarker.
func (s *ForumService) BookmarkTopic(ctx context.Context, userID, topicID string) (*TrackResult, error) {
	var result *TrackResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		topic, err := findTopic(tx, topicID)
		if err != nil {
			return err
		}
		if topic.AuthorID == userID {
			return ErrSelfBookmark
		}
		bm := models.Bookmark{UserID: userID, TopicID: topic.ID, CreatedAt: s.Clock.Now()}
		if err := tx.Create(&bm).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyBookmarked
			}
			return err
		}
		result, err = s.Gamification.TrackBookmarkCreatedTx(tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
