package services

import (
	"context"
	"errors"
	"time"

	"forum-engagement-system/models"

	"gorm.io/gorm"
)

type ReplyNode struct {
	ID             string              `json:"id"`
	TopicID        string              `json:"topic_id"`
	AuthorID       string              `json:"author_id"`
	ParentID       *string             `json:"parent_id,omitempty"`
	ParentAuthorID *string             `json:"parent_author_id,omitempty"`
	Content        string              `json:"content"`
	IsHidden       bool                `json:"is_hidden"`
	CreatedAt      time.Time           `json:"created_at"`
	RepliesCount   int                 `json:"replies_count"`
	LikesCount     int64               `json:"likes_count"`
	UserHasLiked   bool                `json:"user_has_liked"`
	ResolvedReport *ResolvedReportInfo `json:"resolved_report,omitempty"`
	Children       []*ReplyNode        `json:"children"`
}

// ResolvedReportInfo tells the author of a hidden reply why it was hidden.
type ResolvedReportInfo struct {
	Reason            string     `json:"reason,omitempty"`
	ReasonDescription string     `json:"reason_description,omitempty"`
	AdditionalInfo    string     `json:"additional_info"`
	ResolvedAt        *time.Time `json:"resolved_at,omitempty"`
}

type ReplyTree struct {
	TopicID      string       `json:"topic_id"`
	RepliesCount int          `json:"replies_count"`
	Replies      []*ReplyNode `json:"replies"`
}

func replyVisible(r *models.Reply, viewerID string) bool {
	return !r.IsHidden || (viewerID != "" && r.AuthorID == viewerID)
}

// BuildReplyTree arranges replies, already sorted in creation order, into the
// forest the viewer may see. A reply is reachable only through visible
// ancestors. Traversal is breadth-first over an index, so thread depth is
// unbounded. resolved is keyed by reply id and only reaches the author of a
// hidden reply.
func BuildReplyTree(topicID string, replies []models.Reply, viewerID string, likes map[string]int64, liked map[string]bool, resolved map[string]*ResolvedReportInfo) *ReplyTree {
	tree := &ReplyTree{TopicID: topicID, Replies: []*ReplyNode{}}

	index := make(map[string]int, len(replies))
	for i := range replies {
		index[replies[i].ID] = i
	}
	children := make([][]int, len(replies))
	var roots []int
	for i := range replies {
		r := &replies[i]
		if !r.IsHidden {
			tree.RepliesCount++
		}
		if r.ParentID == nil {
			roots = append(roots, i)
			continue
		}
		if p, ok := index[*r.ParentID]; ok {
			children[p] = append(children[p], i)
		}
	}

	nodes := make([]ReplyNode, len(replies))
	queue := make([]int, 0, len(replies))
	for _, i := range roots {
		if replyVisible(&replies[i], viewerID) {
			tree.Replies = append(tree.Replies, &nodes[i])
			queue = append(queue, i)
		}
	}

	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		r := &replies[i]
		n := &nodes[i]
		*n = ReplyNode{
			ID:           r.ID,
			TopicID:      r.TopicID,
			AuthorID:     r.AuthorID,
			ParentID:     r.ParentID,
			Content:      r.Content,
			IsHidden:     r.IsHidden,
			CreatedAt:    r.CreatedAt,
			LikesCount:   likes[r.ID],
			UserHasLiked: liked[r.ID],
			Children:     []*ReplyNode{},
		}
		if r.ParentID != nil {
			if p, ok := index[*r.ParentID]; ok {
				n.ParentAuthorID = &replies[p].AuthorID
			}
		}
		if r.IsHidden && viewerID != "" && r.AuthorID == viewerID {
			n.ResolvedReport = resolved[r.ID]
		}
		for _, c := range children[i] {
			if !replies[c].IsHidden {
				n.RepliesCount++
			}
			if replyVisible(&replies[c], viewerID) {
				n.Children = append(n.Children, &nodes[c])
				queue = append(queue, c)
			}
		}
	}
	return tree
}

// GetReplyTree loads a topic's replies and returns what viewerID may see.
// An empty viewerID is an anonymous reader.
func (s *ForumService) GetReplyTree(ctx context.Context, topicID, viewerID string) (*ReplyTree, error) {
	db := s.DB.WithContext(ctx)

	var topic models.Topic
	if err := db.Select("id").Where("id = ?", topicID).First(&topic).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTopicNotFound
		}
		return nil, err
	}

	var replies []models.Reply
	if err := db.Where("topic_id = ?", topicID).Order("created_at ASC, id ASC").Find(&replies).Error; err != nil {
		return nil, err
	}

	likes := map[string]int64{}
	liked := map[string]bool{}
	resolved := map[string]*ResolvedReportInfo{}
	if len(replies) > 0 {
		ids := make([]string, len(replies))
		for i, r := range replies {
			ids[i] = r.ID
		}

		var counts []struct {
			ReplyID string
			Total   int64
		}
		if err := db.Model(&models.ReplyLike{}).
			Select("reply_id, COUNT(*) AS total").
			Where("reply_id IN ?", ids).
			Group("reply_id").
			Scan(&counts).Error; err != nil {
			return nil, err
		}
		for _, c := range counts {
			likes[c.ReplyID] = c.Total
		}

		if viewerID != "" {
			var mine []string
			if err := db.Model(&models.ReplyLike{}).
				Where("user_id = ? AND reply_id IN ?", viewerID, ids).
				Pluck("reply_id", &mine).Error; err != nil {
				return nil, err
			}
			for _, id := range mine {
				liked[id] = true
			}
			if err := loadResolvedReports(db, replies, viewerID, resolved); err != nil {
				return nil, err
			}
		}
	}

	return BuildReplyTree(topicID, replies, viewerID, likes, liked, resolved), nil
}

// loadResolvedReports fills out with the earliest resolved report on each of
// the viewer's hidden replies.
func loadResolvedReports(db *gorm.DB, replies []models.Reply, viewerID string, out map[string]*ResolvedReportInfo) error {
	var hidden []string
	for _, r := range replies {
		if r.IsHidden && r.AuthorID == viewerID {
			hidden = append(hidden, r.ID)
		}
	}
	if len(hidden) == 0 {
		return nil
	}

	var reports []models.Report
	if err := db.Joins("Reason").
		Where("reports.reply_id IN ? AND reports.status = ?", hidden, models.ReportStatusResolved).
		Order("reports.reviewed_at ASC, reports.id ASC").
		Find(&reports).Error; err != nil {
		return err
	}
	for _, rep := range reports {
		if _, ok := out[rep.ReplyID]; ok {
			continue
		}
		info := &ResolvedReportInfo{AdditionalInfo: rep.AdditionalInfo, ResolvedAt: rep.ReviewedAt}
		if rep.Reason != nil {
			info.Reason = rep.Reason.Title
			info.ReasonDescription = rep.Reason.Description
		}
		out[rep.ReplyID] = info
	}
	return nil
}
