package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"forum-engagement-system/models"

	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func mkReply(id, author string, parent *string, hidden bool, at int) models.Reply {
	return models.Reply{
		ID:        id,
		TopicID:   "t1",
		AuthorID:  author,
		ParentID:  parent,
		IsHidden:  hidden,
		CreatedAt: testEpoch.Add(time.Duration(at) * time.Minute),
	}
}

func nodeIDs(nodes []*ReplyNode) []string {
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids
}

func TestHiddenReplyVisibleOnlyToAuthor(t *testing.T) {
	replies := []models.Reply{
		mkReply("a", "alice", nil, false, 1),
		mkReply("b", "bob", nil, true, 2),
		mkReply("c", "carol", strPtr("b"), false, 3),
		mkReply("d", "dave", strPtr("a"), false, 4),
	}

	anon := BuildReplyTree("t1", replies, "", nil, nil, nil)
	require.Equal(t, []string{"a"}, nodeIDs(anon.Replies))
	require.Equal(t, []string{"d"}, nodeIDs(anon.Replies[0].Children))
	require.Equal(t, 3, anon.RepliesCount)

	author := BuildReplyTree("t1", replies, "bob", nil, nil, nil)
	require.Equal(t, []string{"a", "b"}, nodeIDs(author.Replies))
	hidden := author.Replies[1]
	require.True(t, hidden.IsHidden)
	require.Equal(t, []string{"c"}, nodeIDs(hidden.Children))
	require.Equal(t, 1, hidden.RepliesCount)
	require.Equal(t, 3, author.RepliesCount)

	// The child's author still cannot see it through a hidden parent.
	carol := BuildReplyTree("t1", replies, "carol", nil, nil, nil)
	require.Equal(t, []string{"a"}, nodeIDs(carol.Replies))
}

func TestRepliesCountSkipsHiddenChildren(t *testing.T) {
	replies := []models.Reply{
		mkReply("root", "alice", nil, false, 1),
		mkReply("x", "bob", strPtr("root"), false, 2),
		mkReply("y", "carol", strPtr("root"), true, 3),
		mkReply("z", "dave", strPtr("root"), false, 4),
	}
	tree := BuildReplyTree("t1", replies, "", nil, nil, nil)
	require.Len(t, tree.Replies, 1)
	root := tree.Replies[0]
	require.Equal(t, 2, root.RepliesCount)
	require.Equal(t, []string{"x", "z"}, nodeIDs(root.Children))
	require.Equal(t, 3, tree.RepliesCount)
	require.NotNil(t, root.Children[0].Children)
	require.Empty(t, root.Children[0].Children)
}

func TestOrphanRepliesAreExcluded(t *testing.T) {
	replies := []models.Reply{
		mkReply("a", "alice", nil, false, 1),
		mkReply("b", "bob", strPtr("gone"), false, 2),
	}
	tree := BuildReplyTree("t1", replies, "", nil, nil, nil)
	require.Equal(t, []string{"a"}, nodeIDs(tree.Replies))
	require.Empty(t, tree.Replies[0].Children)
}

func TestEmptyTopicHasEmptyForest(t *testing.T) {
	tree := BuildReplyTree("t1", nil, "", nil, nil, nil)
	require.NotNil(t, tree.Replies)
	require.Empty(t, tree.Replies)
	require.Zero(t, tree.RepliesCount)
}

func TestDeepThreadBuildsWithoutRecursion(t *testing.T) {
	const depth = 10000
	replies := make([]models.Reply, depth)
	for i := range replies {
		var parent *string
		if i > 0 {
			parent = strPtr(fmt.Sprintf("r%d", i-1))
		}
		replies[i] = mkReply(fmt.Sprintf("r%d", i), "alice", parent, false, i)
	}

	tree := BuildReplyTree("t1", replies, "", nil, nil, nil)
	require.Equal(t, depth, tree.RepliesCount)
	require.Len(t, tree.Replies, 1)

	n := tree.Replies[0]
	levels := 1
	for len(n.Children) > 0 {
		require.Len(t, n.Children, 1)
		require.Equal(t, 1, n.RepliesCount)
		n = n.Children[0]
		levels++
	}
	require.Equal(t, depth, levels)
	require.Equal(t, fmt.Sprintf("r%d", depth-1), n.ID)
}

func TestGetReplyTreeFromDatabase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	topic := f.topic(t, "author")

	first := f.reply(t, topic.ID, "alice", nil)
	second := f.reply(t, topic.ID, "bob", nil)
	child := f.reply(t, topic.ID, "carol", &first.ID)
	f.reply(t, f.topic(t, "author").ID, "dave", nil)

	for _, u := range []string{"bob", "carol", "viewer"} {
		require.NoError(t, f.db.Create(&models.ReplyLike{ReplyID: first.ID, UserID: u}).Error)
	}
	require.NoError(t, f.db.Create(&models.ReplyLike{ReplyID: child.ID, UserID: "alice"}).Error)

	tree, err := f.forum.GetReplyTree(ctx, topic.ID, "viewer")
	require.NoError(t, err)
	require.Equal(t, topic.ID, tree.TopicID)
	require.Equal(t, 3, tree.RepliesCount)
	require.Equal(t, []string{first.ID, second.ID}, nodeIDs(tree.Replies))

	root := tree.Replies[0]
	require.EqualValues(t, 3, root.LikesCount)
	require.True(t, root.UserHasLiked)
	require.Equal(t, 1, root.RepliesCount)
	require.Equal(t, []string{child.ID}, nodeIDs(root.Children))
	require.EqualValues(t, 1, root.Children[0].LikesCount)
	require.False(t, root.Children[0].UserHasLiked)
	require.Zero(t, tree.Replies[1].LikesCount)

	anon, err := f.forum.GetReplyTree(ctx, topic.ID, "")
	require.NoError(t, err)
	require.False(t, anon.Replies[0].UserHasLiked)

	_, err = f.forum.GetReplyTree(ctx, "00000000-0000-0000-0000-000000000000", "")
	require.ErrorIs(t, err, ErrTopicNotFound)
}

func TestResolvedReportShownOnlyToHiddenAuthor(t *testing.T) {
	replies := []models.Reply{
		mkReply("a", "alice", nil, false, 1),
		mkReply("b", "bob", strPtr("a"), true, 2),
	}
	resolved := map[string]*ResolvedReportInfo{
		"a": {Reason: "Spam or advertising"},
		"b": {Reason: "Spam or advertising", AdditionalInfo: "link farm"},
	}

	bob := BuildReplyTree("t1", replies, "bob", nil, nil, resolved)
	require.Nil(t, bob.Replies[0].ResolvedReport)
	hidden := bob.Replies[0].Children[0]
	require.NotNil(t, hidden.ResolvedReport)
	require.Equal(t, "link farm", hidden.ResolvedReport.AdditionalInfo)
	require.Equal(t, "alice", *hidden.ParentAuthorID)

	alice := BuildReplyTree("t1", replies, "alice", nil, nil, resolved)
	require.Nil(t, alice.Replies[0].ResolvedReport)
	require.Nil(t, alice.Replies[0].ParentAuthorID)
	require.Empty(t, alice.Replies[0].Children)
}

func TestGetReplyTreeExplainsHiddenReply(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	topic := f.topic(t, "author")
	root := f.reply(t, topic.ID, "alice", nil)
	hidden := f.reply(t, topic.ID, "replier", &root.ID)

	report, err := f.moderation.CreateReport(ctx, "reporter", hidden.ID, f.reasonID(t), "buy cheap pads")
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	_, err = f.moderation.ResolveReport(ctx, report.ID, models.ReportStatusResolved, "mod")
	require.NoError(t, err)

	tree, err := f.forum.GetReplyTree(ctx, topic.ID, "replier")
	require.NoError(t, err)
	require.Len(t, tree.Replies[0].Children, 1)
	node := tree.Replies[0].Children[0]
	require.True(t, node.IsHidden)
	require.Equal(t, "alice", *node.ParentAuthorID)
	require.NotNil(t, node.ResolvedReport)
	require.Equal(t, DefaultReportReasons[0].Title, node.ResolvedReport.Reason)
	require.Equal(t, DefaultReportReasons[0].Description, node.ResolvedReport.ReasonDescription)
	require.Equal(t, "buy cheap pads", node.ResolvedReport.AdditionalInfo)
	require.NotNil(t, node.ResolvedReport.ResolvedAt)
	require.True(t, node.ResolvedReport.ResolvedAt.Equal(f.clock.Now()))

	tree, err = f.forum.GetReplyTree(ctx, topic.ID, "alice")
	require.NoError(t, err)
	require.Empty(t, tree.Replies[0].Children)
	require.Nil(t, tree.Replies[0].ResolvedReport)
}
