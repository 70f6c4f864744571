package services

import (
	"context"
	"testing"
	"time"

	"github.com/anonto42/circles/backend/internal/apperr"
	"github.com/anonto42/circles/backend/internal/models"
	"github.com/anonto42/circles/backend/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stalePosts simulates a concurrent writer that always wins the race.
type stalePosts struct {
	repositories.PostRepository
}

func (stalePosts) ApplyReaction(context.Context, string, string, models.ReactionKind, models.ReactionKind) (bool, error) {
	return false, nil
}

func TestToggleReactionTwiceRestoresState(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	owner, fan := e.user(t, "owner"), e.user(t, "fan")
	postID := e.post(t, owner, models.CreatePostRequest{})

	res, err := e.Reactions.ToggleReaction(ctx, fan, TargetPost, postID, models.ReactionLike)
	require.NoError(t, err)
	assert.Equal(t, models.ReactionKind(""), res.Previous)
	assert.Equal(t, models.ReactionLike, res.Current)
	assert.Equal(t, 1, res.Reactions[models.ReactionLike].Count)

	res, err = e.Reactions.ToggleReaction(ctx, fan, TargetPost, postID, models.ReactionLike)
	require.NoError(t, err)
	assert.Equal(t, models.ReactionLike, res.Previous)
	assert.Equal(t, models.ReactionKind(""), res.Current)

	reactions := e.getPost(t, postID).Reactions
	assert.True(t, reactions.Consistent())
	assert.Equal(t, models.ReactionKind(""), reactions.KindOf(fan))
	for _, k := range models.ReactionKinds {
		assert.Zero(t, reactions[k].Count, string(k))
	}
}

func TestReactionNotifications(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	owner, fan := e.user(t, "owner"), e.user(t, "fan")
	postID := e.post(t, owner, models.CreatePostRequest{})

	_, err := e.Reactions.ToggleReaction(ctx, fan, TargetPost, postID, models.ReactionLike)
	require.NoError(t, err)
	_, err = e.Reactions.ToggleReaction(ctx, fan, TargetPost, postID, models.ReactionHaha)
	require.NoError(t, err)
	_, err = e.Reactions.ToggleReaction(ctx, fan, TargetPost, postID, models.ReactionHaha)
	require.NoError(t, err)
	_, err = e.Reactions.ToggleReaction(ctx, owner, TargetPost, postID, models.ReactionWow)
	require.NoError(t, err)

	inbox := e.inbox(t, owner)
	require.Len(t, inbox, 1)
	assert.Equal(t, models.IconReaction, inbox[0].Icon)
	assert.Equal(t, "/posts/"+postID, inbox[0].URL)
}

func TestToggleReactionTargets(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	owner, friend, stranger := e.user(t, "owner"), e.user(t, "friend"), e.user(t, "stranger")
	e.befriend(t, owner, friend)

	hidden := e.post(t, owner, models.CreatePostRequest{Privacy: "only_me"})
	_, err := e.Reactions.ToggleReaction(ctx, friend, TargetPost, hidden, models.ReactionLike)
	assertKind(t, err, apperr.KindForbidden)

	_, err = e.Reactions.ToggleReaction(ctx, friend, TargetPost, hidden, models.ReactionKind("meh"))
	assertKind(t, err, apperr.KindBadUserInput)
	_, err = e.Reactions.ToggleReaction(ctx, friend, TargetPost, "not-an-id", models.ReactionLike)
	assertKind(t, err, apperr.KindNotFound)

	postID := e.post(t, owner, models.CreatePostRequest{Privacy: "friends_only"})
	commentID := e.comment(t, friend, postID)
	res, err := e.Reactions.ToggleReaction(ctx, owner, TargetComment, commentID, models.ReactionCare)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Reactions[models.ReactionCare].Count)
	_, err = e.Reactions.ToggleReaction(ctx, stranger, TargetComment, commentID, models.ReactionCare)
	assertKind(t, err, apperr.KindForbidden)

	story, err := e.Stories.AddStory(ctx, owner, models.CreateStoryRequest{Caption: "hi"})
	require.NoError(t, err)
	storyID := story.ID.Hex()
	_, err = e.Reactions.ToggleReaction(ctx, friend, TargetStory, storyID, models.ReactionLove)
	require.NoError(t, err)
	_, err = e.Reactions.ToggleReaction(ctx, stranger, TargetStory, storyID, models.ReactionLove)
	assertKind(t, err, apperr.KindForbidden)

	e.now = e.now.Add(25 * time.Hour)
	_, err = e.Reactions.ToggleReaction(ctx, friend, TargetStory, storyID, models.ReactionLove)
	assertKind(t, err, apperr.KindNotFound)
}

func TestToggleReactionLostRace(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	owner, fan := e.user(t, "owner"), e.user(t, "fan")
	postID := e.post(t, owner, models.CreatePostRequest{})

	e.store.Posts = stalePosts{e.store.Posts}
	_, err := e.Reactions.ToggleReaction(ctx, fan, TargetPost, postID, models.ReactionLike)
	assertKind(t, err, apperr.KindBadRequest)
	assert.Equal(t, "reaction state changed, retry", apperr.Translate(err).Message)
	assert.Empty(t, e.inbox(t, owner))
}

func TestToggleSharedPost(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	owner, fan := e.user(t, "owner"), e.user(t, "fan")
	e.befriend(t, owner, fan)
	postID := e.post(t, owner, models.CreatePostRequest{})

	shared, err := e.Reactions.ToggleSharedPost(ctx, fan, postID)
	require.NoError(t, err)
	assert.True(t, shared)

	post := e.getPost(t, postID)
	assert.Equal(t, models.ShareData{Count: 1, Users: []string{fan}}, post.ShareData)
	got, err := e.Posts.GetSinglePost(ctx, fan, postID)
	require.NoError(t, err)
	assert.True(t, got.IsShared)
	assert.Equal(t, models.IconShare, e.inbox(t, owner)[0].Icon)

	shared, err = e.Reactions.ToggleSharedPost(ctx, fan, postID)
	require.NoError(t, err)
	assert.False(t, shared)
	post = e.getPost(t, postID)
	assert.Equal(t, 0, post.ShareData.Count)
	assert.Empty(t, post.ShareData.Users)
	for _, entry := range e.db.TimelineEntries() {
		assert.NotEqual(t, fan, entry.UserID)
	}
}

func TestToggleSharedPostRejections(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	owner, friend := e.user(t, "owner"), e.user(t, "friend")
	e.befriend(t, owner, friend)

	own := e.post(t, owner, models.CreatePostRequest{})
	_, err := e.Reactions.ToggleSharedPost(ctx, owner, own)
	assertKind(t, err, apperr.KindBadRequest)

	friendsOnly := e.post(t, owner, models.CreatePostRequest{Privacy: "friends_only"})
	_, err = e.Reactions.ToggleSharedPost(ctx, friend, friendsOnly)
	assertKind(t, err, apperr.KindBadRequest)

	groupID := e.group(t, owner, models.GroupMembersOnly)
	require.NoError(t, e.store.Relations.Apply(ctx, []models.Relation{models.Edge(friend, models.RelGroupMember, groupID)}, nil))
	groupPost := e.post(t, owner, models.CreatePostRequest{Community: "group", CommunityID: groupID})
	_, err = e.Reactions.ToggleSharedPost(ctx, friend, groupPost)
	assertKind(t, err, apperr.KindBadRequest)

	for _, entry := range e.db.TimelineEntries() {
		assert.False(t, entry.Shared)
	}
}

func TestBookmarks(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	owner, reader := e.user(t, "owner"), e.user(t, "reader")
	first := e.post(t, owner, models.CreatePostRequest{Content: "first"})
	second := e.post(t, owner, models.CreatePostRequest{Content: "second"})

	for _, id := range []string{first, second} {
		saved, err := e.Reactions.ToggleBookmark(ctx, reader, id)
		require.NoError(t, err)
		assert.True(t, saved)
	}

	page, err := e.Reactions.ListBookmarks(ctx, reader, Pagination{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Posts, 2)
	assert.True(t, page.IsFinalPage)
	for _, p := range page.Posts {
		assert.True(t, p.IsInBookMark)
	}

	saved, err := e.Reactions.ToggleBookmark(ctx, reader, first)
	require.NoError(t, err)
	assert.False(t, saved)

	page, err = e.Reactions.ListBookmarks(ctx, reader, Pagination{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Posts, 1)
	assert.Equal(t, second, page.Posts[0].ID.Hex())

	_, err = e.Reactions.ToggleBookmark(ctx, reader, "ffffffffffffffffffffffff")
	assertKind(t, err, apperr.KindNotFound)
}
