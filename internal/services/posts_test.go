package services

import (
	"context"
	"testing"

	"github.com/anonto42/circles/backend/internal/apperr"
	"github.com/anonto42/circles/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddPostValidation(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	owner, member, outsider := e.user(t, "owner"), e.user(t, "member"), e.user(t, "outsider")
	pageID := e.page(t, owner)
	groupID := e.group(t, owner, models.GroupPublic)
	require.NoError(t, e.store.Relations.Apply(ctx, []models.Relation{models.Edge(member, models.RelGroupMember, groupID)}, nil))

	tests := []struct {
		name   string
		author string
		req    models.CreatePostRequest
		kind   apperr.Kind
	}{
		{"empty", owner, models.CreatePostRequest{}, apperr.KindBadUserInput},
		{"unknown community", owner, models.CreatePostRequest{Content: "x", Community: "club"}, apperr.KindBadUserInput},
		{"unknown privacy", owner, models.CreatePostRequest{Content: "x", Privacy: "secret"}, apperr.KindBadUserInput},
		{"personal with community id", owner, models.CreatePostRequest{Content: "x", CommunityID: pageID}, apperr.KindBadUserInput},
		{"page without id", owner, models.CreatePostRequest{Content: "x", Community: "page"}, apperr.KindBadUserInput},
		{"missing page", owner, models.CreatePostRequest{Content: "x", Community: "page", CommunityID: "ffffffffffffffffffffffff"}, apperr.KindNotFound},
		{"page by follower", member, models.CreatePostRequest{Content: "x", Community: "page", CommunityID: pageID}, apperr.KindForbidden},
		{"group by outsider", outsider, models.CreatePostRequest{Content: "x", Community: "group", CommunityID: groupID}, apperr.KindForbidden},
		{"group without id", member, models.CreatePostRequest{Content: "x", Community: "group"}, apperr.KindBadUserInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Posts.AddPost(ctx, tt.author, tt.req)
			assertKind(t, err, tt.kind)
		})
	}
	assert.Empty(t, e.db.Posts())
}

func TestAddPostScopes(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	owner, member := e.user(t, "owner"), e.user(t, "member")
	groupID := e.group(t, owner, models.GroupMembersOnly)
	require.NoError(t, e.store.Relations.Apply(ctx, []models.Relation{models.Edge(member, models.RelGroupMember, groupID)}, nil))

	personal, err := e.Posts.AddPost(ctx, owner, models.CreatePostRequest{Content: "mine", Privacy: "only_me"})
	require.NoError(t, err)
	assert.Equal(t, models.CommunityPersonal, personal.Community)
	assert.Equal(t, models.PrivacyOnlyMe, personal.Privacy)
	entries := e.db.TimelineEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, owner, entries[0].UserID)
	assert.Equal(t, personal.ID.Hex(), entries[0].PostID)
	assert.Equal(t, models.PrivacyOnlyMe, entries[0].Privacy)
	assert.False(t, entries[0].Shared)

	groupPost, err := e.Posts.AddPost(ctx, member, models.CreatePostRequest{
		Content:     "hi group",
		Community:   "group",
		CommunityID: groupID,
		Privacy:     "friends_only",
	})
	require.NoError(t, err)
	assert.Equal(t, models.PrivacyPublic, groupPost.Privacy)
	assert.True(t, models.ScopeValid(groupPost.Community, groupPost.CommunityID, groupPost.Privacy))
	assert.Len(t, e.db.TimelineEntries(), 1)
}

func TestEditPost(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	owner, fan := e.user(t, "owner"), e.user(t, "fan")
	a, b, c := pic(owner, "a.png"), pic(owner, "b.png"), pic(owner, "c.png")
	postID := e.post(t, owner, models.CreatePostRequest{Media: []models.Media{a, b}})

	content := "edited"
	_, err := e.Posts.EditPost(ctx, fan, postID, models.UpdatePostRequest{Content: &content})
	assertKind(t, err, apperr.KindForbidden)

	edited, err := e.Posts.EditPost(ctx, owner, postID, models.UpdatePostRequest{
		Content:      &content,
		DeletedMedia: []string{a.PublicID},
		Media:        []models.Media{c},
	})
	require.NoError(t, err)
	assert.Equal(t, "edited", edited.Content)
	assert.Equal(t, []string{b.PublicID, c.PublicID}, models.MediaIDs(edited.Media...))
	assert.Equal(t, []string{a.PublicID}, e.media.DeletedIDs())

	_, err = e.Posts.EditPost(ctx, owner, postID, models.UpdatePostRequest{
		Media: []models.Media{pic(fan, "d.png")},
	})
	assertKind(t, err, apperr.KindBadUserInput)

	empty := ""
	_, err = e.Posts.EditPost(ctx, owner, postID, models.UpdatePostRequest{
		Content:      &empty,
		DeletedMedia: []string{b.PublicID, c.PublicID},
	})
	assertKind(t, err, apperr.KindBadUserInput)
}

func TestEditPostPrivacyDropsShares(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	owner, fan := e.user(t, "owner"), e.user(t, "fan")
	postID := e.post(t, owner, models.CreatePostRequest{})
	_, err := e.Reactions.ToggleSharedPost(ctx, fan, postID)
	require.NoError(t, err)

	edited, err := e.Posts.EditPost(ctx, owner, postID, models.UpdatePostRequest{Privacy: "friends_only"})
	require.NoError(t, err)
	assert.Equal(t, models.PrivacyFriendsOnly, edited.Privacy)
	assert.Zero(t, edited.ShareData.Count)
	assert.Empty(t, edited.ShareData.Users)

	entries := e.db.TimelineEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, owner, entries[0].UserID)
	assert.Equal(t, models.PrivacyFriendsOnly, entries[0].Privacy)

	pageID := e.page(t, owner)
	pagePost := e.post(t, owner, models.CreatePostRequest{Community: "page", CommunityID: pageID})
	_, err = e.Posts.EditPost(ctx, owner, pagePost, models.UpdatePostRequest{Privacy: "only_me"})
	assertKind(t, err, apperr.KindBadUserInput)
}

func TestComments(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	owner, friend, stranger := e.user(t, "owner"), e.user(t, "friend"), e.user(t, "stranger")
	e.befriend(t, owner, friend)
	postID := e.post(t, owner, models.CreatePostRequest{Privacy: "friends_only"})

	_, err := e.Comments.AddComment(ctx, friend, postID, models.CreateCommentRequest{})
	assertKind(t, err, apperr.KindBadUserInput)
	_, err = e.Comments.AddComment(ctx, stranger, postID, models.CreateCommentRequest{Content: "hey"})
	assertKind(t, err, apperr.KindForbidden)

	commentPic := pic(friend, "a.png")
	first := e.comment(t, friend, postID, commentPic)
	e.comment(t, owner, postID)
	assert.Equal(t, 2, e.getPost(t, postID).CommentsCount)

	inbox := e.inbox(t, owner)
	require.Len(t, inbox, 1)
	assert.Equal(t, models.IconComment, inbox[0].Icon)

	page, err := e.Comments.ListComments(ctx, friend, postID, Pagination{Page: 1, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, page.Comments, 1)
	assert.False(t, page.IsFinalPage)
	_, err = e.Comments.ListComments(ctx, stranger, postID, Pagination{Page: 1, Limit: 1})
	assertKind(t, err, apperr.KindForbidden)

	assertKind(t, e.Comments.DeleteComment(ctx, stranger, first), apperr.KindForbidden)
	require.NoError(t, e.Comments.DeleteComment(ctx, owner, first))
	assert.Equal(t, 1, e.getPost(t, postID).CommentsCount)
	assert.Equal(t, []string{commentPic.PublicID}, e.media.DeletedIDs())
	assertKind(t, e.Comments.DeleteComment(ctx, owner, first), apperr.KindNotFound)

	blocked := e.post(t, owner, models.CreatePostRequest{BlockComments: true})
	_, err = e.Comments.AddComment(ctx, friend, blocked, models.CreateCommentRequest{Content: "hey"})
	assertKind(t, err, apperr.KindBadRequest)
}
