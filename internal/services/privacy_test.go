package services

import (
	"context"
	"testing"

	"github.com/anonto42/circles/backend/internal/apperr"
	"github.com/anonto42/circles/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckPost(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	owner, friend, stranger := e.user(t, "owner"), e.user(t, "friend"), e.user(t, "stranger")
	e.befriend(t, owner, friend)

	tests := []struct {
		privacy models.Privacy
		viewer  string
		message string
	}{
		{models.PrivacyPublic, "", ""},
		{models.PrivacyPublic, stranger, ""},
		{models.PrivacyFriendsOnly, owner, ""},
		{models.PrivacyFriendsOnly, friend, ""},
		{models.PrivacyFriendsOnly, stranger, msgFriendsOnly},
		{models.PrivacyFriendsOnly, "", msgFriendsOnly},
		{models.PrivacyOnlyMe, owner, ""},
		{models.PrivacyOnlyMe, friend, msgOwnerOnly},
		{models.PrivacyOnlyMe, stranger, msgOwnerOnly},
	}
	for _, tt := range tests {
		t.Run(string(tt.privacy)+"/"+tt.viewer, func(t *testing.T) {
			post := &models.Post{Owner: owner, Community: models.CommunityPersonal, Privacy: tt.privacy}
			err := e.Privacy.CheckPost(ctx, tt.viewer, post)
			if tt.message == "" {
				assert.NoError(t, err)
				return
			}
			assertKind(t, err, apperr.KindForbidden)
			assert.Equal(t, tt.message, apperr.Translate(err).Message)
		})
	}
}

func TestCheckCommunityPost(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	owner, member, outsider := e.user(t, "owner"), e.user(t, "member"), e.user(t, "outsider")
	private := e.group(t, owner, models.GroupMembersOnly)
	public := e.group(t, owner, models.GroupPublic)
	pageID := e.page(t, owner)
	require.NoError(t, e.store.Relations.Apply(ctx, []models.Relation{models.Edge(member, models.RelGroupMember, private)}, nil))

	privatePost := &models.Post{Owner: owner, Community: models.CommunityGroup, CommunityID: private, Privacy: models.PrivacyPublic}
	assert.NoError(t, e.Privacy.CheckPost(ctx, owner, privatePost))
	assert.NoError(t, e.Privacy.CheckPost(ctx, member, privatePost))
	err := e.Privacy.CheckPost(ctx, outsider, privatePost)
	assertKind(t, err, apperr.KindForbidden)
	assert.Equal(t, msgMembersOnly, apperr.Translate(err).Message)

	publicPost := &models.Post{Owner: owner, Community: models.CommunityGroup, CommunityID: public, Privacy: models.PrivacyPublic}
	assert.NoError(t, e.Privacy.CheckPost(ctx, outsider, publicPost))

	pagePost := &models.Post{Owner: owner, Community: models.CommunityPage, CommunityID: pageID, Privacy: models.PrivacyPublic}
	assert.NoError(t, e.Privacy.CheckPost(ctx, "", pagePost))

	gone := &models.Post{Owner: owner, Community: models.CommunityGroup, CommunityID: "ffffffffffffffffffffffff"}
	assertKind(t, e.Privacy.CheckPost(ctx, owner, gone), apperr.KindNotFound)
}

func TestVisiblePrivacies(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	owner, friend, stranger := e.user(t, "owner"), e.user(t, "friend"), e.user(t, "stranger")
	e.befriend(t, owner, friend)

	got, err := e.Privacy.VisiblePrivacies(ctx, owner, owner)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = e.Privacy.VisiblePrivacies(ctx, friend, owner)
	require.NoError(t, err)
	assert.Equal(t, []models.Privacy{models.PrivacyPublic, models.PrivacyFriendsOnly}, got)

	for _, viewer := range []string{stranger, ""} {
		got, err = e.Privacy.VisiblePrivacies(ctx, viewer, owner)
		require.NoError(t, err)
		assert.Equal(t, []models.Privacy{models.PrivacyPublic}, got)
	}
}

// A posts for friends only: B (friend) can read it, C cannot. A reacts like
// then love; deleting the post clears every saved and timeline reference.
func TestFriendsOnlyScenario(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	a, b, c := e.user(t, "a"), e.user(t, "b"), e.user(t, "c")
	e.befriend(t, a, b)

	postID := e.post(t, a, models.CreatePostRequest{Privacy: "friends_only"})

	got, err := e.Posts.GetSinglePost(ctx, b, postID)
	require.NoError(t, err)
	assert.Equal(t, models.PrivacyFriendsOnly, got.Privacy)
	_, err = e.Posts.GetSinglePost(ctx, c, postID)
	assertKind(t, err, apperr.KindForbidden)

	_, err = e.Reactions.ToggleReaction(ctx, a, TargetPost, postID, models.ReactionLike)
	require.NoError(t, err)
	res, err := e.Reactions.ToggleReaction(ctx, a, TargetPost, postID, models.ReactionLove)
	require.NoError(t, err)
	assert.Equal(t, models.ReactionLike, res.Previous)
	assert.Equal(t, models.ReactionLove, res.Current)

	post := e.getPost(t, postID)
	assert.Equal(t, 0, post.Reactions[models.ReactionLike].Count)
	assert.Empty(t, post.Reactions[models.ReactionLike].Users)
	assert.Equal(t, 1, post.Reactions[models.ReactionLove].Count)
	assert.Equal(t, []string{a}, post.Reactions[models.ReactionLove].Users)
	assert.True(t, post.Reactions.Consistent())

	for _, u := range []string{a, b} {
		saved, err := e.Reactions.ToggleBookmark(ctx, u, postID)
		require.NoError(t, err)
		assert.True(t, saved)
	}
	_, err = e.Reactions.ToggleBookmark(ctx, c, postID)
	assertKind(t, err, apperr.KindForbidden)

	report, err := e.Posts.DeletePost(ctx, a, postID)
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Empty(t, e.db.SavedPosts())
	assert.Empty(t, e.db.TimelineEntries())
	assert.Empty(t, e.db.Posts())
}
