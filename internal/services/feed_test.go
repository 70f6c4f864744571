package services

import (
	"context"
	"testing"
	"time"

	"github.com/anonto42/circles/backend/internal/apperr"
	"github.com/anonto42/circles/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feedIDs(page *FeedPage) []string {
	ids := make([]string, len(page.Posts))
	for i, p := range page.Posts {
		ids[i] = p.ID.Hex()
	}
	return ids
}

func TestHomeFeed(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	viewer, friend, stranger, owner := e.user(t, "viewer"), e.user(t, "friend"), e.user(t, "stranger"), e.user(t, "owner")
	e.befriend(t, viewer, friend)
	pageID := e.page(t, owner)
	groupID := e.group(t, owner, models.GroupPublic)
	otherGroup := e.group(t, owner, models.GroupPublic)
	_, err := e.Relations.TogglePageFollow(ctx, viewer, pageID)
	require.NoError(t, err)
	_, err = e.Relations.JoinGroup(ctx, viewer, groupID)
	require.NoError(t, err)

	friendPublic := e.post(t, friend, models.CreatePostRequest{})
	friendFriends := e.post(t, friend, models.CreatePostRequest{Privacy: "friends_only"})
	e.post(t, friend, models.CreatePostRequest{Privacy: "only_me"})
	e.post(t, stranger, models.CreatePostRequest{})
	pagePost := e.post(t, owner, models.CreatePostRequest{Community: "page", CommunityID: pageID})
	groupPost := e.post(t, owner, models.CreatePostRequest{Community: "group", CommunityID: groupID})
	e.post(t, owner, models.CreatePostRequest{Community: "group", CommunityID: otherGroup})

	page, err := e.Feed.GetFeed(ctx, viewer, Pagination{Page: 1, Limit: 10}, Scope{Kind: ScopeHome})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{friendPublic, friendFriends, pagePost, groupPost}, feedIDs(page))
	assert.True(t, page.IsFinalPage)
}

func TestFeedPagination(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	owner := e.user(t, "owner")
	pageID := e.page(t, owner)
	for i := 0; i < 5; i++ {
		e.post(t, owner, models.CreatePostRequest{Community: "page", CommunityID: pageID})
	}
	scope := Scope{Kind: ScopePage, ID: pageID}

	seen := map[string]bool{}
	for n, final := range []bool{false, false, true} {
		page, err := e.Feed.GetFeed(ctx, "", Pagination{Page: n + 1, Limit: 2}, scope)
		require.NoError(t, err)
		assert.Equal(t, final, page.IsFinalPage, "page %d", n+1)
		for _, id := range feedIDs(page) {
			assert.False(t, seen[id], "post %s repeated", id)
			seen[id] = true
		}
	}
	assert.Len(t, seen, 5)

	page, err := e.Feed.GetFeed(ctx, "", Pagination{Page: 9, Limit: 2}, scope)
	require.NoError(t, err)
	assert.NotNil(t, page.Posts)
	assert.Empty(t, page.Posts)
	assert.True(t, page.IsFinalPage)

	_, err = e.Feed.GetFeed(ctx, "", Pagination{Page: 1, Limit: MaxLimit + 1}, scope)
	assertKind(t, err, apperr.KindBadUserInput)
	_, err = e.Feed.GetFeed(ctx, "", Pagination{Page: 1, Limit: 2}, Scope{Kind: ScopePage, ID: "ffffffffffffffffffffffff"})
	assertKind(t, err, apperr.KindNotFound)
}

func TestHomeFeedNeedsViewer(t *testing.T) {
	e := newEnv(t)
	_, err := e.Feed.GetFeed(context.Background(), "", Pagination{Page: 1, Limit: 10}, Scope{Kind: ScopeHome})
	assertKind(t, err, apperr.KindUnauthenticated)
}

func TestGroupFeed(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	owner, member, outsider := e.user(t, "owner"), e.user(t, "member"), e.user(t, "outsider")
	groupID := e.group(t, owner, models.GroupMembersOnly)
	require.NoError(t, e.store.Relations.Apply(ctx, []models.Relation{models.Edge(member, models.RelGroupMember, groupID)}, nil))
	postID := e.post(t, owner, models.CreatePostRequest{Community: "group", CommunityID: groupID})
	scope := Scope{Kind: ScopeGroup, ID: groupID}

	page, err := e.Feed.GetFeed(ctx, member, Pagination{Page: 1, Limit: 10}, scope)
	require.NoError(t, err)
	assert.Equal(t, []string{postID}, feedIDs(page))

	_, err = e.Feed.GetFeed(ctx, outsider, Pagination{Page: 1, Limit: 10}, scope)
	assertKind(t, err, apperr.KindForbidden)
	_, err = e.Feed.GetFeed(ctx, "", Pagination{Page: 1, Limit: 10}, scope)
	assertKind(t, err, apperr.KindForbidden)
}

func TestUserTimeline(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	owner, friend, stranger, author := e.user(t, "owner"), e.user(t, "friend"), e.user(t, "stranger"), e.user(t, "author")
	e.befriend(t, owner, friend)

	public := e.post(t, owner, models.CreatePostRequest{})
	friendsOnly := e.post(t, owner, models.CreatePostRequest{Privacy: "friends_only"})
	onlyMe := e.post(t, owner, models.CreatePostRequest{Privacy: "only_me"})
	shared := e.post(t, author, models.CreatePostRequest{})
	_, err := e.Reactions.ToggleSharedPost(ctx, owner, shared)
	require.NoError(t, err)

	scope := Scope{Kind: ScopeUser, ID: owner}
	get := func(viewer string) *FeedPage {
		page, err := e.Feed.GetFeed(ctx, viewer, Pagination{Page: 1, Limit: 10}, scope)
		require.NoError(t, err)
		return page
	}

	assert.ElementsMatch(t, []string{public, friendsOnly, onlyMe, shared}, feedIDs(get(owner)))
	assert.ElementsMatch(t, []string{public, friendsOnly, shared}, feedIDs(get(friend)))
	assert.ElementsMatch(t, []string{public, shared}, feedIDs(get(stranger)))
	assert.ElementsMatch(t, []string{public, shared}, feedIDs(get("")))

	for _, p := range get(owner).Posts {
		if p.ID.Hex() == shared {
			assert.Equal(t, owner, p.SharedBy)
			require.NotNil(t, p.ShareDate)
			assert.Equal(t, e.now, *p.ShareDate)
			assert.True(t, p.IsShared)
			continue
		}
		assert.Empty(t, p.SharedBy)
		assert.Nil(t, p.ShareDate)
	}

	_, err = e.Feed.GetFeed(ctx, owner, Pagination{Page: 1, Limit: 10}, Scope{Kind: ScopeUser, ID: "nobody"})
	assertKind(t, err, apperr.KindNotFound)
}

func TestUserTimelineSkipsDanglingEntries(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	owner := e.user(t, "owner")
	kept := e.post(t, owner, models.CreatePostRequest{})
	gone := e.post(t, owner, models.CreatePostRequest{})
	require.NoError(t, e.store.Posts.DeletePost(ctx, gone))

	page, err := e.Feed.GetFeed(ctx, owner, Pagination{Page: 1, Limit: 10}, Scope{Kind: ScopeUser, ID: owner})
	require.NoError(t, err)
	assert.Equal(t, []string{kept}, feedIDs(page))
	assert.True(t, page.IsFinalPage)

	entries := e.db.TimelineEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, kept, entries[0].PostID)
}

func TestUserTimelineCountsHiddenEntries(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	owner, friend := e.user(t, "owner"), e.user(t, "friend")
	groupID := e.group(t, owner, models.GroupMembersOnly)
	groupPost := e.post(t, owner, models.CreatePostRequest{Community: "group", CommunityID: groupID})

	first := e.post(t, friend, models.CreatePostRequest{})
	// newest entry of the timeline, unreadable for anonymous viewers
	require.NoError(t, e.store.Timeline.AddEntry(ctx, &models.TimelineEntry{
		UserID:    friend,
		PostID:    groupPost,
		ShareDate: time.Now().Add(time.Hour),
		Privacy:   models.PrivacyPublic,
		Community: models.CommunityGroup,
		Shared:    true,
	}))

	page, err := e.Feed.GetFeed(ctx, "", Pagination{Page: 1, Limit: 1}, Scope{Kind: ScopeUser, ID: friend})
	require.NoError(t, err)
	assert.Empty(t, page.Posts)
	assert.False(t, page.IsFinalPage)

	page, err = e.Feed.GetFeed(ctx, "", Pagination{Page: 2, Limit: 1}, Scope{Kind: ScopeUser, ID: friend})
	require.NoError(t, err)
	assert.Equal(t, []string{first}, feedIDs(page))
	assert.True(t, page.IsFinalPage)
}
