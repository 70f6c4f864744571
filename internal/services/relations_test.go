package services

import (
	"context"
	"testing"

	"github.com/anonto42/circles/backend/internal/apperr"
	"github.com/anonto42/circles/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFriendRequestLifecycle(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	alice, bob := e.user(t, "alice"), e.user(t, "bob")

	require.NoError(t, e.Relations.SendFriendRequest(ctx, alice, bob))
	assertKind(t, e.Relations.SendFriendRequest(ctx, alice, bob), apperr.KindBadRequest)
	assertKind(t, e.Relations.SendFriendRequest(ctx, bob, alice), apperr.KindBadRequest)

	inbox := e.inbox(t, bob)
	require.Len(t, inbox, 1)
	assert.Equal(t, models.IconFriendRequest, inbox[0].Icon)
	assert.Contains(t, inbox[0].Content, "alice")

	require.NoError(t, e.Relations.HandleFriendRequest(ctx, bob, alice, true))
	friends, err := e.Members.AreFriends(ctx, alice, bob)
	require.NoError(t, err)
	assert.True(t, friends)
	friends, err = e.Members.AreFriends(ctx, bob, alice)
	require.NoError(t, err)
	assert.True(t, friends)
	e.assertRelationsConsistent(t)

	accepted := e.inbox(t, alice)
	require.Len(t, accepted, 1)
	assert.Equal(t, models.IconFriendAccept, accepted[0].Icon)

	assertKind(t, e.Relations.SendFriendRequest(ctx, bob, alice), apperr.KindBadRequest)
	assertKind(t, e.Relations.HandleFriendRequest(ctx, bob, alice, true), apperr.KindBadRequest)

	require.NoError(t, e.Relations.RemoveFriend(ctx, bob, alice))
	friends, err = e.Members.AreFriends(ctx, alice, bob)
	require.NoError(t, err)
	assert.False(t, friends)
	assert.Empty(t, e.db.Relations())
	assertKind(t, e.Relations.RemoveFriend(ctx, bob, alice), apperr.KindBadRequest)
}

func TestFriendRequestRejections(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	alice, bob := e.user(t, "alice"), e.user(t, "bob")

	assertKind(t, e.Relations.SendFriendRequest(ctx, alice, alice), apperr.KindBadUserInput)
	assertKind(t, e.Relations.SendFriendRequest(ctx, alice, "ffffffffffffffffffffffff"), apperr.KindNotFound)
	assertKind(t, e.Relations.CancelFriendRequest(ctx, alice, bob), apperr.KindBadRequest)

	require.NoError(t, e.Relations.SendFriendRequest(ctx, alice, bob))
	require.NoError(t, e.Relations.CancelFriendRequest(ctx, alice, bob))
	assert.Empty(t, e.db.Relations())

	require.NoError(t, e.Relations.SendFriendRequest(ctx, alice, bob))
	require.NoError(t, e.Relations.HandleFriendRequest(ctx, bob, alice, false))
	assert.Empty(t, e.db.Relations())
	assert.Empty(t, e.inbox(t, alice))
}

func TestTogglePageFollow(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	owner, fan := e.user(t, "owner"), e.user(t, "fan")
	pageID := e.page(t, owner)

	_, err := e.Relations.TogglePageFollow(ctx, owner, pageID)
	assertKind(t, err, apperr.KindBadRequest)

	following, err := e.Relations.TogglePageFollow(ctx, fan, pageID)
	require.NoError(t, err)
	assert.True(t, following)
	page, err := e.store.Pages.GetPageByID(ctx, pageID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.FollowersCount)

	following, err = e.Relations.TogglePageFollow(ctx, fan, pageID)
	require.NoError(t, err)
	assert.False(t, following)
	page, err = e.store.Pages.GetPageByID(ctx, pageID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), page.FollowersCount)
}

func TestToggleAdmin(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	owner, member, outsider := e.user(t, "owner"), e.user(t, "member"), e.user(t, "outsider")
	groupID := e.group(t, owner, models.GroupPublic)
	_, err := e.Relations.JoinGroup(ctx, member, groupID)
	require.NoError(t, err)

	tests := []struct {
		name   string
		actor  string
		target string
		action AdminAction
		kind   apperr.Kind
	}{
		{"non owner", member, member, AdminAdd, apperr.KindForbidden},
		{"owner as target", owner, owner, AdminAdd, apperr.KindBadUserInput},
		{"unknown user", owner, "ffffffffffffffffffffffff", AdminAdd, apperr.KindNotFound},
		{"not a member", owner, outsider, AdminAdd, apperr.KindBadRequest},
		{"remove non admin", owner, member, AdminRemove, apperr.KindBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.Relations.ToggleAdmin(ctx, tt.actor, models.CommunityGroup, groupID, tt.target, tt.action)
			assertKind(t, err, tt.kind)
		})
	}

	require.NoError(t, e.Relations.ToggleAdmin(ctx, owner, models.CommunityGroup, groupID, member, AdminAdd))
	assertKind(t, e.Relations.ToggleAdmin(ctx, owner, models.CommunityGroup, groupID, member, AdminAdd), apperr.KindBadRequest)
	role, err := e.Members.Role(ctx, models.CommunityGroup, groupID, member)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, role)
	e.assertRelationsConsistent(t)

	// admins keep their membership, so the counter is unchanged
	group, err := e.store.Groups.GetGroupByID(ctx, groupID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), group.MembersCount)

	require.NoError(t, e.Relations.ToggleAdmin(ctx, owner, models.CommunityGroup, groupID, member, AdminRemove))
	ok, err := e.Members.IsAdmin(ctx, models.CommunityGroup, member, groupID)
	require.NoError(t, err)
	assert.False(t, ok)

	pageID := e.page(t, owner)
	require.NoError(t, e.Relations.ToggleAdmin(ctx, owner, models.CommunityPage, pageID, outsider, AdminAdd))
	got, err := e.Communities.GetPage(ctx, pageID)
	require.NoError(t, err)
	assert.Equal(t, []string{outsider}, got.Admins)
}

func TestJoinMembersOnlyGroup(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	owner, admin, joiner := e.user(t, "owner"), e.user(t, "admin"), e.user(t, "joiner")
	groupID := e.group(t, owner, models.GroupMembersOnly)
	require.NoError(t, e.store.Relations.Apply(ctx, []models.Relation{
		models.Edge(admin, models.RelGroupMember, groupID),
		models.Edge(admin, models.RelGroupAdmin, groupID),
	}, nil))

	_, err := e.Relations.JoinGroup(ctx, owner, groupID)
	assertKind(t, err, apperr.KindBadRequest)

	status, err := e.Relations.JoinGroup(ctx, joiner, groupID)
	require.NoError(t, err)
	assert.Equal(t, JoinRequested, status)
	_, err = e.Relations.JoinGroup(ctx, joiner, groupID)
	assertKind(t, err, apperr.KindBadRequest)

	for _, manager := range []string{owner, admin} {
		inbox := e.inbox(t, manager)
		require.Len(t, inbox, 1)
		assert.Equal(t, models.IconGroupRequest, inbox[0].Icon)
	}

	group, err := e.Communities.GetGroup(ctx, owner, groupID)
	require.NoError(t, err)
	require.Len(t, group.JoinRequests, 1)
	assert.Equal(t, joiner, group.JoinRequests[0].User)

	hidden, err := e.Communities.GetGroup(ctx, joiner, groupID)
	require.NoError(t, err)
	assert.Empty(t, hidden.JoinRequests)

	outsider := e.user(t, "outsider")
	err = e.Relations.HandleGroupRequest(ctx, outsider, groupID, group.JoinRequests[0].RequestID, true)
	assertKind(t, err, apperr.KindForbidden)
	err = e.Relations.HandleGroupRequest(ctx, admin, groupID, "999", true)
	assertKind(t, err, apperr.KindNotFound)

	require.NoError(t, e.Relations.HandleGroupRequest(ctx, admin, groupID, group.JoinRequests[0].RequestID, true))
	member, err := e.Members.IsMember(ctx, groupID, joiner)
	require.NoError(t, err)
	assert.True(t, member)

	got, err := e.store.Groups.GetGroupByID(ctx, groupID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.MembersCount)
	assert.Equal(t, models.IconGroupAccept, e.inbox(t, joiner)[0].Icon)
}

func TestExitGroup(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	owner, member := e.user(t, "owner"), e.user(t, "member")
	groupID := e.group(t, owner, models.GroupPublic)

	_, err := e.Relations.ExitGroup(ctx, owner, groupID)
	assertKind(t, err, apperr.KindBadRequest)
	_, err = e.Relations.ExitGroup(ctx, member, groupID)
	assertKind(t, err, apperr.KindBadRequest)

	status, err := e.Relations.JoinGroup(ctx, member, groupID)
	require.NoError(t, err)
	assert.Equal(t, JoinJoined, status)

	ownerPost := e.post(t, owner, models.CreatePostRequest{Community: "group", CommunityID: groupID})
	memberPost := e.post(t, member, models.CreatePostRequest{
		Community:   "group",
		CommunityID: groupID,
		Media:       []models.Media{pic(member, "post.png")},
	})
	e.comment(t, member, ownerPost)
	e.comment(t, owner, ownerPost)
	e.comment(t, owner, memberPost)
	assert.Equal(t, 2, e.getPost(t, ownerPost).CommentsCount)

	report, err := e.Relations.ExitGroup(ctx, member, groupID)
	require.NoError(t, err)
	assert.True(t, report.OK())

	member2, err := e.Members.IsMember(ctx, groupID, member)
	require.NoError(t, err)
	assert.False(t, member2)
	group, err := e.store.Groups.GetGroupByID(ctx, groupID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), group.MembersCount)

	_, err = e.store.Posts.GetPostByID(ctx, memberPost)
	assert.Error(t, err)
	assert.Equal(t, 1, e.getPost(t, ownerPost).CommentsCount)
	for _, c := range e.db.Comments() {
		assert.NotEqual(t, member, c.Owner)
		assert.NotEqual(t, memberPost, c.Post)
	}
	assert.Contains(t, e.media.DeletedIDs(), "media/member-post")
}

func TestExpelFromGroup(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	owner, admin, admin2, member := e.user(t, "owner"), e.user(t, "admin"), e.user(t, "admin2"), e.user(t, "member")
	groupID := e.group(t, owner, models.GroupPublic)
	for _, u := range []string{admin, admin2, member} {
		_, err := e.Relations.JoinGroup(ctx, u, groupID)
		require.NoError(t, err)
	}
	require.NoError(t, e.Relations.ToggleAdmin(ctx, owner, models.CommunityGroup, groupID, admin, AdminAdd))
	require.NoError(t, e.Relations.ToggleAdmin(ctx, owner, models.CommunityGroup, groupID, admin2, AdminAdd))

	_, err := e.Relations.ExpelFromGroup(ctx, member, groupID, admin)
	assertKind(t, err, apperr.KindForbidden)
	_, err = e.Relations.ExpelFromGroup(ctx, admin, groupID, admin)
	assertKind(t, err, apperr.KindBadUserInput)
	_, err = e.Relations.ExpelFromGroup(ctx, admin, groupID, owner)
	assertKind(t, err, apperr.KindForbidden)
	_, err = e.Relations.ExpelFromGroup(ctx, admin, groupID, admin2)
	assertKind(t, err, apperr.KindForbidden)
	_, err = e.Relations.ExpelFromGroup(ctx, admin, groupID, e.user(t, "stranger"))
	assertKind(t, err, apperr.KindBadRequest)

	e.post(t, member, models.CreatePostRequest{Community: "group", CommunityID: groupID})
	_, err = e.Relations.ExpelFromGroup(ctx, admin, groupID, member)
	require.NoError(t, err)
	assert.Empty(t, e.db.Posts())
	assert.Equal(t, models.IconGroupExpel, e.inbox(t, member)[0].Icon)

	_, err = e.Relations.ExpelFromGroup(ctx, owner, groupID, admin2)
	require.NoError(t, err)
	role, err := e.Members.Role(ctx, models.CommunityGroup, groupID, admin2)
	require.NoError(t, err)
	assert.Equal(t, RoleNone, role)

	group, err := e.store.Groups.GetGroupByID(ctx, groupID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), group.MembersCount)
	e.assertRelationsConsistent(t)
}

func TestReconcileCounters(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	owner, fan := e.user(t, "owner"), e.user(t, "fan")
	pageID := e.page(t, owner)
	groupID := e.group(t, owner, models.GroupPublic)
	require.NoError(t, e.store.Relations.Apply(ctx, []models.Relation{
		models.Edge(fan, models.RelPageFollower, pageID),
		models.Edge(fan, models.RelGroupMember, groupID),
	}, nil))
	require.NoError(t, e.store.Groups.SetMembersCount(ctx, groupID, 7))

	report, err := e.Reconciler.ReconcileCounters(ctx)
	require.NoError(t, err)
	assert.Equal(t, &ReconcileReport{Pages: 1, Groups: 1}, report)

	page, err := e.store.Pages.GetPageByID(ctx, pageID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.FollowersCount)
	group, err := e.store.Groups.GetGroupByID(ctx, groupID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), group.MembersCount)

	report, err = e.Reconciler.ReconcileCounters(ctx)
	require.NoError(t, err)
	assert.Equal(t, &ReconcileReport{}, report)
}
