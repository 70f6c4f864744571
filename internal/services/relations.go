package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/anonto42/circles/backend/internal/apperr"
	"github.com/anonto42/circles/backend/internal/models"
	"github.com/anonto42/circles/backend/internal/repositories"
	"github.com/sirupsen/logrus"
)

// AdminAction selects whether ToggleAdmin grants or revokes admin rights.
type AdminAction string

const (
	AdminAdd    AdminAction = "add"
	AdminRemove AdminAction = "remove"
)

// ParseAdminAction resolves a wire value into an AdminAction.
func ParseAdminAction(s string) (AdminAction, error) {
	switch a := AdminAction(s); a {
	case AdminAdd, AdminRemove:
		return a, nil
	}
	return "", apperr.BadUserInput("invalid admin action %q", s)
}

// JoinStatus is the outcome of JoinGroup.
type JoinStatus string

const (
	JoinJoined    JoinStatus = "joined"
	JoinRequested JoinStatus = "requested"
)

// RelationMutator applies relationship changes. Both sides of a pair are
// written by one relations.Apply call, and community counters are re-derived
// from the relation store afterwards.
type RelationMutator struct {
	store   *repositories.Store
	members *MembershipResolver
	notify  *NotificationFanout
	cascade *CascadeDeletionEngine
	log     logrus.FieldLogger
}

// NewRelationMutator creates a RelationMutator.
func NewRelationMutator(store *repositories.Store, members *MembershipResolver, notify *NotificationFanout, cascade *CascadeDeletionEngine, log logrus.FieldLogger) *RelationMutator {
	return &RelationMutator{store: store, members: members, notify: notify, cascade: cascade, log: log}
}

func (m *RelationMutator) requireUser(ctx context.Context, id string) error {
	_, err := m.store.Users.GetUserByID(ctx, id)
	return missing(err, "user not found")
}

func (m *RelationMutator) has(ctx context.Context, subject string, kind models.RelationKind, object string) (bool, error) {
	return m.store.Relations.Exists(ctx, subject, kind, object)
}

// SendFriendRequest records a pending request from sender to target.
func (m *RelationMutator) SendFriendRequest(ctx context.Context, sender, target string) error {
	if sender == target {
		return apperr.BadUserInput("you cannot send a friend request to yourself")
	}
	if err := m.requireUser(ctx, target); err != nil {
		return err
	}
	kinds, err := m.store.Relations.KindsBetween(ctx, sender, target)
	if err != nil {
		return err
	}
	for _, k := range kinds {
		switch k {
		case models.RelFriend:
			return apperr.BadRequest("you are already friends")
		case models.RelFriendRequest:
			return apperr.BadRequest("friend request already sent")
		}
	}
	incoming, err := m.has(ctx, target, models.RelFriendRequest, sender)
	if err != nil {
		return err
	}
	if incoming {
		return apperr.BadRequest("this user already sent you a friend request")
	}

	if err := m.store.Relations.Apply(ctx, []models.Relation{models.Edge(sender, models.RelFriendRequest, target)}, nil); err != nil {
		return err
	}
	m.notify.Notify(ctx, target, Notice{
		Icon:    models.IconFriendRequest,
		Content: displayName(ctx, m.store.Users, sender) + " sent you a friend request",
		URL:     "/users/" + sender,
	})
	return nil
}

// CancelFriendRequest withdraws a pending request sent by sender.
func (m *RelationMutator) CancelFriendRequest(ctx context.Context, sender, target string) error {
	if sender == target {
		return apperr.BadUserInput("you cannot send a friend request to yourself")
	}
	ok, err := m.has(ctx, sender, models.RelFriendRequest, target)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.BadRequest("there is no pending friend request to this user")
	}
	return m.store.Relations.Apply(ctx, nil, []models.Relation{models.Edge(sender, models.RelFriendRequest, target)})
}

// HandleFriendRequest accepts or rejects the request requester sent to user.
// Accepting writes both friend edges and drops the requests in one step.
func (m *RelationMutator) HandleFriendRequest(ctx context.Context, user, requester string, accept bool) error {
	if user == requester {
		return apperr.BadUserInput("you cannot handle a friend request from yourself")
	}
	ok, err := m.has(ctx, requester, models.RelFriendRequest, user)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.BadRequest("there is no pending friend request from this user")
	}
	requests := []models.Relation{
		models.Edge(requester, models.RelFriendRequest, user),
		models.Edge(user, models.RelFriendRequest, requester),
	}
	if !accept {
		return m.store.Relations.Apply(ctx, nil, requests)
	}
	if err := m.requireUser(ctx, requester); err != nil {
		return err
	}
	if err := m.store.Relations.Apply(ctx, models.FriendPair(user, requester), requests); err != nil {
		return err
	}
	m.notify.Notify(ctx, requester, Notice{
		Icon:    models.IconFriendAccept,
		Content: displayName(ctx, m.store.Users, user) + " accepted your friend request",
		URL:     "/users/" + user,
	})
	return nil
}

// RemoveFriend removes both friend edges between user and friend.
func (m *RelationMutator) RemoveFriend(ctx context.Context, user, friend string) error {
	if user == friend {
		return apperr.BadUserInput("you cannot unfriend yourself")
	}
	ok, err := m.has(ctx, user, models.RelFriend, friend)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.BadRequest("this user is not in your friends list")
	}
	return m.store.Relations.Apply(ctx, nil, models.FriendPair(user, friend))
}

// TogglePageFollow follows or unfollows a page and returns the new state.
func (m *RelationMutator) TogglePageFollow(ctx context.Context, user, pageID string) (bool, error) {
	page, err := m.store.Pages.GetPageByID(ctx, pageID)
	if err != nil {
		return false, missing(err, "page not found")
	}
	if page.Owner == user {
		return false, apperr.BadRequest("you cannot follow your own page")
	}
	edge := []models.Relation{models.Edge(user, models.RelPageFollower, pageID)}
	following, err := m.has(ctx, user, models.RelPageFollower, pageID)
	if err != nil {
		return false, err
	}
	if following {
		err = m.store.Relations.Apply(ctx, nil, edge)
	} else {
		err = m.store.Relations.Apply(ctx, edge, nil)
	}
	if err != nil {
		return false, err
	}
	m.recount(ctx, models.CommunityPage, pageID)
	return !following, nil
}

// recount re-derives a community counter. A failure only leaves the counter
// stale until the next reconciliation.
func (m *RelationMutator) recount(ctx context.Context, kind models.Community, id string) {
	var err error
	if kind == models.CommunityGroup {
		err = recountMembers(ctx, m.store, id)
	} else {
		err = recountFollowers(ctx, m.store, id)
	}
	if err != nil {
		m.log.WithError(err).WithFields(logrus.Fields{"community": kind, "id": id}).Warn("counter recount failed")
	}
}

// communityOwner loads the owner of a page or group.
func (m *RelationMutator) communityOwner(ctx context.Context, kind models.Community, id string) (string, error) {
	switch kind {
	case models.CommunityPage:
		page, err := m.store.Pages.GetPageByID(ctx, id)
		if err != nil {
			return "", missing(err, "page not found")
		}
		return page.Owner, nil
	case models.CommunityGroup:
		group, err := m.store.Groups.GetGroupByID(ctx, id)
		if err != nil {
			return "", missing(err, "group not found")
		}
		return group.Owner, nil
	}
	return "", apperr.BadUserInput("admins can only be managed on pages and groups")
}

// ToggleAdmin grants or revokes admin rights on a page or group. Only the
// owner manages admins and the owner can never be one.
func (m *RelationMutator) ToggleAdmin(ctx context.Context, actor string, kind models.Community, communityID, target string, action AdminAction) error {
	owner, err := m.communityOwner(ctx, kind, communityID)
	if err != nil {
		return err
	}
	if actor != owner {
		return apperr.Forbidden("only the owner can manage admins")
	}
	if target == owner {
		return apperr.BadUserInput("the owner of a %s cannot be one of its admins", kind)
	}
	if err := m.requireUser(ctx, target); err != nil {
		return err
	}

	_, adminKind, _ := communityKinds(kind)
	isAdmin, err := m.has(ctx, target, adminKind, communityID)
	if err != nil {
		return err
	}
	edge := []models.Relation{models.Edge(target, adminKind, communityID)}

	switch action {
	case AdminAdd:
		if isAdmin {
			return apperr.BadRequest("this user is already an admin")
		}
		if kind == models.CommunityGroup {
			member, err := m.members.IsMember(ctx, communityID, target)
			if err != nil {
				return err
			}
			if !member {
				return apperr.BadRequest("only members of the group can become admins")
			}
		}
		return m.store.Relations.Apply(ctx, edge, nil)
	case AdminRemove:
		if !isAdmin {
			return apperr.BadRequest("this user is not an admin")
		}
		return m.store.Relations.Apply(ctx, nil, edge)
	}
	return apperr.BadUserInput("invalid admin action %q", action)
}

// JoinGroup makes user a member of a public group, or files a join request
// for a members_only group and notifies its managers.
func (m *RelationMutator) JoinGroup(ctx context.Context, user, groupID string) (JoinStatus, error) {
	group, err := m.store.Groups.GetGroupByID(ctx, groupID)
	if err != nil {
		return "", missing(err, "group not found")
	}
	if group.Owner == user {
		return "", apperr.BadRequest("you own this group")
	}
	kinds, err := m.store.Relations.KindsBetween(ctx, user, groupID)
	if err != nil {
		return "", err
	}
	for _, k := range kinds {
		switch k {
		case models.RelGroupMember:
			return "", apperr.BadRequest("you are already a member of this group")
		case models.RelGroupJoinRequest:
			return "", apperr.BadRequest("you already asked to join this group")
		}
	}

	if group.Privacy != models.GroupMembersOnly {
		if err := m.store.Relations.Apply(ctx, []models.Relation{models.Edge(user, models.RelGroupMember, groupID)}, nil); err != nil {
			return "", err
		}
		m.recount(ctx, models.CommunityGroup, groupID)
		return JoinJoined, nil
	}

	if err := m.store.Relations.Apply(ctx, []models.Relation{models.Edge(user, models.RelGroupJoinRequest, groupID)}, nil); err != nil {
		return "", err
	}
	admins, err := m.store.Relations.Subjects(ctx, models.RelGroupAdmin, groupID)
	if err != nil {
		m.log.WithError(err).WithField("group", groupID).Warn("listing group admins for notification")
	}
	m.notify.NotifyAll(ctx, append([]string{group.Owner}, admins...), Notice{
		Icon:    models.IconGroupRequest,
		Content: fmt.Sprintf("%s asked to join %s", displayName(ctx, m.store.Users, user), group.Name),
		URL:     "/groups/" + groupID + "/requests",
	})
	return JoinRequested, nil
}

// ExitGroup removes user from a group, or withdraws their pending request.
// Leaving removes the member's posts and comments in the group.
func (m *RelationMutator) ExitGroup(ctx context.Context, user, groupID string) (*CascadeReport, error) {
	group, err := m.store.Groups.GetGroupByID(ctx, groupID)
	if err != nil {
		return nil, missing(err, "group not found")
	}
	if group.Owner == user {
		return nil, apperr.BadRequest("the owner cannot leave their own group")
	}
	kinds, err := m.store.Relations.KindsBetween(ctx, user, groupID)
	if err != nil {
		return nil, err
	}
	member, requested := false, false
	for _, k := range kinds {
		member = member || k == models.RelGroupMember
		requested = requested || k == models.RelGroupJoinRequest
	}
	if !member {
		if !requested {
			return nil, apperr.BadRequest("you are not a member of this group")
		}
		err := m.store.Relations.Apply(ctx, nil, []models.Relation{models.Edge(user, models.RelGroupJoinRequest, groupID)})
		return nil, err
	}
	return m.dropMember(ctx, groupID, user)
}

// ExpelFromGroup removes target from a group on behalf of its owner or an
// admin. Admins can only be expelled by the owner.
func (m *RelationMutator) ExpelFromGroup(ctx context.Context, actor, groupID, target string) (*CascadeReport, error) {
	group, err := m.store.Groups.GetGroupByID(ctx, groupID)
	if err != nil {
		return nil, missing(err, "group not found")
	}
	if actor == target {
		return nil, apperr.BadUserInput("you cannot expel yourself, leave the group instead")
	}
	actorRole, err := m.members.Role(ctx, models.CommunityGroup, groupID, actor)
	if err != nil {
		return nil, err
	}
	if !actorRole.AtLeast(RoleAdmin) {
		return nil, apperr.Forbidden("only the owner and admins can expel members")
	}
	if target == group.Owner {
		return nil, apperr.Forbidden("the owner cannot be expelled")
	}
	targetRole, err := m.members.Role(ctx, models.CommunityGroup, groupID, target)
	if err != nil {
		return nil, err
	}
	if targetRole == RoleAdmin && actorRole != RoleOwner {
		return nil, apperr.Forbidden("only the owner can expel an admin")
	}
	if !targetRole.AtLeast(RoleMember) {
		return nil, apperr.BadRequest("this user is not a member of the group")
	}

	report, err := m.dropMember(ctx, groupID, target)
	if err != nil {
		return nil, err
	}
	m.notify.Notify(ctx, target, Notice{
		Icon:    models.IconGroupExpel,
		Content: "you were removed from " + group.Name,
		URL:     "/groups/" + groupID,
	})
	return report, nil
}

// dropMember removes every edge between user and the group, recounts members
// and deletes the member's content in the group.
func (m *RelationMutator) dropMember(ctx context.Context, groupID, user string) (*CascadeReport, error) {
	err := m.store.Relations.Apply(ctx, nil, []models.Relation{
		models.Edge(user, models.RelGroupMember, groupID),
		models.Edge(user, models.RelGroupAdmin, groupID),
		models.Edge(user, models.RelGroupJoinRequest, groupID),
	})
	if err != nil {
		return nil, err
	}
	m.recount(ctx, models.CommunityGroup, groupID)
	return m.cascade.RemoveMemberContent(ctx, groupID, user)
}

// HandleGroupRequest accepts or rejects a join request of a members_only group.
func (m *RelationMutator) HandleGroupRequest(ctx context.Context, actor, groupID, requestID string, accept bool) error {
	group, err := m.store.Groups.GetGroupByID(ctx, groupID)
	if err != nil {
		return missing(err, "group not found")
	}
	ok, err := m.members.CanManage(ctx, models.CommunityGroup, groupID, actor)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Forbidden("only the owner and admins can handle join requests")
	}
	id, err := strconv.ParseUint(requestID, 10, 64)
	if err != nil {
		return apperr.NotFound("join request not found")
	}
	req, err := m.store.Relations.GetByID(ctx, uint(id))
	if err != nil {
		return missing(err, "join request not found")
	}
	if req.Kind != models.RelGroupJoinRequest || req.ObjectID != groupID {
		return apperr.NotFound("join request not found")
	}

	remove := []models.Relation{models.Edge(req.SubjectID, models.RelGroupJoinRequest, groupID)}
	if !accept {
		return m.store.Relations.Apply(ctx, nil, remove)
	}
	add := []models.Relation{models.Edge(req.SubjectID, models.RelGroupMember, groupID)}
	if err := m.store.Relations.Apply(ctx, add, remove); err != nil {
		return err
	}
	m.recount(ctx, models.CommunityGroup, groupID)
	m.notify.Notify(ctx, req.SubjectID, Notice{
		Icon:    models.IconGroupAccept,
		Content: "your request to join " + group.Name + " was accepted",
		URL:     "/groups/" + groupID,
	})
	return nil
}
