package services

import (
	"context"

	"github.com/anonto42/circles/backend/internal/models"
	"github.com/anonto42/circles/backend/internal/repositories"
)

// Role is a user's standing in a community.
type Role string

const (
	RoleNone   Role = "none"
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
	RoleOwner  Role = "owner"
)

// rank orders roles so that a higher role implies the lower ones.
func (r Role) rank() int {
	switch r {
	case RoleOwner:
		return 3
	case RoleAdmin:
		return 2
	case RoleMember:
		return 1
	}
	return 0
}

// AtLeast reports whether r grants at least the rights of min.
func (r Role) AtLeast(min Role) bool { return r.rank() >= min.rank() }

// communityKinds returns the owner, admin and member relation kinds of a community.
func communityKinds(c models.Community) (owner, admin, member models.RelationKind) {
	if c == models.CommunityGroup {
		return models.RelGroupOwner, models.RelGroupAdmin, models.RelGroupMember
	}
	return models.RelPageOwner, models.RelPageAdmin, models.RelPageFollower
}

// MembershipResolver answers relation questions against the relation store.
// It never checks that the community exists; callers do.
type MembershipResolver struct {
	relations repositories.RelationRepository
}

// NewMembershipResolver creates a MembershipResolver.
func NewMembershipResolver(relations repositories.RelationRepository) *MembershipResolver {
	return &MembershipResolver{relations: relations}
}

// Role returns the highest role userID holds in the community. Followers of
// a page count as members.
func (m *MembershipResolver) Role(ctx context.Context, community models.Community, communityID, userID string) (Role, error) {
	if userID == "" || !community.IsCommunity() {
		return RoleNone, nil
	}
	kinds, err := m.relations.KindsBetween(ctx, userID, communityID)
	if err != nil {
		return RoleNone, err
	}
	owner, admin, member := communityKinds(community)
	role := RoleNone
	for _, k := range kinds {
		var r Role
		switch k {
		case owner:
			r = RoleOwner
		case admin:
			r = RoleAdmin
		case member:
			r = RoleMember
		default:
			continue
		}
		if r.rank() > role.rank() {
			role = r
		}
	}
	return role, nil
}

// IsAdmin reports whether userID is an admin of the community. Owners are not admins.
func (m *MembershipResolver) IsAdmin(ctx context.Context, community models.Community, userID, communityID string) (bool, error) {
	_, admin, _ := communityKinds(community)
	return m.relations.Exists(ctx, userID, admin, communityID)
}

// IsOwner reports whether userID owns the community.
func (m *MembershipResolver) IsOwner(ctx context.Context, community models.Community, userID, communityID string) (bool, error) {
	owner, _, _ := communityKinds(community)
	return m.relations.Exists(ctx, userID, owner, communityID)
}

// IsMember reports whether userID joined the group.
func (m *MembershipResolver) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	return m.relations.Exists(ctx, userID, models.RelGroupMember, groupID)
}

// IsFollower reports whether userID follows the page.
func (m *MembershipResolver) IsFollower(ctx context.Context, pageID, userID string) (bool, error) {
	return m.relations.Exists(ctx, userID, models.RelPageFollower, pageID)
}

// AreFriends reports whether a and b are friends.
func (m *MembershipResolver) AreFriends(ctx context.Context, a, b string) (bool, error) {
	if a == "" || b == "" || a == b {
		return false, nil
	}
	return m.relations.Exists(ctx, a, models.RelFriend, b)
}

// CanManage reports whether userID is the owner or an admin of the community.
func (m *MembershipResolver) CanManage(ctx context.Context, community models.Community, communityID, userID string) (bool, error) {
	role, err := m.Role(ctx, community, communityID, userID)
	return role.AtLeast(RoleAdmin), err
}
