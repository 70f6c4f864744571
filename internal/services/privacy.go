package services

import (
	"context"

	"github.com/anonto42/circles/backend/internal/apperr"
	"github.com/anonto42/circles/backend/internal/models"
	"github.com/anonto42/circles/backend/internal/repositories"
)

const (
	msgFriendsOnly = "this post is available to friends only"
	msgOwnerOnly   = "this post is available to its owner only"
	msgMembersOnly = "this group's posts are available to members only"
)

// PrivacyGuard decides whether a viewer may read a post or a community's posts.
// An empty viewer is an anonymous caller.
type PrivacyGuard struct {
	members *MembershipResolver
	groups  repositories.GroupRepository
}

// NewPrivacyGuard creates a PrivacyGuard.
func NewPrivacyGuard(members *MembershipResolver, groups repositories.GroupRepository) *PrivacyGuard {
	return &PrivacyGuard{members: members, groups: groups}
}

// CheckPost returns Forbidden when viewer may not read post.
func (g *PrivacyGuard) CheckPost(ctx context.Context, viewer string, post *models.Post) error {
	switch post.Community {
	case models.CommunityPage:
		return nil
	case models.CommunityGroup:
		group, err := g.groups.GetGroupByID(ctx, post.CommunityID)
		if err != nil {
			return missing(err, "group not found")
		}
		return g.CheckGroup(ctx, viewer, group)
	}

	switch post.Privacy {
	case models.PrivacyPublic:
		return nil
	case models.PrivacyFriendsOnly:
		if viewer == post.Owner {
			return nil
		}
		friends, err := g.members.AreFriends(ctx, viewer, post.Owner)
		if err != nil {
			return err
		}
		if !friends {
			return apperr.Forbidden(msgFriendsOnly)
		}
		return nil
	case models.PrivacyOnlyMe:
		if viewer != post.Owner {
			return apperr.Forbidden(msgOwnerOnly)
		}
		return nil
	}
	return apperr.Forbidden(msgOwnerOnly)
}

// CheckGroup returns Forbidden when viewer may not list the group's posts.
func (g *PrivacyGuard) CheckGroup(ctx context.Context, viewer string, group *models.Group) error {
	if group.Privacy != models.GroupMembersOnly {
		return nil
	}
	role, err := g.members.Role(ctx, models.CommunityGroup, group.ID.Hex(), viewer)
	if err != nil {
		return err
	}
	if !role.AtLeast(RoleMember) {
		return apperr.Forbidden(msgMembersOnly)
	}
	return nil
}

// VisiblePrivacies lists the personal-post privacies of owner that viewer may read.
func (g *PrivacyGuard) VisiblePrivacies(ctx context.Context, viewer, owner string) ([]models.Privacy, error) {
	if viewer != "" && viewer == owner {
		return []models.Privacy{models.PrivacyPublic, models.PrivacyFriendsOnly, models.PrivacyOnlyMe}, nil
	}
	friends, err := g.members.AreFriends(ctx, viewer, owner)
	if err != nil {
		return nil, err
	}
	if friends {
		return []models.Privacy{models.PrivacyPublic, models.PrivacyFriendsOnly}, nil
	}
	return []models.Privacy{models.PrivacyPublic}, nil
}
