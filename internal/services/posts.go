package services

import (
	"context"
	"strings"

	"github.com/anonto42/circles/backend/internal/apperr"
	"github.com/anonto42/circles/backend/internal/media"
	"github.com/anonto42/circles/backend/internal/models"
	"github.com/anonto42/circles/backend/internal/repositories"
	"github.com/sirupsen/logrus"
)

// PostService creates, edits, reads and deletes posts.
type PostService struct {
	store   *repositories.Store
	members *MembershipResolver
	privacy *PrivacyGuard
	cascade *CascadeDeletionEngine
	media   media.Service
	log     logrus.FieldLogger
}

// NewPostService creates a PostService.
func NewPostService(store *repositories.Store, members *MembershipResolver, privacy *PrivacyGuard, cascade *CascadeDeletionEngine, media media.Service, log logrus.FieldLogger) *PostService {
	return &PostService{store: store, members: members, privacy: privacy, cascade: cascade, media: media, log: log}
}

// AddPost publishes a post. Community posts are always public and need a
// manager of the page or a member of the group; personal posts are indexed
// on the owner's timeline.
func (s *PostService) AddPost(ctx context.Context, owner string, req models.CreatePostRequest) (*models.Post, error) {
	community, err := models.ParseCommunity(req.Community)
	if err != nil {
		return nil, apperr.BadUserInput("%s", err)
	}
	privacy, err := models.ParsePrivacy(req.Privacy)
	if err != nil {
		return nil, apperr.BadUserInput("%s", err)
	}
	if strings.TrimSpace(req.Content) == "" && len(req.Media) == 0 {
		return nil, apperr.BadUserInput("a post needs content or media")
	}
	if err := ownMedia(owner, req.Media...); err != nil {
		return nil, err
	}

	switch community {
	case models.CommunityPersonal:
		if req.CommunityID != "" {
			return nil, apperr.BadUserInput("personal posts cannot have a communityId")
		}
	case models.CommunityPage:
		if req.CommunityID == "" {
			return nil, apperr.BadUserInput("communityId is required for page posts")
		}
		if _, err := s.store.Pages.GetPageByID(ctx, req.CommunityID); err != nil {
			return nil, missing(err, "page not found")
		}
		ok, err := s.members.CanManage(ctx, community, req.CommunityID, owner)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperr.Forbidden("only the owner and admins can post on this page")
		}
		privacy = models.PrivacyPublic
	case models.CommunityGroup:
		if req.CommunityID == "" {
			return nil, apperr.BadUserInput("communityId is required for group posts")
		}
		if _, err := s.store.Groups.GetGroupByID(ctx, req.CommunityID); err != nil {
			return nil, missing(err, "group not found")
		}
		role, err := s.members.Role(ctx, community, req.CommunityID, owner)
		if err != nil {
			return nil, err
		}
		if !role.AtLeast(RoleMember) {
			return nil, apperr.Forbidden("only members can post in this group")
		}
		privacy = models.PrivacyPublic
	}
	if !models.ScopeValid(community, req.CommunityID, privacy) {
		return nil, apperr.BadUserInput("invalid post scope")
	}

	post := &models.Post{
		Owner:         owner,
		Content:       req.Content,
		Community:     community,
		CommunityID:   req.CommunityID,
		Privacy:       privacy,
		Media:         req.Media,
		BlockComments: req.BlockComments,
	}
	if err := s.store.Posts.CreatePost(ctx, post); err != nil {
		return nil, err
	}
	if community != models.CommunityPersonal {
		return post, nil
	}

	err = s.store.Timeline.AddEntry(ctx, &models.TimelineEntry{
		UserID:    owner,
		PostID:    post.ID.Hex(),
		ShareDate: post.CreatedAt,
		Privacy:   privacy,
		Community: community,
	})
	if err != nil {
		if derr := s.store.Posts.DeletePost(ctx, post.ID.Hex()); derr != nil {
			s.log.WithError(derr).WithField("post", post.ID.Hex()).Error("rolling back post without timeline entry")
		}
		return nil, err
	}
	return post, nil
}

// EditPost changes a post on behalf of its owner. Only personal posts can
// change privacy; a post that stops being public loses every share.
func (s *PostService) EditPost(ctx context.Context, actor, postID string, req models.UpdatePostRequest) (*models.Post, error) {
	post, err := s.store.Posts.GetPostByID(ctx, postID)
	if err != nil {
		return nil, missing(err, "post not found")
	}
	if post.Owner != actor {
		return nil, apperr.Forbidden("only the owner can edit this post")
	}

	update := repositories.PostUpdate{Content: req.Content, BlockComments: req.BlockComments}
	var privacy models.Privacy
	if req.Privacy != "" {
		privacy, err = models.ParsePrivacy(req.Privacy)
		if err != nil {
			return nil, apperr.BadUserInput("%s", err)
		}
		if post.Community != models.CommunityPersonal && privacy != models.PrivacyPublic {
			return nil, apperr.BadUserInput("posts of pages and groups are always public")
		}
		if privacy != post.Privacy {
			update.Privacy = &privacy
		}
	}

	if err := ownMedia(actor, req.Media...); err != nil {
		return nil, err
	}

	var dropped []string
	if len(req.DeletedMedia) > 0 || len(req.Media) > 0 {
		remove := make(map[string]bool, len(req.DeletedMedia))
		for _, id := range req.DeletedMedia {
			remove[id] = true
		}
		kept := make([]models.Media, 0, len(post.Media)+len(req.Media))
		for _, m := range post.Media {
			if remove[m.PublicID] {
				dropped = append(dropped, m.PublicID)
				continue
			}
			kept = append(kept, m)
		}
		update.Media = append(kept, req.Media...)
	}

	content := post.Content
	if req.Content != nil {
		content = *req.Content
	}
	attached := post.Media
	if update.Media != nil {
		attached = update.Media
	}
	if strings.TrimSpace(content) == "" && len(attached) == 0 {
		return nil, apperr.BadUserInput("a post needs content or media")
	}

	if err := s.store.Posts.UpdatePost(ctx, postID, update); err != nil {
		return nil, missing(err, "post not found")
	}
	if update.Privacy != nil {
		if err := s.changePrivacy(ctx, post, privacy); err != nil {
			return nil, err
		}
	}
	if len(dropped) > 0 && s.media != nil {
		if err := s.media.Delete(ctx, dropped); err != nil {
			s.log.WithError(err).WithField("post", postID).Warn("deleting replaced media")
		}
	}
	return s.GetSinglePost(ctx, actor, postID)
}

func (s *PostService) changePrivacy(ctx context.Context, post *models.Post, privacy models.Privacy) error {
	id := post.ID.Hex()
	if privacy != models.PrivacyPublic && post.Privacy == models.PrivacyPublic {
		users, err := s.store.Timeline.RemoveShares(ctx, id)
		if err != nil {
			return err
		}
		if len(users) > 0 {
			if err := s.store.Posts.ResetShares(ctx, id); err != nil {
				return err
			}
		}
	}
	return s.store.Timeline.UpdatePrivacy(ctx, id, privacy)
}

// DeletePost deletes a post and everything that refers to it.
func (s *PostService) DeletePost(ctx context.Context, actor, postID string) (*CascadeReport, error) {
	return s.cascade.DeletePost(ctx, actor, postID)
}

// GetSinglePost returns a post the viewer may read, with the viewer's flags set.
func (s *PostService) GetSinglePost(ctx context.Context, viewer, postID string) (*models.Post, error) {
	post, err := s.store.Posts.GetPostByID(ctx, postID)
	if err != nil {
		return nil, missing(err, "post not found")
	}
	if err := s.privacy.CheckPost(ctx, viewer, post); err != nil {
		return nil, err
	}
	one := []models.Post{*post}
	if err := annotatePosts(ctx, s.store, viewer, one); err != nil {
		return nil, err
	}
	return &one[0], nil
}
