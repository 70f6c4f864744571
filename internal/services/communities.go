package services

import (
	"context"
	"strconv"

	"github.com/anonto42/circles/backend/internal/apperr"
	"github.com/anonto42/circles/backend/internal/media"
	"github.com/anonto42/circles/backend/internal/models"
	"github.com/anonto42/circles/backend/internal/repositories"
	"github.com/sirupsen/logrus"
)

// CommunityService manages pages and groups.
type CommunityService struct {
	store   *repositories.Store
	members *MembershipResolver
	cascade *CascadeDeletionEngine
	media   media.Service
	log     logrus.FieldLogger
}

// NewCommunityService creates a CommunityService.
func NewCommunityService(store *repositories.Store, members *MembershipResolver, cascade *CascadeDeletionEngine, media media.Service, log logrus.FieldLogger) *CommunityService {
	return &CommunityService{store: store, members: members, cascade: cascade, media: media, log: log}
}

// AddPage creates a page owned by owner.
func (s *CommunityService) AddPage(ctx context.Context, owner string, req models.CreatePageRequest) (*models.Page, error) {
	page := &models.Page{Owner: owner, Name: req.Name, Description: req.Description}
	if err := s.store.Pages.CreatePage(ctx, page); err != nil {
		return nil, err
	}
	id := page.ID.Hex()
	if err := s.store.Relations.Apply(ctx, []models.Relation{models.Edge(owner, models.RelPageOwner, id)}, nil); err != nil {
		if derr := s.store.Pages.DeletePage(ctx, id); derr != nil {
			s.log.WithError(derr).WithField("page", id).Error("rolling back page without owner edge")
		}
		return nil, err
	}
	page.Admins = []string{}
	return page, nil
}

// EditPage updates the name or description of a page.
func (s *CommunityService) EditPage(ctx context.Context, actor, pageID string, req models.UpdatePageRequest) (*models.Page, error) {
	if _, err := s.store.Pages.GetPageByID(ctx, pageID); err != nil {
		return nil, missing(err, "page not found")
	}
	if err := s.requireManager(ctx, models.CommunityPage, pageID, actor); err != nil {
		return nil, err
	}
	err := s.store.Pages.UpdatePage(ctx, pageID, repositories.PageUpdate{Name: req.Name, Description: req.Description})
	if err != nil {
		return nil, missing(err, "page not found")
	}
	return s.GetPage(ctx, pageID)
}

// GetPage returns a page with its admins.
func (s *CommunityService) GetPage(ctx context.Context, pageID string) (*models.Page, error) {
	page, err := s.store.Pages.GetPageByID(ctx, pageID)
	if err != nil {
		return nil, missing(err, "page not found")
	}
	page.Admins, err = s.store.Relations.Subjects(ctx, models.RelPageAdmin, pageID)
	if err != nil {
		return nil, err
	}
	return page, nil
}

// AddGroup creates a group owned by owner.
func (s *CommunityService) AddGroup(ctx context.Context, owner string, req models.CreateGroupRequest) (*models.Group, error) {
	privacy, err := models.ParseGroupPrivacy(req.Privacy)
	if err != nil {
		return nil, apperr.BadUserInput("%s", err)
	}
	group := &models.Group{Owner: owner, Name: req.Name, Description: req.Description, Privacy: privacy}
	if err := s.store.Groups.CreateGroup(ctx, group); err != nil {
		return nil, err
	}
	id := group.ID.Hex()
	if err := s.store.Relations.Apply(ctx, []models.Relation{models.Edge(owner, models.RelGroupOwner, id)}, nil); err != nil {
		if derr := s.store.Groups.DeleteGroup(ctx, id); derr != nil {
			s.log.WithError(derr).WithField("group", id).Error("rolling back group without owner edge")
		}
		return nil, err
	}
	group.Admins = []string{}
	return group, nil
}

// EditGroup updates a group. Only the owner may change its privacy.
func (s *CommunityService) EditGroup(ctx context.Context, actor, groupID string, req models.UpdateGroupRequest) (*models.Group, error) {
	group, err := s.store.Groups.GetGroupByID(ctx, groupID)
	if err != nil {
		return nil, missing(err, "group not found")
	}
	if err := s.requireManager(ctx, models.CommunityGroup, groupID, actor); err != nil {
		return nil, err
	}
	update := repositories.GroupUpdate{Name: req.Name, Description: req.Description}
	if req.Privacy != "" {
		privacy, err := models.ParseGroupPrivacy(req.Privacy)
		if err != nil {
			return nil, apperr.BadUserInput("%s", err)
		}
		if privacy != group.Privacy {
			if group.Owner != actor {
				return nil, apperr.Forbidden("only the owner can change the privacy of this group")
			}
			update.Privacy = &privacy
		}
	}
	if err := s.store.Groups.UpdateGroup(ctx, groupID, update); err != nil {
		return nil, missing(err, "group not found")
	}
	if update.Privacy != nil && *update.Privacy == models.GroupPublic {
		if err := s.admitPending(ctx, groupID); err != nil {
			return nil, err
		}
	}
	return s.GetGroup(ctx, actor, groupID)
}

// admitPending turns every pending join request of a group into a membership.
func (s *CommunityService) admitPending(ctx context.Context, groupID string) error {
	requesters, err := s.store.Relations.Subjects(ctx, models.RelGroupJoinRequest, groupID)
	if err != nil || len(requesters) == 0 {
		return err
	}
	add := make([]models.Relation, len(requesters))
	remove := make([]models.Relation, len(requesters))
	for i, user := range requesters {
		add[i] = models.Edge(user, models.RelGroupMember, groupID)
		remove[i] = models.Edge(user, models.RelGroupJoinRequest, groupID)
	}
	if err := s.store.Relations.Apply(ctx, add, remove); err != nil {
		return err
	}
	return recountMembers(ctx, s.store, groupID)
}

// GetGroup returns a group with its admins. Pending join requests are only
// listed for the owner and admins.
func (s *CommunityService) GetGroup(ctx context.Context, viewer, groupID string) (*models.Group, error) {
	group, err := s.store.Groups.GetGroupByID(ctx, groupID)
	if err != nil {
		return nil, missing(err, "group not found")
	}
	group.Admins, err = s.store.Relations.Subjects(ctx, models.RelGroupAdmin, groupID)
	if err != nil {
		return nil, err
	}
	manager, err := s.members.CanManage(ctx, models.CommunityGroup, groupID, viewer)
	if err != nil {
		return nil, err
	}
	if !manager {
		return group, nil
	}
	edges, err := s.store.Relations.Edges(ctx, models.RelGroupJoinRequest, groupID)
	if err != nil {
		return nil, err
	}
	group.JoinRequests = make([]models.JoinRequest, len(edges))
	for i, e := range edges {
		group.JoinRequests[i] = models.JoinRequest{RequestID: strconv.FormatUint(uint64(e.ID), 10), User: e.SubjectID}
	}
	return group, nil
}

// ChangePicture replaces the profile or cover picture of a page or group and
// deletes the replaced media.
func (s *CommunityService) ChangePicture(ctx context.Context, actor string, kind models.Community, id string, picture models.PictureKind, m *models.Media) error {
	if m == nil || m.PublicID == "" {
		return apperr.BadUserInput("a picture is required")
	}
	if err := ownMedia(actor, *m); err != nil {
		return err
	}
	var (
		old *models.Media
		set func(ctx context.Context, id string, kind models.PictureKind, media *models.Media) error
	)
	switch kind {
	case models.CommunityPage:
		page, err := s.store.Pages.GetPageByID(ctx, id)
		if err != nil {
			return missing(err, "page not found")
		}
		old = pictureOf(picture, page.ProfilePicture, page.CoverPicture)
		set = s.store.Pages.SetPicture
	case models.CommunityGroup:
		group, err := s.store.Groups.GetGroupByID(ctx, id)
		if err != nil {
			return missing(err, "group not found")
		}
		old = pictureOf(picture, group.ProfilePicture, group.CoverPicture)
		set = s.store.Groups.SetPicture
	default:
		return apperr.BadUserInput("pictures can only be changed on pages and groups")
	}
	if err := s.requireManager(ctx, kind, id, actor); err != nil {
		return err
	}
	if err := set(ctx, id, picture, m); err != nil {
		return missing(err, "%s not found", kind)
	}
	s.dropMedia(ctx, old, m)
	return nil
}

// DeletePage deletes a page with all of its content.
func (s *CommunityService) DeletePage(ctx context.Context, actor, pageID string) (*CascadeReport, error) {
	return s.cascade.DeletePage(ctx, actor, pageID)
}

// DeleteGroup deletes a group with all of its content.
func (s *CommunityService) DeleteGroup(ctx context.Context, actor, groupID string) (*CascadeReport, error) {
	return s.cascade.DeleteGroup(ctx, actor, groupID)
}

func (s *CommunityService) requireManager(ctx context.Context, kind models.Community, id, actor string) error {
	ok, err := s.members.CanManage(ctx, kind, id, actor)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Forbidden("only the owner and admins can change this %s", kind)
	}
	return nil
}

// dropMedia deletes a replaced picture unless it is the new one.
func (s *CommunityService) dropMedia(ctx context.Context, old, current *models.Media) {
	if s.media == nil || old == nil || old.PublicID == "" || old.PublicID == current.PublicID {
		return
	}
	if err := s.media.Delete(ctx, []string{old.PublicID}); err != nil {
		s.log.WithError(err).WithField("media", old.PublicID).Warn("deleting replaced picture")
	}
}

func pictureOf(kind models.PictureKind, profile, cover *models.Media) *models.Media {
	if kind == models.PictureCover {
		return cover
	}
	return profile
}
