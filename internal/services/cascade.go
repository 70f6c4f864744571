package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/anonto42/circles/backend/internal/apperr"
	"github.com/anonto42/circles/backend/internal/media"
	"github.com/anonto42/circles/backend/internal/models"
	"github.com/anonto42/circles/backend/internal/repositories"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// StepFailure records one cleanup step that did not complete.
type StepFailure struct {
	Step  string `json:"step"`
	Error string `json:"error"`
}

// CascadeReport describes the cleanup batch that followed a primary delete.
// The primary delete succeeded whenever a report is returned.
type CascadeReport struct {
	Entity   string        `json:"entity"`
	ID       string        `json:"id"`
	Steps    []string      `json:"steps"`
	Failed   int           `json:"failed"`
	Failures []StepFailure `json:"failures,omitempty"`
}

// OK reports whether every cleanup step succeeded.
func (r *CascadeReport) OK() bool { return r.Failed == 0 }

func (r *CascadeReport) err() error {
	if r.OK() {
		return nil
	}
	return fmt.Errorf("%s %s: %d cleanup steps failed", r.Entity, r.ID, r.Failed)
}

// step is one independent cleanup operation of a batch.
type step struct {
	name string
	run  func(ctx context.Context) error
}

// closure is everything that refers to an entity about to be deleted.
type closure struct {
	postIDs []string
	// commentPosts are surviving posts that lose comments and need a recount.
	commentPosts []string
	comments     []repositories.CommentFilter
	mediaIDs     []string
}

func (c *closure) addPosts(refs []models.PostRef) {
	for _, p := range refs {
		c.postIDs = append(c.postIDs, p.ID)
		c.mediaIDs = append(c.mediaIDs, models.MediaIDs(p.Media...)...)
	}
}

func (c *closure) addComments(refs []models.CommentRef) {
	for _, cm := range refs {
		c.mediaIDs = append(c.mediaIDs, models.MediaIDs(cm.Media...)...)
		c.commentPosts = append(c.commentPosts, cm.Post)
	}
}

// CascadeDeletionEngine deletes users, pages, groups and posts together with
// every record that refers to them. The closure is read before the primary
// delete; the cleanup runs afterwards as a best-effort parallel batch.
type CascadeDeletionEngine struct {
	store   *repositories.Store
	members *MembershipResolver
	media   media.Service
	log     logrus.FieldLogger
}

// NewCascadeDeletionEngine creates a CascadeDeletionEngine.
func NewCascadeDeletionEngine(store *repositories.Store, media media.Service, log logrus.FieldLogger) *CascadeDeletionEngine {
	return &CascadeDeletionEngine{
		store:   store,
		members: NewMembershipResolver(store.Relations),
		media:   media,
		log:     log,
	}
}

// runBatch runs every step concurrently. A failing step never stops the others.
func (e *CascadeDeletionEngine) runBatch(ctx context.Context, entity, id string, steps []step) *CascadeReport {
	// the primary delete already happened, so cleanup outlives the caller
	ctx = context.WithoutCancel(ctx)
	report := &CascadeReport{Entity: entity, ID: id}

	var (
		mu     sync.Mutex
		result *multierror.Error
		g      errgroup.Group
	)
	for _, s := range steps {
		report.Steps = append(report.Steps, s.name)
		g.Go(func() error {
			if err := s.run(ctx); err != nil {
				mu.Lock()
				result = multierror.Append(result, fmt.Errorf("%s: %w", s.name, err))
				report.Failures = append(report.Failures, StepFailure{Step: s.name, Error: err.Error()})
				mu.Unlock()
				cascadeStepFailures.WithLabelValues(entity, s.name).Inc()
			}
			return nil
		})
	}
	_ = g.Wait()

	report.Failed = len(report.Failures)
	cascadeRuns.WithLabelValues(entity).Inc()
	fields := logrus.Fields{"entity": entity, "id": id, "steps": len(steps), "failed": report.Failed}
	if err := result.ErrorOrNil(); err != nil {
		e.log.WithFields(fields).WithError(err).Warn("cascade cleanup incomplete")
	} else {
		e.log.WithFields(fields).Debug("cascade cleanup done")
	}
	return report
}

// contentSteps removes posts, their comments and every reference to them,
// then recounts comments of surviving posts and deletes the collected media.
func (e *CascadeDeletionEngine) contentSteps(c *closure) []step {
	s := e.store
	var steps []step
	if len(c.postIDs) > 0 {
		postIDs := c.postIDs
		steps = append(steps,
			step{"posts", func(ctx context.Context) error { return s.Posts.DeletePosts(ctx, postIDs) }},
			step{"timeline", func(ctx context.Context) error { return s.Timeline.DeleteForPosts(ctx, postIDs) }},
			step{"saved_posts", func(ctx context.Context) error { return s.SavedPosts.DeleteForPosts(ctx, postIDs) }},
		)
	}
	filters := c.comments
	if len(c.postIDs) > 0 {
		filters = append(filters, repositories.CommentFilter{PostIDs: c.postIDs})
	}
	if len(filters) > 0 {
		deleted := make(map[string]bool, len(c.postIDs))
		for _, id := range c.postIDs {
			deleted[id] = true
		}
		var recount []string
		for _, id := range unique(c.commentPosts) {
			if !deleted[id] {
				recount = append(recount, id)
			}
		}
		steps = append(steps, step{"comments", func(ctx context.Context) error {
			var result *multierror.Error
			for _, f := range filters {
				if err := s.Comments.DeleteComments(ctx, f); err != nil {
					result = multierror.Append(result, err)
				}
			}
			if err := e.recountComments(ctx, recount); err != nil {
				result = multierror.Append(result, err)
			}
			return result.ErrorOrNil()
		}})
	}
	if ids := unique(c.mediaIDs); len(ids) > 0 && e.media != nil {
		steps = append(steps, step{"media", func(ctx context.Context) error { return e.media.Delete(ctx, ids) }})
	}
	return steps
}

// recountComments re-derives commentsCount from the comments that remain.
func (e *CascadeDeletionEngine) recountComments(ctx context.Context, postIDs []string) error {
	if len(postIDs) == 0 {
		return nil
	}
	counts, err := e.store.Comments.CountByPosts(ctx, postIDs)
	if err != nil {
		return err
	}
	var result *multierror.Error
	for _, id := range postIDs {
		err := e.store.Posts.SetCommentsCount(ctx, id, counts[id])
		if err != nil && !errors.Is(err, repositories.ErrNotFound) {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// communityClosure collects the posts, comments and media scoped to a community.
func (e *CascadeDeletionEngine) communityClosure(ctx context.Context, kind models.Community, id string, pictures []string) (*closure, error) {
	c := &closure{mediaIDs: pictures}
	refs, err := e.store.Posts.ListPostRefs(ctx, repositories.PostFilter{}.Or(repositories.PostClause{
		Community:    kind,
		CommunityIDs: []string{id},
	}))
	if err != nil {
		return nil, err
	}
	c.addPosts(refs)

	scoped := repositories.CommentFilter{Community: kind, CommunityID: id}
	comments, err := e.store.Comments.ListCommentRefs(ctx, scoped)
	if err != nil {
		return nil, err
	}
	c.addComments(comments)
	if len(c.postIDs) > 0 {
		onPosts, err := e.store.Comments.ListCommentRefs(ctx, repositories.CommentFilter{PostIDs: c.postIDs})
		if err != nil {
			return nil, err
		}
		c.addComments(onPosts)
	}
	c.comments = []repositories.CommentFilter{scoped}
	return c, nil
}

// DeleteGroup deletes a group owned by actor and everything scoped to it.
func (e *CascadeDeletionEngine) DeleteGroup(ctx context.Context, actor, groupID string) (*CascadeReport, error) {
	group, err := e.store.Groups.GetGroupByID(ctx, groupID)
	if err != nil {
		return nil, missing(err, "group not found")
	}
	if group.Owner != actor {
		return nil, apperr.Forbidden("only the owner can delete this group")
	}
	return e.deleteGroup(ctx, group)
}

func (e *CascadeDeletionEngine) deleteGroup(ctx context.Context, group *models.Group) (*CascadeReport, error) {
	id := group.ID.Hex()
	c, err := e.communityClosure(ctx, models.CommunityGroup, id, models.PictureIDs(group.ProfilePicture, group.CoverPicture))
	if err != nil {
		return nil, err
	}
	if err := e.store.Groups.DeleteGroup(ctx, id); err != nil {
		return nil, missing(err, "group not found")
	}
	steps := append([]step{{"relations", func(ctx context.Context) error {
		_, err := e.store.Relations.PurgeEntity(ctx, id)
		return err
	}}}, e.contentSteps(c)...)
	return e.runBatch(ctx, "group", id, steps), nil
}

// DeletePage deletes a page owned by actor and everything scoped to it.
func (e *CascadeDeletionEngine) DeletePage(ctx context.Context, actor, pageID string) (*CascadeReport, error) {
	page, err := e.store.Pages.GetPageByID(ctx, pageID)
	if err != nil {
		return nil, missing(err, "page not found")
	}
	if page.Owner != actor {
		return nil, apperr.Forbidden("only the owner can delete this page")
	}
	return e.deletePage(ctx, page)
}

func (e *CascadeDeletionEngine) deletePage(ctx context.Context, page *models.Page) (*CascadeReport, error) {
	id := page.ID.Hex()
	c, err := e.communityClosure(ctx, models.CommunityPage, id, models.PictureIDs(page.ProfilePicture, page.CoverPicture))
	if err != nil {
		return nil, err
	}
	if err := e.store.Pages.DeletePage(ctx, id); err != nil {
		return nil, missing(err, "page not found")
	}
	steps := append([]step{{"relations", func(ctx context.Context) error {
		_, err := e.store.Relations.PurgeEntity(ctx, id)
		return err
	}}}, e.contentSteps(c)...)
	return e.runBatch(ctx, "page", id, steps), nil
}

// DeletePost deletes a post on behalf of its owner or a manager of its community.
func (e *CascadeDeletionEngine) DeletePost(ctx context.Context, actor, postID string) (*CascadeReport, error) {
	post, err := e.store.Posts.GetPostByID(ctx, postID)
	if err != nil {
		return nil, missing(err, "post not found")
	}
	if post.Owner != actor {
		allowed := false
		if post.Community.IsCommunity() {
			allowed, err = e.members.CanManage(ctx, post.Community, post.CommunityID, actor)
			if err != nil {
				return nil, err
			}
		}
		if !allowed {
			return nil, apperr.Forbidden("you cannot delete this post")
		}
	}

	c := &closure{mediaIDs: models.MediaIDs(post.Media...)}
	comments, err := e.store.Comments.ListCommentRefs(ctx, repositories.CommentFilter{PostIDs: []string{postID}})
	if err != nil {
		return nil, err
	}
	c.addComments(comments)

	if err := e.store.Posts.DeletePost(ctx, postID); err != nil {
		return nil, missing(err, "post not found")
	}
	c.postIDs = []string{postID}
	var steps []step
	for _, st := range e.contentSteps(c) {
		// the post itself is already gone
		if st.name != "posts" {
			steps = append(steps, st)
		}
	}
	return e.runBatch(ctx, "post", postID, steps), nil
}

// RemoveMemberContent deletes one member's posts and comments in a group, as
// done when the member leaves or is expelled.
func (e *CascadeDeletionEngine) RemoveMemberContent(ctx context.Context, groupID, userID string) (*CascadeReport, error) {
	c := &closure{}
	refs, err := e.store.Posts.ListPostRefs(ctx, repositories.PostFilter{}.Or(repositories.PostClause{
		Owners:       []string{userID},
		Community:    models.CommunityGroup,
		CommunityIDs: []string{groupID},
	}))
	if err != nil {
		return nil, err
	}
	c.addPosts(refs)

	own := repositories.CommentFilter{Owner: userID, Community: models.CommunityGroup, CommunityID: groupID}
	comments, err := e.store.Comments.ListCommentRefs(ctx, own)
	if err != nil {
		return nil, err
	}
	c.addComments(comments)
	if len(c.postIDs) > 0 {
		onPosts, err := e.store.Comments.ListCommentRefs(ctx, repositories.CommentFilter{PostIDs: c.postIDs})
		if err != nil {
			return nil, err
		}
		c.addComments(onPosts)
	}
	c.comments = []repositories.CommentFilter{own}
	return e.runBatch(ctx, "group_member", groupID+"/"+userID, e.contentSteps(c)), nil
}

// DeleteUser deletes a user, every page and group they own, all their content
// and every reference to them.
func (e *CascadeDeletionEngine) DeleteUser(ctx context.Context, userID string) (*CascadeReport, error) {
	s := e.store
	user, err := s.Users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, missing(err, "user not found")
	}

	var (
		ownedPages, ownedGroups []string
		joinedGroups            []string
		followedPages           []string
		stories                 []models.Story
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { ownedPages, err = s.Relations.Objects(gctx, userID, models.RelPageOwner); return })
	g.Go(func() (err error) { ownedGroups, err = s.Relations.Objects(gctx, userID, models.RelGroupOwner); return })
	g.Go(func() (err error) { joinedGroups, err = s.Relations.Objects(gctx, userID, models.RelGroupMember); return })
	g.Go(func() (err error) { followedPages, err = s.Relations.Objects(gctx, userID, models.RelPageFollower); return })
	g.Go(func() (err error) { stories, err = s.Stories.ListByOwner(gctx, userID); return })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	c := &closure{mediaIDs: models.PictureIDs(user.ProfilePicture, user.CoverPicture)}
	refs, err := s.Posts.ListPostRefs(ctx, repositories.PostFilter{}.Or(repositories.PostClause{Owners: []string{userID}}))
	if err != nil {
		return nil, err
	}
	c.addPosts(refs)
	own := repositories.CommentFilter{Owner: userID}
	comments, err := s.Comments.ListCommentRefs(ctx, own)
	if err != nil {
		return nil, err
	}
	c.addComments(comments)
	if len(c.postIDs) > 0 {
		onPosts, err := s.Comments.ListCommentRefs(ctx, repositories.CommentFilter{PostIDs: c.postIDs})
		if err != nil {
			return nil, err
		}
		c.addComments(onPosts)
	}
	c.comments = []repositories.CommentFilter{own}

	storyIDs := make([]string, len(stories))
	for i, st := range stories {
		storyIDs[i] = st.ID.Hex()
		c.mediaIDs = append(c.mediaIDs, st.MediaIDs()...)
	}

	if err := s.Users.DeleteUser(ctx, userID); err != nil {
		return nil, missing(err, "user not found")
	}

	steps := []step{
		{"relations", func(ctx context.Context) error {
			if _, err := s.Relations.PurgeEntity(ctx, userID); err != nil {
				return err
			}
			return e.recountCommunities(ctx, joinedGroups, followedPages)
		}},
		{"reactions", func(ctx context.Context) error {
			var result *multierror.Error
			for _, rs := range []repositories.ReactionStore{s.Posts, s.Comments, s.Stories} {
				if err := rs.PullReactor(ctx, userID); err != nil {
					result = multierror.Append(result, err)
				}
			}
			return result.ErrorOrNil()
		}},
		{"shares", func(ctx context.Context) error { return s.Posts.PullSharer(ctx, userID) }},
		{"user_timeline", func(ctx context.Context) error { return s.Timeline.DeleteForUser(ctx, userID) }},
		{"user_saved_posts", func(ctx context.Context) error { return s.SavedPosts.DeleteForUser(ctx, userID) }},
		{"notifications", func(ctx context.Context) error { return s.Notifications.DeleteForRecipient(ctx, userID) }},
		{"stories", func(ctx context.Context) error { return s.Stories.DeleteStories(ctx, storyIDs) }},
	}
	for _, id := range ownedPages {
		steps = append(steps, step{"owned_page", func(ctx context.Context) error {
			page, err := s.Pages.GetPageByID(ctx, id)
			if err != nil {
				return err
			}
			report, err := e.deletePage(ctx, page)
			if err != nil {
				return err
			}
			return report.err()
		}})
	}
	for _, id := range ownedGroups {
		steps = append(steps, step{"owned_group", func(ctx context.Context) error {
			group, err := s.Groups.GetGroupByID(ctx, id)
			if err != nil {
				return err
			}
			report, err := e.deleteGroup(ctx, group)
			if err != nil {
				return err
			}
			return report.err()
		}})
	}
	steps = append(steps, e.contentSteps(c)...)
	return e.runBatch(ctx, "user", userID, steps), nil
}

// recountCommunities re-derives membersCount and followersCount from the relation store.
func (e *CascadeDeletionEngine) recountCommunities(ctx context.Context, groups, pages []string) error {
	var result *multierror.Error
	for _, id := range groups {
		if err := recountMembers(ctx, e.store, id); err != nil && !errors.Is(err, repositories.ErrNotFound) {
			result = multierror.Append(result, err)
		}
	}
	for _, id := range pages {
		if err := recountFollowers(ctx, e.store, id); err != nil && !errors.Is(err, repositories.ErrNotFound) {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func recountMembers(ctx context.Context, s *repositories.Store, groupID string) error {
	n, err := s.Relations.Count(ctx, models.RelGroupMember, groupID)
	if err != nil {
		return err
	}
	return s.Groups.SetMembersCount(ctx, groupID, n)
}

func recountFollowers(ctx context.Context, s *repositories.Store, pageID string) error {
	n, err := s.Relations.Count(ctx, models.RelPageFollower, pageID)
	if err != nil {
		return err
	}
	return s.Pages.SetFollowersCount(ctx, pageID, n)
}
