package services

import (
	"context"
	"time"

	"github.com/anonto42/circles/backend/internal/apperr"
	"github.com/anonto42/circles/backend/internal/models"
	"github.com/anonto42/circles/backend/internal/repositories"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ScopeKind selects the source of a feed.
type ScopeKind string

const (
	ScopeHome  ScopeKind = "home"
	ScopePage  ScopeKind = "page"
	ScopeGroup ScopeKind = "group"
	ScopeUser  ScopeKind = "user"
)

// Scope is a feed source. ID names the page, group or user; it is empty for home.
type Scope struct {
	Kind ScopeKind
	ID   string
}

// FeedPage is one page of a feed.
type FeedPage struct {
	Posts       []models.Post `json:"posts"`
	IsFinalPage bool          `json:"isFinalPage"`
}

// FeedAggregator assembles paginated feeds that only contain posts the
// viewer is allowed to read.
type FeedAggregator struct {
	store   *repositories.Store
	privacy *PrivacyGuard
	log     logrus.FieldLogger
}

// NewFeedAggregator creates a FeedAggregator.
func NewFeedAggregator(store *repositories.Store, privacy *PrivacyGuard, log logrus.FieldLogger) *FeedAggregator {
	return &FeedAggregator{store: store, privacy: privacy, log: log}
}

// GetFeed returns page p of the feed selected by scope, as seen by viewer.
// Pages past the end are empty and final. Pages use skip/limit, so a
// concurrent insert or delete can shift an item across a page boundary.
// isFinalPage counts index entries, not returned posts: a user timeline page
// can come back short when it holds group posts the viewer cannot read.
func (f *FeedAggregator) GetFeed(ctx context.Context, viewer string, p Pagination, scope Scope) (*FeedPage, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() { feedDuration.WithLabelValues(string(scope.Kind)).Observe(time.Since(start).Seconds()) }()

	var (
		posts []models.Post
		total int64
		err   error
	)
	switch scope.Kind {
	case ScopeHome:
		posts, total, err = f.home(ctx, viewer, p)
	case ScopePage:
		posts, total, err = f.page(ctx, scope.ID, p)
	case ScopeGroup:
		posts, total, err = f.group(ctx, viewer, scope.ID, p)
	case ScopeUser:
		posts, total, err = f.timeline(ctx, viewer, scope.ID, p)
	default:
		return nil, apperr.BadUserInput("invalid feed scope %q", scope.Kind)
	}
	if err != nil {
		return nil, err
	}
	if err := annotatePosts(ctx, f.store, viewer, posts); err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []models.Post{}
	}
	return &FeedPage{Posts: posts, IsFinalPage: p.isFinal(total)}, nil
}

// home merges posts of followed pages, joined groups and friends.
func (f *FeedAggregator) home(ctx context.Context, viewer string, p Pagination) ([]models.Post, int64, error) {
	if viewer == "" {
		return nil, 0, apperr.Unauthenticated()
	}
	var pages, groups, friends []string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		pages, err = f.store.Relations.Objects(gctx, viewer, models.RelPageFollower)
		return
	})
	g.Go(func() (err error) {
		groups, err = f.store.Relations.Objects(gctx, viewer, models.RelGroupMember)
		return
	})
	g.Go(func() (err error) {
		friends, err = f.store.Relations.Objects(gctx, viewer, models.RelFriend)
		return
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	var filter repositories.PostFilter
	if len(pages) > 0 {
		filter = filter.Or(repositories.PostClause{Community: models.CommunityPage, CommunityIDs: pages})
	}
	if len(groups) > 0 {
		filter = filter.Or(repositories.PostClause{Community: models.CommunityGroup, CommunityIDs: groups})
	}
	if len(friends) > 0 {
		filter = filter.Or(repositories.PostClause{
			Owners:    friends,
			Community: models.CommunityPersonal,
			Privacies: []models.Privacy{models.PrivacyPublic, models.PrivacyFriendsOnly},
		})
	}
	return f.store.Posts.FindPosts(ctx, filter, p.skip(), int64(p.Limit))
}

func (f *FeedAggregator) page(ctx context.Context, pageID string, p Pagination) ([]models.Post, int64, error) {
	if _, err := f.store.Pages.GetPageByID(ctx, pageID); err != nil {
		return nil, 0, missing(err, "page not found")
	}
	filter := repositories.PostFilter{}.Or(repositories.PostClause{
		Community:    models.CommunityPage,
		CommunityIDs: []string{pageID},
	})
	return f.store.Posts.FindPosts(ctx, filter, p.skip(), int64(p.Limit))
}

func (f *FeedAggregator) group(ctx context.Context, viewer, groupID string, p Pagination) ([]models.Post, int64, error) {
	group, err := f.store.Groups.GetGroupByID(ctx, groupID)
	if err != nil {
		return nil, 0, missing(err, "group not found")
	}
	if err := f.privacy.CheckGroup(ctx, viewer, group); err != nil {
		return nil, 0, err
	}
	filter := repositories.PostFilter{}.Or(repositories.PostClause{
		Community:    models.CommunityGroup,
		CommunityIDs: []string{groupID},
	})
	return f.store.Posts.FindPosts(ctx, filter, p.skip(), int64(p.Limit))
}

// timeline pages through a user's timeline index in share order. Entries
// that the viewer may not read are skipped; entries whose post no longer
// exists are skipped and pruned from the index.
func (f *FeedAggregator) timeline(ctx context.Context, viewer, userID string, p Pagination) ([]models.Post, int64, error) {
	if _, err := f.store.Users.GetUserByID(ctx, userID); err != nil {
		return nil, 0, missing(err, "user not found")
	}
	privacies, err := f.privacy.VisiblePrivacies(ctx, viewer, userID)
	if err != nil {
		return nil, 0, err
	}
	entries, total, err := f.store.Timeline.ListEntries(ctx, userID, privacies, p.skip(), int64(p.Limit))
	if err != nil {
		return nil, 0, err
	}
	if len(entries) == 0 {
		return nil, total, nil
	}

	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.PostID
	}
	found, err := f.store.Posts.GetPostsByIDs(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	byID := make(map[string]models.Post, len(found))
	for _, post := range found {
		byID[post.ID.Hex()] = post
	}

	var dangling []string
	posts := make([]models.Post, 0, len(entries))
	for _, e := range entries {
		post, ok := byID[e.PostID]
		if !ok {
			dangling = append(dangling, e.PostID)
			continue
		}
		if post.Community == models.CommunityGroup {
			err := f.privacy.CheckPost(ctx, viewer, &post)
			if apperr.Is(err, apperr.KindForbidden) || apperr.Is(err, apperr.KindNotFound) {
				continue
			}
			if err != nil {
				return nil, 0, err
			}
		}
		if e.Shared {
			shareDate := e.ShareDate
			post.SharedBy = userID
			post.ShareDate = &shareDate
		}
		posts = append(posts, post)
	}
	if len(dangling) > 0 {
		log := f.log.WithFields(logrus.Fields{"user": userID, "posts": dangling})
		if err := f.store.Timeline.DeleteForPosts(ctx, dangling); err != nil {
			log.WithError(err).Warn("pruning dangling timeline entries")
		} else {
			log.Debug("pruned dangling timeline entries")
		}
	}
	return posts, total, nil
}

// annotatePosts sets the per-viewer flags with one lookup per flag.
func annotatePosts(ctx context.Context, store *repositories.Store, viewer string, posts []models.Post) error {
	if viewer == "" || len(posts) == 0 {
		return nil
	}
	ids := make([]string, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID.Hex()
	}

	var shared, saved map[string]bool
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		shared, err = store.Timeline.SharedPostIDs(gctx, viewer, ids)
		return
	})
	g.Go(func() (err error) {
		saved, err = store.SavedPosts.GetSavedPostIDs(gctx, viewer, ids)
		return
	})
	if err := g.Wait(); err != nil {
		return err
	}
	for i := range posts {
		id := ids[i]
		posts[i].IsShared = shared[id]
		posts[i].IsInBookMark = saved[id]
	}
	return nil
}
