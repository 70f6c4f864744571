package memory

import (
	"context"
	"sort"
	"time"

	"github.com/anonto42/circles/backend/internal/models"
	"github.com/anonto42/circles/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type postRepo struct {
	reactions
	db *DB
}

func newPostRepo(db *DB) *postRepo {
	return &postRepo{
		db: db,
		reactions: reactions{
			db: db,
			doc: func(id string) (string, *models.Reactions, bool) {
				p, ok := db.posts[id]
				if !ok {
					return "", nil, false
				}
				return p.Owner, &p.Reactions, true
			},
			each: func(fn func(*models.Reactions)) {
				for _, p := range db.posts {
					fn(&p.Reactions)
				}
			},
		},
	}
}

func matchPost(f repositories.PostFilter, p *models.Post) bool {
	for _, c := range f.Any {
		if len(c.Owners) > 0 && !contains(c.Owners, p.Owner) {
			continue
		}
		if c.Community != "" && c.Community != p.Community {
			continue
		}
		if len(c.CommunityIDs) > 0 && !contains(c.CommunityIDs, p.CommunityID) {
			continue
		}
		if len(c.Privacies) > 0 && !contains(c.Privacies, p.Privacy) {
			continue
		}
		return true
	}
	return false
}

func (r *postRepo) CreatePost(_ context.Context, p *models.Post) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p.ID = primitive.NewObjectID()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	if p.Reactions == nil {
		p.Reactions = models.NewReactions()
	}
	if p.ShareData.Users == nil {
		p.ShareData.Users = []string{}
	}
	c := clonePost(p)
	r.db.posts[p.ID.Hex()] = &c
	return nil
}

func (r *postRepo) GetPostByID(_ context.Context, id string) (*models.Post, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.posts[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	c := clonePost(p)
	return &c, nil
}

func (r *postRepo) GetPostsByIDs(_ context.Context, ids []string) ([]models.Post, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := []models.Post{}
	for _, id := range ids {
		if p, ok := r.db.posts[id]; ok {
			out = append(out, clonePost(p))
		}
	}
	return out, nil
}

func (r *postRepo) with(id string, fn func(p *models.Post)) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.posts[id]
	if !ok {
		return repositories.ErrNotFound
	}
	fn(p)
	return nil
}

func (r *postRepo) UpdatePost(_ context.Context, id string, u repositories.PostUpdate) error {
	return r.with(id, func(p *models.Post) {
		if u.Content != nil {
			p.Content = *u.Content
		}
		if u.Media != nil {
			p.Media = append([]models.Media{}, u.Media...)
		}
		if u.Privacy != nil {
			p.Privacy = *u.Privacy
		}
		if u.BlockComments != nil {
			p.BlockComments = *u.BlockComments
		}
		p.UpdatedAt = time.Now()
	})
}

func (r *postRepo) DeletePost(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.posts[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.db.posts, id)
	return nil
}

func (r *postRepo) FindPosts(_ context.Context, f repositories.PostFilter, skip, limit int64) ([]models.Post, int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var matched []models.Post
	for _, p := range r.db.posts {
		if matchPost(f, p) {
			matched = append(matched, clonePost(p))
		}
	}
	sortDesc(matched,
		func(p models.Post) time.Time { return p.CreatedAt },
		func(p models.Post) string { return p.ID.Hex() })
	return paginate(matched, skip, limit), int64(len(matched)), nil
}

func (r *postRepo) ListPostRefs(_ context.Context, f repositories.PostFilter) ([]models.PostRef, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var refs []models.PostRef
	for id, p := range r.db.posts {
		if matchPost(f, p) {
			refs = append(refs, models.PostRef{ID: id, Owner: p.Owner, Media: append([]models.Media{}, p.Media...)})
		}
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
	return refs, nil
}

func (r *postRepo) DeletePosts(_ context.Context, ids []string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, id := range ids {
		delete(r.db.posts, id)
	}
	return nil
}

func (r *postRepo) SetCommentsCount(_ context.Context, id string, n int) error {
	return r.with(id, func(p *models.Post) { p.CommentsCount = n })
}

func (r *postRepo) IncrementCommentsCount(_ context.Context, id string, delta int) error {
	return r.with(id, func(p *models.Post) { p.CommentsCount += delta })
}

func (r *postRepo) ApplyShare(_ context.Context, id, userID string, on bool) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.posts[id]
	if !ok {
		return false, nil
	}
	shared := contains(p.ShareData.Users, userID)
	switch {
	case on && !shared:
		p.ShareData.Users = append(p.ShareData.Users, userID)
		p.ShareData.Count++
	case !on && shared:
		p.ShareData.Users = remove(p.ShareData.Users, userID)
		p.ShareData.Count--
	default:
		return false, nil
	}
	return true, nil
}

func (r *postRepo) ResetShares(_ context.Context, id string) error {
	return r.with(id, func(p *models.Post) { p.ShareData = models.ShareData{Users: []string{}} })
}

func (r *postRepo) PullSharer(_ context.Context, userID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, p := range r.db.posts {
		if contains(p.ShareData.Users, userID) {
			p.ShareData.Users = remove(p.ShareData.Users, userID)
			p.ShareData.Count--
		}
	}
	return nil
}

type commentRepo struct {
	reactions
	db *DB
}

func newCommentRepo(db *DB) *commentRepo {
	return &commentRepo{
		db: db,
		reactions: reactions{
			db: db,
			doc: func(id string) (string, *models.Reactions, bool) {
				c, ok := db.comments[id]
				if !ok {
					return "", nil, false
				}
				return c.Owner, &c.Reactions, true
			},
			each: func(fn func(*models.Reactions)) {
				for _, c := range db.comments {
					fn(&c.Reactions)
				}
			},
		},
	}
}

func matchComment(f repositories.CommentFilter, c *models.Comment) bool {
	if len(f.PostIDs) > 0 && !contains(f.PostIDs, c.Post) {
		return false
	}
	if f.Owner != "" && f.Owner != c.Owner {
		return false
	}
	if f.Community != "" && f.Community != c.Community {
		return false
	}
	if f.CommunityID != "" && f.CommunityID != c.CommunityID {
		return false
	}
	return true
}

func emptyCommentFilter(f repositories.CommentFilter) bool {
	return len(f.PostIDs) == 0 && f.Owner == "" && f.Community == "" && f.CommunityID == ""
}

func (r *commentRepo) CreateComment(_ context.Context, c *models.Comment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c.ID = primitive.NewObjectID()
	c.CreatedAt = time.Now()
	if c.Reactions == nil {
		c.Reactions = models.NewReactions()
	}
	cp := cloneComment(c)
	r.db.comments[c.ID.Hex()] = &cp
	return nil
}

func (r *commentRepo) GetCommentByID(_ context.Context, id string) (*models.Comment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.comments[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := cloneComment(c)
	return &cp, nil
}

func (r *commentRepo) ListByPost(_ context.Context, postID string, skip, limit int64) ([]models.Comment, int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var matched []models.Comment
	for _, c := range r.db.comments {
		if c.Post == postID {
			matched = append(matched, cloneComment(c))
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].ID.Hex() < matched[j].ID.Hex()
	})
	return paginate(matched, skip, limit), int64(len(matched)), nil
}

func (r *commentRepo) DeleteComment(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.comments[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.db.comments, id)
	return nil
}

func (r *commentRepo) ListCommentRefs(_ context.Context, f repositories.CommentFilter) ([]models.CommentRef, error) {
	if emptyCommentFilter(f) {
		return nil, repositories.ErrEmptyFilter
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var refs []models.CommentRef
	for id, c := range r.db.comments {
		if matchComment(f, c) {
			refs = append(refs, models.CommentRef{ID: id, Post: c.Post, Media: append([]models.Media{}, c.Media...)})
		}
	}
	return refs, nil
}

func (r *commentRepo) DeleteComments(_ context.Context, f repositories.CommentFilter) error {
	if emptyCommentFilter(f) {
		return repositories.ErrEmptyFilter
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for id, c := range r.db.comments {
		if matchComment(f, c) {
			delete(r.db.comments, id)
		}
	}
	return nil
}

func (r *commentRepo) CountByPosts(_ context.Context, postIDs []string) (map[string]int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	counts := make(map[string]int)
	for _, c := range r.db.comments {
		if contains(postIDs, c.Post) {
			counts[c.Post]++
		}
	}
	return counts, nil
}

type storyRepo struct {
	reactions
	db *DB
}

func newStoryRepo(db *DB) *storyRepo {
	return &storyRepo{
		db: db,
		reactions: reactions{
			db: db,
			doc: func(id string) (string, *models.Reactions, bool) {
				s, ok := db.stories[id]
				if !ok {
					return "", nil, false
				}
				return s.Owner, &s.Reactions, true
			},
			each: func(fn func(*models.Reactions)) {
				for _, s := range db.stories {
					fn(&s.Reactions)
				}
			},
		},
	}
}

func (r *storyRepo) CreateStory(_ context.Context, s *models.Story) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s.ID = primitive.NewObjectID()
	stamp(&s.CreatedAt)
	if s.Reactions == nil {
		s.Reactions = models.NewReactions()
	}
	cp := cloneStory(s)
	r.db.stories[s.ID.Hex()] = &cp
	return nil
}

func (r *storyRepo) GetStoryByID(_ context.Context, id string) (*models.Story, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.stories[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := cloneStory(s)
	return &cp, nil
}

func (r *storyRepo) DeleteStory(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.stories[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.db.stories, id)
	return nil
}

func (r *storyRepo) filter(keep func(*models.Story) bool) []models.Story {
	out := []models.Story{}
	for _, s := range r.db.stories {
		if keep(s) {
			out = append(out, cloneStory(s))
		}
	}
	sortDesc(out,
		func(s models.Story) time.Time { return s.CreatedAt },
		func(s models.Story) string { return s.ID.Hex() })
	return out
}

func (r *storyRepo) ListActiveByOwners(_ context.Context, owners []string, now time.Time) ([]models.Story, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.filter(func(s *models.Story) bool {
		return contains(owners, s.Owner) && s.ExpiredData.After(now)
	}), nil
}

func (r *storyRepo) ListByOwner(_ context.Context, owner string) ([]models.Story, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.filter(func(s *models.Story) bool { return s.Owner == owner }), nil
}

func (r *storyRepo) FindExpired(_ context.Context, now time.Time) ([]models.Story, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.filter(func(s *models.Story) bool { return !s.ExpiredData.After(now) }), nil
}

func (r *storyRepo) DeleteStories(_ context.Context, ids []string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, id := range ids {
		delete(r.db.stories, id)
	}
	return nil
}
