package memory

import (
	"context"
	"time"

	"github.com/anonto42/circles/backend/internal/models"
	"github.com/anonto42/circles/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// reactions implements repositories.ReactionStore over one collection map.
type reactions struct {
	db   *DB
	doc  func(id string) (owner string, r *models.Reactions, ok bool)
	each func(fn func(r *models.Reactions))
}

func (s reactions) GetReactable(_ context.Context, id string) (*models.Reactable, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	owner, r, ok := s.doc(id)
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &models.Reactable{Owner: owner, Reactions: cloneReactions(*r)}, nil
}

func (s reactions) ApplyReaction(_ context.Context, id, userID string, from, to models.ReactionKind) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	_, r, ok := s.doc(id)
	if !ok {
		return false, repositories.ErrNotFound
	}
	if *r == nil {
		*r = models.NewReactions()
	}
	if r.KindOf(userID) != from {
		return false, nil
	}
	if from != "" {
		b := (*r)[from]
		(*r)[from] = models.ReactionBucket{Count: b.Count - 1, Users: remove(b.Users, userID)}
	}
	if to != "" {
		b := (*r)[to]
		(*r)[to] = models.ReactionBucket{Count: b.Count + 1, Users: append(append([]string{}, b.Users...), userID)}
	}
	return true, nil
}

func (s reactions) PullReactor(_ context.Context, userID string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.each(func(r *models.Reactions) {
		for k, b := range *r {
			if contains(b.Users, userID) {
				(*r)[k] = models.ReactionBucket{Count: b.Count - 1, Users: remove(b.Users, userID)}
			}
		}
	})
	return nil
}

type pageRepo struct{ db *DB }

func (r *pageRepo) CreatePage(_ context.Context, p *models.Page) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p.ID = primitive.NewObjectID()
	p.CreatedAt = time.Now()
	c := *p
	r.db.pages[p.ID.Hex()] = &c
	return nil
}

func (r *pageRepo) GetPageByID(_ context.Context, id string) (*models.Page, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.pages[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	c := *p
	return &c, nil
}

func (r *pageRepo) with(id string, fn func(p *models.Page)) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.pages[id]
	if !ok {
		return repositories.ErrNotFound
	}
	fn(p)
	return nil
}

func (r *pageRepo) UpdatePage(_ context.Context, id string, u repositories.PageUpdate) error {
	return r.with(id, func(p *models.Page) {
		if u.Name != nil {
			p.Name = *u.Name
		}
		if u.Description != nil {
			p.Description = *u.Description
		}
	})
}

func (r *pageRepo) SetPicture(_ context.Context, id string, kind models.PictureKind, m *models.Media) error {
	return r.with(id, func(p *models.Page) {
		if kind == models.PictureCover {
			p.CoverPicture = m
		} else {
			p.ProfilePicture = m
		}
	})
}

func (r *pageRepo) SetFollowersCount(_ context.Context, id string, n int64) error {
	return r.with(id, func(p *models.Page) { p.FollowersCount = n })
}

func (r *pageRepo) DeletePage(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.pages[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.db.pages, id)
	return nil
}

func (r *pageRepo) ListPageIDs(_ context.Context) ([]string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	ids := make([]string, 0, len(r.db.pages))
	for id := range r.db.pages {
		ids = append(ids, id)
	}
	return ids, nil
}

type groupRepo struct{ db *DB }

func (r *groupRepo) CreateGroup(_ context.Context, g *models.Group) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	g.ID = primitive.NewObjectID()
	g.CreatedAt = time.Now()
	c := *g
	r.db.groups[g.ID.Hex()] = &c
	return nil
}

func (r *groupRepo) GetGroupByID(_ context.Context, id string) (*models.Group, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	g, ok := r.db.groups[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	c := *g
	return &c, nil
}

func (r *groupRepo) with(id string, fn func(g *models.Group)) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	g, ok := r.db.groups[id]
	if !ok {
		return repositories.ErrNotFound
	}
	fn(g)
	return nil
}

func (r *groupRepo) UpdateGroup(_ context.Context, id string, u repositories.GroupUpdate) error {
	return r.with(id, func(g *models.Group) {
		if u.Name != nil {
			g.Name = *u.Name
		}
		if u.Description != nil {
			g.Description = *u.Description
		}
		if u.Privacy != nil {
			g.Privacy = *u.Privacy
		}
	})
}

func (r *groupRepo) SetPicture(_ context.Context, id string, kind models.PictureKind, m *models.Media) error {
	return r.with(id, func(g *models.Group) {
		if kind == models.PictureCover {
			g.CoverPicture = m
		} else {
			g.ProfilePicture = m
		}
	})
}

func (r *groupRepo) SetMembersCount(_ context.Context, id string, n int64) error {
	return r.with(id, func(g *models.Group) { g.MembersCount = n })
}

func (r *groupRepo) DeleteGroup(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.groups[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.db.groups, id)
	return nil
}

func (r *groupRepo) ListGroupIDs(_ context.Context) ([]string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	ids := make([]string, 0, len(r.db.groups))
	for id := range r.db.groups {
		ids = append(ids, id)
	}
	return ids, nil
}
