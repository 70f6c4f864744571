// Package memory provides in-process implementations of the repository
// interfaces. They mirror the unique constraints and ordering of the
// PostgreSQL and MongoDB repositories and back the service and handler tests.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/anonto42/circles/backend/internal/models"
	"github.com/anonto42/circles/backend/internal/repositories"
)

// DB holds every table and collection behind one lock.
type DB struct {
	mu  sync.Mutex
	seq uint

	users         map[string]*models.User
	relations     []models.Relation
	timeline      []models.TimelineEntry
	saved         []models.SavedPost
	notifications []models.Notification
	pages         map[string]*models.Page
	groups        map[string]*models.Group
	posts         map[string]*models.Post
	comments      map[string]*models.Comment
	stories       map[string]*models.Story
}

// New returns an empty database.
func New() *DB {
	return &DB{
		users:    make(map[string]*models.User),
		pages:    make(map[string]*models.Page),
		groups:   make(map[string]*models.Group),
		posts:    make(map[string]*models.Post),
		comments: make(map[string]*models.Comment),
		stories:  make(map[string]*models.Story),
	}
}

// NewStore returns a repositories.Store backed by a fresh DB.
func NewStore() (*repositories.Store, *DB) {
	db := New()
	return db.Store(), db
}

// Store wires every repository over db.
func (db *DB) Store() *repositories.Store {
	return &repositories.Store{
		Users:         &userRepo{db},
		Relations:     &relationRepo{db},
		Timeline:      &timelineRepo{db},
		SavedPosts:    &savedRepo{db},
		Notifications: &notificationRepo{db},
		Pages:         &pageRepo{db},
		Groups:        &groupRepo{db},
		Posts:         newPostRepo(db),
		Comments:      newCommentRepo(db),
		Stories:       newStoryRepo(db),
	}
}

func (db *DB) nextID() uint {
	db.seq++
	return db.seq
}

// Relations returns a copy of every stored edge.
func (db *DB) Relations() []models.Relation {
	db.mu.Lock()
	defer db.mu.Unlock()
	return append([]models.Relation(nil), db.relations...)
}

// Posts returns a copy of every stored post.
func (db *DB) Posts() []models.Post {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]models.Post, 0, len(db.posts))
	for _, p := range db.posts {
		out = append(out, clonePost(p))
	}
	return out
}

// Comments returns a copy of every stored comment.
func (db *DB) Comments() []models.Comment {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]models.Comment, 0, len(db.comments))
	for _, c := range db.comments {
		out = append(out, cloneComment(c))
	}
	return out
}

// TimelineEntries returns a copy of every timeline row.
func (db *DB) TimelineEntries() []models.TimelineEntry {
	db.mu.Lock()
	defer db.mu.Unlock()
	return append([]models.TimelineEntry(nil), db.timeline...)
}

// SavedPosts returns a copy of every saved-post row.
func (db *DB) SavedPosts() []models.SavedPost {
	db.mu.Lock()
	defer db.mu.Unlock()
	return append([]models.SavedPost(nil), db.saved...)
}

func stamp(t *time.Time) {
	if t.IsZero() {
		*t = time.Now()
	}
}

func paginate[T any](items []T, skip, limit int64) []T {
	if skip >= int64(len(items)) {
		return []T{}
	}
	end := skip + limit
	if limit <= 0 || end > int64(len(items)) {
		end = int64(len(items))
	}
	return append([]T{}, items[skip:end]...)
}

func contains[T comparable](list []T, v T) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func remove[T comparable](list []T, v T) []T {
	out := list[:0:0]
	for _, x := range list {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

func sortDesc[T any](items []T, at func(T) time.Time, id func(T) string) {
	sort.SliceStable(items, func(i, j int) bool {
		ti, tj := at(items[i]), at(items[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return id(items[i]) > id(items[j])
	})
}

func cloneReactions(r models.Reactions) models.Reactions {
	out := make(models.Reactions, len(r))
	for k, b := range r {
		out[k] = models.ReactionBucket{Count: b.Count, Users: append([]string{}, b.Users...)}
	}
	return out
}

func clonePost(p *models.Post) models.Post {
	c := *p
	c.Reactions = cloneReactions(p.Reactions)
	c.ShareData.Users = append([]string{}, p.ShareData.Users...)
	c.Media = append([]models.Media{}, p.Media...)
	return c
}

func cloneComment(c *models.Comment) models.Comment {
	out := *c
	out.Reactions = cloneReactions(c.Reactions)
	out.Media = append([]models.Media{}, c.Media...)
	return out
}

func cloneStory(s *models.Story) models.Story {
	out := *s
	out.Reactions = cloneReactions(s.Reactions)
	if s.Media != nil {
		m := *s.Media
		out.Media = &m
	}
	return out
}
