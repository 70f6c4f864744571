package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/anonto42/circles/backend/internal/models"
	"github.com/anonto42/circles/backend/internal/repositories"
	"gorm.io/gorm"
)

type userRepo struct{ db *DB }

func (r *userRepo) conflicts(u *models.User) bool {
	for id, other := range r.db.users {
		if id == u.ID {
			continue
		}
		if strings.EqualFold(other.Username, u.Username) || strings.EqualFold(other.Email, u.Email) {
			return true
		}
		if u.FirebaseUID != nil && other.FirebaseUID != nil && *u.FirebaseUID == *other.FirebaseUID {
			return true
		}
	}
	return false
}

func (r *userRepo) CreateUser(_ context.Context, user *models.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.users[user.ID]; ok || r.conflicts(user) {
		return gorm.ErrDuplicatedKey
	}
	stamp(&user.CreatedAt)
	user.UpdatedAt = user.CreatedAt
	u := *user
	r.db.users[user.ID] = &u
	return nil
}

func (r *userRepo) GetUserByID(_ context.Context, id string) (*models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (r *userRepo) GetUserByLogin(_ context.Context, login string) (*models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if strings.EqualFold(u.Email, login) || strings.EqualFold(u.Username, login) {
			out := *u
			return &out, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *userRepo) GetUserByFirebaseUID(_ context.Context, uid string) (*models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if u.FirebaseUID != nil && *u.FirebaseUID == uid {
			out := *u
			return &out, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *userRepo) UpdateUser(_ context.Context, user *models.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.conflicts(user) {
		return gorm.ErrDuplicatedKey
	}
	user.UpdatedAt = time.Now()
	u := *user
	r.db.users[user.ID] = &u
	return nil
}

func (r *userRepo) DeleteUser(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.users[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.db.users, id)
	return nil
}

type relationRepo struct{ db *DB }

func (r *relationRepo) find(s string, k models.RelationKind, o string) int {
	for i, e := range r.db.relations {
		if e.SubjectID == s && e.Kind == k && e.ObjectID == o {
			return i
		}
	}
	return -1
}

func (r *relationRepo) Exists(_ context.Context, s string, k models.RelationKind, o string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.find(s, k, o) >= 0, nil
}

func (r *relationRepo) KindsBetween(_ context.Context, s, o string) ([]models.RelationKind, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var kinds []models.RelationKind
	for _, e := range r.db.relations {
		if e.SubjectID == s && e.ObjectID == o {
			kinds = append(kinds, e.Kind)
		}
	}
	return kinds, nil
}

func (r *relationRepo) Apply(_ context.Context, add, rm []models.Relation) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, e := range rm {
		if i := r.find(e.SubjectID, e.Kind, e.ObjectID); i >= 0 {
			r.db.relations = append(r.db.relations[:i], r.db.relations[i+1:]...)
		}
	}
	for _, e := range add {
		if r.find(e.SubjectID, e.Kind, e.ObjectID) >= 0 {
			continue
		}
		edge := models.Edge(e.SubjectID, e.Kind, e.ObjectID)
		edge.ID = r.db.nextID()
		edge.CreatedAt = time.Now()
		r.db.relations = append(r.db.relations, edge)
	}
	return nil
}

// newestFirst mirrors ORDER BY created_at DESC with insertion order as tiebreak.
func newestFirst(edges []models.Relation) []models.Relation {
	out := append([]models.Relation(nil), edges...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (r *relationRepo) Objects(_ context.Context, s string, k models.RelationKind) ([]string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	ids := []string{}
	for _, e := range newestFirst(r.db.relations) {
		if e.SubjectID == s && e.Kind == k {
			ids = append(ids, e.ObjectID)
		}
	}
	return ids, nil
}

func (r *relationRepo) Subjects(_ context.Context, k models.RelationKind, o string) ([]string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	ids := []string{}
	for _, e := range newestFirst(r.db.relations) {
		if e.Kind == k && e.ObjectID == o {
			ids = append(ids, e.SubjectID)
		}
	}
	return ids, nil
}

func (r *relationRepo) Edges(_ context.Context, k models.RelationKind, o string) ([]models.Relation, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []models.Relation
	for _, e := range r.db.relations {
		if e.Kind == k && e.ObjectID == o {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *relationRepo) Count(_ context.Context, k models.RelationKind, o string) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for _, e := range r.db.relations {
		if e.Kind == k && e.ObjectID == o {
			n++
		}
	}
	return n, nil
}

func (r *relationRepo) GetByID(_ context.Context, id uint) (*models.Relation, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, e := range r.db.relations {
		if e.ID == id {
			out := e
			return &out, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *relationRepo) PurgeEntity(_ context.Context, id string) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	kept := r.db.relations[:0:0]
	for _, e := range r.db.relations {
		if e.SubjectID != id && e.ObjectID != id {
			kept = append(kept, e)
		}
	}
	n := int64(len(r.db.relations) - len(kept))
	r.db.relations = kept
	return n, nil
}

func (r *relationRepo) ListByKind(_ context.Context, kinds ...models.RelationKind) ([]models.Relation, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []models.Relation
	for _, e := range r.db.relations {
		if len(kinds) == 0 || contains(kinds, e.Kind) {
			out = append(out, e)
		}
	}
	return out, nil
}

type timelineRepo struct{ db *DB }

func (r *timelineRepo) AddEntry(_ context.Context, entry *models.TimelineEntry) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, e := range r.db.timeline {
		if e.UserID == entry.UserID && e.PostID == entry.PostID {
			return gorm.ErrDuplicatedKey
		}
	}
	entry.ID = r.db.nextID()
	stamp(&entry.ShareDate)
	r.db.timeline = append(r.db.timeline, *entry)
	return nil
}

func (r *timelineRepo) removeWhere(keep func(models.TimelineEntry) bool) []models.TimelineEntry {
	var removed []models.TimelineEntry
	kept := r.db.timeline[:0:0]
	for _, e := range r.db.timeline {
		if keep(e) {
			kept = append(kept, e)
		} else {
			removed = append(removed, e)
		}
	}
	r.db.timeline = kept
	return removed
}

func (r *timelineRepo) RemoveEntry(_ context.Context, userID, postID string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	removed := r.removeWhere(func(e models.TimelineEntry) bool {
		return e.UserID != userID || e.PostID != postID
	})
	return len(removed) > 0, nil
}

func (r *timelineRepo) IsShared(_ context.Context, userID, postID string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, e := range r.db.timeline {
		if e.UserID == userID && e.PostID == postID && e.Shared {
			return true, nil
		}
	}
	return false, nil
}

func (r *timelineRepo) ListEntries(_ context.Context, userID string, privacies []models.Privacy, skip, limit int64) ([]models.TimelineEntry, int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var matched []models.TimelineEntry
	for _, e := range r.db.timeline {
		if e.UserID == userID && contains(privacies, e.Privacy) {
			matched = append(matched, e)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].ShareDate.Equal(matched[j].ShareDate) {
			return matched[i].ShareDate.After(matched[j].ShareDate)
		}
		return matched[i].ID > matched[j].ID
	})
	return paginate(matched, skip, limit), int64(len(matched)), nil
}

func (r *timelineRepo) SharedPostIDs(_ context.Context, userID string, postIDs []string) (map[string]bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make(map[string]bool)
	for _, e := range r.db.timeline {
		if e.UserID == userID && e.Shared && contains(postIDs, e.PostID) {
			out[e.PostID] = true
		}
	}
	return out, nil
}

func (r *timelineRepo) SharedBy(_ context.Context, userID string) ([]string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	ids := []string{}
	for _, e := range r.db.timeline {
		if e.UserID == userID && e.Shared {
			ids = append(ids, e.PostID)
		}
	}
	return ids, nil
}

func (r *timelineRepo) UpdatePrivacy(_ context.Context, postID string, privacy models.Privacy) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for i := range r.db.timeline {
		if r.db.timeline[i].PostID == postID {
			r.db.timeline[i].Privacy = privacy
		}
	}
	return nil
}

func (r *timelineRepo) RemoveShares(_ context.Context, postID string) ([]string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	removed := r.removeWhere(func(e models.TimelineEntry) bool {
		return e.PostID != postID || !e.Shared
	})
	users := make([]string, len(removed))
	for i, e := range removed {
		users[i] = e.UserID
	}
	return users, nil
}

func (r *timelineRepo) DeleteForPosts(_ context.Context, postIDs []string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.removeWhere(func(e models.TimelineEntry) bool { return !contains(postIDs, e.PostID) })
	return nil
}

func (r *timelineRepo) DeleteForUser(_ context.Context, userID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.removeWhere(func(e models.TimelineEntry) bool { return e.UserID != userID })
	return nil
}

type savedRepo struct{ db *DB }

func (r *savedRepo) SavePost(_ context.Context, s *models.SavedPost) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, e := range r.db.saved {
		if e.UserID == s.UserID && e.PostID == s.PostID {
			return gorm.ErrDuplicatedKey
		}
	}
	s.ID = r.db.nextID()
	stamp(&s.CreatedAt)
	r.db.saved = append(r.db.saved, *s)
	return nil
}

func (r *savedRepo) removeWhere(drop func(models.SavedPost) bool) int {
	kept := r.db.saved[:0:0]
	for _, e := range r.db.saved {
		if !drop(e) {
			kept = append(kept, e)
		}
	}
	n := len(r.db.saved) - len(kept)
	r.db.saved = kept
	return n
}

func (r *savedRepo) UnsavePost(_ context.Context, userID, postID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n := r.removeWhere(func(e models.SavedPost) bool { return e.UserID == userID && e.PostID == postID })
	if n == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *savedRepo) IsPostSaved(_ context.Context, userID, postID string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, e := range r.db.saved {
		if e.UserID == userID && e.PostID == postID {
			return true, nil
		}
	}
	return false, nil
}

func (r *savedRepo) GetSavedPostsByUser(_ context.Context, userID string, skip, limit int64) ([]models.SavedPost, int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var matched []models.SavedPost
	for _, e := range r.db.saved {
		if e.UserID == userID {
			matched = append(matched, e)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})
	return paginate(matched, skip, limit), int64(len(matched)), nil
}

func (r *savedRepo) GetSavedPostIDs(_ context.Context, userID string, postIDs []string) (map[string]bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make(map[string]bool)
	for _, e := range r.db.saved {
		if e.UserID == userID && contains(postIDs, e.PostID) {
			out[e.PostID] = true
		}
	}
	return out, nil
}

func (r *savedRepo) DeleteForPosts(_ context.Context, postIDs []string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.removeWhere(func(e models.SavedPost) bool { return contains(postIDs, e.PostID) })
	return nil
}

func (r *savedRepo) DeleteForUser(_ context.Context, userID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.removeWhere(func(e models.SavedPost) bool { return e.UserID == userID })
	return nil
}

type notificationRepo struct{ db *DB }

func (r *notificationRepo) CreateNotification(_ context.Context, n *models.Notification) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n.ID = r.db.nextID()
	stamp(&n.CreatedAt)
	r.db.notifications = append(r.db.notifications, *n)
	return nil
}

func (r *notificationRepo) GetByRecipientID(_ context.Context, recipientID string, page, limit int) ([]models.Notification, int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var matched []models.Notification
	for _, n := range r.db.notifications {
		if n.RecipientID == recipientID {
			matched = append(matched, n)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})
	return paginate(matched, int64((page-1)*limit), int64(limit)), int64(len(matched)), nil
}

func (r *notificationRepo) GetUnreadCount(_ context.Context, recipientID string) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var count int64
	for _, n := range r.db.notifications {
		if n.RecipientID == recipientID && !n.HasRead {
			count++
		}
	}
	return count, nil
}

func (r *notificationRepo) MarkAsRead(_ context.Context, recipientID string, id uint) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for i := range r.db.notifications {
		if r.db.notifications[i].ID == id && r.db.notifications[i].RecipientID == recipientID {
			r.db.notifications[i].HasRead = true
			return 1, nil
		}
	}
	return 0, nil
}

func (r *notificationRepo) MarkAllAsRead(_ context.Context, recipientID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for i := range r.db.notifications {
		if r.db.notifications[i].RecipientID == recipientID {
			r.db.notifications[i].HasRead = true
		}
	}
	return nil
}

func (r *notificationRepo) DeleteForRecipient(_ context.Context, recipientID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	kept := r.db.notifications[:0:0]
	for _, n := range r.db.notifications {
		if n.RecipientID != recipientID {
			kept = append(kept, n)
		}
	}
	r.db.notifications = kept
	return nil
}
