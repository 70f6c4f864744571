package services

import (
	"context"
	"testing"
	"time"

	"github.com/anonto42/circles/backend/internal/apperr"
	"github.com/anonto42/circles/backend/internal/auth"
	"github.com/anonto42/circles/backend/internal/media"
	"github.com/anonto42/circles/backend/internal/models"
	"github.com/anonto42/circles/backend/internal/repositories"
	"github.com/anonto42/circles/backend/internal/repositories/memory"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

type env struct {
	*Services
	store *repositories.Store
	db    *memory.DB
	media *media.Fake
	hook  *test.Hook
	now   time.Time
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store, db := memory.NewStore()
	log, hook := test.NewNullLogger()
	e := &env{
		store: store,
		db:    db,
		media: media.NewFake(),
		hook:  hook,
		now:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	e.Services = New(Deps{
		Store:    store,
		Media:    e.media,
		Log:      log,
		Issuer:   auth.NewIssuer("test-secret", time.Hour),
		StoryTTL: 24 * time.Hour,
		Now:      func() time.Time { return e.now },
	})
	e.Users.cost = bcrypt.MinCost
	return e
}

func (e *env) user(t *testing.T, name string) string {
	t.Helper()
	id := primitive.NewObjectID().Hex()
	require.NoError(t, e.store.Users.CreateUser(context.Background(), &models.User{
		ID:       id,
		Username: name,
		Email:    name + "@example.com",
	}))
	return id
}

func (e *env) befriend(t *testing.T, a, b string) {
	t.Helper()
	require.NoError(t, e.store.Relations.Apply(context.Background(), models.FriendPair(a, b), nil))
}

func (e *env) page(t *testing.T, owner string) string {
	t.Helper()
	p, err := e.Communities.AddPage(context.Background(), owner, models.CreatePageRequest{Name: "page of " + owner[:4]})
	require.NoError(t, err)
	return p.ID.Hex()
}

func (e *env) group(t *testing.T, owner string, privacy models.GroupPrivacy) string {
	t.Helper()
	g, err := e.Communities.AddGroup(context.Background(), owner, models.CreateGroupRequest{
		Name:    "group of " + owner[:4],
		Privacy: string(privacy),
	})
	require.NoError(t, err)
	return g.ID.Hex()
}

func (e *env) post(t *testing.T, owner string, req models.CreatePostRequest) string {
	t.Helper()
	if req.Content == "" {
		req.Content = "hello"
	}
	p, err := e.Posts.AddPost(context.Background(), owner, req)
	require.NoError(t, err)
	return p.ID.Hex()
}

func (e *env) comment(t *testing.T, owner, postID string, media ...models.Media) string {
	t.Helper()
	c, err := e.Comments.AddComment(context.Background(), owner, postID, models.CreateCommentRequest{Content: "nice", Media: media})
	require.NoError(t, err)
	return c.ID.Hex()
}

func (e *env) getPost(t *testing.T, id string) *models.Post {
	t.Helper()
	p, err := e.store.Posts.GetPostByID(context.Background(), id)
	require.NoError(t, err)
	return p
}

func (e *env) inbox(t *testing.T, user string) []models.Notification {
	t.Helper()
	page, err := e.Notifications.List(context.Background(), user, Pagination{Page: 1, Limit: MaxLimit})
	require.NoError(t, err)
	return page.Notifications
}

func (e *env) assertRelationsConsistent(t *testing.T) {
	t.Helper()
	assert.Empty(t, models.CheckRelations(e.db.Relations()))
}

func assertKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, apperr.KindOf(err), "error: %v", err)
}

func TestPagination(t *testing.T) {
	tests := []struct {
		name  string
		p     Pagination
		valid bool
	}{
		{"first page", Pagination{Page: 1, Limit: 10}, true},
		{"max limit", Pagination{Page: 3, Limit: MaxLimit}, true},
		{"page zero", Pagination{Page: 0, Limit: 10}, false},
		{"limit zero", Pagination{Page: 1, Limit: 0}, false},
		{"limit too large", Pagination{Page: 1, Limit: MaxLimit + 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.validate()
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assertKind(t, err, apperr.KindBadUserInput)
		})
	}

	p := Pagination{Page: 2, Limit: 5}
	assert.Equal(t, int64(5), p.skip())
	assert.False(t, p.isFinal(11))
	assert.True(t, p.isFinal(10))
	assert.True(t, p.isFinal(0))
}
