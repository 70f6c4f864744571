package services

import (
	"context"
	"testing"

	"github.com/anonto42/circles/backend/internal/apperr"
	"github.com/anonto42/circles/backend/internal/media"
	"github.com/anonto42/circles/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMediaMustBelongToTheCaller(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	alice, mallory := e.user(t, "alice"), e.user(t, "mallory")
	uploaded, err := e.media.Upload(ctx, []media.File{{Name: "cat.png", Folder: alice}})
	require.NoError(t, err)
	stolen := uploaded[0]

	alicePost := e.post(t, alice, models.CreatePostRequest{Media: []models.Media{stolen}})
	pageID := e.page(t, mallory)
	mine := e.post(t, mallory, models.CreatePostRequest{})

	t.Run("add post", func(t *testing.T) {
		_, err := e.Posts.AddPost(ctx, mallory, models.CreatePostRequest{Media: []models.Media{stolen}})
		assertKind(t, err, apperr.KindBadUserInput)
	})
	t.Run("edit post", func(t *testing.T) {
		_, err := e.Posts.EditPost(ctx, mallory, mine, models.UpdatePostRequest{Media: []models.Media{stolen}})
		assertKind(t, err, apperr.KindBadUserInput)
	})
	t.Run("add comment", func(t *testing.T) {
		_, err := e.Comments.AddComment(ctx, mallory, alicePost, models.CreateCommentRequest{Media: []models.Media{stolen}})
		assertKind(t, err, apperr.KindBadUserInput)
	})
	t.Run("add story", func(t *testing.T) {
		_, err := e.Stories.AddStory(ctx, mallory, models.CreateStoryRequest{Media: &stolen})
		assertKind(t, err, apperr.KindBadUserInput)
	})
	t.Run("user picture", func(t *testing.T) {
		_, err := e.Users.ChangePicture(ctx, mallory, models.PictureProfile, &stolen)
		assertKind(t, err, apperr.KindBadUserInput)
	})
	t.Run("page picture", func(t *testing.T) {
		err := e.Communities.ChangePicture(ctx, mallory, models.CommunityPage, pageID, models.PictureCover, &stolen)
		assertKind(t, err, apperr.KindBadUserInput)
	})

	_, err = e.Posts.DeletePost(ctx, mallory, mine)
	require.NoError(t, err)
	_, err = e.Users.DeleteUser(ctx, mallory, "")
	require.NoError(t, err)

	assert.Empty(t, e.media.DeletedIDs())
	assert.True(t, e.media.Objects[stolen.PublicID])
	assert.Equal(t, []string{stolen.PublicID}, models.MediaIDs(e.getPost(t, alicePost).Media...))
}
