package services

import (
	"context"
	"testing"
	"time"

	"github.com/anonto42/circles/backend/internal/apperr"
	"github.com/anonto42/circles/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStories(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	owner, friend, stranger := e.user(t, "owner"), e.user(t, "friend"), e.user(t, "stranger")
	e.befriend(t, owner, friend)

	_, err := e.Stories.AddStory(ctx, owner, models.CreateStoryRequest{})
	assertKind(t, err, apperr.KindBadUserInput)

	mine, err := e.Stories.AddStory(ctx, owner, models.CreateStoryRequest{Caption: "morning"})
	require.NoError(t, err)
	assert.Equal(t, e.now.Add(24*time.Hour), mine.ExpiredData)
	_, err = e.Stories.AddStory(ctx, stranger, models.CreateStoryRequest{Caption: "elsewhere"})
	require.NoError(t, err)

	stories, err := e.Stories.ListStories(ctx, friend)
	require.NoError(t, err)
	require.Len(t, stories, 1)
	assert.Equal(t, mine.ID, stories[0].ID)

	assertKind(t, e.Stories.DeleteStory(ctx, friend, mine.ID.Hex()), apperr.KindForbidden)
	require.NoError(t, e.Stories.DeleteStory(ctx, owner, mine.ID.Hex()))
	assertKind(t, e.Stories.DeleteStory(ctx, owner, mine.ID.Hex()), apperr.KindNotFound)

	stories, err = e.Stories.ListStories(ctx, friend)
	require.NoError(t, err)
	assert.NotNil(t, stories)
	assert.Empty(t, stories)
}

func TestSweepExpiredStories(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	owner := e.user(t, "owner")

	oldPic := pic(owner, "old.png")
	old, err := e.Stories.AddStory(ctx, owner, models.CreateStoryRequest{Media: &oldPic})
	require.NoError(t, err)
	e.now = e.now.Add(12 * time.Hour)
	fresh, err := e.Stories.AddStory(ctx, owner, models.CreateStoryRequest{Caption: "fresh"})
	require.NoError(t, err)
	e.now = e.now.Add(13 * time.Hour)

	report, err := e.Stories.SweepExpired(ctx, e.now)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Stories)
	assert.False(t, report.MediaFailed)
	assert.Equal(t, []string{oldPic.PublicID}, e.media.DeletedIDs())

	_, err = e.store.Stories.GetStoryByID(ctx, old.ID.Hex())
	assert.Error(t, err)
	_, err = e.store.Stories.GetStoryByID(ctx, fresh.ID.Hex())
	assert.NoError(t, err)

	report, err = e.Stories.SweepExpired(ctx, e.now)
	require.NoError(t, err)
	assert.Zero(t, report.Stories)
}
