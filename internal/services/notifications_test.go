package services

import (
	"context"
	"testing"

	"github.com/anonto42/circles/backend/internal/apperr"
	"github.com/anonto42/circles/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationInbox(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	alice, bob := e.user(t, "alice"), e.user(t, "bob")

	e.Notifications.Notify(ctx, alice, Notice{Icon: models.IconComment, Content: "one", URL: "/posts/1"})
	e.Notifications.Notify(ctx, alice, Notice{Icon: models.IconComment, Content: "two", URL: "/posts/2"})
	e.Notifications.NotifyAll(ctx, []string{alice, bob, bob}, Notice{Icon: models.IconShare, Content: "three"})

	page, err := e.Notifications.List(ctx, alice, Pagination{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Notifications, 2)
	assert.Equal(t, int64(3), page.UnreadCount)
	assert.False(t, page.IsFinalPage)
	assert.Len(t, e.inbox(t, bob), 1)

	id := page.Notifications[0].ID
	require.NoError(t, e.Notifications.MarkRead(ctx, alice, id))
	require.NoError(t, e.Notifications.MarkRead(ctx, alice, id))
	assertKind(t, e.Notifications.MarkRead(ctx, bob, id), apperr.KindNotFound)

	page, err = e.Notifications.List(ctx, alice, Pagination{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.UnreadCount)

	require.NoError(t, e.Notifications.MarkAllRead(ctx, alice))
	page, err = e.Notifications.List(ctx, alice, Pagination{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, page.UnreadCount)
	assert.True(t, page.IsFinalPage)
	for _, n := range page.Notifications {
		assert.True(t, n.HasRead)
	}
}
