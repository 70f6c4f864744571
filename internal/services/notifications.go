package services

import (
	"context"

	"github.com/anonto42/circles/backend/internal/apperr"
	"github.com/anonto42/circles/backend/internal/models"
	"github.com/anonto42/circles/backend/internal/repositories"
	"github.com/sirupsen/logrus"
)

// Notice is the payload appended to a user's inbox.
type Notice struct {
	Icon    string
	Content string
	URL     string
}

// NotificationPage is one page of a user's inbox.
type NotificationPage struct {
	Notifications []models.Notification `json:"notifications"`
	UnreadCount   int64                 `json:"unreadCount"`
	IsFinalPage   bool                  `json:"isFinalPage"`
}

// NotificationFanout appends notifications as a side effect of other operations.
type NotificationFanout struct {
	repo repositories.NotificationRepository
	log  logrus.FieldLogger
}

// NewNotificationFanout creates a NotificationFanout.
func NewNotificationFanout(repo repositories.NotificationRepository, log logrus.FieldLogger) *NotificationFanout {
	return &NotificationFanout{repo: repo, log: log}
}

// Notify appends n to target's inbox. Failures are logged and never returned.
func (f *NotificationFanout) Notify(ctx context.Context, target string, n Notice) {
	err := f.repo.CreateNotification(ctx, &models.Notification{
		RecipientID: target,
		Icon:        n.Icon,
		Content:     n.Content,
		URL:         n.URL,
	})
	if err != nil {
		f.log.WithError(err).WithFields(logrus.Fields{
			"recipient": target,
			"icon":      n.Icon,
		}).Warn("notification not delivered")
	}
}

// NotifyAll sends n to every target.
func (f *NotificationFanout) NotifyAll(ctx context.Context, targets []string, n Notice) {
	for _, t := range unique(targets) {
		f.Notify(ctx, t, n)
	}
}

// MarkRead marks one notification of userID as read. Marking twice is fine.
func (f *NotificationFanout) MarkRead(ctx context.Context, userID string, id uint) error {
	n, err := f.repo.MarkAsRead(ctx, userID, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("notification not found")
	}
	return nil
}

// MarkAllRead marks the whole inbox of userID as read.
func (f *NotificationFanout) MarkAllRead(ctx context.Context, userID string) error {
	return f.repo.MarkAllAsRead(ctx, userID)
}

// List returns one page of userID's inbox, newest first.
func (f *NotificationFanout) List(ctx context.Context, userID string, p Pagination) (*NotificationPage, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	items, total, err := f.repo.GetByRecipientID(ctx, userID, p.Page, p.Limit)
	if err != nil {
		return nil, err
	}
	unread, err := f.repo.GetUnreadCount(ctx, userID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.Notification{}
	}
	return &NotificationPage{Notifications: items, UnreadCount: unread, IsFinalPage: p.isFinal(total)}, nil
}
