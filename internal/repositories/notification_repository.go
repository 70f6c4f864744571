package repositories

import (
	"context"

	"github.com/anonto42/circles/backend/internal/models"
	"gorm.io/gorm"
)

// NotificationRepository defines the interface for notification operations
type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification *models.Notification) error
	GetByRecipientID(ctx context.Context, recipientID string, page, limit int) ([]models.Notification, int64, error)
	GetUnreadCount(ctx context.Context, recipientID string) (int64, error)
	// MarkAsRead returns the number of the recipient's notifications matching id.
	MarkAsRead(ctx context.Context, recipientID string, notificationID uint) (int64, error)
	MarkAllAsRead(ctx context.Context, recipientID string) error
	DeleteForRecipient(ctx context.Context, recipientID string) error
}

type postgresNotificationRepository struct {
	db *gorm.DB
}

func NewPostgresNotificationRepository(db *gorm.DB) NotificationRepository {
	return &postgresNotificationRepository{db: db}
}

func (r *postgresNotificationRepository) CreateNotification(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *postgresNotificationRepository) GetByRecipientID(ctx context.Context, recipientID string, page, limit int) ([]models.Notification, int64, error) {
	var notifications []models.Notification
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.Notification{}).Where("recipient_id = ?", recipientID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := r.db.WithContext(ctx).Where("recipient_id = ?", recipientID).
		Order("created_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&notifications).Error

	return notifications, total, err
}

func (r *postgresNotificationRepository) GetUnreadCount(ctx context.Context, recipientID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Notification{}).Where("recipient_id = ? AND has_read = false", recipientID).Count(&count).Error
	return count, err
}

func (r *postgresNotificationRepository) MarkAsRead(ctx context.Context, recipientID string, notificationID uint) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ?", notificationID, recipientID).
		Update("has_read", true)
	return res.RowsAffected, res.Error
}

func (r *postgresNotificationRepository) MarkAllAsRead(ctx context.Context, recipientID string) error {
	return r.db.WithContext(ctx).Model(&models.Notification{}).Where("recipient_id = ? AND has_read = false", recipientID).Update("has_read", true).Error
}

func (r *postgresNotificationRepository) DeleteForRecipient(ctx context.Context, recipientID string) error {
	return r.db.WithContext(ctx).Where("recipient_id = ?", recipientID).Delete(&models.Notification{}).Error
}
