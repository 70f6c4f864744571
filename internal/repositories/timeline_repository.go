package repositories

import (
	"context"

	"github.com/anonto42/circles/backend/internal/models"
	"gorm.io/gorm"
)

// TimelineRepository maintains each user's timeline index (own personal posts and shares).
type TimelineRepository interface {
	AddEntry(ctx context.Context, entry *models.TimelineEntry) error
	RemoveEntry(ctx context.Context, userID, postID string) (bool, error)
	IsShared(ctx context.Context, userID, postID string) (bool, error)
	ListEntries(ctx context.Context, userID string, privacies []models.Privacy, skip, limit int64) ([]models.TimelineEntry, int64, error)
	SharedPostIDs(ctx context.Context, userID string, postIDs []string) (map[string]bool, error)
	SharedBy(ctx context.Context, userID string) ([]string, error)
	UpdatePrivacy(ctx context.Context, postID string, privacy models.Privacy) error
	// RemoveShares deletes every shared entry of a post and returns the sharers.
	RemoveShares(ctx context.Context, postID string) ([]string, error)
	DeleteForPosts(ctx context.Context, postIDs []string) error
	DeleteForUser(ctx context.Context, userID string) error
}

// PostgresTimelineRepository implements TimelineRepository for PostgreSQL
type PostgresTimelineRepository struct {
	db *gorm.DB
}

// NewPostgresTimelineRepository creates a new PostgresTimelineRepository
func NewPostgresTimelineRepository(db *gorm.DB) *PostgresTimelineRepository {
	return &PostgresTimelineRepository{db: db}
}

func (r *PostgresTimelineRepository) AddEntry(ctx context.Context, entry *models.TimelineEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *PostgresTimelineRepository) RemoveEntry(ctx context.Context, userID, postID string) (bool, error) {
	res := r.db.WithContext(ctx).Where("user_id = ? AND post_id = ?", userID, postID).Delete(&models.TimelineEntry{})
	return res.RowsAffected > 0, res.Error
}

func (r *PostgresTimelineRepository) IsShared(ctx context.Context, userID, postID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.TimelineEntry{}).
		Where("user_id = ? AND post_id = ? AND shared = ?", userID, postID, true).
		Count(&count).Error
	return count > 0, err
}

// ListEntries pages through a user's timeline, most recent share first.
func (r *PostgresTimelineRepository) ListEntries(ctx context.Context, userID string, privacies []models.Privacy, skip, limit int64) ([]models.TimelineEntry, int64, error) {
	var total int64
	q := r.db.WithContext(ctx).Model(&models.TimelineEntry{}).
		Where("user_id = ? AND privacy IN ?", userID, privacies)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []models.TimelineEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND privacy IN ?", userID, privacies).
		Order("share_date DESC").Order("id DESC").
		Offset(int(skip)).Limit(int(limit)).
		Find(&entries).Error
	return entries, total, err
}

func (r *PostgresTimelineRepository) SharedPostIDs(ctx context.Context, userID string, postIDs []string) (map[string]bool, error) {
	result := make(map[string]bool)
	if len(postIDs) == 0 {
		return result, nil
	}
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.TimelineEntry{}).
		Where("user_id = ? AND shared = ? AND post_id IN ?", userID, true, postIDs).
		Pluck("post_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		result[id] = true
	}
	return result, nil
}

func (r *PostgresTimelineRepository) SharedBy(ctx context.Context, userID string) ([]string, error) {
	ids := []string{}
	err := r.db.WithContext(ctx).Model(&models.TimelineEntry{}).
		Where("user_id = ? AND shared = ?", userID, true).
		Pluck("post_id", &ids).Error
	return ids, err
}

func (r *PostgresTimelineRepository) UpdatePrivacy(ctx context.Context, postID string, privacy models.Privacy) error {
	return r.db.WithContext(ctx).Model(&models.TimelineEntry{}).
		Where("post_id = ?", postID).
		Update("privacy", privacy).Error
}

func (r *PostgresTimelineRepository) RemoveShares(ctx context.Context, postID string) ([]string, error) {
	var removed []models.TimelineEntry
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ? AND shared = ?", postID, true).Find(&removed).Error; err != nil {
			return err
		}
		return tx.Where("post_id = ? AND shared = ?", postID, true).Delete(&models.TimelineEntry{}).Error
	})
	if err != nil {
		return nil, err
	}
	users := make([]string, len(removed))
	for i, e := range removed {
		users[i] = e.UserID
	}
	return users, nil
}

func (r *PostgresTimelineRepository) DeleteForPosts(ctx context.Context, postIDs []string) error {
	if len(postIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("post_id IN ?", postIDs).Delete(&models.TimelineEntry{}).Error
}

func (r *PostgresTimelineRepository) DeleteForUser(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.TimelineEntry{}).Error
}
