package repositories

import (
	"context"

	"github.com/anonto42/circles/backend/internal/models"
	"gorm.io/gorm"
)

// SavedPostRepository defines the interface for saved post operations
type SavedPostRepository interface {
	SavePost(ctx context.Context, savedPost *models.SavedPost) error
	UnsavePost(ctx context.Context, userID, postID string) error
	IsPostSaved(ctx context.Context, userID, postID string) (bool, error)
	GetSavedPostsByUser(ctx context.Context, userID string, skip, limit int64) ([]models.SavedPost, int64, error)
	GetSavedPostIDs(ctx context.Context, userID string, postIDs []string) (map[string]bool, error)
	DeleteForPosts(ctx context.Context, postIDs []string) error
	DeleteForUser(ctx context.Context, userID string) error
}

// PostgresSavedPostRepository implements SavedPostRepository
type PostgresSavedPostRepository struct {
	db *gorm.DB
}

func NewPostgresSavedPostRepository(db *gorm.DB) *PostgresSavedPostRepository {
	return &PostgresSavedPostRepository{db: db}
}

func (r *PostgresSavedPostRepository) SavePost(ctx context.Context, savedPost *models.SavedPost) error {
	return r.db.WithContext(ctx).Create(savedPost).Error
}

func (r *PostgresSavedPostRepository) UnsavePost(ctx context.Context, userID, postID string) error {
	res := r.db.WithContext(ctx).Where("user_id = ? AND post_id = ?", userID, postID).Delete(&models.SavedPost{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresSavedPostRepository) IsPostSaved(ctx context.Context, userID, postID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.SavedPost{}).Where("user_id = ? AND post_id = ?", userID, postID).Count(&count).Error
	return count > 0, err
}

func (r *PostgresSavedPostRepository) GetSavedPostsByUser(ctx context.Context, userID string, skip, limit int64) ([]models.SavedPost, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.SavedPost{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var saved []models.SavedPost
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Offset(int(skip)).Limit(int(limit)).
		Find(&saved).Error
	return saved, total, err
}

func (r *PostgresSavedPostRepository) GetSavedPostIDs(ctx context.Context, userID string, postIDs []string) (map[string]bool, error) {
	result := make(map[string]bool)
	if len(postIDs) == 0 {
		return result, nil
	}
	var saved []models.SavedPost
	err := r.db.WithContext(ctx).Where("user_id = ? AND post_id IN ?", userID, postIDs).Find(&saved).Error
	if err != nil {
		return nil, err
	}
	for _, s := range saved {
		result[s.PostID] = true
	}
	return result, nil
}

func (r *PostgresSavedPostRepository) DeleteForPosts(ctx context.Context, postIDs []string) error {
	if len(postIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("post_id IN ?", postIDs).Delete(&models.SavedPost{}).Error
}

func (r *PostgresSavedPostRepository) DeleteForUser(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.SavedPost{}).Error
}
