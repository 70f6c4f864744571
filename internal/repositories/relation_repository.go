package repositories

import (
	"context"

	"github.com/anonto42/circles/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RelationRepository stores (subject, kind, object) edges. It is the single
// source of truth for friendships, requests, memberships, follows and admin rights.
type RelationRepository interface {
	Exists(ctx context.Context, subject string, kind models.RelationKind, object string) (bool, error)
	KindsBetween(ctx context.Context, subject, object string) ([]models.RelationKind, error)
	// Apply removes and then adds the given edges atomically. Adding an
	// existing edge and removing a missing one are no-ops.
	Apply(ctx context.Context, add, remove []models.Relation) error
	Objects(ctx context.Context, subject string, kind models.RelationKind) ([]string, error)
	Subjects(ctx context.Context, kind models.RelationKind, object string) ([]string, error)
	Edges(ctx context.Context, kind models.RelationKind, object string) ([]models.Relation, error)
	Count(ctx context.Context, kind models.RelationKind, object string) (int64, error)
	GetByID(ctx context.Context, id uint) (*models.Relation, error)
	// PurgeEntity removes every edge where id is the subject or the object.
	PurgeEntity(ctx context.Context, id string) (int64, error)
	ListByKind(ctx context.Context, kinds ...models.RelationKind) ([]models.Relation, error)
}

// PostgresRelationRepository implements RelationRepository for PostgreSQL
type PostgresRelationRepository struct {
	db *gorm.DB
}

// NewPostgresRelationRepository creates a new PostgresRelationRepository
func NewPostgresRelationRepository(db *gorm.DB) *PostgresRelationRepository {
	return &PostgresRelationRepository{db: db}
}

func (r *PostgresRelationRepository) Exists(ctx context.Context, subject string, kind models.RelationKind, object string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Relation{}).
		Where("subject_id = ? AND kind = ? AND object_id = ?", subject, kind, object).
		Count(&count).Error
	return count > 0, err
}

func (r *PostgresRelationRepository) KindsBetween(ctx context.Context, subject, object string) ([]models.RelationKind, error) {
	var kinds []models.RelationKind
	err := r.db.WithContext(ctx).Model(&models.Relation{}).
		Where("subject_id = ? AND object_id = ?", subject, object).
		Pluck("kind", &kinds).Error
	return kinds, err
}

// Apply runs the removals and insertions in one transaction so both sides of
// a pair change together.
func (r *PostgresRelationRepository) Apply(ctx context.Context, add, remove []models.Relation) error {
	if len(add) == 0 && len(remove) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, e := range remove {
			err := tx.Where("subject_id = ? AND kind = ? AND object_id = ?", e.SubjectID, e.Kind, e.ObjectID).
				Delete(&models.Relation{}).Error
			if err != nil {
				return err
			}
		}
		if len(add) == 0 {
			return nil
		}
		rows := make([]models.Relation, len(add))
		for i, e := range add {
			rows[i] = models.Edge(e.SubjectID, e.Kind, e.ObjectID)
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	})
}

func (r *PostgresRelationRepository) Objects(ctx context.Context, subject string, kind models.RelationKind) ([]string, error) {
	ids := []string{}
	err := r.db.WithContext(ctx).Model(&models.Relation{}).
		Where("subject_id = ? AND kind = ?", subject, kind).
		Order("created_at DESC").
		Pluck("object_id", &ids).Error
	return ids, err
}

func (r *PostgresRelationRepository) Subjects(ctx context.Context, kind models.RelationKind, object string) ([]string, error) {
	ids := []string{}
	err := r.db.WithContext(ctx).Model(&models.Relation{}).
		Where("kind = ? AND object_id = ?", kind, object).
		Order("created_at DESC").
		Pluck("subject_id", &ids).Error
	return ids, err
}

func (r *PostgresRelationRepository) Edges(ctx context.Context, kind models.RelationKind, object string) ([]models.Relation, error) {
	var edges []models.Relation
	err := r.db.WithContext(ctx).
		Where("kind = ? AND object_id = ?", kind, object).
		Order("created_at ASC").
		Find(&edges).Error
	return edges, err
}

func (r *PostgresRelationRepository) Count(ctx context.Context, kind models.RelationKind, object string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Relation{}).
		Where("kind = ? AND object_id = ?", kind, object).
		Count(&count).Error
	return count, err
}

func (r *PostgresRelationRepository) GetByID(ctx context.Context, id uint) (*models.Relation, error) {
	var edge models.Relation
	if err := r.db.WithContext(ctx).First(&edge, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &edge, nil
}

func (r *PostgresRelationRepository) PurgeEntity(ctx context.Context, id string) (int64, error) {
	res := r.db.WithContext(ctx).Where("subject_id = ? OR object_id = ?", id, id).Delete(&models.Relation{})
	return res.RowsAffected, res.Error
}

func (r *PostgresRelationRepository) ListByKind(ctx context.Context, kinds ...models.RelationKind) ([]models.Relation, error) {
	var edges []models.Relation
	q := r.db.WithContext(ctx)
	if len(kinds) > 0 {
		q = q.Where("kind IN ?", kinds)
	}
	err := q.Find(&edges).Error
	return edges, err
}
