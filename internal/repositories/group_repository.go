package repositories

import (
	"context"
	"time"

	"github.com/anonto42/circles/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// GroupRepository defines the interface for group data operations
type GroupRepository interface {
	CreateGroup(ctx context.Context, group *models.Group) error
	GetGroupByID(ctx context.Context, id string) (*models.Group, error)
	UpdateGroup(ctx context.Context, id string, update GroupUpdate) error
	SetPicture(ctx context.Context, id string, kind models.PictureKind, media *models.Media) error
	SetMembersCount(ctx context.Context, id string, n int64) error
	DeleteGroup(ctx context.Context, id string) error
	ListGroupIDs(ctx context.Context) ([]string, error)
}

// MongoGroupRepository implements GroupRepository for MongoDB
type MongoGroupRepository struct {
	collection *mongo.Collection
}

// NewMongoGroupRepository creates a new MongoGroupRepository
func NewMongoGroupRepository(db *mongo.Database) *MongoGroupRepository {
	return &MongoGroupRepository{collection: db.Collection("groups")}
}

func (r *MongoGroupRepository) CreateGroup(ctx context.Context, group *models.Group) error {
	group.ID = primitive.NewObjectID()
	group.CreatedAt = time.Now()
	_, err := r.collection.InsertOne(ctx, group)
	return err
}

func (r *MongoGroupRepository) GetGroupByID(ctx context.Context, id string) (*models.Group, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var group models.Group
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&group); err != nil {
		return nil, notFound(err)
	}
	return &group, nil
}

func (r *MongoGroupRepository) UpdateGroup(ctx context.Context, id string, update GroupUpdate) error {
	set := bson.M{}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.Description != nil {
		set["description"] = *update.Description
	}
	if update.Privacy != nil {
		set["privacy"] = *update.Privacy
	}
	return updateByID(ctx, r.collection, id, set)
}

func (r *MongoGroupRepository) SetPicture(ctx context.Context, id string, kind models.PictureKind, media *models.Media) error {
	return updateByID(ctx, r.collection, id, bson.M{pictureField(kind): media})
}

func (r *MongoGroupRepository) SetMembersCount(ctx context.Context, id string, n int64) error {
	return updateByID(ctx, r.collection, id, bson.M{"membersCount": n})
}

func (r *MongoGroupRepository) DeleteGroup(ctx context.Context, id string) error {
	return deleteByID(ctx, r.collection, id)
}

func (r *MongoGroupRepository) ListGroupIDs(ctx context.Context) ([]string, error) {
	return listIDs(ctx, r.collection)
}
