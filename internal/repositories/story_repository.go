package repositories

import (
	"context"
	"time"

	"github.com/anonto42/circles/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// StoryRepository defines the interface for story operations
type StoryRepository interface {
	ReactionStore
	CreateStory(ctx context.Context, story *models.Story) error
	GetStoryByID(ctx context.Context, id string) (*models.Story, error)
	DeleteStory(ctx context.Context, id string) error
	// ListActiveByOwners returns the unexpired stories of owners, newest first.
	ListActiveByOwners(ctx context.Context, owners []string, now time.Time) ([]models.Story, error)
	ListByOwner(ctx context.Context, owner string) ([]models.Story, error)
	FindExpired(ctx context.Context, now time.Time) ([]models.Story, error)
	DeleteStories(ctx context.Context, ids []string) error
}

type storyRepository struct {
	mongoReactions
	collection *mongo.Collection
}

// NewMongoStoryRepository creates the mongo backed StoryRepository
func NewMongoStoryRepository(db *mongo.Database) StoryRepository {
	c := db.Collection("stories")
	return &storyRepository{mongoReactions: mongoReactions{collection: c}, collection: c}
}

func (r *storyRepository) CreateStory(ctx context.Context, story *models.Story) error {
	story.ID = primitive.NewObjectID()
	if story.CreatedAt.IsZero() {
		story.CreatedAt = time.Now()
	}
	if story.Reactions == nil {
		story.Reactions = models.NewReactions()
	}
	_, err := r.collection.InsertOne(ctx, story)
	return err
}

func (r *storyRepository) GetStoryByID(ctx context.Context, id string) (*models.Story, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var story models.Story
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&story); err != nil {
		return nil, notFound(err)
	}
	return &story, nil
}

func (r *storyRepository) DeleteStory(ctx context.Context, id string) error {
	return deleteByID(ctx, r.collection, id)
}

func (r *storyRepository) ListActiveByOwners(ctx context.Context, owners []string, now time.Time) ([]models.Story, error) {
	if len(owners) == 0 {
		return []models.Story{}, nil
	}
	return r.find(ctx, bson.M{
		"owner":       bson.M{"$in": owners},
		"expiredData": bson.M{"$gt": now},
	})
}

func (r *storyRepository) ListByOwner(ctx context.Context, owner string) ([]models.Story, error) {
	return r.find(ctx, bson.M{"owner": owner})
}

func (r *storyRepository) FindExpired(ctx context.Context, now time.Time) ([]models.Story, error) {
	return r.find(ctx, bson.M{"expiredData": bson.M{"$lte": now}})
}

func (r *storyRepository) DeleteStories(ctx context.Context, ids []string) error {
	oids := objectIDs(ids)
	if len(oids) == 0 {
		return nil
	}
	_, err := r.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": oids}})
	return err
}

func (r *storyRepository) find(ctx context.Context, filter bson.M) ([]models.Story, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	stories := []models.Story{}
	if err = cursor.All(ctx, &stories); err != nil {
		return nil, err
	}
	return stories, nil
}
