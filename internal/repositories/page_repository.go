package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/anonto42/circles/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PageRepository defines the interface for page data operations
type PageRepository interface {
	CreatePage(ctx context.Context, page *models.Page) error
	GetPageByID(ctx context.Context, id string) (*models.Page, error)
	UpdatePage(ctx context.Context, id string, update PageUpdate) error
	SetPicture(ctx context.Context, id string, kind models.PictureKind, media *models.Media) error
	SetFollowersCount(ctx context.Context, id string, n int64) error
	DeletePage(ctx context.Context, id string) error
	ListPageIDs(ctx context.Context) ([]string, error)
}

// MongoPageRepository implements PageRepository for MongoDB
type MongoPageRepository struct {
	collection *mongo.Collection
}

// NewMongoPageRepository creates a new MongoPageRepository
func NewMongoPageRepository(db *mongo.Database) *MongoPageRepository {
	return &MongoPageRepository{collection: db.Collection("pages")}
}

func (r *MongoPageRepository) CreatePage(ctx context.Context, page *models.Page) error {
	page.ID = primitive.NewObjectID()
	page.CreatedAt = time.Now()
	_, err := r.collection.InsertOne(ctx, page)
	return err
}

func (r *MongoPageRepository) GetPageByID(ctx context.Context, id string) (*models.Page, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var page models.Page
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&page); err != nil {
		return nil, notFound(err)
	}
	return &page, nil
}

func (r *MongoPageRepository) UpdatePage(ctx context.Context, id string, update PageUpdate) error {
	set := bson.M{}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.Description != nil {
		set["description"] = *update.Description
	}
	return updateByID(ctx, r.collection, id, set)
}

func (r *MongoPageRepository) SetPicture(ctx context.Context, id string, kind models.PictureKind, media *models.Media) error {
	return updateByID(ctx, r.collection, id, bson.M{pictureField(kind): media})
}

func (r *MongoPageRepository) SetFollowersCount(ctx context.Context, id string, n int64) error {
	return updateByID(ctx, r.collection, id, bson.M{"followersCount": n})
}

func (r *MongoPageRepository) DeletePage(ctx context.Context, id string) error {
	return deleteByID(ctx, r.collection, id)
}

func (r *MongoPageRepository) ListPageIDs(ctx context.Context) ([]string, error) {
	return listIDs(ctx, r.collection)
}

func pictureField(kind models.PictureKind) string {
	if kind == models.PictureCover {
		return "coverPicture"
	}
	return "profilePicture"
}

func updateByID(ctx context.Context, collection *mongo.Collection, id string, set bson.M) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	if len(set) == 0 {
		return nil
	}
	res, err := collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update %s: %w", collection.Name(), err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func deleteByID(ctx context.Context, collection *mongo.Collection, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func listIDs(ctx context.Context, collection *mongo.Collection) ([]string, error) {
	cursor, err := collection.Find(ctx, bson.D{}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID.Hex()
	}
	return ids, nil
}
