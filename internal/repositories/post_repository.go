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

// PostRepository defines the interface for post data operations
type PostRepository interface {
	ReactionStore
	CreatePost(ctx context.Context, post *models.Post) error
	GetPostByID(ctx context.Context, id string) (*models.Post, error)
	GetPostsByIDs(ctx context.Context, ids []string) ([]models.Post, error)
	UpdatePost(ctx context.Context, id string, update PostUpdate) error
	DeletePost(ctx context.Context, id string) error
	// FindPosts returns one page of matching posts, newest first, and the total match count.
	FindPosts(ctx context.Context, filter PostFilter, skip, limit int64) ([]models.Post, int64, error)
	ListPostRefs(ctx context.Context, filter PostFilter) ([]models.PostRef, error)
	DeletePosts(ctx context.Context, ids []string) error
	SetCommentsCount(ctx context.Context, id string, n int) error
	IncrementCommentsCount(ctx context.Context, id string, delta int) error
	// ApplyShare adds (on) or removes userID from the post's share set. It
	// returns false when the set was already in the requested state.
	ApplyShare(ctx context.Context, id, userID string, on bool) (bool, error)
	ResetShares(ctx context.Context, id string) error
	PullSharer(ctx context.Context, userID string) error
}

// MongoPostRepository implements PostRepository for MongoDB
type MongoPostRepository struct {
	mongoReactions
	collection *mongo.Collection
}

// NewMongoPostRepository creates a new MongoPostRepository
func NewMongoPostRepository(db *mongo.Database) *MongoPostRepository {
	c := db.Collection("posts")
	return &MongoPostRepository{mongoReactions: mongoReactions{collection: c}, collection: c}
}

// CreatePost creates a new post in MongoDB
func (r *MongoPostRepository) CreatePost(ctx context.Context, post *models.Post) error {
	post.ID = primitive.NewObjectID()
	post.CreatedAt = time.Now()
	post.UpdatedAt = post.CreatedAt
	if post.Reactions == nil {
		post.Reactions = models.NewReactions()
	}
	if post.ShareData.Users == nil {
		post.ShareData.Users = []string{}
	}
	if post.Media == nil {
		post.Media = []models.Media{}
	}
	_, err := r.collection.InsertOne(ctx, post)
	return err
}

// GetPostByID retrieves a post by ID from MongoDB
func (r *MongoPostRepository) GetPostByID(ctx context.Context, id string) (*models.Post, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var post models.Post
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&post); err != nil {
		return nil, notFound(err)
	}
	return &post, nil
}

// GetPostsByIDs returns the existing posts among ids, in no particular order.
func (r *MongoPostRepository) GetPostsByIDs(ctx context.Context, ids []string) ([]models.Post, error) {
	oids := objectIDs(ids)
	if len(oids) == 0 {
		return []models.Post{}, nil
	}
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	posts := []models.Post{}
	if err = cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// UpdatePost applies the non-nil fields of update
func (r *MongoPostRepository) UpdatePost(ctx context.Context, id string, update PostUpdate) error {
	set := bson.M{"updatedAt": time.Now()}
	if update.Content != nil {
		set["content"] = *update.Content
	}
	if update.Media != nil {
		set["media"] = update.Media
	}
	if update.Privacy != nil {
		set["privacy"] = *update.Privacy
	}
	if update.BlockComments != nil {
		set["blockComments"] = *update.BlockComments
	}
	return updateByID(ctx, r.collection, id, set)
}

// DeletePost deletes a post from MongoDB
func (r *MongoPostRepository) DeletePost(ctx context.Context, id string) error {
	return deleteByID(ctx, r.collection, id)
}

func (r *MongoPostRepository) FindPosts(ctx context.Context, filter PostFilter, skip, limit int64) ([]models.Post, int64, error) {
	if filter.Empty() {
		return []models.Post{}, 0, nil
	}
	query := postQuery(filter)

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}

	findOptions := options.Find().
		SetSkip(skip).
		SetLimit(limit).
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.collection.Find(ctx, query, findOptions)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	posts := []models.Post{}
	if err = cursor.All(ctx, &posts); err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (r *MongoPostRepository) ListPostRefs(ctx context.Context, filter PostFilter) ([]models.PostRef, error) {
	if filter.Empty() {
		return nil, nil
	}
	opts := options.Find().SetProjection(bson.M{"_id": 1, "owner": 1, "media": 1})
	cursor, err := r.collection.Find(ctx, postQuery(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []struct {
		ID    primitive.ObjectID `bson:"_id"`
		Owner string             `bson:"owner"`
		Media []models.Media     `bson:"media"`
	}
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	refs := make([]models.PostRef, len(docs))
	for i, d := range docs {
		refs[i] = models.PostRef{ID: d.ID.Hex(), Owner: d.Owner, Media: d.Media}
	}
	return refs, nil
}

func (r *MongoPostRepository) DeletePosts(ctx context.Context, ids []string) error {
	oids := objectIDs(ids)
	if len(oids) == 0 {
		return nil
	}
	_, err := r.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": oids}})
	return err
}

func (r *MongoPostRepository) SetCommentsCount(ctx context.Context, id string, n int) error {
	return updateByID(ctx, r.collection, id, bson.M{"commentsCount": n})
}

// IncrementCommentsCount adds delta to the post's comment counter
func (r *MongoPostRepository) IncrementCommentsCount(ctx context.Context, id string, delta int) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$inc": bson.M{"commentsCount": delta}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoPostRepository) ApplyShare(ctx context.Context, id, userID string, on bool) (bool, error) {
	oid, err := objectID(id)
	if err != nil {
		return false, err
	}
	var filter, update bson.M
	if on {
		filter = bson.M{"_id": oid, "shareData.users": bson.M{"$ne": userID}}
		update = bson.M{
			"$addToSet": bson.M{"shareData.users": userID},
			"$inc":      bson.M{"shareData.count": 1},
		}
	} else {
		filter = bson.M{"_id": oid, "shareData.users": userID}
		update = bson.M{
			"$pull": bson.M{"shareData.users": userID},
			"$inc":  bson.M{"shareData.count": -1},
		}
	}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (r *MongoPostRepository) ResetShares(ctx context.Context, id string) error {
	return updateByID(ctx, r.collection, id, bson.M{"shareData": models.ShareData{Users: []string{}}})
}

func (r *MongoPostRepository) PullSharer(ctx context.Context, userID string) error {
	_, err := r.collection.UpdateMany(ctx,
		bson.M{"shareData.users": userID},
		bson.M{
			"$pull": bson.M{"shareData.users": userID},
			"$inc":  bson.M{"shareData.count": -1},
		})
	return err
}

// postQuery renders a PostFilter as a mongo query; callers guarantee it is non-empty.
func postQuery(filter PostFilter) bson.M {
	or := make(bson.A, 0, len(filter.Any))
	for _, c := range filter.Any {
		clause := bson.M{}
		if len(c.Owners) > 0 {
			clause["owner"] = bson.M{"$in": c.Owners}
		}
		if c.Community != "" {
			clause["community"] = c.Community
		}
		if len(c.CommunityIDs) > 0 {
			clause["communityId"] = bson.M{"$in": c.CommunityIDs}
		}
		if len(c.Privacies) > 0 {
			clause["privacy"] = bson.M{"$in": c.Privacies}
		}
		or = append(or, clause)
	}
	if len(or) == 1 {
		return or[0].(bson.M)
	}
	return bson.M{"$or": or}
}
