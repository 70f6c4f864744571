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

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	ReactionStore
	CreateComment(ctx context.Context, comment *models.Comment) error
	GetCommentByID(ctx context.Context, id string) (*models.Comment, error)
	ListByPost(ctx context.Context, postID string, skip, limit int64) ([]models.Comment, int64, error)
	DeleteComment(ctx context.Context, id string) error
	ListCommentRefs(ctx context.Context, filter CommentFilter) ([]models.CommentRef, error)
	DeleteComments(ctx context.Context, filter CommentFilter) error
	// CountByPosts counts the remaining comments of each post. Posts without
	// comments are absent from the result.
	CountByPosts(ctx context.Context, postIDs []string) (map[string]int, error)
}

// MongoCommentRepository implements CommentRepository for MongoDB
type MongoCommentRepository struct {
	mongoReactions
	collection *mongo.Collection
}

// NewMongoCommentRepository creates a new MongoCommentRepository
func NewMongoCommentRepository(db *mongo.Database) *MongoCommentRepository {
	c := db.Collection("comments")
	return &MongoCommentRepository{mongoReactions: mongoReactions{collection: c}, collection: c}
}

// CreateComment creates a new comment in MongoDB
func (r *MongoCommentRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	comment.ID = primitive.NewObjectID()
	comment.CreatedAt = time.Now()
	if comment.Reactions == nil {
		comment.Reactions = models.NewReactions()
	}
	if comment.Media == nil {
		comment.Media = []models.Media{}
	}
	_, err := r.collection.InsertOne(ctx, comment)
	return err
}

// GetCommentByID retrieves a comment by ID from MongoDB
func (r *MongoCommentRepository) GetCommentByID(ctx context.Context, id string) (*models.Comment, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var comment models.Comment
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&comment); err != nil {
		return nil, notFound(err)
	}
	return &comment, nil
}

// ListByPost returns one page of a post's comments, oldest first
func (r *MongoCommentRepository) ListByPost(ctx context.Context, postID string, skip, limit int64) ([]models.Comment, int64, error) {
	filter := bson.M{"post": postID}
	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	findOptions := options.Find().
		SetSkip(skip).
		SetLimit(limit).
		SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	comments := []models.Comment{}
	if err = cursor.All(ctx, &comments); err != nil {
		return nil, 0, err
	}
	return comments, total, nil
}

// DeleteComment deletes a comment by ID from MongoDB
func (r *MongoCommentRepository) DeleteComment(ctx context.Context, id string) error {
	return deleteByID(ctx, r.collection, id)
}

func (r *MongoCommentRepository) ListCommentRefs(ctx context.Context, filter CommentFilter) ([]models.CommentRef, error) {
	if filter.empty() {
		return nil, ErrEmptyFilter
	}
	opts := options.Find().SetProjection(bson.M{"_id": 1, "post": 1, "media": 1})
	cursor, err := r.collection.Find(ctx, commentQuery(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []struct {
		ID    primitive.ObjectID `bson:"_id"`
		Post  string             `bson:"post"`
		Media []models.Media     `bson:"media"`
	}
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	refs := make([]models.CommentRef, len(docs))
	for i, d := range docs {
		refs[i] = models.CommentRef{ID: d.ID.Hex(), Post: d.Post, Media: d.Media}
	}
	return refs, nil
}

func (r *MongoCommentRepository) DeleteComments(ctx context.Context, filter CommentFilter) error {
	if filter.empty() {
		return ErrEmptyFilter
	}
	_, err := r.collection.DeleteMany(ctx, commentQuery(filter))
	return err
}

func (r *MongoCommentRepository) CountByPosts(ctx context.Context, postIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(postIDs))
	if len(postIDs) == 0 {
		return counts, nil
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"post": bson.M{"$in": postIDs}}}},
		{{Key: "$group", Value: bson.M{"_id": "$post", "n": bson.M{"$sum": 1}}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Post string `bson:"_id"`
		N    int    `bson:"n"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.Post] = row.N
	}
	return counts, nil
}

func commentQuery(filter CommentFilter) bson.M {
	q := bson.M{}
	if len(filter.PostIDs) > 0 {
		q["post"] = bson.M{"$in": filter.PostIDs}
	}
	if filter.Owner != "" {
		q["owner"] = filter.Owner
	}
	if filter.Community != "" {
		q["community"] = filter.Community
	}
	if filter.CommunityID != "" {
		q["communityId"] = filter.CommunityID
	}
	return q
}
