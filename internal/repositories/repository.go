package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/anonto42/circles/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// ErrNotFound is returned by every repository when the addressed record does not exist.
var ErrNotFound = errors.New("record not found")

// Store bundles every repository the services depend on.
type Store struct {
	Users         UserRepository
	Relations     RelationRepository
	Timeline      TimelineRepository
	SavedPosts    SavedPostRepository
	Notifications NotificationRepository
	Pages         PageRepository
	Groups        GroupRepository
	Posts         PostRepository
	Comments      CommentRepository
	Stories       StoryRepository
}

// NewStore wires the PostgreSQL and MongoDB repositories.
func NewStore(pgdb *gorm.DB, mgdb *mongo.Database) *Store {
	return &Store{
		Users:         NewPostgresUserRepository(pgdb),
		Relations:     NewPostgresRelationRepository(pgdb),
		Timeline:      NewPostgresTimelineRepository(pgdb),
		SavedPosts:    NewPostgresSavedPostRepository(pgdb),
		Notifications: NewPostgresNotificationRepository(pgdb),
		Pages:         NewMongoPageRepository(mgdb),
		Groups:        NewMongoGroupRepository(mgdb),
		Posts:         NewMongoPostRepository(mgdb),
		Comments:      NewMongoCommentRepository(mgdb),
		Stories:       NewMongoStoryRepository(mgdb),
	}
}

// AutoMigrate creates the PostgreSQL tables.
func AutoMigrate(pgdb *gorm.DB) error {
	return pgdb.AutoMigrate(
		&models.User{},
		&models.Relation{},
		&models.TimelineEntry{},
		&models.SavedPost{},
		&models.Notification{},
	)
}

// PostClause matches posts satisfying every non-empty field.
type PostClause struct {
	Owners       []string
	Community    models.Community
	CommunityIDs []string
	Privacies    []models.Privacy
}

// PostFilter matches posts satisfying any of its clauses. A filter without
// clauses matches nothing.
type PostFilter struct {
	Any []PostClause
}

// Or appends a clause to the filter.
func (f PostFilter) Or(c PostClause) PostFilter {
	f.Any = append(f.Any, c)
	return f
}

// Empty reports whether the filter can match anything at all.
func (f PostFilter) Empty() bool { return len(f.Any) == 0 }

// PostUpdate carries the fields of a post that may change. Nil fields are left untouched.
type PostUpdate struct {
	Content       *string
	Media         []models.Media
	Privacy       *models.Privacy
	BlockComments *bool
}

// CommentFilter matches comments satisfying every non-empty field.
type CommentFilter struct {
	PostIDs     []string
	Owner       string
	Community   models.Community
	CommunityID string
}

func (f CommentFilter) empty() bool {
	return len(f.PostIDs) == 0 && f.Owner == "" && f.Community == "" && f.CommunityID == ""
}

// ErrEmptyFilter guards bulk operations against an unrestricted filter.
var ErrEmptyFilter = errors.New("refusing to run a bulk operation with an empty filter")

// PageUpdate carries the editable fields of a page.
type PageUpdate struct {
	Name        *string
	Description *string
}

// GroupUpdate carries the editable fields of a group.
type GroupUpdate struct {
	Name        *string
	Description *string
	Privacy     *models.GroupPrivacy
}

// ReactionStore is implemented by every collection whose documents carry reactions.
type ReactionStore interface {
	GetReactable(ctx context.Context, id string) (*models.Reactable, error)
	// ApplyReaction moves userID from the `from` bucket to the `to` bucket in a
	// single conditional update. Either kind may be empty. It returns false when
	// the document no longer matches the observed state.
	ApplyReaction(ctx context.Context, id, userID string, from, to models.ReactionKind) (bool, error)
	// PullReactor removes userID from every bucket of every document.
	PullReactor(ctx context.Context, userID string) error
}

// objectID parses a hex id; malformed ids can never exist so they map to ErrNotFound.
func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: invalid id %q", ErrNotFound, id)
	}
	return oid, nil
}

// objectIDs parses the valid hex ids and silently drops the rest.
func objectIDs(ids []string) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			out = append(out, oid)
		}
	}
	return out
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) || errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
