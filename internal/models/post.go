package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ShareData counts the users that shared a post onto their timeline.
type ShareData struct {
	Count int      `json:"count" bson:"count"`
	Users []string `json:"users" bson:"users"`
}

// Post represents a post stored in MongoDB
type Post struct {
	ID            primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Owner         string             `json:"owner" bson:"owner"`
	Content       string             `json:"content" bson:"content"`
	Community     Community          `json:"community" bson:"community"`
	CommunityID   string             `json:"communityId,omitempty" bson:"communityId,omitempty"`
	Privacy       Privacy            `json:"privacy" bson:"privacy"`
	Reactions     Reactions          `json:"reactions" bson:"reactions"`
	ShareData     ShareData          `json:"shareData" bson:"shareData"`
	Media         []Media            `json:"media" bson:"media"`
	CommentsCount int                `json:"commentsCount" bson:"commentsCount"`
	BlockComments bool               `json:"blockComments" bson:"blockComments"`
	CreatedAt     time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt" bson:"updatedAt"`

	// Per-viewer flags, never persisted.
	IsShared     bool       `json:"isShared" bson:"-"`
	IsInBookMark bool       `json:"isInBookMark" bson:"-"`
	SharedBy     string     `json:"sharedBy,omitempty" bson:"-"`
	ShareDate    *time.Time `json:"shareDate,omitempty" bson:"-"`
}

// ScopeValid reports whether the community/communityId/privacy combination
// is allowed: communityId is set iff the post belongs to a community, and
// community posts are always public.
func ScopeValid(community Community, communityID string, privacy Privacy) bool {
	if community == CommunityPersonal {
		return communityID == ""
	}
	return communityID != "" && privacy == PrivacyPublic
}

// PostRef is the part of a post the cascade needs to clean up after it.
type PostRef struct {
	ID    string
	Owner string
	Media []Media
}

// CreatePostRequest defines the request body for creating a new post
type CreatePostRequest struct {
	Content       string  `json:"content" validate:"max=5000"`
	Media         []Media `json:"media,omitempty" validate:"omitempty,max=20,dive"`
	Community     string  `json:"community" validate:"omitempty,oneof=personal page group"`
	CommunityID   string  `json:"communityId,omitempty"`
	Privacy       string  `json:"privacy" validate:"omitempty,oneof=public friends_only only_me"`
	BlockComments bool    `json:"blockComments"`
}

// UpdatePostRequest defines the request body for updating an existing post
type UpdatePostRequest struct {
	Content       *string  `json:"content,omitempty" validate:"omitempty,max=5000"`
	Media         []Media  `json:"media,omitempty" validate:"omitempty,max=20,dive"`
	DeletedMedia  []string `json:"deletedMedia,omitempty"`
	Privacy       string   `json:"privacy,omitempty" validate:"omitempty,oneof=public friends_only only_me"`
	BlockComments *bool    `json:"blockComments,omitempty"`
}
