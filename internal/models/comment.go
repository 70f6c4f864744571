package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Comment represents a comment on a post stored in MongoDB
type Comment struct {
	ID          primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Post        string             `json:"post" bson:"post"` // hex id of the commented post
	Owner       string             `json:"owner" bson:"owner"`
	Content     string             `json:"content" bson:"content"`
	Media       []Media            `json:"media" bson:"media"`
	Reactions   Reactions          `json:"reactions" bson:"reactions"`
	Community   Community          `json:"community" bson:"community"`
	CommunityID string             `json:"communityId,omitempty" bson:"communityId,omitempty"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
}

// CommentRef is the part of a comment the cascade needs.
type CommentRef struct {
	ID    string
	Post  string
	Media []Media
}

// CreateCommentRequest defines the request body for creating a new comment
type CreateCommentRequest struct {
	Content string  `json:"content" validate:"max=2000"`
	Media   []Media `json:"media,omitempty" validate:"omitempty,max=4,dive"`
}
