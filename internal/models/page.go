package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Page is a publicly listable community stored in MongoDB
type Page struct {
	ID             primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Owner          string             `json:"owner" bson:"owner"`
	Name           string             `json:"name" bson:"name"`
	Description    string             `json:"description" bson:"description"`
	FollowersCount int64              `json:"followersCount" bson:"followersCount"`
	ProfilePicture *Media             `json:"profilePicture,omitempty" bson:"profilePicture,omitempty"`
	CoverPicture   *Media             `json:"coverPicture,omitempty" bson:"coverPicture,omitempty"`
	CreatedAt      time.Time          `json:"createdAt" bson:"createdAt"`

	// Admins is materialised from the relation store.
	Admins []string `json:"admins" bson:"-"`
}

// CreatePageRequest defines the request body for creating a page
type CreatePageRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Description string `json:"description" validate:"max=1000"`
}

// UpdatePageRequest defines the request body for editing a page
type UpdatePageRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=1000"`
}
