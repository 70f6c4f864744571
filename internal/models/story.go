package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Story represents a user's expiring story stored in MongoDB
type Story struct {
	ID          primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Owner       string             `json:"owner" bson:"owner"`
	Media       *Media             `json:"media,omitempty" bson:"media,omitempty"`
	Caption     string             `json:"caption" bson:"caption"`
	Reactions   Reactions          `json:"reactions" bson:"reactions"`
	ExpiredData time.Time          `json:"expiredData" bson:"expiredData"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
}

// MediaIDs returns the media ids attached to the story.
func (s *Story) MediaIDs() []string {
	if s.Media == nil {
		return nil
	}
	return MediaIDs(*s.Media)
}

// CreateStoryRequest defines the request body for creating a story
type CreateStoryRequest struct {
	Caption string `json:"caption" validate:"max=500"`
	Media   *Media `json:"media,omitempty"`
}
