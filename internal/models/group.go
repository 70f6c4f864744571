package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Group is a community whose posts may be restricted to its members.
type Group struct {
	ID             primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Owner          string             `json:"owner" bson:"owner"`
	Name           string             `json:"name" bson:"name"`
	Description    string             `json:"description" bson:"description"`
	Privacy        GroupPrivacy       `json:"privacy" bson:"privacy"`
	MembersCount   int64              `json:"membersCount" bson:"membersCount"`
	ProfilePicture *Media             `json:"profilePicture,omitempty" bson:"profilePicture,omitempty"`
	CoverPicture   *Media             `json:"coverPicture,omitempty" bson:"coverPicture,omitempty"`
	CreatedAt      time.Time          `json:"createdAt" bson:"createdAt"`

	// Materialised from the relation store.
	Admins       []string      `json:"admins" bson:"-"`
	JoinRequests []JoinRequest `json:"joinRequests,omitempty" bson:"-"`
}

// JoinRequest is a pending request to join a members_only group.
type JoinRequest struct {
	RequestID string `json:"requestId"`
	User      string `json:"user"`
}

// CreateGroupRequest defines the request body for creating a group
type CreateGroupRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Description string `json:"description" validate:"max=1000"`
	Privacy     string `json:"privacy" validate:"omitempty,oneof=public members_only"`
}

// UpdateGroupRequest defines the request body for editing a group
type UpdateGroupRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=1000"`
	Privacy     string  `json:"privacy,omitempty" validate:"omitempty,oneof=public members_only"`
}
