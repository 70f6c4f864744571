package models

import "time"

// Notification is one entry of a user's inbox (PostgreSQL)
type Notification struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	RecipientID string    `json:"-" gorm:"size:24;index"`
	Icon        string    `json:"icon" gorm:"size:30"`
	Content     string    `json:"content"`
	URL         string    `json:"url"`
	HasRead     bool      `json:"hasRead" gorm:"default:false;index"`
	CreatedAt   time.Time `json:"createdAt" gorm:"index"`
}

// Notification icons.
const (
	IconFriendRequest = "friend_request"
	IconFriendAccept  = "friend_accept"
	IconReaction      = "reaction"
	IconShare         = "share"
	IconComment       = "comment"
	IconGroupRequest  = "group_request"
	IconGroupAccept   = "group_accept"
	IconGroupExpel    = "group_expel"
)
