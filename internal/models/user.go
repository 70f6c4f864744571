package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// User is the identity document stored in PostgreSQL. Relation lists
// (friends, memberships, follows) live in the relations table.
type User struct {
	ID             string    `json:"id" gorm:"primaryKey;size:24"`
	Username       string    `json:"username" gorm:"size:50;uniqueIndex"`
	Email          string    `json:"email" gorm:"size:254;uniqueIndex"`
	FirstName      string    `json:"firstName" gorm:"size:50"`
	LastName       string    `json:"lastName" gorm:"size:50"`
	Bio            string    `json:"bio"`
	Password       string    `json:"-"`
	FirebaseUID    *string   `json:"-" gorm:"uniqueIndex"`
	ProfilePicture *Media    `json:"profilePicture,omitempty" gorm:"serializer:json"`
	CoverPicture   *Media    `json:"coverPicture,omitempty" gorm:"serializer:json"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Profile is a user together with the relation lists derived for it.
type Profile struct {
	User
	FriendsList     []string `json:"friendsList"`
	FriendsRequests []string `json:"friendsRequests"`
	SentRequests    []string `json:"sentRequests"`
	OwnedPages      []string `json:"ownedPages"`
	AdminPages      []string `json:"adminPages"`
	FollowedPages   []string `json:"followedPages"`
	OwnedGroups     []string `json:"ownedGroups"`
	AdminGroups     []string `json:"adminGroups"`
	JoinedGroups    []string `json:"joinedGroups"`
}

// RegisterUserRequest defines the request body for local registration
type RegisterUserRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=50,alphanum"`
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"firstName" validate:"required,min=1,max=50"`
	LastName  string `json:"lastName" validate:"required,min=1,max=50"`
	Password  string `json:"password" validate:"required,min=8"`
}

// LoginUserRequest defines the request body for logging in with email or username
type LoginUserRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UpdateUserRequest defines the request body for changing user data
type UpdateUserRequest struct {
	FirstName   *string `json:"firstName,omitempty" validate:"omitempty,min=1,max=50"`
	LastName    *string `json:"lastName,omitempty" validate:"omitempty,min=1,max=50"`
	Bio         *string `json:"bio,omitempty" validate:"omitempty,max=500"`
	Email       *string `json:"email,omitempty" validate:"omitempty,email"`
	Password    *string `json:"password,omitempty" validate:"omitempty,min=8"`
	OldPassword string  `json:"oldPassword,omitempty"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}
