package models

import "fmt"

// ReactionKind is one of the reactions a user can leave on a post, comment or story.
type ReactionKind string

const (
	ReactionLike  ReactionKind = "like"
	ReactionLove  ReactionKind = "love"
	ReactionCare  ReactionKind = "care"
	ReactionHaha  ReactionKind = "haha"
	ReactionWow   ReactionKind = "wow"
	ReactionSad   ReactionKind = "sad"
	ReactionAngry ReactionKind = "angry"
)

// ReactionKinds lists every reaction kind in display order.
var ReactionKinds = []ReactionKind{
	ReactionLike, ReactionLove, ReactionCare, ReactionHaha, ReactionWow, ReactionSad, ReactionAngry,
}

// ParseReactionKind resolves a wire value into a ReactionKind.
func ParseReactionKind(s string) (ReactionKind, error) {
	for _, k := range ReactionKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("invalid reaction %q", s)
}

// ReactionBucket holds the users that reacted with one kind. Count mirrors len(Users).
type ReactionBucket struct {
	Count int      `json:"count" bson:"count"`
	Users []string `json:"users" bson:"users"`
}

// Reactions maps each kind to its bucket.
type Reactions map[ReactionKind]ReactionBucket

// NewReactions returns a Reactions value with an empty bucket for every kind.
func NewReactions() Reactions {
	r := make(Reactions, len(ReactionKinds))
	for _, k := range ReactionKinds {
		r[k] = ReactionBucket{Users: []string{}}
	}
	return r
}

// KindOf returns the kind userID currently reacted with, or "" when none.
func (r Reactions) KindOf(userID string) ReactionKind {
	for _, k := range ReactionKinds {
		for _, u := range r[k].Users {
			if u == userID {
				return k
			}
		}
	}
	return ""
}

// Consistent reports whether every bucket's count matches its user set and no
// user appears in more than one bucket.
func (r Reactions) Consistent() bool {
	seen := make(map[string]bool)
	for _, b := range r {
		if b.Count != len(b.Users) {
			return false
		}
		for _, u := range b.Users {
			if seen[u] {
				return false
			}
			seen[u] = true
		}
	}
	return true
}

// Reactable is the projection of a post, comment or story needed to toggle a reaction.
type Reactable struct {
	Owner     string
	Reactions Reactions
}
