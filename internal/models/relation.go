package models

import "time"

// RelationKind names the relation a subject holds towards an object.
type RelationKind string

const (
	RelFriend           RelationKind = "friend"         // user -> user, stored in both directions
	RelFriendRequest    RelationKind = "friend_request" // requester -> target
	RelPageOwner        RelationKind = "page_owner"
	RelPageAdmin        RelationKind = "page_admin"
	RelPageFollower     RelationKind = "page_follower"
	RelGroupOwner       RelationKind = "group_owner"
	RelGroupAdmin       RelationKind = "group_admin"
	RelGroupMember      RelationKind = "group_member"
	RelGroupJoinRequest RelationKind = "group_join_request"
)

// Relation is one (subject, kind, object) edge. It replaces the ID lists
// that used to be stored on both sides of a relationship.
type Relation struct {
	ID        uint         `json:"id" gorm:"primaryKey"`
	SubjectID string       `json:"subjectId" gorm:"size:24;uniqueIndex:idx_relation_edge;index:idx_relation_subject"`
	Kind      RelationKind `json:"kind" gorm:"size:32;uniqueIndex:idx_relation_edge;index:idx_relation_subject;index:idx_relation_object"`
	ObjectID  string       `json:"objectId" gorm:"size:24;uniqueIndex:idx_relation_edge;index:idx_relation_object"`
	CreatedAt time.Time    `json:"createdAt"`
}

// Edge builds a relation value.
func Edge(subject string, kind RelationKind, object string) Relation {
	return Relation{SubjectID: subject, Kind: kind, ObjectID: object}
}

// FriendPair returns both directed friend edges between a and b.
func FriendPair(a, b string) []Relation {
	return []Relation{Edge(a, RelFriend, b), Edge(b, RelFriend, a)}
}

// RelationViolation describes an edge that breaks a pairing rule.
type RelationViolation struct {
	Edge   Relation
	Reason string
}

// CheckRelations verifies the pairing rules over a full set of edges:
// friend edges exist in both directions, a friend pair carries no pending
// request in either direction, and nobody is an admin of a page or group
// they own.
func CheckRelations(edges []Relation) []RelationViolation {
	type key struct {
		s    string
		kind RelationKind
		o    string
	}
	set := make(map[key]bool, len(edges))
	for _, e := range edges {
		set[key{e.SubjectID, e.Kind, e.ObjectID}] = true
	}

	var out []RelationViolation
	for _, e := range edges {
		switch e.Kind {
		case RelFriend:
			if !set[key{e.ObjectID, RelFriend, e.SubjectID}] {
				out = append(out, RelationViolation{e, "missing reverse friend edge"})
			}
			if set[key{e.SubjectID, RelFriendRequest, e.ObjectID}] || set[key{e.ObjectID, RelFriendRequest, e.SubjectID}] {
				out = append(out, RelationViolation{e, "friends with a pending request"})
			}
		case RelFriendRequest:
			if e.SubjectID == e.ObjectID {
				out = append(out, RelationViolation{e, "request to self"})
			}
		case RelPageAdmin:
			if set[key{e.SubjectID, RelPageOwner, e.ObjectID}] {
				out = append(out, RelationViolation{e, "page owner listed as admin"})
			}
		case RelGroupAdmin:
			if set[key{e.SubjectID, RelGroupOwner, e.ObjectID}] {
				out = append(out, RelationViolation{e, "group owner listed as admin"})
			}
		}
	}
	return out
}
