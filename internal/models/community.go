package models

import "fmt"

// Community is the publishing context of a post or comment.
type Community string

const (
	CommunityPersonal Community = "personal"
	CommunityPage     Community = "page"
	CommunityGroup    Community = "group"
)

// ParseCommunity resolves a wire value into a Community.
func ParseCommunity(s string) (Community, error) {
	switch c := Community(s); c {
	case CommunityPersonal, CommunityPage, CommunityGroup:
		return c, nil
	case "":
		return CommunityPersonal, nil
	}
	return "", fmt.Errorf("invalid community %q", s)
}

// IsCommunity reports whether c is a page or a group.
func (c Community) IsCommunity() bool {
	return c == CommunityPage || c == CommunityGroup
}

// Privacy is the post-level visibility.
type Privacy string

const (
	PrivacyPublic      Privacy = "public"
	PrivacyFriendsOnly Privacy = "friends_only"
	PrivacyOnlyMe      Privacy = "only_me"
)

// ParsePrivacy resolves a wire value into a Privacy. Empty means public.
func ParsePrivacy(s string) (Privacy, error) {
	switch p := Privacy(s); p {
	case PrivacyPublic, PrivacyFriendsOnly, PrivacyOnlyMe:
		return p, nil
	case "":
		return PrivacyPublic, nil
	}
	return "", fmt.Errorf("invalid privacy %q", s)
}

// GroupPrivacy controls who can read a group's posts.
type GroupPrivacy string

const (
	GroupPublic      GroupPrivacy = "public"
	GroupMembersOnly GroupPrivacy = "members_only"
)

// ParseGroupPrivacy resolves a wire value into a GroupPrivacy. Empty means public.
func ParseGroupPrivacy(s string) (GroupPrivacy, error) {
	switch p := GroupPrivacy(s); p {
	case GroupPublic, GroupMembersOnly:
		return p, nil
	case "":
		return GroupPublic, nil
	}
	return "", fmt.Errorf("invalid group privacy %q", s)
}

// PictureKind selects which picture of a profile is changed.
type PictureKind string

const (
	PictureProfile PictureKind = "profile"
	PictureCover   PictureKind = "cover"
)

// ParsePictureKind resolves a wire value into a PictureKind.
func ParsePictureKind(s string) (PictureKind, error) {
	switch k := PictureKind(s); k {
	case PictureProfile, PictureCover:
		return k, nil
	}
	return "", fmt.Errorf("invalid picture type %q", s)
}

// Media is a reference to an object held by the media service.
type Media struct {
	PublicID string `json:"public_id" bson:"public_id"`
	URL      string `json:"secure_url" bson:"secure_url"`
}

// MediaIDs returns the public ids of the given media, skipping empty ones.
func MediaIDs(media ...Media) []string {
	ids := make([]string, 0, len(media))
	for _, m := range media {
		if m.PublicID != "" {
			ids = append(ids, m.PublicID)
		}
	}
	return ids
}

// PictureIDs returns the media ids of a profile and a cover picture.
func PictureIDs(profile, cover *Media) []string {
	var ids []string
	for _, m := range []*Media{profile, cover} {
		if m != nil && m.PublicID != "" {
			ids = append(ids, m.PublicID)
		}
	}
	return ids
}
