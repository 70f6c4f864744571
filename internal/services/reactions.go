package services

import (
	"context"
	"time"

	"github.com/anonto42/circles/backend/internal/apperr"
	"github.com/anonto42/circles/backend/internal/models"
	"github.com/anonto42/circles/backend/internal/repositories"
)

// ReactionTarget names the kind of document a reaction is left on.
type ReactionTarget string

const (
	TargetPost    ReactionTarget = "post"
	TargetComment ReactionTarget = "comment"
	TargetStory   ReactionTarget = "story"
)

// ParseReactionTarget resolves a wire value into a ReactionTarget. Empty means post.
func ParseReactionTarget(s string) (ReactionTarget, error) {
	switch t := ReactionTarget(s); t {
	case TargetPost, TargetComment, TargetStory:
		return t, nil
	case "":
		return TargetPost, nil
	}
	return "", apperr.BadUserInput("invalid reaction target %q", s)
}

// ReactionResult is the state of the caller's reaction after a toggle.
type ReactionResult struct {
	Previous  models.ReactionKind `json:"previous,omitempty"`
	Current   models.ReactionKind `json:"current,omitempty"`
	Reactions models.Reactions    `json:"reactions"`
}

// ReactionLedger toggles reactions, shares and bookmarks.
type ReactionLedger struct {
	store   *repositories.Store
	privacy *PrivacyGuard
	notify  *NotificationFanout
	now     func() time.Time
}

// NewReactionLedger creates a ReactionLedger.
func NewReactionLedger(store *repositories.Store, privacy *PrivacyGuard, notify *NotificationFanout, now func() time.Time) *ReactionLedger {
	return &ReactionLedger{store: store, privacy: privacy, notify: notify, now: now}
}

// reactable checks that user may react on the target and returns its store
// and the URL used in notifications.
func (l *ReactionLedger) reactable(ctx context.Context, user string, target ReactionTarget, id string) (repositories.ReactionStore, string, error) {
	switch target {
	case TargetPost:
		post, err := l.store.Posts.GetPostByID(ctx, id)
		if err != nil {
			return nil, "", missing(err, "post not found")
		}
		if err := l.privacy.CheckPost(ctx, user, post); err != nil {
			return nil, "", err
		}
		return l.store.Posts, "/posts/" + id, nil
	case TargetComment:
		comment, err := l.store.Comments.GetCommentByID(ctx, id)
		if err != nil {
			return nil, "", missing(err, "comment not found")
		}
		post, err := l.store.Posts.GetPostByID(ctx, comment.Post)
		if err != nil {
			return nil, "", missing(err, "post not found")
		}
		if err := l.privacy.CheckPost(ctx, user, post); err != nil {
			return nil, "", err
		}
		return l.store.Comments, "/posts/" + comment.Post, nil
	case TargetStory:
		story, err := l.store.Stories.GetStoryByID(ctx, id)
		if err != nil {
			return nil, "", missing(err, "story not found")
		}
		if !story.ExpiredData.After(l.now()) {
			return nil, "", apperr.NotFound("story not found")
		}
		if story.Owner != user {
			friends, err := l.privacy.members.AreFriends(ctx, user, story.Owner)
			if err != nil {
				return nil, "", err
			}
			if !friends {
				return nil, "", apperr.Forbidden("this story is available to friends only")
			}
		}
		return l.store.Stories, "/stories/" + id, nil
	}
	return nil, "", apperr.BadUserInput("invalid reaction target %q", target)
}

// ToggleReaction sets, switches or removes user's reaction on a post,
// comment or story. Reacting with the current kind removes it.
func (l *ReactionLedger) ToggleReaction(ctx context.Context, user string, target ReactionTarget, id string, kind models.ReactionKind) (*ReactionResult, error) {
	if _, err := models.ParseReactionKind(string(kind)); err != nil {
		return nil, apperr.BadUserInput("invalid reaction %q", kind)
	}
	rs, url, err := l.reactable(ctx, user, target, id)
	if err != nil {
		return nil, err
	}
	doc, err := rs.GetReactable(ctx, id)
	if err != nil {
		return nil, missing(err, "%s not found", target)
	}

	from := doc.Reactions.KindOf(user)
	to := kind
	if from == kind {
		to = ""
	}
	ok, err := rs.ApplyReaction(ctx, id, user, from, to)
	if err != nil {
		return nil, missing(err, "%s not found", target)
	}
	if !ok {
		reactionConflicts.Inc()
		return nil, apperr.BadRequest("reaction state changed, retry")
	}

	if from == "" && doc.Owner != user {
		l.notify.Notify(ctx, doc.Owner, Notice{
			Icon:    models.IconReaction,
			Content: displayName(ctx, l.store.Users, user) + " reacted to your " + string(target),
			URL:     url,
		})
	}

	result := &ReactionResult{Previous: from, Current: to, Reactions: doc.Reactions}
	if after, err := rs.GetReactable(ctx, id); err == nil {
		result.Reactions = after.Reactions
	}
	return result, nil
}

// ToggleSharedPost shares a post onto user's timeline, or removes the share.
// It returns whether the post is shared afterwards.
func (l *ReactionLedger) ToggleSharedPost(ctx context.Context, user, postID string) (bool, error) {
	post, err := l.store.Posts.GetPostByID(ctx, postID)
	if err != nil {
		return false, missing(err, "post not found")
	}
	shared, err := l.store.Timeline.IsShared(ctx, user, postID)
	if err != nil {
		return false, err
	}
	if shared {
		if _, err := l.store.Timeline.RemoveEntry(ctx, user, postID); err != nil {
			return false, err
		}
		if _, err := l.store.Posts.ApplyShare(ctx, postID, user, false); err != nil {
			return false, err
		}
		return false, nil
	}

	if err := l.privacy.CheckPost(ctx, user, post); err != nil {
		return false, err
	}
	if post.Owner == user {
		return false, apperr.BadRequest("you cannot share your own post")
	}
	if post.Privacy != models.PrivacyPublic {
		return false, apperr.BadRequest("only public posts can be shared")
	}
	if post.Community == models.CommunityGroup {
		group, err := l.store.Groups.GetGroupByID(ctx, post.CommunityID)
		if err != nil {
			return false, missing(err, "group not found")
		}
		if group.Privacy == models.GroupMembersOnly {
			return false, apperr.BadRequest("posts of members only groups cannot be shared")
		}
	}

	err = l.store.Timeline.AddEntry(ctx, &models.TimelineEntry{
		UserID:    user,
		PostID:    postID,
		ShareDate: l.now(),
		Privacy:   models.PrivacyPublic,
		Community: post.Community,
		Shared:    true,
	})
	if err != nil {
		return false, err
	}
	if _, err := l.store.Posts.ApplyShare(ctx, postID, user, true); err != nil {
		// undo the timeline entry so both sides stay paired
		_, _ = l.store.Timeline.RemoveEntry(ctx, user, postID)
		return false, err
	}
	l.notify.Notify(ctx, post.Owner, Notice{
		Icon:    models.IconShare,
		Content: displayName(ctx, l.store.Users, user) + " shared your post",
		URL:     "/posts/" + postID,
	})
	return true, nil
}

// ToggleBookmark saves or unsaves a post and returns whether it is saved afterwards.
func (l *ReactionLedger) ToggleBookmark(ctx context.Context, user, postID string) (bool, error) {
	saved, err := l.store.SavedPosts.IsPostSaved(ctx, user, postID)
	if err != nil {
		return false, err
	}
	if saved {
		return false, missing(l.store.SavedPosts.UnsavePost(ctx, user, postID), "bookmark not found")
	}
	post, err := l.store.Posts.GetPostByID(ctx, postID)
	if err != nil {
		return false, missing(err, "post not found")
	}
	if err := l.privacy.CheckPost(ctx, user, post); err != nil {
		return false, err
	}
	if err := l.store.SavedPosts.SavePost(ctx, &models.SavedPost{UserID: user, PostID: postID}); err != nil {
		return false, err
	}
	return true, nil
}

// ListBookmarks returns one page of user's saved posts, most recent first.
// Posts that were deleted or became invisible are left out of the page.
func (l *ReactionLedger) ListBookmarks(ctx context.Context, user string, p Pagination) (*FeedPage, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	saved, total, err := l.store.SavedPosts.GetSavedPostsByUser(ctx, user, p.skip(), int64(p.Limit))
	if err != nil {
		return nil, err
	}
	if len(saved) == 0 {
		return &FeedPage{Posts: []models.Post{}, IsFinalPage: p.isFinal(total)}, nil
	}
	ids := make([]string, len(saved))
	for i, s := range saved {
		ids[i] = s.PostID
	}
	found, err := l.store.Posts.GetPostsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Post, len(found))
	for _, post := range found {
		byID[post.ID.Hex()] = post
	}

	posts := make([]models.Post, 0, len(saved))
	for _, id := range ids {
		post, ok := byID[id]
		if !ok {
			continue
		}
		if err := l.privacy.CheckPost(ctx, user, &post); err != nil {
			if apperr.Is(err, apperr.KindForbidden) || apperr.Is(err, apperr.KindNotFound) {
				continue
			}
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := annotatePosts(ctx, l.store, user, posts); err != nil {
		return nil, err
	}
	return &FeedPage{Posts: posts, IsFinalPage: p.isFinal(total)}, nil
}
