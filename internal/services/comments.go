package services

import (
	"context"
	"errors"
	"strings"

	"github.com/anonto42/circles/backend/internal/apperr"
	"github.com/anonto42/circles/backend/internal/media"
	"github.com/anonto42/circles/backend/internal/models"
	"github.com/anonto42/circles/backend/internal/repositories"
	"github.com/sirupsen/logrus"
)

// CommentPage is one page of a post's comments, oldest first.
type CommentPage struct {
	Comments    []models.Comment `json:"comments"`
	IsFinalPage bool             `json:"isFinalPage"`
}

// CommentService adds, lists and deletes comments.
type CommentService struct {
	store   *repositories.Store
	privacy *PrivacyGuard
	notify  *NotificationFanout
	media   media.Service
	log     logrus.FieldLogger
}

// NewCommentService creates a CommentService.
func NewCommentService(store *repositories.Store, privacy *PrivacyGuard, notify *NotificationFanout, media media.Service, log logrus.FieldLogger) *CommentService {
	return &CommentService{store: store, privacy: privacy, notify: notify, media: media, log: log}
}

// AddComment comments on a post the user may read.
func (s *CommentService) AddComment(ctx context.Context, user, postID string, req models.CreateCommentRequest) (*models.Comment, error) {
	if strings.TrimSpace(req.Content) == "" && len(req.Media) == 0 {
		return nil, apperr.BadUserInput("a comment needs content or media")
	}
	if err := ownMedia(user, req.Media...); err != nil {
		return nil, err
	}
	post, err := s.store.Posts.GetPostByID(ctx, postID)
	if err != nil {
		return nil, missing(err, "post not found")
	}
	if err := s.privacy.CheckPost(ctx, user, post); err != nil {
		return nil, err
	}
	if post.BlockComments {
		return nil, apperr.BadRequest("comments are turned off for this post")
	}

	comment := &models.Comment{
		Post:        postID,
		Owner:       user,
		Content:     req.Content,
		Media:       req.Media,
		Community:   post.Community,
		CommunityID: post.CommunityID,
	}
	if err := s.store.Comments.CreateComment(ctx, comment); err != nil {
		return nil, err
	}
	if err := s.store.Posts.IncrementCommentsCount(ctx, postID, 1); err != nil {
		s.log.WithError(err).WithField("post", postID).Warn("comments count not incremented")
	}
	if post.Owner != user {
		s.notify.Notify(ctx, post.Owner, Notice{
			Icon:    models.IconComment,
			Content: displayName(ctx, s.store.Users, user) + " commented on your post",
			URL:     "/posts/" + postID,
		})
	}
	return comment, nil
}

// DeleteComment removes a comment on behalf of its owner or the post owner.
func (s *CommentService) DeleteComment(ctx context.Context, actor, commentID string) error {
	comment, err := s.store.Comments.GetCommentByID(ctx, commentID)
	if err != nil {
		return missing(err, "comment not found")
	}
	if comment.Owner != actor {
		post, err := s.store.Posts.GetPostByID(ctx, comment.Post)
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			return apperr.Forbidden("you cannot delete this comment")
		case err != nil:
			return err
		case post.Owner != actor:
			return apperr.Forbidden("you cannot delete this comment")
		}
	}
	if err := s.store.Comments.DeleteComment(ctx, commentID); err != nil {
		return missing(err, "comment not found")
	}

	counts, err := s.store.Comments.CountByPosts(ctx, []string{comment.Post})
	if err == nil {
		err = s.store.Posts.SetCommentsCount(ctx, comment.Post, counts[comment.Post])
	}
	if err != nil {
		s.log.WithError(err).WithField("post", comment.Post).Warn("comments count not recomputed")
	}
	if ids := models.MediaIDs(comment.Media...); len(ids) > 0 && s.media != nil {
		if err := s.media.Delete(ctx, ids); err != nil {
			s.log.WithError(err).WithField("comment", commentID).Warn("deleting comment media")
		}
	}
	return nil
}

// ListComments returns one page of the comments of a post the viewer may read.
func (s *CommentService) ListComments(ctx context.Context, viewer, postID string, p Pagination) (*CommentPage, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	post, err := s.store.Posts.GetPostByID(ctx, postID)
	if err != nil {
		return nil, missing(err, "post not found")
	}
	if err := s.privacy.CheckPost(ctx, viewer, post); err != nil {
		return nil, err
	}
	comments, total, err := s.store.Comments.ListByPost(ctx, postID, p.skip(), int64(p.Limit))
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []models.Comment{}
	}
	return &CommentPage{Comments: comments, IsFinalPage: p.isFinal(total)}, nil
}
