package services

import (
	"context"
	"strings"
	"time"

	"github.com/anonto42/circles/backend/internal/apperr"
	"github.com/anonto42/circles/backend/internal/media"
	"github.com/anonto42/circles/backend/internal/models"
	"github.com/anonto42/circles/backend/internal/repositories"
	"github.com/sirupsen/logrus"
)

// SweepReport summarises one expiry sweep.
type SweepReport struct {
	Stories     int  `json:"stories"`
	MediaFailed bool `json:"mediaFailed,omitempty"`
}

// StoryService manages expiring stories.
type StoryService struct {
	store *repositories.Store
	media media.Service
	ttl   time.Duration
	now   func() time.Time
	log   logrus.FieldLogger
}

// NewStoryService creates a StoryService. Stories expire ttl after creation.
func NewStoryService(store *repositories.Store, media media.Service, ttl time.Duration, now func() time.Time, log logrus.FieldLogger) *StoryService {
	return &StoryService{store: store, media: media, ttl: ttl, now: now, log: log}
}

// AddStory publishes a story for owner.
func (s *StoryService) AddStory(ctx context.Context, owner string, req models.CreateStoryRequest) (*models.Story, error) {
	if strings.TrimSpace(req.Caption) == "" && (req.Media == nil || req.Media.PublicID == "") {
		return nil, apperr.BadUserInput("a story needs a caption or media")
	}
	if req.Media != nil {
		if err := ownMedia(owner, *req.Media); err != nil {
			return nil, err
		}
	}
	now := s.now()
	story := &models.Story{
		Owner:       owner,
		Media:       req.Media,
		Caption:     req.Caption,
		ExpiredData: now.Add(s.ttl),
		CreatedAt:   now,
	}
	if err := s.store.Stories.CreateStory(ctx, story); err != nil {
		return nil, err
	}
	return story, nil
}

// DeleteStory removes a story of actor together with its media.
func (s *StoryService) DeleteStory(ctx context.Context, actor, storyID string) error {
	story, err := s.store.Stories.GetStoryByID(ctx, storyID)
	if err != nil {
		return missing(err, "story not found")
	}
	if story.Owner != actor {
		return apperr.Forbidden("only the owner can delete this story")
	}
	if err := s.store.Stories.DeleteStory(ctx, storyID); err != nil {
		return missing(err, "story not found")
	}
	if ids := story.MediaIDs(); len(ids) > 0 && s.media != nil {
		if err := s.media.Delete(ctx, ids); err != nil {
			s.log.WithError(err).WithField("story", storyID).Warn("deleting story media")
		}
	}
	return nil
}

// ListStories returns the unexpired stories of viewer and their friends.
func (s *StoryService) ListStories(ctx context.Context, viewer string) ([]models.Story, error) {
	friends, err := s.store.Relations.Objects(ctx, viewer, models.RelFriend)
	if err != nil {
		return nil, err
	}
	stories, err := s.store.Stories.ListActiveByOwners(ctx, append([]string{viewer}, friends...), s.now())
	if err != nil {
		return nil, err
	}
	if stories == nil {
		stories = []models.Story{}
	}
	return stories, nil
}

// SweepExpired deletes every story whose expiry is at or before now, then its media.
func (s *StoryService) SweepExpired(ctx context.Context, now time.Time) (*SweepReport, error) {
	expired, err := s.store.Stories.FindExpired(ctx, now)
	if err != nil {
		return nil, err
	}
	report := &SweepReport{}
	if len(expired) == 0 {
		return report, nil
	}

	ids := make([]string, len(expired))
	var mediaIDs []string
	for i, st := range expired {
		ids[i] = st.ID.Hex()
		mediaIDs = append(mediaIDs, st.MediaIDs()...)
	}
	if err := s.store.Stories.DeleteStories(ctx, ids); err != nil {
		return nil, err
	}
	report.Stories = len(ids)
	storiesSwept.Add(float64(len(ids)))

	if len(mediaIDs) > 0 && s.media != nil {
		if err := s.media.Delete(ctx, mediaIDs); err != nil {
			report.MediaFailed = true
			s.log.WithError(err).WithField("media", len(mediaIDs)).Warn("deleting media of expired stories")
		}
	}
	s.log.WithField("stories", report.Stories).Info("expired stories swept")
	return report, nil
}
