// Package services implements the social-graph rules: who may see what,
// how relations change in pairs, how deletions cascade and how feeds are built.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/anonto42/circles/backend/internal/apperr"
	"github.com/anonto42/circles/backend/internal/auth"
	"github.com/anonto42/circles/backend/internal/media"
	"github.com/anonto42/circles/backend/internal/models"
	"github.com/anonto42/circles/backend/internal/repositories"
	"github.com/sirupsen/logrus"
)

// Deps are the collaborators shared by every service.
type Deps struct {
	Store    *repositories.Store
	Media    media.Service
	Log      logrus.FieldLogger
	Issuer   *auth.Issuer
	Firebase auth.TokenVerifier
	StoryTTL time.Duration
	Now      func() time.Time
}

// Services bundles the domain components.
type Services struct {
	Members       *MembershipResolver
	Privacy       *PrivacyGuard
	Notifications *NotificationFanout
	Relations     *RelationMutator
	Cascade       *CascadeDeletionEngine
	Feed          *FeedAggregator
	Reactions     *ReactionLedger
	Posts         *PostService
	Comments      *CommentService
	Communities   *CommunityService
	Users         *UserService
	Stories       *StoryService
	Reconciler    *Reconciler
}

// New wires the services over d.
func New(d Deps) *Services {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.StoryTTL == 0 {
		d.StoryTTL = 24 * time.Hour
	}
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	s := d.Store

	members := NewMembershipResolver(s.Relations)
	privacy := NewPrivacyGuard(members, s.Groups)
	notify := NewNotificationFanout(s.Notifications, d.Log)
	cascade := NewCascadeDeletionEngine(s, d.Media, d.Log)
	reconciler := NewReconciler(s, d.Log)

	return &Services{
		Members:       members,
		Privacy:       privacy,
		Notifications: notify,
		Relations:     NewRelationMutator(s, members, notify, cascade, d.Log),
		Cascade:       cascade,
		Feed:          NewFeedAggregator(s, privacy, d.Log),
		Reactions:     NewReactionLedger(s, privacy, notify, d.Now),
		Posts:         NewPostService(s, members, privacy, cascade, d.Media, d.Log),
		Comments:      NewCommentService(s, privacy, notify, d.Media, d.Log),
		Communities:   NewCommunityService(s, members, cascade, d.Media, d.Log),
		Users:         NewUserService(s, d.Issuer, d.Firebase, cascade, d.Media, d.Log),
		Stories:       NewStoryService(s, d.Media, d.StoryTTL, d.Now, d.Log),
		Reconciler:    reconciler,
	}
}

// MaxLimit bounds the page size of every listing.
const MaxLimit = 50

// Pagination selects one page of a listing. Pages start at 1.
type Pagination struct {
	Page  int `query:"page"`
	Limit int `query:"limit"`
}

func (p Pagination) validate() error {
	if p.Page < 1 {
		return apperr.BadUserInput("page must be at least 1")
	}
	if p.Limit < 1 || p.Limit > MaxLimit {
		return apperr.BadUserInput("limit must be between 1 and %d", MaxLimit)
	}
	return nil
}

func (p Pagination) skip() int64 { return int64((p.Page - 1) * p.Limit) }

// isFinal reports whether no page follows p for total matching items.
func (p Pagination) isFinal(total int64) bool {
	return int64(p.Page)*int64(p.Limit) >= total
}

// missing maps repositories.ErrNotFound to a NotFound error with the given message.
func missing(err error, format string, args ...any) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return apperr.NotFound(format, args...)
	}
	return err
}

// ownMedia rejects media that actor did not upload into their own folder.
func ownMedia(actor string, items ...models.Media) error {
	for _, m := range items {
		if m.PublicID != "" && !media.InFolder(m.PublicID, actor) {
			return apperr.BadUserInput("media %s was not uploaded by you", m.PublicID)
		}
	}
	return nil
}

// displayName returns the username used in notification texts.
func displayName(ctx context.Context, users repositories.UserRepository, id string) string {
	u, err := users.GetUserByID(ctx, id)
	if err != nil || u.Username == "" {
		return "someone"
	}
	return u.Username
}

func unique(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
