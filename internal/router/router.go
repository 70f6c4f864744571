// Package router wires handlers, middleware and services into an echo instance.
package router

import (
	"time"

	"github.com/anonto42/circles/backend/internal/auth"
	"github.com/anonto42/circles/backend/internal/handlers"
	"github.com/anonto42/circles/backend/internal/media"
	"github.com/anonto42/circles/backend/internal/middleware"
	"github.com/anonto42/circles/backend/internal/services"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// Deps are the collaborators the routes are built from.
type Deps struct {
	Services   *services.Services
	Gate       *auth.Gate
	Media      media.Service
	DB         handlers.Pinger
	CronSecret string
	Now        func() time.Time
	Log        logrus.FieldLogger
}

// Setup installs the validator, the error handler and every application route on e.
func Setup(e *echo.Echo, d Deps) {
	if d.Now == nil {
		d.Now = time.Now
	}
	e.Validator = handlers.NewValidator()
	e.HTTPErrorHandler = handlers.ErrorHandler(d.Log)

	// Health check - always accessible
	e.GET("/health", handlers.NewHealthHandler(d.DB).HealthCheck)

	s := d.Services
	api := e.Group("/api/v1")

	// --- Open routes: a token is resolved when present ---
	open := api.Group("", middleware.Authenticate(d.Gate, false))
	// --- Protected routes ---
	protected := api.Group("", middleware.Authenticate(d.Gate, true))

	authHandler := handlers.NewAuthHandler(s.Users)
	authHandler.RegisterAuthRoutes(open.Group("/auth"))

	userHandler := handlers.NewUserHandler(s.Users)
	userHandler.RegisterProfileRoutes(protected)
	userHandler.RegisterPublicRoutes(open)

	friendshipHandler := handlers.NewFriendshipHandler(s.Relations)
	friendshipHandler.RegisterFriendshipRoutes(protected)

	pageHandler := handlers.NewPageHandler(s.Communities, s.Relations)
	pageHandler.RegisterPageRoutes(protected)
	pageHandler.RegisterPublicRoutes(open)

	groupHandler := handlers.NewGroupHandler(s.Communities, s.Relations)
	groupHandler.RegisterGroupRoutes(protected)
	groupHandler.RegisterPublicRoutes(open)

	postHandler := handlers.NewPostHandler(s.Posts)
	postHandler.RegisterPostRoutes(protected)
	postHandler.RegisterPublicRoutes(open)

	commentHandler := handlers.NewCommentHandler(s.Comments)
	commentHandler.RegisterCommentRoutes(protected)
	commentHandler.RegisterPublicRoutes(open)

	reactionHandler := handlers.NewReactionHandler(s.Reactions)
	reactionHandler.RegisterReactionRoutes(protected)

	savedPostHandler := handlers.NewSavedPostHandler(s.Reactions)
	savedPostHandler.RegisterSavedPostRoutes(protected)

	feedHandler := handlers.NewFeedHandler(s.Feed)
	feedHandler.RegisterFeedRoutes(protected)
	feedHandler.RegisterPublicRoutes(open)

	storyHandler := handlers.NewStoryHandler(s.Stories)
	storyHandler.RegisterStoryRoutes(protected)

	notificationHandler := handlers.NewNotificationHandler(s.Notifications)
	notificationHandler.RegisterNotificationRoutes(protected)

	mediaHandler := handlers.NewMediaHandler(d.Media)
	mediaHandler.RegisterMediaRoutes(protected)

	// --- Maintenance: shared secret instead of a user token ---
	cronHandler := handlers.NewCronHandler(s.Stories, s.Reconciler, d.Now, d.Log)
	cronHandler.RegisterCronRoutes(api.Group("/cron", middleware.CronSecret(d.CronSecret)))

	d.Log.Info("all routes configured")
}
