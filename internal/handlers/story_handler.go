package handlers

import (
	"net/http"

	"github.com/anonto42/circles/backend/internal/middleware"
	"github.com/anonto42/circles/backend/internal/models"
	"github.com/anonto42/circles/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// StoryHandler handles story-related HTTP requests
type StoryHandler struct {
	stories *services.StoryService
}

// NewStoryHandler creates a new StoryHandler
func NewStoryHandler(stories *services.StoryService) *StoryHandler {
	return &StoryHandler{stories: stories}
}

// RegisterStoryRoutes registers story routes
func (h *StoryHandler) RegisterStoryRoutes(g *echo.Group) {
	g.POST("/stories", h.CreateStory)
	g.GET("/stories", h.GetStories)
	g.DELETE("/stories/:id", h.DeleteStory)
}

// CreateStory creates a story that expires after a day
func (h *StoryHandler) CreateStory(c echo.Context) error {
	var req models.CreateStoryRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	story, err := h.stories.AddStory(c.Request().Context(), middleware.UserID(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, story)
}

// GetStories lists the live stories of the caller and their friends
func (h *StoryHandler) GetStories(c echo.Context) error {
	stories, err := h.stories.ListStories(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stories)
}

// DeleteStory deletes a story
func (h *StoryHandler) DeleteStory(c echo.Context) error {
	if err := h.stories.DeleteStory(c.Request().Context(), middleware.UserID(c), c.Param("id")); err != nil {
		return err
	}
	return message(c, "story deleted")
}
