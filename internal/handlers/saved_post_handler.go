package handlers

import (
	"net/http"

	"github.com/anonto42/circles/backend/internal/middleware"
	"github.com/anonto42/circles/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// SavedPostHandler handles bookmarked posts
type SavedPostHandler struct {
	reactions *services.ReactionLedger
}

// NewSavedPostHandler creates a new SavedPostHandler
func NewSavedPostHandler(reactions *services.ReactionLedger) *SavedPostHandler {
	return &SavedPostHandler{reactions: reactions}
}

// RegisterSavedPostRoutes registers bookmark routes
func (h *SavedPostHandler) RegisterSavedPostRoutes(g *echo.Group) {
	g.POST("/posts/:id/bookmark", h.ToggleBookmark)
	g.GET("/bookmarks", h.GetSavedPosts)
}

// ToggleBookmark saves or unsaves a post
func (h *SavedPostHandler) ToggleBookmark(c echo.Context) error {
	saved, err := h.reactions.ToggleBookmark(c.Request().Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"saved": saved})
}

// GetSavedPosts lists the caller's bookmarks that they can still read
func (h *SavedPostHandler) GetSavedPosts(c echo.Context) error {
	p, err := pagination(c)
	if err != nil {
		return err
	}
	page, err := h.reactions.ListBookmarks(c.Request().Context(), middleware.UserID(c), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}
