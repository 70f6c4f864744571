package handlers

import (
	"net/http"

	"github.com/anonto42/circles/backend/internal/middleware"
	"github.com/anonto42/circles/backend/internal/models"
	"github.com/anonto42/circles/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// CommentHandler handles comment-related HTTP requests
type CommentHandler struct {
	comments *services.CommentService
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(comments *services.CommentService) *CommentHandler {
	return &CommentHandler{comments: comments}
}

// RegisterCommentRoutes registers comment routes that need a caller
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group) {
	g.POST("/posts/:id/comments", h.AddComment)
	g.DELETE("/comments/:id", h.DeleteComment)
}

// RegisterPublicRoutes registers comment routes open to anonymous callers
func (h *CommentHandler) RegisterPublicRoutes(g *echo.Group) {
	g.GET("/posts/:id/comments", h.GetComments)
}

// AddComment adds a comment to a post
func (h *CommentHandler) AddComment(c echo.Context) error {
	var req models.CreateCommentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	comment, err := h.comments.AddComment(c.Request().Context(), middleware.UserID(c), c.Param("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, comment)
}

// GetComments lists the comments of a post
func (h *CommentHandler) GetComments(c echo.Context) error {
	p, err := pagination(c)
	if err != nil {
		return err
	}
	page, err := h.comments.ListComments(c.Request().Context(), middleware.UserID(c), c.Param("id"), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// DeleteComment deletes a comment
func (h *CommentHandler) DeleteComment(c echo.Context) error {
	if err := h.comments.DeleteComment(c.Request().Context(), middleware.UserID(c), c.Param("id")); err != nil {
		return err
	}
	return message(c, "comment deleted")
}
