package handlers

import (
	"net/http"

	"github.com/anonto42/circles/backend/internal/middleware"
	"github.com/anonto42/circles/backend/internal/models"
	"github.com/anonto42/circles/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// PostHandler handles HTTP requests for posts
type PostHandler struct {
	posts *services.PostService
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(posts *services.PostService) *PostHandler {
	return &PostHandler{posts: posts}
}

// RegisterPostRoutes registers post routes that need a caller
func (h *PostHandler) RegisterPostRoutes(g *echo.Group) {
	g.POST("/posts", h.CreatePost)
	g.PATCH("/posts/:id", h.UpdatePost)
	g.DELETE("/posts/:id", h.DeletePost)
}

// RegisterPublicRoutes registers post routes open to anonymous callers
func (h *PostHandler) RegisterPublicRoutes(g *echo.Group) {
	g.GET("/posts/:id", h.GetPost)
}

// CreatePost creates a post on the caller's timeline, a page or a group
func (h *PostHandler) CreatePost(c echo.Context) error {
	var req models.CreatePostRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	post, err := h.posts.AddPost(c.Request().Context(), middleware.UserID(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, post)
}

// GetPost returns a post the caller may read
func (h *PostHandler) GetPost(c echo.Context) error {
	post, err := h.posts.GetSinglePost(c.Request().Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, post)
}

// UpdatePost edits a post
func (h *PostHandler) UpdatePost(c echo.Context) error {
	var req models.UpdatePostRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	post, err := h.posts.EditPost(c.Request().Context(), middleware.UserID(c), c.Param("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, post)
}

// DeletePost deletes a post with its comments, reactions and shares
func (h *PostHandler) DeletePost(c echo.Context) error {
	report, err := h.posts.DeletePost(c.Request().Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}
