package handlers

import (
	"net/http"

	"github.com/anonto42/circles/backend/internal/apperr"
	"github.com/anonto42/circles/backend/internal/middleware"
	"github.com/anonto42/circles/backend/internal/models"
	"github.com/anonto42/circles/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// UserHandler handles HTTP requests for user accounts and profiles
type UserHandler struct {
	users *services.UserService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// RegisterProfileRoutes registers the routes of the caller's own account
func (h *UserHandler) RegisterProfileRoutes(g *echo.Group) {
	g.GET("/users/me", h.GetMe)
	g.PATCH("/users/me", h.UpdateMe)
	g.PUT("/users/me/picture", h.ChangePicture)
	g.DELETE("/users/me", h.DeleteMe)
}

// RegisterPublicRoutes registers the profile routes that allow anonymous callers
func (h *UserHandler) RegisterPublicRoutes(g *echo.Group) {
	g.GET("/users/:id", h.GetProfile)
}

// GetMe returns the caller's profile with pending friend requests
func (h *UserHandler) GetMe(c echo.Context) error {
	me := middleware.UserID(c)
	profile, err := h.users.GetProfile(c.Request().Context(), me, me)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profile)
}

// GetProfile returns another user's profile
func (h *UserHandler) GetProfile(c echo.Context) error {
	profile, err := h.users.GetProfile(c.Request().Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profile)
}

// UpdateMe changes the caller's account data
func (h *UserHandler) UpdateMe(c echo.Context) error {
	var req models.UpdateUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := h.users.ChangeUserData(c.Request().Context(), middleware.UserID(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

type pictureRequest struct {
	Kind  string        `json:"kind" validate:"omitempty,oneof=profile cover"`
	Media *models.Media `json:"media" validate:"required"`
}

func (r pictureRequest) kind() (models.PictureKind, error) {
	k, err := models.ParsePictureKind(r.Kind)
	if err != nil {
		return "", apperr.BadUserInput("%s", err)
	}
	return k, nil
}

// ChangePicture replaces the caller's profile or cover picture
func (h *UserHandler) ChangePicture(c echo.Context) error {
	var req pictureRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	kind, err := req.kind()
	if err != nil {
		return err
	}
	user, err := h.users.ChangePicture(c.Request().Context(), middleware.UserID(c), kind, req.Media)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

type deleteAccountRequest struct {
	Password string `json:"password"`
}

// DeleteMe deletes the caller's account and everything it owns
func (h *UserHandler) DeleteMe(c echo.Context) error {
	var req deleteAccountRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	report, err := h.users.DeleteUser(c.Request().Context(), middleware.UserID(c), req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}
