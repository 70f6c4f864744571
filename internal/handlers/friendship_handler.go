package handlers

import (
	"net/http"

	"github.com/anonto42/circles/backend/internal/middleware"
	"github.com/anonto42/circles/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// FriendshipHandler handles friend requests and friendships
type FriendshipHandler struct {
	relations *services.RelationMutator
}

// NewFriendshipHandler creates a new FriendshipHandler
func NewFriendshipHandler(relations *services.RelationMutator) *FriendshipHandler {
	return &FriendshipHandler{relations: relations}
}

// RegisterFriendshipRoutes registers friendship-related routes
func (h *FriendshipHandler) RegisterFriendshipRoutes(g *echo.Group) {
	g.POST("/friends/:id/request", h.SendRequest)
	g.DELETE("/friends/:id/request", h.CancelRequest)
	g.POST("/friends/:id/handle", h.HandleRequest)
	g.DELETE("/friends/:id", h.RemoveFriend)
}

func message(c echo.Context, msg string) error {
	return c.JSON(http.StatusOK, map[string]string{"message": msg})
}

// SendRequest sends a friend request to the user in the path
func (h *FriendshipHandler) SendRequest(c echo.Context) error {
	if err := h.relations.SendFriendRequest(c.Request().Context(), middleware.UserID(c), c.Param("id")); err != nil {
		return err
	}
	return message(c, "friend request sent")
}

// CancelRequest withdraws a friend request sent by the caller
func (h *FriendshipHandler) CancelRequest(c echo.Context) error {
	if err := h.relations.CancelFriendRequest(c.Request().Context(), middleware.UserID(c), c.Param("id")); err != nil {
		return err
	}
	return message(c, "friend request cancelled")
}

type decisionRequest struct {
	Accept *bool `json:"accept" validate:"required"`
}

// HandleRequest accepts or rejects a friend request received by the caller
func (h *FriendshipHandler) HandleRequest(c echo.Context) error {
	var req decisionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	err := h.relations.HandleFriendRequest(c.Request().Context(), middleware.UserID(c), c.Param("id"), *req.Accept)
	if err != nil {
		return err
	}
	if *req.Accept {
		return message(c, "friend request accepted")
	}
	return message(c, "friend request rejected")
}

// RemoveFriend ends a friendship
func (h *FriendshipHandler) RemoveFriend(c echo.Context) error {
	if err := h.relations.RemoveFriend(c.Request().Context(), middleware.UserID(c), c.Param("id")); err != nil {
		return err
	}
	return message(c, "friend removed")
}
