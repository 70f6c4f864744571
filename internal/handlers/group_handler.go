package handlers

import (
	"net/http"

	"github.com/anonto42/circles/backend/internal/middleware"
	"github.com/anonto42/circles/backend/internal/models"
	"github.com/anonto42/circles/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// GroupHandler handles groups, their members, join requests and admins
type GroupHandler struct {
	communities *services.CommunityService
	relations   *services.RelationMutator
}

// NewGroupHandler creates a new GroupHandler
func NewGroupHandler(communities *services.CommunityService, relations *services.RelationMutator) *GroupHandler {
	return &GroupHandler{communities: communities, relations: relations}
}

// RegisterGroupRoutes registers group routes that need a caller
func (h *GroupHandler) RegisterGroupRoutes(g *echo.Group) {
	g.POST("/groups", h.AddGroup)
	g.PATCH("/groups/:id", h.EditGroup)
	g.DELETE("/groups/:id", h.DeleteGroup)
	g.PUT("/groups/:id/picture", h.ChangePicture)
	g.POST("/groups/:id/join", h.Join)
	g.POST("/groups/:id/exit", h.Exit)
	g.POST("/groups/:id/expel", h.Expel)
	g.POST("/groups/:id/requests/:requestId", h.HandleRequest)
	g.POST("/groups/:id/admins", h.ToggleAdmin)
}

// RegisterPublicRoutes registers group routes open to anonymous callers
func (h *GroupHandler) RegisterPublicRoutes(g *echo.Group) {
	g.GET("/groups/:id", h.GetGroup)
}

// AddGroup creates a group owned by the caller
func (h *GroupHandler) AddGroup(c echo.Context) error {
	var req models.CreateGroupRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	group, err := h.communities.AddGroup(c.Request().Context(), middleware.UserID(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, group)
}

// EditGroup updates a group
func (h *GroupHandler) EditGroup(c echo.Context) error {
	var req models.UpdateGroupRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	group, err := h.communities.EditGroup(c.Request().Context(), middleware.UserID(c), c.Param("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, group)
}

// GetGroup returns a group; managers also see pending join requests
func (h *GroupHandler) GetGroup(c echo.Context) error {
	group, err := h.communities.GetGroup(c.Request().Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, group)
}

// DeleteGroup deletes a group with its content
func (h *GroupHandler) DeleteGroup(c echo.Context) error {
	report, err := h.communities.DeleteGroup(c.Request().Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}

// ChangePicture replaces the profile or cover picture of a group
func (h *GroupHandler) ChangePicture(c echo.Context) error {
	return changeCommunityPicture(c, h.communities, models.CommunityGroup)
}

// Join joins a public group or asks to join a members_only one
func (h *GroupHandler) Join(c echo.Context) error {
	status, err := h.relations.JoinGroup(c.Request().Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]services.JoinStatus{"status": status})
}

// Exit leaves a group, or withdraws a pending join request
func (h *GroupHandler) Exit(c echo.Context) error {
	report, err := h.relations.ExitGroup(c.Request().Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		return err
	}
	if report == nil {
		return message(c, "join request withdrawn")
	}
	return c.JSON(http.StatusOK, report)
}

type expelRequest struct {
	User string `json:"user" validate:"required"`
}

// Expel removes a member from a group together with their content
func (h *GroupHandler) Expel(c echo.Context) error {
	var req expelRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	report, err := h.relations.ExpelFromGroup(c.Request().Context(), middleware.UserID(c), c.Param("id"), req.User)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}

// HandleRequest accepts or rejects a pending join request
func (h *GroupHandler) HandleRequest(c echo.Context) error {
	var req decisionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	err := h.relations.HandleGroupRequest(c.Request().Context(), middleware.UserID(c), c.Param("id"), c.Param("requestId"), *req.Accept)
	if err != nil {
		return err
	}
	if *req.Accept {
		return message(c, "join request accepted")
	}
	return message(c, "join request rejected")
}

// ToggleAdmin adds or removes a group admin
func (h *GroupHandler) ToggleAdmin(c echo.Context) error {
	return toggleAdmin(c, h.relations, models.CommunityGroup)
}
