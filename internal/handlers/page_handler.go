package handlers

import (
	"net/http"

	"github.com/anonto42/circles/backend/internal/middleware"
	"github.com/anonto42/circles/backend/internal/models"
	"github.com/anonto42/circles/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// PageHandler handles pages, their followers and admins
type PageHandler struct {
	communities *services.CommunityService
	relations   *services.RelationMutator
}

// NewPageHandler creates a new PageHandler
func NewPageHandler(communities *services.CommunityService, relations *services.RelationMutator) *PageHandler {
	return &PageHandler{communities: communities, relations: relations}
}

// RegisterPageRoutes registers page routes that need a caller
func (h *PageHandler) RegisterPageRoutes(g *echo.Group) {
	g.POST("/pages", h.AddPage)
	g.PATCH("/pages/:id", h.EditPage)
	g.DELETE("/pages/:id", h.DeletePage)
	g.PUT("/pages/:id/picture", h.ChangePicture)
	g.POST("/pages/:id/follow", h.ToggleFollow)
	g.POST("/pages/:id/admins", h.ToggleAdmin)
}

// RegisterPublicRoutes registers page routes open to anonymous callers
func (h *PageHandler) RegisterPublicRoutes(g *echo.Group) {
	g.GET("/pages/:id", h.GetPage)
}

// AddPage creates a page owned by the caller
func (h *PageHandler) AddPage(c echo.Context) error {
	var req models.CreatePageRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	page, err := h.communities.AddPage(c.Request().Context(), middleware.UserID(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, page)
}

// EditPage updates a page
func (h *PageHandler) EditPage(c echo.Context) error {
	var req models.UpdatePageRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	page, err := h.communities.EditPage(c.Request().Context(), middleware.UserID(c), c.Param("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// GetPage returns a page
func (h *PageHandler) GetPage(c echo.Context) error {
	page, err := h.communities.GetPage(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// DeletePage deletes a page with its content
func (h *PageHandler) DeletePage(c echo.Context) error {
	report, err := h.communities.DeletePage(c.Request().Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}

// ChangePicture replaces the profile or cover picture of a page
func (h *PageHandler) ChangePicture(c echo.Context) error {
	return changeCommunityPicture(c, h.communities, models.CommunityPage)
}

func changeCommunityPicture(c echo.Context, communities *services.CommunityService, kind models.Community) error {
	var req pictureRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	picture, err := req.kind()
	if err != nil {
		return err
	}
	if err := communities.ChangePicture(c.Request().Context(), middleware.UserID(c), kind, c.Param("id"), picture, req.Media); err != nil {
		return err
	}
	return message(c, "picture updated")
}

// ToggleFollow follows or unfollows a page
func (h *PageHandler) ToggleFollow(c echo.Context) error {
	following, err := h.relations.TogglePageFollow(c.Request().Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"following": following})
}

type adminRequest struct {
	User   string `json:"user" validate:"required"`
	Action string `json:"action" validate:"required,oneof=add remove"`
}

// ToggleAdmin adds or removes a page admin
func (h *PageHandler) ToggleAdmin(c echo.Context) error {
	return toggleAdmin(c, h.relations, models.CommunityPage)
}

func toggleAdmin(c echo.Context, relations *services.RelationMutator, kind models.Community) error {
	var req adminRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	action, err := services.ParseAdminAction(req.Action)
	if err != nil {
		return err
	}
	if err := relations.ToggleAdmin(c.Request().Context(), middleware.UserID(c), kind, c.Param("id"), req.User, action); err != nil {
		return err
	}
	return message(c, "admins updated")
}
