package handlers

import (
	"net/http"

	"github.com/anonto42/circles/backend/internal/apperr"
	"github.com/anonto42/circles/backend/internal/middleware"
	"github.com/anonto42/circles/backend/internal/models"
	"github.com/anonto42/circles/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// ReactionHandler handles reactions and shares
type ReactionHandler struct {
	reactions *services.ReactionLedger
}

// NewReactionHandler creates a new ReactionHandler
func NewReactionHandler(reactions *services.ReactionLedger) *ReactionHandler {
	return &ReactionHandler{reactions: reactions}
}

// RegisterReactionRoutes registers reaction and share routes
func (h *ReactionHandler) RegisterReactionRoutes(g *echo.Group) {
	g.POST("/posts/:id/reactions", h.react(services.TargetPost))
	g.POST("/comments/:id/reactions", h.react(services.TargetComment))
	g.POST("/stories/:id/reactions", h.react(services.TargetStory))
	g.POST("/posts/:id/share", h.ToggleShare)
}

type reactionRequest struct {
	Reaction string `json:"reaction" validate:"required"`
}

// react toggles the caller's reaction on a target of the given kind
func (h *ReactionHandler) react(target services.ReactionTarget) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req reactionRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		kind, err := models.ParseReactionKind(req.Reaction)
		if err != nil {
			return apperr.BadUserInput("%s", err)
		}
		result, err := h.reactions.ToggleReaction(c.Request().Context(), middleware.UserID(c), target, c.Param("id"), kind)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, result)
	}
}

// ToggleShare shares a post on the caller's timeline, or removes the share
func (h *ReactionHandler) ToggleShare(c echo.Context) error {
	shared, err := h.reactions.ToggleSharedPost(c.Request().Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"shared": shared})
}
