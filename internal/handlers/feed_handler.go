package handlers

import (
	"net/http"

	"github.com/anonto42/circles/backend/internal/middleware"
	"github.com/anonto42/circles/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// FeedHandler handles feed-related HTTP requests
type FeedHandler struct {
	feed *services.FeedAggregator
}

// NewFeedHandler creates a new FeedHandler
func NewFeedHandler(feed *services.FeedAggregator) *FeedHandler {
	return &FeedHandler{feed: feed}
}

// RegisterFeedRoutes registers the home feed
func (h *FeedHandler) RegisterFeedRoutes(g *echo.Group) {
	g.GET("/feed", h.scoped(services.ScopeHome))
}

// RegisterPublicRoutes registers page, group and user feeds
func (h *FeedHandler) RegisterPublicRoutes(g *echo.Group) {
	g.GET("/feed/pages/:id", h.scoped(services.ScopePage))
	g.GET("/feed/groups/:id", h.scoped(services.ScopeGroup))
	g.GET("/feed/users/:id", h.scoped(services.ScopeUser))
}

// scoped serves one page of the feed of the given kind
func (h *FeedHandler) scoped(kind services.ScopeKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, err := pagination(c)
		if err != nil {
			return err
		}
		page, err := h.feed.GetFeed(c.Request().Context(), middleware.UserID(c), p, services.Scope{Kind: kind, ID: c.Param("id")})
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, page)
	}
}
