package handlers

import (
	"net/http"
	"strconv"

	"github.com/anonto42/circles/backend/internal/apperr"
	"github.com/anonto42/circles/backend/internal/middleware"
	"github.com/anonto42/circles/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// NotificationHandler handles notification-related HTTP requests
type NotificationHandler struct {
	notifications *services.NotificationFanout
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notifications *services.NotificationFanout) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// RegisterNotificationRoutes registers notification routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("/notifications", h.GetNotifications)
	g.PATCH("/notifications/read-all", h.MarkAllAsRead)
	g.PATCH("/notifications/:id/read", h.MarkAsRead)
}

// GetNotifications lists the caller's notifications, newest first
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	p, err := pagination(c)
	if err != nil {
		return err
	}
	page, err := h.notifications.List(c.Request().Context(), middleware.UserID(c), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// MarkAsRead marks one notification as read
func (h *NotificationHandler) MarkAsRead(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return apperr.NotFound("notification not found")
	}
	if err := h.notifications.MarkRead(c.Request().Context(), middleware.UserID(c), uint(id)); err != nil {
		return err
	}
	return message(c, "notification marked as read")
}

// MarkAllAsRead marks every notification of the caller as read
func (h *NotificationHandler) MarkAllAsRead(c echo.Context) error {
	if err := h.notifications.MarkAllRead(c.Request().Context(), middleware.UserID(c)); err != nil {
		return err
	}
	return message(c, "all notifications marked as read")
}
