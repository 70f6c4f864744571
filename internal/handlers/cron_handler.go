package handlers

import (
	"net/http"
	"time"

	"github.com/anonto42/circles/backend/internal/services"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// CronHandler runs the periodic maintenance jobs
type CronHandler struct {
	stories    *services.StoryService
	reconciler *services.Reconciler
	now        func() time.Time
	log        logrus.FieldLogger
}

// NewCronHandler creates a new CronHandler
func NewCronHandler(stories *services.StoryService, reconciler *services.Reconciler, now func() time.Time, log logrus.FieldLogger) *CronHandler {
	return &CronHandler{stories: stories, reconciler: reconciler, now: now, log: log}
}

// RegisterCronRoutes registers maintenance routes
func (h *CronHandler) RegisterCronRoutes(g *echo.Group) {
	g.POST("/sweep", h.Sweep)
}

type sweepResponse struct {
	Stories  *services.SweepReport     `json:"stories"`
	Counters *services.ReconcileReport `json:"counters"`
}

// Sweep removes expired stories and repairs drifted community counters
func (h *CronHandler) Sweep(c echo.Context) error {
	ctx := c.Request().Context()
	stories, err := h.stories.SweepExpired(ctx, h.now())
	if err != nil {
		return err
	}
	counters, err := h.reconciler.ReconcileCounters(ctx)
	if err != nil {
		return err
	}
	h.log.WithFields(logrus.Fields{
		"stories":        stories.Stories,
		"pages_fixed":    counters.Pages,
		"groups_fixed":   counters.Groups,
		"media_failures": stories.MediaFailed,
	}).Info("maintenance sweep finished")
	return c.JSON(http.StatusOK, sweepResponse{Stories: stories, Counters: counters})
}
