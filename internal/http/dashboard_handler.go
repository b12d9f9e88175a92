package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"market-backend/internal/service"
)

type DashboardHandler struct {
	logger    *zap.Logger
	dashboard *service.DashboardService
}

func NewDashboardHandler(logger *zap.Logger, dashboard *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{logger: logger, dashboard: dashboard}
}

// Stats maneja GET /dashboard/stats.
func (h *DashboardHandler) Stats(c *gin.Context) {
	stats, err := h.dashboard.Stats(c.Request.Context())
	if err != nil {
		respondServiceError(c, h.logger, err, "load dashboard stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// UserStats maneja GET /users/stats/total.
func (h *DashboardHandler) UserStats(c *gin.Context) {
	stats, err := h.dashboard.UserStats(c.Request.Context())
	if err != nil {
		respondServiceError(c, h.logger, err, "load user stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}
