package handler

import (
	"net/http"
	"time"

	"pastahub/internal/middleware"
	"pastahub/internal/model"
	"pastahub/internal/service"
	"pastahub/pkg/response"

	"github.com/gin-gonic/gin"
)

type StatisticsHandler struct {
	statisticsService service.StatisticsService
}

func NewStatisticsHandler(statisticsService service.StatisticsService) *StatisticsHandler {
	return &StatisticsHandler{statisticsService: statisticsService}
}

func (h *StatisticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/api/statistics", middleware.RequireRole(model.RoleAdmin, model.RoleStaff), h.GetStatistics)
}

// GetStatistics returns aggregated dashboard metrics
// @Summary      Get statistics
// @Description  Aggregates invoiced revenue, open orders, top products and stock movements over a date range
// @Tags         statistics
// @Security     BearerAuth
// @Produce      json
// @Param        start_date  query     string  false  "Start date (YYYY-MM-DD, default 30 days ago)"
// @Param        end_date    query     string  false  "End date (YYYY-MM-DD, default today)"
// @Success      200         {object}  response.Response{data=model.StatisticsResponse}
// @Failure      400         {object}  response.Response
// @Router       /api/statistics [get]
func (h *StatisticsHandler) GetStatistics(c *gin.Context) {
	now := time.Now()
	start := now.AddDate(0, 0, -30)
	end := now

	if raw := c.Query("start_date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid start_date"))
			return
		}
		start = parsed
	}
	if raw := c.Query("end_date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid end_date"))
			return
		}
		// Include the whole end day.
		end = parsed.Add(24*time.Hour - time.Second)
	}

	stats, err := h.statisticsService.GetStatistics(c.Request.Context(), start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, stats))
}
