package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	appsettlement "github.com/pharmalink/settlement/internal/application/settlement"
)

// MetricsHandler handles dashboard metrics and analytics API endpoints
type MetricsHandler struct {
	BaseHandler
	metricsService   *appsettlement.MetricsService
	analyticsService *appsettlement.AnalyticsService
}

// NewMetricsHandler creates a new MetricsHandler
func NewMetricsHandler(
	metricsService *appsettlement.MetricsService,
	analyticsService *appsettlement.AnalyticsService,
) *MetricsHandler {
	return &MetricsHandler{
		metricsService:   metricsService,
		analyticsService: analyticsService,
	}
}

// Dashboard handles GET /metrics
func (h *MetricsHandler) Dashboard(c *gin.Context) {
	snapshot, err := h.metricsService.Snapshot(c.Request.Context(), time.Now().UTC())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, snapshot)
}

// Analytics handles GET /analytics?timeframe=30d
func (h *MetricsHandler) Analytics(c *gin.Context) {
	days, err := parseTimeframe(c.DefaultQuery("timeframe", "30d"))
	if err != nil {
		h.BadRequest(c, "timeframe must be a positive day count such as 7d or 30d")
		return
	}

	report, err := h.analyticsService.Report(c.Request.Context(), days, time.Now().UTC())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, report)
}

// parseTimeframe parses a timeframe value like "30d" or "30" into days
func parseTimeframe(v string) (int, error) {
	v = strings.TrimSuffix(strings.TrimSpace(v), "d")
	days, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	if days <= 0 {
		return 0, strconv.ErrRange
	}
	return days, nil
}

// RegisterRoutes registers metrics and analytics routes
func (h *MetricsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/metrics", h.Dashboard)
	rg.GET("/analytics", h.Analytics)
}
