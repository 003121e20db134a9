package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appsettlement "github.com/pharmalink/settlement/internal/application/settlement"
	"github.com/pharmalink/settlement/internal/interfaces/http/dto"
)

// AlertHandler handles payment alert API endpoints
type AlertHandler struct {
	BaseHandler
	alertService *appsettlement.AlertService
}

// NewAlertHandler creates a new AlertHandler
func NewAlertHandler(alertService *appsettlement.AlertService) *AlertHandler {
	return &AlertHandler{alertService: alertService}
}

// List handles GET /alerts
func (h *AlertHandler) List(c *gin.Context) {
	filter := appsettlement.AlertListFilter{
		EntityType: c.Query("entity_type"),
		Severity:   c.Query("severity"),
	}

	var err error
	if filter.IsRead, err = parseBoolQuery(c, "is_read"); err != nil {
		h.BadRequest(c, "is_read must be true or false")
		return
	}
	if filter.IsResolved, err = parseBoolQuery(c, "is_resolved"); err != nil {
		h.BadRequest(c, "is_resolved must be true or false")
		return
	}

	var page dto.ListRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	page.Normalize()
	filter.Page = page.Page
	filter.PageSize = page.PageSize

	alerts, total, err := h.alertService.ListAlerts(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, alerts, total, filter.Page, filter.PageSize)
}

// MarkRead handles POST /alerts/:id/read
func (h *AlertHandler) MarkRead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid alert ID")
		return
	}

	if err := h.alertService.MarkRead(c.Request.Context(), id); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, gin.H{"read": true})
}

// Resolve handles POST /alerts/:id/resolve
func (h *AlertHandler) Resolve(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid alert ID")
		return
	}

	if err := h.alertService.Resolve(c.Request.Context(), id); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, gin.H{"resolved": true})
}

// Evaluate handles POST /alerts/evaluate, running one evaluation pass
// immediately instead of waiting for the background interval
func (h *AlertHandler) Evaluate(c *gin.Context) {
	summary, err := h.alertService.Evaluate(c.Request.Context(), time.Now().UTC())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, summary)
}

// RegisterRoutes registers alert routes
func (h *AlertHandler) RegisterRoutes(rg *gin.RouterGroup) {
	alerts := rg.Group("/alerts")
	{
		alerts.GET("", h.List)
		alerts.POST("/evaluate", h.Evaluate)
		alerts.POST("/:id/read", h.MarkRead)
		alerts.POST("/:id/resolve", h.Resolve)
	}
}

// parseBoolQuery parses an optional boolean query parameter
func parseBoolQuery(c *gin.Context, name string) (*bool, error) {
	v := c.Query(name)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
