package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appsettlement "github.com/pharmalink/settlement/internal/application/settlement"
	"github.com/pharmalink/settlement/internal/interfaces/http/dto"
)

// ScheduleHandler handles settlement schedule API endpoints
type ScheduleHandler struct {
	BaseHandler
	scheduleService    *appsettlement.ScheduleService
	transactionService *appsettlement.TransactionService
}

// NewScheduleHandler creates a new ScheduleHandler
func NewScheduleHandler(
	scheduleService *appsettlement.ScheduleService,
	transactionService *appsettlement.TransactionService,
) *ScheduleHandler {
	return &ScheduleHandler{
		scheduleService:    scheduleService,
		transactionService: transactionService,
	}
}

// AccrueRequest carries the amount to add to a schedule's pending balance
type AccrueRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

// ProcessScheduleRequest carries the optional notes of a process submission
type ProcessScheduleRequest struct {
	Notes string `json:"notes" binding:"max=500"`
}

// Create handles POST /schedules
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req appsettlement.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	schedule, err := h.scheduleService.CreateSchedule(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, schedule)
}

// GetByID handles GET /schedules/:id
func (h *ScheduleHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid schedule ID")
		return
	}

	schedule, err := h.scheduleService.GetSchedule(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, schedule)
}

// List handles GET /schedules
func (h *ScheduleHandler) List(c *gin.Context) {
	filter := appsettlement.ScheduleListFilter{
		EntityType:   c.Query("entity_type"),
		ScheduleType: c.Query("schedule_type"),
		Status:       c.Query("status"),
	}
	if v := c.Query("entity_id"); v != "" {
		entityID, err := uuid.Parse(v)
		if err != nil {
			h.BadRequest(c, "Invalid entity ID")
			return
		}
		filter.EntityID = &entityID
	}

	var page dto.ListRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	page.Normalize()
	filter.Page = page.Page
	filter.PageSize = page.PageSize

	schedules, total, err := h.scheduleService.ListSchedules(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, schedules, total, filter.Page, filter.PageSize)
}

// Update handles PATCH /schedules/:id
func (h *ScheduleHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid schedule ID")
		return
	}

	var req appsettlement.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	schedule, err := h.scheduleService.UpdateSchedule(c.Request.Context(), id, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, schedule)
}

// Accrue handles POST /schedules/:id/accrue
func (h *ScheduleHandler) Accrue(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid schedule ID")
		return
	}

	var req AccrueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	schedule, err := h.scheduleService.Accrue(c.Request.Context(), id, req.Amount)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, schedule)
}

// Process handles POST /schedules/:id/process. The transaction is created
// synchronously and resolved in the background, so a success is a 202
// with the transaction in processing status.
func (h *ScheduleHandler) Process(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid schedule ID")
		return
	}

	var req ProcessScheduleRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, err.Error())
			return
		}
	}

	tx, err := h.transactionService.Process(c.Request.Context(), id, appsettlement.ProcessRequest{
		Notes:          req.Notes,
		IdempotencyKey: c.GetHeader("Idempotency-Key"),
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Accepted(c, tx)
}

// RegisterRoutes registers schedule routes
func (h *ScheduleHandler) RegisterRoutes(rg *gin.RouterGroup) {
	schedules := rg.Group("/schedules")
	{
		schedules.POST("", h.Create)
		schedules.GET("", h.List)
		schedules.GET("/:id", h.GetByID)
		schedules.PATCH("/:id", h.Update)
		schedules.POST("/:id/accrue", h.Accrue)
		schedules.POST("/:id/process", h.Process)
	}
}
