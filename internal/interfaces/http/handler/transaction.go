package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appsettlement "github.com/pharmalink/settlement/internal/application/settlement"
	"github.com/pharmalink/settlement/internal/interfaces/http/dto"
)

// TransactionHandler handles payment transaction API endpoints
type TransactionHandler struct {
	BaseHandler
	transactionService *appsettlement.TransactionService
}

// NewTransactionHandler creates a new TransactionHandler
func NewTransactionHandler(transactionService *appsettlement.TransactionService) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService}
}

// List handles GET /transactions
func (h *TransactionHandler) List(c *gin.Context) {
	filter := appsettlement.TransactionListFilter{
		TransactionType: c.Query("transaction_type"),
		Status:          c.Query("status"),
	}
	if v := c.Query("schedule_id"); v != "" {
		scheduleID, err := uuid.Parse(v)
		if err != nil {
			h.BadRequest(c, "Invalid schedule ID")
			return
		}
		filter.ScheduleID = &scheduleID
	}

	var page dto.ListRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	page.Normalize()
	filter.Page = page.Page
	filter.PageSize = page.PageSize

	transactions, total, err := h.transactionService.ListTransactions(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, transactions, total, filter.Page, filter.PageSize)
}

// GetByID handles GET /transactions/:id
func (h *TransactionHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid transaction ID")
		return
	}

	tx, err := h.transactionService.GetTransaction(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, tx)
}

// RegisterRoutes registers transaction routes
func (h *TransactionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	transactions := rg.Group("/transactions")
	{
		transactions.GET("", h.List)
		transactions.GET("/:id", h.GetByID)
	}
}
