package handler

import (
	"context"

	salesapp "github.com/erp/shopcore/internal/application/sales"
	"github.com/erp/shopcore/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReceivablesService is the read-only loan view
type ReceivablesService interface {
	ListReceivables(ctx context.Context, filter salesapp.ReceivableListFilter) (*shared.Paginated[salesapp.ReceivableResponse], error)
	GetCustomerReceivable(ctx context.Context, customerID uuid.UUID, filter salesapp.CustomerReceivableFilter) (*salesapp.CustomerReceivableResponse, error)
}

// ReceivableHandler handles receivables HTTP requests
type ReceivableHandler struct {
	BaseHandler
	receivables ReceivablesService
}

// NewReceivableHandler creates a new receivable handler
func NewReceivableHandler(receivables ReceivablesService) *ReceivableHandler {
	return &ReceivableHandler{receivables: receivables}
}

// ListReceivables godoc
// @ID           listReceivables
// @Summary      List customers with an outstanding balance, largest first
// @Tags         receivables
// @Produce      json
// @Param        min_amount query string false "Only balances of at least this amount"
// @Param        limit query int false "Page size" default(20) maximum(100)
// @Param        offset query int false "Offset" default(0)
// @Success      200 {object} APIResponse[[]salesapp.ReceivableResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /receivables [get]
func (h *ReceivableHandler) ListReceivables(c *gin.Context) {
	var filter salesapp.ReceivableListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.ValidationError(c, err)
		return
	}

	list, err := h.receivables.ListReceivables(h.operation(c, "receivables.list"), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	SuccessPage(c, list)
}

// GetCustomerReceivable godoc
// @ID           getCustomerReceivable
// @Summary      Get a customer's outstanding balance and the sales behind it
// @Tags         receivables
// @Produce      json
// @Param        customerId path string true "Customer ID" format(uuid)
// @Param        limit query int false "Sales page size" default(20) maximum(100)
// @Param        offset query int false "Sales offset" default(0)
// @Success      200 {object} APIResponse[salesapp.CustomerReceivableResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /receivables/{customerId} [get]
func (h *ReceivableHandler) GetCustomerReceivable(c *gin.Context) {
	id, ok := h.uuidParam(c, "customerId")
	if !ok {
		return
	}

	var filter salesapp.CustomerReceivableFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.ValidationError(c, err)
		return
	}

	result, err := h.receivables.GetCustomerReceivable(h.operation(c, "receivables.customer"), id, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
