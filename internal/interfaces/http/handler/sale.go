package handler

import (
	"context"

	salesapp "github.com/erp/shopcore/internal/application/sales"
	"github.com/erp/shopcore/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SaleService is the sale orchestrator and return workflow
type SaleService interface {
	CreateSale(ctx context.Context, req salesapp.CreateSaleRequest) (*salesapp.SaleResponse, error)
	GetSale(ctx context.Context, id uuid.UUID) (*salesapp.SaleResponse, error)
	ListSales(ctx context.Context, filter salesapp.SaleListFilter) (*shared.Paginated[salesapp.SaleResponse], error)
	ReturnLineItem(ctx context.Context, req salesapp.ReturnLineItemRequest) (*salesapp.ReturnResult, error)
	ListReturns(ctx context.Context, saleID uuid.UUID) ([]salesapp.ReturnResponse, error)
}

// SaleHandler handles sale and return HTTP requests
type SaleHandler struct {
	BaseHandler
	sales SaleService
}

// NewSaleHandler creates a new sale handler
func NewSaleHandler(sales SaleService) *SaleHandler {
	return &SaleHandler{sales: sales}
}

// CreateSale godoc
// @ID           createSale
// @Summary      Record a sale
// @Description  Converts foreign-priced line items at today's rate, marks every product sold,
// @Description  stores the receipt and optionally credits the paid amount to a deposit account,
// @Description  all in one transaction.
// @Tags         sales
// @Accept       json
// @Produce      json
// @Param        request body salesapp.CreateSaleRequest true "Sale"
// @Success      201 {object} APIResponse[salesapp.SaleResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse "Product sold or bell number taken"
// @Failure      424 {object} ErrorResponse "No rate recorded for today"
// @Router       /sales [post]
func (h *SaleHandler) CreateSale(c *gin.Context) {
	var req salesapp.CreateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	sale, err := h.sales.CreateSale(h.operation(c, "sale.create"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, sale)
}

// GetSale godoc
// @ID           getSale
// @Summary      Get a sale with its line items and receipt
// @Tags         sales
// @Produce      json
// @Param        id path string true "Sale ID" format(uuid)
// @Success      200 {object} APIResponse[salesapp.SaleResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /sales/{id} [get]
func (h *SaleHandler) GetSale(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	sale, err := h.sales.GetSale(h.operation(c, "sale.get"), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sale)
}

// ListSales godoc
// @ID           listSales
// @Summary      List sales, newest first
// @Tags         sales
// @Produce      json
// @Param        customer_id query string false "Customer ID" format(uuid)
// @Param        return_status query string false "normal, partial_return or fully_returned"
// @Param        from query string false "From date (YYYY-MM-DD)"
// @Param        to query string false "To date (YYYY-MM-DD)"
// @Param        outstanding query bool false "Only sales with remaining > 0"
// @Param        sort_by query string false "Sort key" Enums(created_at, bell_number, total, paid, remaining)
// @Param        sort_order query string false "asc or desc"
// @Param        limit query int false "Page size" default(20) maximum(100)
// @Param        offset query int false "Offset" default(0)
// @Success      200 {object} APIResponse[[]salesapp.SaleResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /sales [get]
func (h *SaleHandler) ListSales(c *gin.Context) {
	var filter salesapp.SaleListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.ValidationError(c, err)
		return
	}
	if raw := c.Query("customer_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid customer_id: must be a UUID")
			return
		}
		filter.CustomerID = &id
	}

	list, err := h.sales.ListSales(h.operation(c, "sale.list"), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	SuccessPage(c, list)
}

// ReturnLineItem godoc
// @ID           returnSaleLineItem
// @Summary      Return one product of a sale
// @Description  Flags the line item returned, releases the product and recomputes the receipt.
// @Description  With settlement_account_id the refund is debited in the same transaction.
// @Tags         sales
// @Accept       json
// @Produce      json
// @Param        id path string true "Sale ID" format(uuid)
// @Param        request body salesapp.ReturnLineItemRequest true "Return"
// @Success      201 {object} APIResponse[salesapp.ReturnResult]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse "Already returned"
// @Failure      422 {object} ErrorResponse "Settlement account cannot cover the refund"
// @Router       /sales/{id}/returns [post]
func (h *SaleHandler) ReturnLineItem(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req salesapp.ReturnLineItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	req.SaleID = id

	result, err := h.sales.ReturnLineItem(h.operation(c, "sale.return_line_item"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// ListReturns godoc
// @ID           listSaleReturns
// @Summary      List the returns recorded against a sale
// @Tags         sales
// @Produce      json
// @Param        id path string true "Sale ID" format(uuid)
// @Success      200 {object} APIResponse[[]salesapp.ReturnResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /sales/{id}/returns [get]
func (h *SaleHandler) ListReturns(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	returns, err := h.sales.ListReturns(h.operation(c, "sale.list_returns"), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, returns)
}
