package handler

import (
	"context"
	"net/http"

	"github.com/erp/shopcore/internal/application/event"
	"github.com/erp/shopcore/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OutboxService lists and revives dead-lettered events
type OutboxService interface {
	ListDead(ctx context.Context, limit, offset int) (*event.OutboxListResult, error)
	RetryDead(ctx context.Context, id uuid.UUID) (*event.OutboxEntryDTO, error)
	RetryAllDead(ctx context.Context) (int64, error)
	Stats(ctx context.Context) (*event.OutboxStatsDTO, error)
}

// OutboxHandler handles outbox management HTTP requests
type OutboxHandler struct {
	BaseHandler
	outbox OutboxService
}

// NewOutboxHandler creates a new outbox handler
func NewOutboxHandler(outbox OutboxService) *OutboxHandler {
	return &OutboxHandler{outbox: outbox}
}

// RetryAllResponse is the number of dead entries reset for retry
type RetryAllResponse struct {
	Count int64 `json:"count"`
}

// ListDead godoc
// @ID           listOutboxDeadEntries
// @Summary      List dead letter entries
// @Tags         outbox
// @Produce      json
// @Param        limit query int false "Page size" default(20) maximum(100)
// @Param        offset query int false "Offset" default(0)
// @Success      200 {object} APIResponse[[]event.OutboxEntryDTO]
// @Failure      400 {object} ErrorResponse
// @Router       /outbox/dead [get]
func (h *OutboxHandler) ListDead(c *gin.Context) {
	page, ok := h.pageQuery(c)
	if !ok {
		return
	}

	result, err := h.outbox.ListDead(h.operation(c, "outbox.list_dead"), page.Limit, page.Offset)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(result.Entries, result.Total, result.Limit, result.Offset, len(result.Entries)))
}

// RetryDead godoc
// @ID           retryOutboxDeadEntry
// @Summary      Reset a dead letter entry for another delivery attempt
// @Tags         outbox
// @Produce      json
// @Param        id path string true "Outbox entry ID" format(uuid)
// @Success      200 {object} APIResponse[event.OutboxEntryDTO]
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse "Entry is not dead"
// @Router       /outbox/{id}/retry [post]
func (h *OutboxHandler) RetryDead(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	entry, err := h.outbox.RetryDead(h.operation(c, "outbox.retry"), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// RetryAllDead godoc
// @ID           retryAllOutboxDeadEntries
// @Summary      Reset every dead letter entry
// @Tags         outbox
// @Produce      json
// @Success      200 {object} APIResponse[RetryAllResponse]
// @Router       /outbox/dead/retry [post]
func (h *OutboxHandler) RetryAllDead(c *gin.Context) {
	count, err := h.outbox.RetryAllDead(h.operation(c, "outbox.retry_all"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, RetryAllResponse{Count: count})
}

// Stats godoc
// @ID           getOutboxStats
// @Summary      Count outbox entries per status
// @Tags         outbox
// @Produce      json
// @Success      200 {object} APIResponse[event.OutboxStatsDTO]
// @Router       /outbox/stats [get]
func (h *OutboxHandler) Stats(c *gin.Context) {
	stats, err := h.outbox.Stats(h.operation(c, "outbox.stats"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}
