package handler

import (
	"context"
	"time"

	salesapp "github.com/erp/shopcore/internal/application/sales"
	"github.com/gin-gonic/gin"
)

// RateService records and reads daily conversion rates
type RateService interface {
	SetRate(ctx context.Context, req salesapp.RateRequest) (*salesapp.RateResponse, error)
	GetRate(ctx context.Context, date time.Time) (*salesapp.RateResponse, error)
}

// RateHandler handles currency rate HTTP requests
type RateHandler struct {
	BaseHandler
	rates    RateService
	location *time.Location
	now      func() time.Time
}

// NewRateHandler creates a new rate handler. location decides what "today" is.
func NewRateHandler(rates RateService, location *time.Location) *RateHandler {
	if location == nil {
		location = time.UTC
	}
	return &RateHandler{rates: rates, location: location, now: time.Now}
}

// dateParam parses :date as YYYY-MM-DD, or "today" in the shop's timezone
func (h *RateHandler) dateParam(c *gin.Context) (time.Time, bool) {
	raw := c.Param("date")
	if raw == "today" {
		return h.now().In(h.location), true
	}
	date, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		h.BadRequest(c, "Invalid date: use YYYY-MM-DD or today")
		return time.Time{}, false
	}
	return date, true
}

// SetRate godoc
// @ID           setCurrencyRate
// @Summary      Record the conversion rate of a day
// @Description  Replaces any rate already recorded for that day.
// @Tags         rates
// @Accept       json
// @Produce      json
// @Param        date path string true "Day (YYYY-MM-DD or today)"
// @Param        request body salesapp.RateRequest true "Rate"
// @Success      200 {object} APIResponse[salesapp.RateResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /rates/{date} [put]
func (h *RateHandler) SetRate(c *gin.Context) {
	date, ok := h.dateParam(c)
	if !ok {
		return
	}
	var req salesapp.RateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	req.Date = date

	rate, err := h.rates.SetRate(h.operation(c, "rate.set"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rate)
}

// GetRate godoc
// @ID           getCurrencyRate
// @Summary      Get the conversion rate of a day
// @Tags         rates
// @Produce      json
// @Param        date path string true "Day (YYYY-MM-DD or today)"
// @Success      200 {object} APIResponse[salesapp.RateResponse]
// @Failure      424 {object} ErrorResponse "No rate recorded"
// @Router       /rates/{date} [get]
func (h *RateHandler) GetRate(c *gin.Context) {
	date, ok := h.dateParam(c)
	if !ok {
		return
	}

	rate, err := h.rates.GetRate(h.operation(c, "rate.get"), date)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rate)
}
