package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erp/shopcore/internal/domain/shared"
	"github.com/erp/shopcore/internal/infrastructure/logger"
	"github.com/erp/shopcore/internal/interfaces/http/dto"
	"github.com/erp/shopcore/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// newContext returns a gin context over a recorder, with a request id set
func newContext(method, target string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, target, nil)
	c.Set(middleware.RequestIDKey, "req-test")
	return c, w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestGetRequestID(t *testing.T) {
	c, _ := newContext(http.MethodGet, "/")
	assert.Equal(t, "req-test", getRequestID(c))

	bare, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Empty(t, getRequestID(bare))
}

func TestBaseHandler_Success(t *testing.T) {
	h := &BaseHandler{}
	c, w := newContext(http.MethodGet, "/")

	h.Success(c, map[string]string{"key": "value"})

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Meta)
}

func TestBaseHandler_Created(t *testing.T) {
	h := &BaseHandler{}
	c, w := newContext(http.MethodPost, "/")

	h.Created(c, map[string]string{"id": "123"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, decodeResponse(t, w).Success)
}

func TestSuccessPage(t *testing.T) {
	c, w := newContext(http.MethodGet, "/")

	page := shared.NewPaginated([]string{"a", "b"}, 5, shared.NewPage(2, 2))
	SuccessPage(c, &page)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(5), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.Limit)
	assert.Equal(t, 2, resp.Meta.Offset)
	assert.True(t, resp.Meta.HasMore)
}

func TestBaseHandler_BadRequest(t *testing.T) {
	h := &BaseHandler{}
	c, w := newContext(http.MethodGet, "/")

	h.BadRequest(c, "Invalid request")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeBadRequest, resp.Error.Code)
	assert.Equal(t, "req-test", resp.Error.RequestID)

	code, ok := c.Get("error_code")
	require.True(t, ok)
	assert.Equal(t, dto.ErrCodeBadRequest, code)
}

func TestBaseHandler_HandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		retryable  bool
	}{
		{"not found", shared.ErrAccountNotFound, http.StatusNotFound, "ACCOUNT_NOT_FOUND", false},
		{"invalid input", shared.ErrInvalidAmount, http.StatusBadRequest, "INVALID_INPUT", false},
		{"invalid receipt", shared.ErrInvalidReceipt.WithMessage("paid exceeds total"), http.StatusBadRequest, "INVALID_RECEIPT", false},
		{"frozen account", shared.ErrAccountInactive, http.StatusLocked, "ACCOUNT_INACTIVE", false},
		{"insufficient funds", shared.ErrInsufficientFunds, http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS", false},
		{"no rate", shared.ErrRateUnavailable, http.StatusFailedDependency, "RATE_UNAVAILABLE", false},
		{"product sold", shared.ErrProductUnavailable, http.StatusConflict, "PRODUCT_UNAVAILABLE", false},
		{"bell number", shared.ErrBellNumberConflict, http.StatusConflict, "BELL_NUMBER_CONFLICT", false},
		{"storage", shared.NewStorageError("post", errors.New("conn reset")), http.StatusServiceUnavailable, "STORAGE_FAILURE", true},
		{"wrapped domain error", fmt.Errorf("create sale: %w", shared.ErrSaleNotFound), http.StatusNotFound, "SALE_NOT_FOUND", false},
		{"unclassified", errors.New("boom"), http.StatusServiceUnavailable, "STORAGE_FAILURE", true},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, dto.ErrCodeTimeout, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{}
			c, w := newContext(http.MethodGet, "/")

			h.HandleError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeResponse(t, w)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Equal(t, tt.retryable, resp.Error.Retryable)
		})
	}
}

func TestBaseHandler_HandleError_HidesCause(t *testing.T) {
	h := &BaseHandler{}
	c, w := newContext(http.MethodGet, "/")

	h.HandleError(c, shared.NewStorageError("post", errors.New("password authentication failed")))

	assert.NotContains(t, w.Body.String(), "password")
}

func TestBaseHandler_HandleError_Nil(t *testing.T) {
	h := &BaseHandler{}
	c, w := newContext(http.MethodGet, "/")

	h.HandleError(c, nil)

	assert.False(t, c.Writer.Written())
	assert.Equal(t, 0, w.Body.Len())
}

func TestBaseHandler_Operation(t *testing.T) {
	h := &BaseHandler{}
	c, _ := newContext(http.MethodGet, "/")

	ctx := h.operation(c, "ledger.post")

	assert.Equal(t, "ledger.post", logger.GetOperation(ctx))
	assert.Equal(t, "ledger.post", logger.GetOperation(c.Request.Context()))
}

func TestBaseHandler_UUIDParam(t *testing.T) {
	h := &BaseHandler{}

	c, w := newContext(http.MethodGet, "/")
	c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}
	_, ok := h.uuidParam(c, "id")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, _ = newContext(http.MethodGet, "/")
	c.Params = gin.Params{{Key: "id", Value: "6f1c2a4e-8b0d-4a51-9e3b-2f7d6c5a1b09"}}
	id, ok := h.uuidParam(c, "id")
	assert.True(t, ok)
	assert.Equal(t, "6f1c2a4e-8b0d-4a51-9e3b-2f7d6c5a1b09", id.String())
}

func TestBaseHandler_PageQuery(t *testing.T) {
	h := &BaseHandler{}

	c, _ := newContext(http.MethodGet, "/?limit=10&offset=30")
	page, ok := h.pageQuery(c)
	require.True(t, ok)
	assert.Equal(t, 10, page.Limit)
	assert.Equal(t, 30, page.Offset)

	c, w := newContext(http.MethodGet, "/?limit=500")
	_, ok = h.pageQuery(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeValidation, decodeResponse(t, w).Error.Code)
}
