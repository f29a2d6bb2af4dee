package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/erp/shopcore/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
		{ErrCodeRequestTooLarge, http.StatusRequestEntityTooLarge},
		{CodeNotFound, http.StatusNotFound},
		{CodeSaleNotFound, http.StatusNotFound},
		{CodeInvalidInput, http.StatusBadRequest},
		{CodeInvalidReceipt, http.StatusBadRequest},
		{CodeInvalidState, http.StatusConflict},
		{CodeAlreadyExists, http.StatusConflict},
		{CodeBellNumberConflict, http.StatusConflict},
		{CodeProductUnavailable, http.StatusConflict},
		{CodeAccountInactive, http.StatusLocked},
		{CodeInsufficientFunds, http.StatusUnprocessableEntity},
		{CodeRateUnavailable, http.StatusFailedDependency},
		{CodeStorageFailure, http.StatusServiceUnavailable},
		// Unknown code should return 500
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestEveryDomainErrorHasAStatus(t *testing.T) {
	sentinels := []*shared.DomainError{
		shared.ErrNotFound,
		shared.ErrAccountNotFound,
		shared.ErrSaleNotFound,
		shared.ErrProductNotFound,
		shared.ErrCustomerNotFound,
		shared.ErrLineItemNotFound,
		shared.ErrInvalidInput,
		shared.ErrInvalidAmount,
		shared.ErrInvalidReceipt,
		shared.ErrInvalidState,
		shared.ErrAlreadyExists,
		shared.ErrAccountInactive,
		shared.ErrInsufficientFunds,
		shared.ErrRateUnavailable,
		shared.ErrProductUnavailable,
		shared.ErrBellNumberConflict,
		shared.ErrStorageFailure,
	}

	for _, e := range sentinels {
		t.Run(e.Code, func(t *testing.T) {
			_, ok := ErrorCodeHTTPStatus[e.Code]
			assert.True(t, ok, "code %s has no HTTP status", e.Code)
		})
	}
}

func TestNewErrorResponseWithRequestID(t *testing.T) {
	resp := NewErrorResponseWithRequestID(CodeSaleNotFound, "Sale not found", "req-123-456")

	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeSaleNotFound, resp.Error.Code)
	assert.Equal(t, "req-123-456", resp.Error.RequestID)
	assert.False(t, resp.Error.Retryable)

	assert.True(t, NewErrorResponse(CodeStorageFailure, "Storage is temporarily unavailable").Error.Retryable)
}

func TestNewValidationErrorResponse(t *testing.T) {
	details := []ValidationDetail{
		{Field: "amount", Message: "amount must be greater than zero"},
		{Field: "type", Message: "type must be one of: credit debit"},
	}

	resp := NewValidationErrorResponse("Request validation failed", "req-789", details)

	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "req-789", resp.Error.RequestID)
	assert.Equal(t, details, resp.Error.Details)
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	resp := NewSuccessResponseWithMeta([]string{"a", "b"}, 5, 2, 2, 2)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, Meta{Total: 5, Limit: 2, Offset: 2, HasMore: true}, *resp.Meta)

	resp = NewSuccessResponseWithMeta([]string{"e"}, 5, 2, 4, 1)
	assert.False(t, resp.Meta.HasMore)
}

func TestErrorResponseJSON(t *testing.T) {
	data, err := json.Marshal(NewErrorResponseWithRequestID(CodeRateUnavailable, "No exchange rate recorded for 2026-10-14", "req-1"))
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"success": false,
		"error": {
			"code": "RATE_UNAVAILABLE",
			"message": "No exchange rate recorded for 2026-10-14",
			"request_id": "req-1"
		}
	}`, string(data))
}
