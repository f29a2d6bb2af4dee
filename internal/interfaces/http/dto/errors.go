package dto

import "net/http"

// Error codes returned in the response envelope.
// Domain codes pass through unchanged; the ERR_ codes belong to the HTTP layer.

// General error codes
const (
	// ErrCodeInternal is used for unexpected server errors
	ErrCodeInternal = "ERR_INTERNAL"
	// ErrCodeValidation is used when request binding or validation fails
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeRateLimited is used when the rate limit is exceeded
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
	// ErrCodeRequestTooLarge is used when the body exceeds the configured limit
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
	// ErrCodeTimeout is used when the handler exceeds the request deadline
	ErrCodeTimeout = "ERR_TIMEOUT"
)

// Domain error codes
const (
	CodeNotFound           = "NOT_FOUND"
	CodeAccountNotFound    = "ACCOUNT_NOT_FOUND"
	CodeSaleNotFound       = "SALE_NOT_FOUND"
	CodeProductNotFound    = "PRODUCT_NOT_FOUND"
	CodeCustomerNotFound   = "CUSTOMER_NOT_FOUND"
	CodeLineItemNotFound   = "LINE_ITEM_NOT_FOUND"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeInvalidReceipt     = "INVALID_RECEIPT"
	CodeInvalidState       = "INVALID_STATE"
	CodeAlreadyExists      = "ALREADY_EXISTS"
	CodeAccountInactive    = "ACCOUNT_INACTIVE"
	CodeInsufficientFunds  = "INSUFFICIENT_FUNDS"
	CodeRateUnavailable    = "RATE_UNAVAILABLE"
	CodeProductUnavailable = "PRODUCT_UNAVAILABLE"
	CodeBellNumberConflict = "BELL_NUMBER_CONFLICT"
	CodeStorageFailure     = "STORAGE_FAILURE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:        http.StatusInternalServerError,
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeRateLimited:     http.StatusTooManyRequests,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeTimeout:         http.StatusGatewayTimeout,

	// NotFound -> 404
	CodeNotFound:         http.StatusNotFound,
	CodeAccountNotFound:  http.StatusNotFound,
	CodeSaleNotFound:     http.StatusNotFound,
	CodeProductNotFound:  http.StatusNotFound,
	CodeCustomerNotFound: http.StatusNotFound,
	CodeLineItemNotFound: http.StatusNotFound,

	// InvalidInput -> 400, except conflicts with stored state
	CodeInvalidInput:   http.StatusBadRequest,
	CodeInvalidReceipt: http.StatusBadRequest,
	CodeInvalidState:   http.StatusConflict,
	CodeAlreadyExists:  http.StatusConflict,

	CodeBellNumberConflict: http.StatusConflict,
	CodeProductUnavailable: http.StatusConflict,
	CodeAccountInactive:    http.StatusLocked,
	CodeInsufficientFunds:  http.StatusUnprocessableEntity,
	CodeRateUnavailable:    http.StatusFailedDependency,
	CodeStorageFailure:     http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
