package handler

import "github.com/erp/shopcore/internal/interfaces/http/dto"

// Swagger-only envelope shapes. Handlers write dto.Response; these exist so
// the generated docs show a typed data field per endpoint.

// APIResponse is the success envelope around T
type APIResponse[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data,omitempty"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
	Meta    *dto.Meta      `json:"meta,omitempty"`
}

// ErrorResponse is the failure envelope; error.code is the domain error code
// and error.request_id echoes X-Request-ID.
type ErrorResponse struct {
	Success bool           `json:"success" example:"false"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
}
