// Package handler holds the gin handlers of the shop API.
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/erp/shopcore/internal/domain/shared"
	"github.com/erp/shopcore/internal/infrastructure/logger"
	"github.com/erp/shopcore/internal/interfaces/http/dto"
	"github.com/erp/shopcore/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID set by the RequestID middleware
func getRequestID(c *gin.Context) string {
	return middleware.GetRequestID(c)
}

// operation tags the request context and its logger with the operation name
// and returns the context services should run under.
func (h *BaseHandler) operation(c *gin.Context, name string) context.Context {
	ctx := logger.WithOperation(c.Request.Context(), name)
	c.Request = c.Request.WithContext(ctx)
	return ctx
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessPage sends one page of a list with its pagination meta
func SuccessPage[T any](c *gin.Context, page *shared.Paginated[T]) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(page.Items, page.Total, page.Limit, page.Offset, len(page.Items)))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response with the given status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	middleware.SetErrorCode(c, code)
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// ValidationError answers a failed ShouldBind with the offending fields
func (h *BaseHandler) ValidationError(c *gin.Context, err error) {
	middleware.SetErrorCode(c, dto.ErrCodeValidation)
	middleware.HandleValidationError(c, err)
}

// HandleError converts an error returned by a service into a response.
// Domain errors answer with their code; anything else is treated as a storage
// failure since it escaped the repositories unclassified.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	log := logger.FromContext(c.Request.Context())

	if errors.Is(err, context.DeadlineExceeded) {
		log.Warn("Request deadline exceeded", zap.Error(err))
		h.Error(c, http.StatusGatewayTimeout, dto.ErrCodeTimeout, "Request timed out")
		return
	}

	var domainErr *shared.DomainError
	if !errors.As(err, &domainErr) {
		log.Error("Unclassified error", zap.Error(err))
		h.Error(c, http.StatusServiceUnavailable, dto.CodeStorageFailure, shared.ErrStorageFailure.Message)
		return
	}

	status := dto.GetHTTPStatus(domainErr.Code)
	fields := []zap.Field{
		zap.String("error_code", domainErr.Code),
		zap.String("error_kind", string(domainErr.Kind)),
	}
	if status >= http.StatusInternalServerError {
		// the cause stays in the log; clients only see the message
		log.Error("Request failed", append(fields, zap.Error(err))...)
	} else {
		log.Info("Request rejected", append(fields, zap.String("reason", domainErr.Message))...)
	}
	h.Error(c, status, domainErr.Code, domainErr.Message)
}

// uuidParam parses the named path parameter, answering 400 when it is not a uuid
func (h *BaseHandler) uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.BadRequest(c, "Invalid "+name+": must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// pageQuery binds limit and offset, answering 400 when they are out of range
func (h *BaseHandler) pageQuery(c *gin.Context) (dto.PageRequest, bool) {
	var page dto.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		h.ValidationError(c, err)
		return page, false
	}
	return page, true
}
