package shared

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a domain error into the categories callers act on
type ErrorKind string

const (
	KindNotFound           ErrorKind = "NotFound"
	KindInvalidInput       ErrorKind = "InvalidInput"
	KindAccountInactive    ErrorKind = "AccountInactive"
	KindInsufficientFunds  ErrorKind = "InsufficientFunds"
	KindRateUnavailable    ErrorKind = "RateUnavailable"
	KindProductUnavailable ErrorKind = "ProductUnavailable"
	KindBellNumberConflict ErrorKind = "BellNumberConflict"
	KindStorageFailure     ErrorKind = "StorageFailure"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string    `json:"code"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	cause   error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is matches domain errors by code so that errors.Is works against the
// sentinel values below regardless of the message a call site attached.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// WithMessage returns a copy of the error carrying a more specific message
func (e *DomainError) WithMessage(format string, args ...any) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Kind:    e.Kind,
		Message: fmt.Sprintf(format, args...),
		cause:   e.cause,
	}
}

// NewDomainError creates a new domain error of the given kind
func NewDomainError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Kind:    kind,
		Message: message,
	}
}

// NewStorageError wraps an infrastructure failure. It is the only retryable kind.
func NewStorageError(op string, err error) *DomainError {
	return &DomainError{
		Code:    ErrStorageFailure.Code,
		Kind:    KindStorageFailure,
		Message: fmt.Sprintf("storage failure during %s", op),
		cause:   err,
	}
}

// Common domain errors
var (
	ErrNotFound         = NewDomainError(KindNotFound, "NOT_FOUND", "Resource not found")
	ErrAccountNotFound  = NewDomainError(KindNotFound, "ACCOUNT_NOT_FOUND", "Account not found")
	ErrSaleNotFound     = NewDomainError(KindNotFound, "SALE_NOT_FOUND", "Sale not found")
	ErrProductNotFound  = NewDomainError(KindNotFound, "PRODUCT_NOT_FOUND", "Product not found")
	ErrCustomerNotFound = NewDomainError(KindNotFound, "CUSTOMER_NOT_FOUND", "Customer not found")
	ErrLineItemNotFound = NewDomainError(KindNotFound, "LINE_ITEM_NOT_FOUND", "Line item not found on this sale")

	ErrInvalidInput   = NewDomainError(KindInvalidInput, "INVALID_INPUT", "Invalid input provided")
	ErrInvalidAmount  = NewDomainError(KindInvalidInput, "INVALID_INPUT", "Amount must be greater than zero")
	ErrInvalidReceipt = NewDomainError(KindInvalidInput, "INVALID_RECEIPT", "Receipt figures are inconsistent")
	ErrInvalidState   = NewDomainError(KindInvalidInput, "INVALID_STATE", "Operation not allowed in current state")
	ErrAlreadyExists  = NewDomainError(KindInvalidInput, "ALREADY_EXISTS", "Resource already exists")

	ErrAccountInactive    = NewDomainError(KindAccountInactive, "ACCOUNT_INACTIVE", "Account is frozen and cannot accept postings")
	ErrInsufficientFunds  = NewDomainError(KindInsufficientFunds, "INSUFFICIENT_FUNDS", "Insufficient funds for this debit")
	ErrRateUnavailable    = NewDomainError(KindRateUnavailable, "RATE_UNAVAILABLE", "No exchange rate recorded for today")
	ErrProductUnavailable = NewDomainError(KindProductUnavailable, "PRODUCT_UNAVAILABLE", "Product is no longer available")
	ErrBellNumberConflict = NewDomainError(KindBellNumberConflict, "BELL_NUMBER_CONFLICT", "Bell number is already used by another sale")
	ErrStorageFailure     = NewDomainError(KindStorageFailure, "STORAGE_FAILURE", "Storage is temporarily unavailable")
)

// KindOf classifies err. Anything that is not a DomainError is a storage failure.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindStorageFailure
}

// IsRetryable reports whether a caller may retry the same input
func IsRetryable(err error) bool {
	return err != nil && KindOf(err) == KindStorageFailure
}
