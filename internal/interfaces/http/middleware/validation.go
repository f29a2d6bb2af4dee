package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/erp/shopcore/internal/domain/shared/valueobject"
	"github.com/erp/shopcore/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// SetupValidator configures gin's validator: JSON tag names in errors, decimal
// fields validated by value, plus the decimal_gt0 and currency tags.
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	registerValidations(v)
}

func registerValidations(v *validator.Validate) {
	v.RegisterTagNameFunc(fieldName)
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	_ = v.RegisterValidation("decimal_gt0", decimalGreaterThanZero)
	_ = v.RegisterValidation("currency", supportedCurrency)
}

// fieldName reports a field by its json name, or its form name for query
// parameters.
func fieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		name, _, _ = strings.Cut(f.Tag.Get("form"), ",")
	}
	return name
}

// supportedCurrency accepts codes ParseCurrency accepts, case-insensitively
func supportedCurrency(fl validator.FieldLevel) bool {
	_, err := valueobject.ParseCurrency(fl.Field().String())
	return err == nil
}

// decimalGreaterThanZero sees the string form the custom type func yields
func decimalGreaterThanZero(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	return err == nil && d.IsPositive()
}

// FormatValidationErrors formats validation errors into a standard response
func FormatValidationErrors(err error, requestID string) dto.Response {
	var details []dto.ValidationDetail

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			details = append(details, dto.ValidationDetail{
				Field:   e.Field(),
				Message: getValidationMessage(e),
			})
		}
		return dto.NewValidationErrorResponse("Request validation failed", requestID, details)
	}

	// malformed JSON, wrong field types, unparsable decimals or uuids
	return dto.NewValidationErrorResponse("Malformed request: "+err.Error(), requestID, nil)
}

// HandleValidationError returns a validation error response
func HandleValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, FormatValidationErrors(err, GetRequestID(c)))
}

var fixedMessages = map[string]string{
	"required":    "This field is required",
	"decimal_gt0": "Must be a decimal amount greater than zero",
	"currency":    "Must be a supported currency code",
	"uuid":        "Invalid UUID format",
}

// getValidationMessage phrases e for the caller; length rules read as
// characters on strings and items on slices.
func getValidationMessage(e validator.FieldError) string {
	if msg, ok := fixedMessages[e.Tag()]; ok {
		return msg
	}
	unit := ""
	switch e.Kind() {
	case reflect.String:
		unit = " characters"
	case reflect.Slice:
		unit = " item(s)"
	}
	p := e.Param()
	switch e.Tag() {
	case "min":
		if unit == " item(s)" {
			return "Must contain at least " + p + unit
		}
		return "Must be at least " + p + unit
	case "max":
		return "Must be at most " + p + unit
	case "len":
		return "Must be exactly " + p + unit
	case "oneof":
		return "Must be one of: " + p
	case "gte":
		return "Must be greater than or equal to " + p
	case "gt":
		return "Must be greater than " + p
	}
	return "Invalid value"
}
