package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/orderdesk/internal/auth/domain"
	"github.com/smallbiznis/orderdesk/internal/authorization"
	customerdomain "github.com/smallbiznis/orderdesk/internal/customer/domain"
	"github.com/smallbiznis/orderdesk/internal/notification"
	orderdomain "github.com/smallbiznis/orderdesk/internal/order/domain"
	skudomain "github.com/smallbiznis/orderdesk/internal/sku/domain"
	summarydomain "github.com/smallbiznis/orderdesk/internal/summary/domain"
	"github.com/smallbiznis/orderdesk/pkg/db/pagination"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

// domainValidation maps plain domain sentinels to the request field they
// reject.
var domainValidation = []struct {
	err     error
	field   string
	code    string
	message string
}{
	{authdomain.ErrInvalidUsername, "username", "invalid_username", "username must be 3 to 30 characters"},
	{authdomain.ErrInvalidPassword, "password", "invalid_password", "password must be 8 to 30 letters or digits"},
	{customerdomain.ErrInvalidName, "name", "invalid_name", "name must be 3 to 30 characters"},
	{customerdomain.ErrInvalidAddress, "address", "invalid_address", "address must be 3 to 100 characters"},
	{skudomain.ErrInvalidName, "sku_name", "invalid_sku_name", "sku_name must be 3 to 50 characters"},
	{skudomain.ErrInvalidUnit, "unit_of_measurement", "invalid_unit_of_measurement", "unit_of_measurement must be one of pcs, kg, liters"},
	{skudomain.ErrInvalidTaxRate, "tax_rate", "invalid_tax_rate", "tax_rate must be between 0 and 100"},
	{pagination.ErrInvalidPageToken, "page_token", "invalid_page_token", "invalid page token"},
	{ErrInvalidRequest, "request", "invalid_request", "invalid request"},
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, validationPayload(vErr.Errors)
	}

	var orderErr *orderdomain.ValidationError
	if errors.As(err, &orderErr) {
		return http.StatusBadRequest, validationPayload([]ValidationError{{
			Field:   orderErr.Field,
			Code:    orderErr.Code,
			Message: orderErr.Message,
		}})
	}

	for _, known := range domainValidation {
		if errors.Is(err, known.err) {
			return http.StatusBadRequest, validationPayload([]ValidationError{{
				Field:   known.field,
				Code:    known.code,
				Message: known.message,
			}})
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrInvalidSession),
		errors.Is(err, authdomain.ErrSessionNotFound),
		errors.Is(err, authdomain.ErrSessionExpired),
		errors.Is(err, authdomain.ErrSessionRevoked),
		errors.Is(err, authdomain.ErrUserNotFound),
		isInvalidActor(err):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, notification.ErrNotAdmin):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, orderdomain.ErrNotFoundOrForbidden):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found or access denied",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrConflict),
		errors.Is(err, authdomain.ErrUserExists),
		errors.Is(err, customerdomain.ErrConflict),
		errors.Is(err, skudomain.ErrConflict):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, notification.ErrHubStopped):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func validationPayload(errs []ValidationError) errorPayload {
	return errorPayload{
		Type:    "validation_error",
		Message: "validation error",
		Errors:  errs,
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isInvalidActor(err error) bool {
	switch {
	case errors.Is(err, authorization.ErrInvalidActor),
		errors.Is(err, orderdomain.ErrInvalidActor),
		errors.Is(err, customerdomain.ErrInvalidActor),
		errors.Is(err, skudomain.ErrInvalidActor),
		errors.Is(err, summarydomain.ErrInvalidActor):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, customerdomain.ErrNotFound),
		errors.Is(err, skudomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

// classifyErrorForLog feeds the request logger a type and a code without
// leaking internal detail.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	if status == http.StatusBadRequest && len(payload.Errors) > 0 {
		return payload.Type, payload.Errors[0].Code
	}
	return payload.Type, http.StatusText(status)
}
