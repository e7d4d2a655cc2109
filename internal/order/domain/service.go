package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/orderdesk/internal/principal"
)

type AdmitOrderRequest struct {
	CustomerRef string
	SKURef      string
	Quantity    int
	Rate        decimal.Decimal
}

type AdmitOrderResponse struct {
	OrderID     string
	Customer    string
	SKU         string
	TotalAmount decimal.Decimal
	Timestamp   time.Time
}

type Service interface {
	Admit(ctx context.Context, actor principal.Principal, req AdmitOrderRequest) (AdmitOrderResponse, error)
	List(ctx context.Context, actor principal.Principal) ([]OrderView, error)
}

var (
	ErrInvalidActor = errors.New("invalid_actor")
	ErrInvalidOrder = errors.New("invalid_order")
	// ErrNotFoundOrForbidden does not say which of the two applies.
	ErrNotFoundOrForbidden = errors.New("customer/sku not found or access denied")
	ErrStorage             = errors.New("storage_error")
)

// ValidationError reports one rejected field. It matches ErrInvalidOrder.
type ValidationError struct {
	Field   string
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidOrder
}
