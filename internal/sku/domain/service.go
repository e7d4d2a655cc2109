package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/orderdesk/internal/principal"
)

type CreateSKURequest struct {
	Name              string
	UnitOfMeasurement string
	TaxRate           decimal.Decimal
}

type Service interface {
	Create(ctx context.Context, actor principal.Principal, req CreateSKURequest) (SKU, error)
	List(ctx context.Context, actor principal.Principal) ([]SKU, error)
	GetOwned(ctx context.Context, ownerID, id snowflake.ID) (SKU, error)
}

var (
	ErrInvalidActor   = errors.New("invalid_actor")
	ErrInvalidName    = errors.New("invalid_sku_name")
	ErrInvalidUnit    = errors.New("invalid_unit_of_measurement")
	ErrInvalidTaxRate = errors.New("invalid_tax_rate")
	ErrConflict       = errors.New("sku_conflict")
	ErrNotFound       = errors.New("not_found")
)
