package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/orderdesk/internal/principal"
)

type CreateCustomerRequest struct {
	Name    string
	Address string
}

type Service interface {
	Create(ctx context.Context, actor principal.Principal, req CreateCustomerRequest) (Customer, error)
	List(ctx context.Context, actor principal.Principal) ([]Customer, error)
	// GetOwned returns ErrNotFound both for missing rows and rows owned by
	// someone else.
	GetOwned(ctx context.Context, ownerID, id snowflake.ID) (Customer, error)
}

var (
	ErrInvalidActor   = errors.New("invalid_actor")
	ErrInvalidName    = errors.New("invalid_name")
	ErrInvalidAddress = errors.New("invalid_address")
	ErrConflict       = errors.New("customer_conflict")
	ErrNotFound       = errors.New("not_found")
)
