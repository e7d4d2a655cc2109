package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/orderdesk/internal/store"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, sku *SKU) error
	FindByID(ctx context.Context, db *gorm.DB, scope store.Scope, id snowflake.ID) (*SKU, error)
	List(ctx context.Context, db *gorm.DB, scope store.Scope) ([]*SKU, error)
}
