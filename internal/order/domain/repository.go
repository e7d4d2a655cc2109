package domain

import (
	"context"

	"github.com/smallbiznis/orderdesk/internal/store"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, order *Order) error
	ListViews(ctx context.Context, db *gorm.DB, scope store.Scope) ([]OrderView, error)
}
