package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/orderdesk/internal/store"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, customer *Customer) error
	FindByID(ctx context.Context, db *gorm.DB, scope store.Scope, id snowflake.ID) (*Customer, error)
	List(ctx context.Context, db *gorm.DB, scope store.Scope) ([]*Customer, error)
}
