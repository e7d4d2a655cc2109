package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Ensure(ctx context.Context, db *gorm.DB, name string) error
	Increment(ctx context.Context, db *gorm.DB, name string) error
	Current(ctx context.Context, db *gorm.DB, name string) (int64, error)
}
