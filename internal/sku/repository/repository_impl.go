package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/orderdesk/internal/sku/domain"
	"github.com/smallbiznis/orderdesk/internal/store"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, sku *domain.SKU) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO skus (id, sku_id, sku_name, unit_of_measurement, tax_rate, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sku.ID,
		sku.SKUID,
		sku.Name,
		sku.UnitOfMeasurement,
		sku.TaxRate,
		sku.CreatedBy,
		sku.CreatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, scope store.Scope, id snowflake.ID) (*domain.SKU, error) {
	var sku domain.SKU
	stmt := db.WithContext(ctx).Model(&domain.SKU{}).Where("id = ?", id)
	if err := scope.Apply(stmt, "created_by").Limit(1).Scan(&sku).Error; err != nil {
		return nil, err
	}
	if sku.ID == 0 {
		return nil, nil
	}
	return &sku, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, scope store.Scope) ([]*domain.SKU, error) {
	var skus []*domain.SKU
	stmt := scope.Apply(db.WithContext(ctx).Model(&domain.SKU{}), "created_by")
	if err := stmt.Order("created_at desc, id desc").Find(&skus).Error; err != nil {
		return nil, err
	}
	return skus, nil
}
