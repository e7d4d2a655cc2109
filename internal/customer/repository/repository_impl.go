package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/orderdesk/internal/customer/domain"
	"github.com/smallbiznis/orderdesk/internal/store"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO customers (id, customer_id, name, address, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		customer.ID,
		customer.CustomerID,
		customer.Name,
		customer.Address,
		customer.CreatedBy,
		customer.CreatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, scope store.Scope, id snowflake.ID) (*domain.Customer, error) {
	var customer domain.Customer
	stmt := db.WithContext(ctx).Model(&domain.Customer{}).Where("id = ?", id)
	err := scope.Apply(stmt, "created_by").Limit(1).Scan(&customer).Error
	if err != nil {
		return nil, err
	}
	if customer.ID == 0 {
		return nil, nil
	}
	return &customer, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, scope store.Scope) ([]*domain.Customer, error) {
	var customers []*domain.Customer
	stmt := scope.Apply(db.WithContext(ctx).Model(&domain.Customer{}), "created_by")
	if err := stmt.Order("created_at desc, id desc").Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}
