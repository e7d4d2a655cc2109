package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/orderdesk/internal/order/domain"
	"github.com/smallbiznis/orderdesk/internal/store"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO orders (id, order_id, customer_id, sku_id, quantity, rate, total_amount, created_by, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID,
		order.OrderID,
		order.CustomerID,
		order.SKUID,
		order.Quantity,
		order.Rate,
		order.TotalAmount,
		order.CreatedBy,
		order.Timestamp,
	).Error
}

type orderRow struct {
	ID           snowflake.ID    `gorm:"column:id"`
	OrderID      string          `gorm:"column:order_id"`
	Quantity     int             `gorm:"column:quantity"`
	Rate         decimal.Decimal `gorm:"column:rate"`
	TotalAmount  decimal.Decimal `gorm:"column:total_amount"`
	CreatedBy    snowflake.ID    `gorm:"column:created_by"`
	Timestamp    time.Time       `gorm:"column:timestamp"`
	CustomerRef  snowflake.ID    `gorm:"column:customer_ref"`
	CustomerCode string          `gorm:"column:customer_code"`
	CustomerName string          `gorm:"column:customer_name"`
	SKURef       snowflake.ID    `gorm:"column:sku_ref"`
	SKUCode      string          `gorm:"column:sku_code"`
	SKUName      string          `gorm:"column:sku_name"`
	SKUUnit      string          `gorm:"column:sku_unit"`
}

const orderViewColumns = `o.id, o.order_id, o.quantity, o.rate, o.total_amount, o.created_by, o.timestamp,
	c.id AS customer_ref, c.customer_id AS customer_code, c.name AS customer_name,
	s.id AS sku_ref, s.sku_id AS sku_code, s.sku_name AS sku_name, s.unit_of_measurement AS sku_unit`

func (r *repo) ListViews(ctx context.Context, db *gorm.DB, scope store.Scope) ([]domain.OrderView, error) {
	stmt := db.WithContext(ctx).
		Table("orders AS o").
		Select(orderViewColumns).
		Joins("JOIN customers AS c ON c.id = o.customer_id").
		Joins("JOIN skus AS s ON s.id = o.sku_id")
	stmt = scope.Apply(stmt, "o.created_by")

	var rows []orderRow
	if err := stmt.Order("o.timestamp desc, o.id desc").Scan(&rows).Error; err != nil {
		return nil, err
	}

	views := make([]domain.OrderView, 0, len(rows))
	for _, row := range rows {
		views = append(views, domain.OrderView{
			ID:      row.ID,
			OrderID: row.OrderID,
			Customer: domain.CustomerRef{
				ID:         row.CustomerRef,
				CustomerID: row.CustomerCode,
				Name:       row.CustomerName,
			},
			SKU: domain.SKURef{
				ID:                row.SKURef,
				SKUID:             row.SKUCode,
				Name:              row.SKUName,
				UnitOfMeasurement: row.SKUUnit,
			},
			Quantity:    row.Quantity,
			Rate:        row.Rate,
			TotalAmount: row.TotalAmount,
			CreatedBy:   row.CreatedBy,
			Timestamp:   row.Timestamp,
		})
	}
	return views, nil
}
