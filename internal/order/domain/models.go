package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Order struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrderID     string          `gorm:"column:order_id;size:16;not null;uniqueIndex" json:"order_id"`
	CustomerID  snowflake.ID    `gorm:"column:customer_id;not null;index" json:"customer_id"`
	SKUID       snowflake.ID    `gorm:"column:sku_id;not null;index" json:"sku_id"`
	Quantity    int             `gorm:"column:quantity;not null" json:"quantity"`
	Rate        decimal.Decimal `gorm:"column:rate;type:decimal(20,4);not null" json:"rate"`
	TotalAmount decimal.Decimal `gorm:"column:total_amount;type:decimal(20,2);not null" json:"total_amount"`
	CreatedBy   snowflake.ID    `gorm:"column:created_by;not null;index" json:"created_by"`
	Timestamp   time.Time       `gorm:"column:timestamp;not null;index" json:"timestamp"`
}

func (Order) TableName() string { return "orders" }

type CustomerRef struct {
	ID         snowflake.ID `json:"id"`
	CustomerID string       `json:"customer_id"`
	Name       string       `json:"name"`
}

type SKURef struct {
	ID                snowflake.ID `json:"id"`
	SKUID             string       `json:"sku_id"`
	Name              string       `json:"sku_name"`
	UnitOfMeasurement string       `json:"unit_of_measurement"`
}

// OrderView is an order with its customer and SKU populated.
type OrderView struct {
	ID          snowflake.ID
	OrderID     string
	Customer    CustomerRef
	SKU         SKURef
	Quantity    int
	Rate        decimal.Decimal
	TotalAmount decimal.Decimal
	CreatedBy   snowflake.ID
	Timestamp   time.Time
}
