package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type UnitOfMeasurement string

const (
	UnitPieces UnitOfMeasurement = "pcs"
	UnitKilo   UnitOfMeasurement = "kg"
	UnitLiters UnitOfMeasurement = "liters"
)

func (u UnitOfMeasurement) Valid() bool {
	switch u {
	case UnitPieces, UnitKilo, UnitLiters:
		return true
	}
	return false
}

type SKU struct {
	ID                snowflake.ID      `gorm:"primaryKey" json:"id"`
	SKUID             string            `gorm:"column:sku_id;size:16;not null;uniqueIndex" json:"sku_id"`
	Name              string            `gorm:"column:sku_name;size:50;not null" json:"sku_name"`
	UnitOfMeasurement UnitOfMeasurement `gorm:"column:unit_of_measurement;size:8;not null" json:"unit_of_measurement"`
	TaxRate           decimal.Decimal   `gorm:"column:tax_rate;type:decimal(20,4);not null" json:"tax_rate"`
	CreatedBy         snowflake.ID      `gorm:"column:created_by;not null;index" json:"created_by"`
	CreatedAt         time.Time         `gorm:"column:created_at;not null" json:"created_at"`
}

func (SKU) TableName() string { return "skus" }
