package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// HourlySummary records the orders admitted in [WindowStart, WindowEnd).
type HourlySummary struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	TotalOrders int64           `gorm:"column:total_orders;not null" json:"total_orders"`
	TotalAmount decimal.Decimal `gorm:"column:total_amount;type:decimal(20,2);not null" json:"total_amount"`
	WindowStart time.Time       `gorm:"column:window_start;not null" json:"window_start"`
	WindowEnd   time.Time       `gorm:"column:window_end;not null" json:"window_end"`
	Timestamp   time.Time       `gorm:"column:timestamp;not null;index" json:"timestamp"`
}

func (HourlySummary) TableName() string { return "hourly_summaries" }
