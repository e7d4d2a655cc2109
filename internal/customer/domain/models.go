package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Customer struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	CustomerID string       `gorm:"column:customer_id;size:16;not null;uniqueIndex" json:"customer_id"`
	Name       string       `gorm:"size:30;not null" json:"name"`
	Address    string       `gorm:"size:100;not null" json:"address"`
	CreatedBy  snowflake.ID `gorm:"not null;index" json:"created_by"`
	CreatedAt  time.Time    `gorm:"not null" json:"created_at"`
}

func (Customer) TableName() string { return "customers" }
