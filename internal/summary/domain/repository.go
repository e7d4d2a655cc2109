package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ListCursor positions keyset pagination on (timestamp, id) descending.
type ListCursor struct {
	Timestamp time.Time
	ID        int64
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, summary *HourlySummary) error
	// OrderTotals returns total_amount of every order whose timestamp is in [start, end).
	OrderTotals(ctx context.Context, db *gorm.DB, start, end time.Time) ([]decimal.Decimal, error)
	List(ctx context.Context, db *gorm.DB, after *ListCursor, limit int) ([]*HourlySummary, error)
}
