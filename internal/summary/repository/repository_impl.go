package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/orderdesk/internal/summary/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, summary *domain.HourlySummary) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO hourly_summaries (id, total_orders, total_amount, window_start, window_end, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		summary.ID,
		summary.TotalOrders,
		summary.TotalAmount,
		summary.WindowStart,
		summary.WindowEnd,
		summary.Timestamp,
	).Error
}

func (r *repo) OrderTotals(ctx context.Context, db *gorm.DB, start, end time.Time) ([]decimal.Decimal, error) {
	var rows []struct {
		TotalAmount decimal.Decimal `gorm:"column:total_amount"`
	}
	err := db.WithContext(ctx).Raw(
		`SELECT total_amount
		 FROM orders
		 WHERE timestamp >= ? AND timestamp < ?`,
		start,
		end,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	totals := make([]decimal.Decimal, 0, len(rows))
	for _, row := range rows {
		totals = append(totals, row.TotalAmount)
	}
	return totals, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, after *domain.ListCursor, limit int) ([]*domain.HourlySummary, error) {
	stmt := db.WithContext(ctx).Model(&domain.HourlySummary{})
	if after != nil {
		stmt = stmt.Where("(timestamp < ?) OR (timestamp = ? AND id < ?)", after.Timestamp, after.Timestamp, after.ID)
	}

	var summaries []*domain.HourlySummary
	if err := stmt.Order("timestamp desc, id desc").Limit(limit).Find(&summaries).Error; err != nil {
		return nil, err
	}
	return summaries, nil
}
