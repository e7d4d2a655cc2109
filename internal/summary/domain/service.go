package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/orderdesk/internal/principal"
	"github.com/smallbiznis/orderdesk/pkg/db/pagination"
)

const Window = time.Hour

type Service interface {
	// RunAggregationTick summarizes the hour before now. Calling it twice in
	// the same hour writes two overlapping rows.
	RunAggregationTick(ctx context.Context) (*HourlySummary, error)
	List(ctx context.Context, actor principal.Principal, page pagination.Pagination) (ListSummariesResponse, error)
}

type ListSummariesResponse struct {
	pagination.PageInfo
	Summaries []HourlySummary
}

var (
	ErrInvalidActor = errors.New("invalid_actor")
	ErrStorage      = errors.New("storage_error")
)

// Aggregate counts the totals and sums them, rounded to cents.
func Aggregate(totals []decimal.Decimal) (int64, decimal.Decimal) {
	sum := decimal.Zero
	for _, total := range totals {
		sum = sum.Add(total)
	}
	return int64(len(totals)), sum.Round(2)
}
