package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/orderdesk/internal/authorization"
	"github.com/smallbiznis/orderdesk/internal/clock"
	"github.com/smallbiznis/orderdesk/internal/observability/logger"
	"github.com/smallbiznis/orderdesk/internal/principal"
	"github.com/smallbiznis/orderdesk/internal/summary/domain"
	"github.com/smallbiznis/orderdesk/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("summary.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

// RunAggregationTick reads every order in the window regardless of owner.
func (s *Service) RunAggregationTick(ctx context.Context) (*domain.HourlySummary, error) {
	now := s.clock.Now()
	start := now.Add(-domain.Window)

	totals, err := s.repo.OrderTotals(ctx, s.db, start, now)
	if err != nil {
		return nil, fmt.Errorf("%w: order totals: %w", domain.ErrStorage, err)
	}
	count, sum := domain.Aggregate(totals)

	summary := &domain.HourlySummary{
		ID:          s.genID.Generate(),
		TotalOrders: count,
		TotalAmount: sum,
		WindowStart: start,
		WindowEnd:   now,
		Timestamp:   now,
	}
	if err := s.repo.Insert(ctx, s.db, summary); err != nil {
		return nil, fmt.Errorf("%w: insert summary: %w", domain.ErrStorage, err)
	}

	logger.WithContext(ctx, s.log).Info("hourly summary recorded",
		zap.String("summary_id", summary.ID.String()),
		zap.Int64("total_orders", count),
		zap.String("total_amount", sum.StringFixed(2)),
		zap.Time("window_start", start),
		zap.Time("window_end", now),
	)
	return summary, nil
}

func (s *Service) List(ctx context.Context, actor principal.Principal, page pagination.Pagination) (domain.ListSummariesResponse, error) {
	if !actor.Valid() {
		return domain.ListSummariesResponse{}, domain.ErrInvalidActor
	}
	if !actor.IsAdmin() {
		return domain.ListSummariesResponse{}, authorization.ErrForbidden
	}

	after, err := decodeListCursor(page.PageToken)
	if err != nil {
		return domain.ListSummariesResponse{}, err
	}

	limit := page.Limit()
	rows, err := s.repo.List(ctx, s.db, after, limit+1)
	if err != nil {
		return domain.ListSummariesResponse{}, fmt.Errorf("%w: list summaries: %w", domain.ErrStorage, err)
	}

	rows, pageInfo, err := pagination.Trim(rows, limit, func(row *domain.HourlySummary) pagination.Cursor {
		return pagination.Cursor{
			ID:        row.ID.String(),
			Timestamp: row.Timestamp.UTC().Format(time.RFC3339Nano),
		}
	})
	if err != nil {
		return domain.ListSummariesResponse{}, err
	}

	summaries := make([]domain.HourlySummary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, *row)
	}
	return domain.ListSummariesResponse{PageInfo: pageInfo, Summaries: summaries}, nil
}

func decodeListCursor(token string) (*domain.ListCursor, error) {
	cursor, err := pagination.DecodeCursor(token)
	if err != nil || cursor == nil {
		return nil, err
	}
	ts, err := time.Parse(time.RFC3339Nano, cursor.Timestamp)
	if err != nil {
		return nil, pagination.ErrInvalidPageToken
	}
	id, err := strconv.ParseInt(cursor.ID, 10, 64)
	if err != nil {
		return nil, pagination.ErrInvalidPageToken
	}
	return &domain.ListCursor{Timestamp: ts, ID: id}, nil
}
