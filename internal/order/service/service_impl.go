package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/orderdesk/internal/clock"
	"github.com/smallbiznis/orderdesk/internal/config"
	customerdomain "github.com/smallbiznis/orderdesk/internal/customer/domain"
	"github.com/smallbiznis/orderdesk/internal/notification"
	"github.com/smallbiznis/orderdesk/internal/observability/logger"
	"github.com/smallbiznis/orderdesk/internal/observability/metrics"
	"github.com/smallbiznis/orderdesk/internal/order/domain"
	"github.com/smallbiznis/orderdesk/internal/principal"
	sequencedomain "github.com/smallbiznis/orderdesk/internal/sequence/domain"
	skudomain "github.com/smallbiznis/orderdesk/internal/sku/domain"
	"github.com/smallbiznis/orderdesk/internal/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const newOrderMessage = "New order placed"

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Sequence  sequencedomain.Service
	Customers customerdomain.Service
	SKUs      skudomain.Service
	Notifier  notification.Notifier
	Policy    *config.OrderPolicyHolder
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	sequence  sequencedomain.Service
	customers customerdomain.Service
	skus      skudomain.Service
	notifier  notification.Notifier
	policy    *config.OrderPolicyHolder
	metrics   *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("order.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		sequence:  p.Sequence,
		customers: p.Customers,
		skus:      p.SKUs,
		notifier:  p.Notifier,
		policy:    p.Policy,
		metrics:   p.Metrics,
	}
}

func (s *Service) Admit(ctx context.Context, actor principal.Principal, req domain.AdmitOrderRequest) (domain.AdmitOrderResponse, error) {
	log := logger.WithContext(ctx, s.log)
	if !actor.Valid() {
		return domain.AdmitOrderResponse{}, domain.ErrInvalidActor
	}

	if err := s.validate(req); err != nil {
		s.metrics.RecordOrderAdmissionFailure(ctx, "validation")
		return domain.AdmitOrderResponse{}, err
	}

	customerID, err := parseRef(req.CustomerRef)
	if err != nil {
		s.metrics.RecordOrderAdmissionFailure(ctx, "not_found")
		return domain.AdmitOrderResponse{}, err
	}
	skuID, err := parseRef(req.SKURef)
	if err != nil {
		s.metrics.RecordOrderAdmissionFailure(ctx, "not_found")
		return domain.AdmitOrderResponse{}, err
	}

	// Ownership applies to admins as well: an order may only reference
	// records its author created.
	var (
		customer customerdomain.Customer
		sku      skudomain.SKU
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		found, err := s.customers.GetOwned(gctx, actor.ID, customerID)
		if err != nil {
			return err
		}
		customer = found
		return nil
	})
	g.Go(func() error {
		found, err := s.skus.GetOwned(gctx, actor.ID, skuID)
		if err != nil {
			return err
		}
		sku = found
		return nil
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, customerdomain.ErrNotFound) || errors.Is(err, skudomain.ErrNotFound) {
			s.metrics.RecordOrderAdmissionFailure(ctx, "not_found")
			return domain.AdmitOrderResponse{}, domain.ErrNotFoundOrForbidden
		}
		s.metrics.RecordOrderAdmissionFailure(ctx, "storage")
		return domain.AdmitOrderResponse{}, fmt.Errorf("%w: lookup: %w", domain.ErrStorage, err)
	}

	total := domain.ComputeTotal(req.Quantity, req.Rate, sku.TaxRate)

	seq, err := s.sequence.Next(ctx, sequencedomain.CounterOrder)
	if err != nil {
		s.metrics.RecordOrderAdmissionFailure(ctx, "storage")
		return domain.AdmitOrderResponse{}, fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}

	order := domain.Order{
		ID:          s.genID.Generate(),
		OrderID:     sequencedomain.FormatOrderID(seq),
		CustomerID:  customer.ID,
		SKUID:       sku.ID,
		Quantity:    req.Quantity,
		Rate:        req.Rate,
		TotalAmount: total,
		CreatedBy:   actor.ID,
		Timestamp:   s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, s.db, &order); err != nil {
		// The sequence value stays consumed; the gap is accepted.
		log.Error("insert order failed", zap.String("order_id", order.OrderID), zap.Error(err))
		s.metrics.RecordOrderAdmissionFailure(ctx, "storage")
		return domain.AdmitOrderResponse{}, fmt.Errorf("%w: insert order: %w", domain.ErrStorage, err)
	}

	event := notification.Event{
		Type:        notification.EventTypeNewOrder,
		Message:     newOrderMessage,
		OrderID:     order.OrderID,
		User:        actor.DisplayName,
		Customer:    customer.Name,
		SKU:         sku.Name,
		TotalAmount: total.StringFixed(2),
		Timestamp:   order.Timestamp,
	}
	if err := s.notifier.BroadcastToAdmins(ctx, event); err != nil {
		log.Warn("admin notification not queued", zap.String("order_id", order.OrderID), zap.Error(err))
	}

	s.metrics.RecordOrderAdmitted(ctx, string(actor.Role))
	log.Info("order admitted",
		zap.String("order_id", order.OrderID),
		zap.String("total_amount", total.StringFixed(2)),
	)

	return domain.AdmitOrderResponse{
		OrderID:     order.OrderID,
		Customer:    customer.Name,
		SKU:         sku.Name,
		TotalAmount: total,
		Timestamp:   order.Timestamp,
	}, nil
}

func (s *Service) List(ctx context.Context, actor principal.Principal) ([]domain.OrderView, error) {
	if !actor.Valid() {
		return nil, domain.ErrInvalidActor
	}
	views, err := s.repo.ListViews(ctx, s.db, store.ScopeFor(actor))
	if err != nil {
		return nil, fmt.Errorf("%w: list orders: %w", domain.ErrStorage, err)
	}
	return views, nil
}

func (s *Service) validate(req domain.AdmitOrderRequest) error {
	policy := s.policy.Get()
	if req.Quantity < policy.MinQuantity || req.Quantity > policy.MaxQuantity {
		return &domain.ValidationError{
			Field:   "quantity",
			Code:    "out_of_range",
			Message: fmt.Sprintf("quantity must be between %d and %d", policy.MinQuantity, policy.MaxQuantity),
		}
	}
	minRate := policy.MinRateDecimal()
	if req.Rate.LessThan(minRate) {
		return &domain.ValidationError{
			Field:   "rate",
			Code:    "too_small",
			Message: "rate must be at least " + minRate.StringFixed(2),
		}
	}
	return nil
}

// parseRef hides malformed identifiers behind the same error as foreign ones.
func parseRef(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id <= 0 {
		return 0, domain.ErrNotFoundOrForbidden
	}
	return id, nil
}
