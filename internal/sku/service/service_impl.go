package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/orderdesk/internal/clock"
	"github.com/smallbiznis/orderdesk/internal/principal"
	sequencedomain "github.com/smallbiznis/orderdesk/internal/sequence/domain"
	"github.com/smallbiznis/orderdesk/internal/sku/domain"
	"github.com/smallbiznis/orderdesk/internal/store"
	"github.com/smallbiznis/orderdesk/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var maxTaxRate = decimal.NewFromInt(100)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Sequence sequencedomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	sequence sequencedomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("sku.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		sequence: p.Sequence,
	}
}

func (s *Service) Create(ctx context.Context, actor principal.Principal, req domain.CreateSKURequest) (domain.SKU, error) {
	if !actor.Valid() {
		return domain.SKU{}, domain.ErrInvalidActor
	}

	name := strings.TrimSpace(req.Name)
	if n := utf8.RuneCountInString(name); n < 3 || n > 50 {
		return domain.SKU{}, domain.ErrInvalidName
	}
	unit := domain.UnitOfMeasurement(strings.ToLower(strings.TrimSpace(req.UnitOfMeasurement)))
	if !unit.Valid() {
		return domain.SKU{}, domain.ErrInvalidUnit
	}
	if req.TaxRate.IsNegative() || req.TaxRate.GreaterThan(maxTaxRate) {
		return domain.SKU{}, domain.ErrInvalidTaxRate
	}

	seq, err := s.sequence.Next(ctx, sequencedomain.CounterSKU)
	if err != nil {
		return domain.SKU{}, err
	}

	sku := domain.SKU{
		ID:                s.genID.Generate(),
		SKUID:             sequencedomain.FormatSKUID(seq),
		Name:              name,
		UnitOfMeasurement: unit,
		TaxRate:           req.TaxRate.Round(4),
		CreatedBy:         actor.ID,
		CreatedAt:         s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, s.db, &sku); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.SKU{}, domain.ErrConflict
		}
		return domain.SKU{}, fmt.Errorf("insert sku: %w", err)
	}

	s.log.Info("sku created",
		zap.String("sku_id", sku.SKUID),
		zap.String("created_by", actor.ID.String()),
	)
	return sku, nil
}

func (s *Service) List(ctx context.Context, actor principal.Principal) ([]domain.SKU, error) {
	if !actor.Valid() {
		return nil, domain.ErrInvalidActor
	}
	items, err := s.repo.List(ctx, s.db, store.ScopeFor(actor))
	if err != nil {
		return nil, err
	}
	skus := make([]domain.SKU, 0, len(items))
	for _, item := range items {
		if item != nil {
			skus = append(skus, *item)
		}
	}
	return skus, nil
}

func (s *Service) GetOwned(ctx context.Context, ownerID, id snowflake.ID) (domain.SKU, error) {
	if ownerID == 0 || id == 0 {
		return domain.SKU{}, domain.ErrNotFound
	}
	item, err := s.repo.FindByID(ctx, s.db, store.OwnedBy(ownerID), id)
	if err != nil {
		return domain.SKU{}, err
	}
	if item == nil {
		return domain.SKU{}, domain.ErrNotFound
	}
	return *item, nil
}
