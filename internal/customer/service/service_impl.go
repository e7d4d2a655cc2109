package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/orderdesk/internal/clock"
	"github.com/smallbiznis/orderdesk/internal/customer/domain"
	"github.com/smallbiznis/orderdesk/internal/principal"
	sequencedomain "github.com/smallbiznis/orderdesk/internal/sequence/domain"
	"github.com/smallbiznis/orderdesk/internal/store"
	"github.com/smallbiznis/orderdesk/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

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
		log:      p.Log.Named("customer.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		sequence: p.Sequence,
	}
}

func (s *Service) Create(ctx context.Context, actor principal.Principal, req domain.CreateCustomerRequest) (domain.Customer, error) {
	if !actor.Valid() {
		return domain.Customer{}, domain.ErrInvalidActor
	}

	name := strings.TrimSpace(req.Name)
	if n := utf8.RuneCountInString(name); n < 3 || n > 30 {
		return domain.Customer{}, domain.ErrInvalidName
	}
	address := strings.TrimSpace(req.Address)
	if n := utf8.RuneCountInString(address); n < 3 || n > 100 {
		return domain.Customer{}, domain.ErrInvalidAddress
	}

	seq, err := s.sequence.Next(ctx, sequencedomain.CounterCustomer)
	if err != nil {
		return domain.Customer{}, err
	}

	customer := domain.Customer{
		ID:         s.genID.Generate(),
		CustomerID: sequencedomain.FormatCustomerID(seq),
		Name:       name,
		Address:    address,
		CreatedBy:  actor.ID,
		CreatedAt:  s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, s.db, &customer); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Customer{}, domain.ErrConflict
		}
		return domain.Customer{}, fmt.Errorf("insert customer: %w", err)
	}

	s.log.Info("customer created",
		zap.String("customer_id", customer.CustomerID),
		zap.String("created_by", actor.ID.String()),
	)
	return customer, nil
}

func (s *Service) List(ctx context.Context, actor principal.Principal) ([]domain.Customer, error) {
	if !actor.Valid() {
		return nil, domain.ErrInvalidActor
	}

	items, err := s.repo.List(ctx, s.db, store.ScopeFor(actor))
	if err != nil {
		return nil, err
	}
	customers := make([]domain.Customer, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		customers = append(customers, *item)
	}
	return customers, nil
}

func (s *Service) GetOwned(ctx context.Context, ownerID, id snowflake.ID) (domain.Customer, error) {
	if ownerID == 0 || id == 0 {
		return domain.Customer{}, domain.ErrNotFound
	}
	item, err := s.repo.FindByID(ctx, s.db, store.OwnedBy(ownerID), id)
	if err != nil {
		return domain.Customer{}, err
	}
	if item == nil {
		return domain.Customer{}, domain.ErrNotFound
	}
	return *item, nil
}
