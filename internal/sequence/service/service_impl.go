package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallbiznis/orderdesk/internal/sequence/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("sequence.service"),
		repo: p.Repo,
	}
}

// Next increments the named counter and returns the new value. The
// increment commits on its own, so a caller that fails afterwards leaves a
// gap rather than a duplicate.
func (s *Service) Next(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, domain.ErrInvalidName
	}

	var value int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Ensure(ctx, tx, name); err != nil {
			return err
		}
		// The row lock taken here serializes concurrent callers.
		if err := s.repo.Increment(ctx, tx, name); err != nil {
			return err
		}
		current, err := s.repo.Current(ctx, tx, name)
		if err != nil {
			return err
		}
		value = current
		return nil
	})
	if err != nil {
		s.log.Error("sequence advance failed", zap.String("counter", name), zap.Error(err))
		return 0, fmt.Errorf("advance counter %s: %w", name, err)
	}
	return value, nil
}
