package repository

import (
	"context"

	"github.com/smallbiznis/orderdesk/internal/sequence/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Ensure(ctx context.Context, db *gorm.DB, name string) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.Counter{Name: name, Value: 0}).Error
}

func (r *repo) Increment(ctx context.Context, db *gorm.DB, name string) error {
	res := db.WithContext(ctx).Exec(
		`UPDATE counters SET value = value + 1 WHERE name = ?`,
		name,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotAdvanced
	}
	return nil
}

func (r *repo) Current(ctx context.Context, db *gorm.DB, name string) (int64, error) {
	var value int64
	err := db.WithContext(ctx).Raw(
		`SELECT value FROM counters WHERE name = ?`,
		name,
	).Scan(&value).Error
	return value, err
}
