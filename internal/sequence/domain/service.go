package domain

import (
	"context"
	"errors"
)

// Service hands out strictly increasing per-name numbers.
type Service interface {
	Next(ctx context.Context, name string) (int64, error)
}

var (
	ErrInvalidName = errors.New("invalid_counter_name")
	ErrNotAdvanced = errors.New("counter_not_advanced")
)
