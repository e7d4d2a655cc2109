package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/orderdesk/internal/clock"
	"github.com/smallbiznis/orderdesk/internal/principal"
	sequencedomain "github.com/smallbiznis/orderdesk/internal/sequence/domain"
	sequencerepo "github.com/smallbiznis/orderdesk/internal/sequence/repository"
	sequenceservice "github.com/smallbiznis/orderdesk/internal/sequence/service"
	"github.com/smallbiznis/orderdesk/internal/sku/domain"
	"github.com/smallbiznis/orderdesk/internal/sku/repository"
	"github.com/smallbiznis/orderdesk/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestService(t *testing.T) domain.Service {
	t.Helper()
	conn := db.NewTest(t, &sequencedomain.Counter{}, &domain.SKU{})
	log := zaptest.NewLogger(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return New(Params{
		DB:    conn,
		Log:   log,
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
		Sequence: sequenceservice.New(sequenceservice.Params{
			DB:   conn,
			Log:  log,
			Repo: sequencerepo.Provide(),
		}),
	})
}

func TestCreateSKU(t *testing.T) {
	svc := newTestService(t)
	owner := principal.Principal{ID: 11, Role: principal.RoleUser}

	sku, err := svc.Create(context.Background(), owner, domain.CreateSKURequest{
		Name:              "Widget",
		UnitOfMeasurement: "PCS",
		TaxRate:           decimal.RequireFromString("10"),
	})
	require.NoError(t, err)
	assert.Equal(t, "SKU00001", sku.SKUID)
	assert.Equal(t, domain.UnitPieces, sku.UnitOfMeasurement)

	got, err := svc.GetOwned(context.Background(), owner.ID, sku.ID)
	require.NoError(t, err)
	assert.True(t, got.TaxRate.Equal(decimal.NewFromInt(10)), got.TaxRate.String())

	_, err = svc.GetOwned(context.Background(), 99, sku.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateSKUValidation(t *testing.T) {
	svc := newTestService(t)
	owner := principal.Principal{ID: 11, Role: principal.RoleUser}
	cases := []struct {
		name string
		req  domain.CreateSKURequest
		want error
	}{
		{"short name", domain.CreateSKURequest{Name: "ab", UnitOfMeasurement: "kg"}, domain.ErrInvalidName},
		{"bad unit", domain.CreateSKURequest{Name: "Flour", UnitOfMeasurement: "box"}, domain.ErrInvalidUnit},
		{"negative tax", domain.CreateSKURequest{Name: "Flour", UnitOfMeasurement: "kg", TaxRate: decimal.NewFromInt(-1)}, domain.ErrInvalidTaxRate},
		{"tax above 100", domain.CreateSKURequest{Name: "Flour", UnitOfMeasurement: "kg", TaxRate: decimal.RequireFromString("100.01")}, domain.ErrInvalidTaxRate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), owner, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}
