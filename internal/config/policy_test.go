package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateOrderPolicy(t *testing.T) {
	cases := []struct {
		name    string
		policy  OrderPolicy
		wantErr bool
	}{
		{name: "defaults", policy: DefaultOrderPolicy()},
		{name: "zero_min_quantity", policy: OrderPolicy{MinQuantity: 0, MaxQuantity: 10, MinRate: 1}, wantErr: true},
		{name: "inverted_bounds", policy: OrderPolicy{MinQuantity: 5, MaxQuantity: 4, MinRate: 1}, wantErr: true},
		{name: "non_positive_rate", policy: OrderPolicy{MinQuantity: 1, MaxQuantity: 4, MinRate: 0}, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateOrderPolicy(tc.policy)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestOrderPolicyHolderFallsBackToDefaults(t *testing.T) {
	var holder *OrderPolicyHolder
	assert.Equal(t, DefaultOrderPolicy(), holder.Get())

	static := NewStaticOrderPolicyHolder(OrderPolicy{MinQuantity: 2, MaxQuantity: 3, MinRate: 0.5})
	got := static.Get()
	require.Equal(t, 2, got.MinQuantity)
	assert.Equal(t, "0.5", got.MinRateDecimal().String())
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("DATABASE_TYPE", "SQLite")
	t.Setenv("SCHEDULER_RUN_INTERVAL", "5m")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("RATE_LIMIT_ORDER_BURST", "not-a-number")

	cfg := Load()
	assert.Equal(t, "sqlite", cfg.DBType)
	assert.Equal(t, "5m0s", cfg.Scheduler.RunInterval.String())
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, 20, cfg.RateLimit.OrderBurst)
}
