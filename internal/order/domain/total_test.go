package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestComputeTotal(t *testing.T) {
	cases := []struct {
		name     string
		quantity int
		rate     string
		tax      string
		want     string
	}{
		{"with tax", 2, "10.00", "10", "22.00"},
		{"zero tax", 3, "1.50", "0", "4.50"},
		{"rounds half away from zero", 1, "0.125", "0", "0.13"},
		{"fractional tax", 7, "3.33", "12.5", "26.22"},
		{"no float drift", 10, "0.10", "0", "1.00"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeTotal(tc.quantity, decimal.RequireFromString(tc.rate), decimal.RequireFromString(tc.tax))
			assert.Equal(t, tc.want, got.StringFixed(2))
		})
	}
}

func TestComputeTotalIsDeterministic(t *testing.T) {
	rate := decimal.RequireFromString("19.99")
	tax := decimal.RequireFromString("7.25")
	first := ComputeTotal(13, rate, tax)
	for i := 0; i < 100; i++ {
		assert.True(t, first.Equal(ComputeTotal(13, rate, tax)))
	}
}

func TestValidationErrorMatchesSentinel(t *testing.T) {
	var err error = &ValidationError{Field: "quantity", Code: "out_of_range", Message: "quantity must be between 1 and 1000"}
	assert.ErrorIs(t, err, ErrInvalidOrder)
}
