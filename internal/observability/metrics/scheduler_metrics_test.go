package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/smallbiznis/orderdesk/internal/authorization"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestClassifySchedulerJobReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: context.DeadlineExceeded, want: SchedulerJobReasonDeadlineExceeded},
		{name: "forbidden", err: fmt.Errorf("aggregate: %w", authorization.ErrForbidden), want: SchedulerJobReasonForbidden},
		{name: "db_lock_timeout", err: &pgconn.PgError{Code: "55P03"}, want: SchedulerJobReasonDBLockTimeout},
		{name: "serialization_failure", err: &pgconn.PgError{Code: "40001"}, want: SchedulerJobReasonSerializationFailure},
		{name: "unique_violation", err: gorm.ErrDuplicatedKey, want: SchedulerJobReasonUniqueViolation},
		{name: "unknown", err: errors.New("boom"), want: SchedulerJobReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifySchedulerJobReason(tc.err))
		})
	}
}

func TestSchedulerCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newSchedulerMetrics(registry, Config{ServiceName: "orderdesk", Environment: "test"})

	m.AddBatchProcessed("hourly_summary", "orders", 3)
	m.AddBatchProcessed("hourly_summary", "orders", 0)
	m.IncJobSkipped("hourly_summary", SchedulerSkipReasonOverlap)
	m.IncJobError("hourly_summary", &pgconn.PgError{Code: "40001"})
	m.SetLastSuccess("hourly_summary", time.Unix(1700000000, 0))

	assert.Equal(t, float64(3), testutil.ToFloat64(m.batchProcessed.WithLabelValues("hourly_summary", "orders")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.jobSkipped.WithLabelValues("hourly_summary", "overlap")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.jobErrors.WithLabelValues("hourly_summary", SchedulerJobReasonSerializationFailure)))
	assert.Equal(t, float64(1700000000), testutil.ToFloat64(m.lastSuccess.WithLabelValues("hourly_summary")))
}

func TestNilSchedulerMetricsIsSafe(t *testing.T) {
	var m *SchedulerMetrics
	assert.NotPanics(t, func() {
		m.IncJobRun("x")
		m.IncJobError("x", errors.New("boom"))
		m.ObserveRunLoopLag(-time.Second)
		assert.Nil(t, m.Collectors())
	})
}
