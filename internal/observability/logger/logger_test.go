package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	obscontext "github.com/smallbiznis/orderdesk/internal/observability/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestDescribeSQL(t *testing.T) {
	cases := []struct {
		sql       string
		operation string
		table     string
	}{
		{`SELECT id FROM "orders" WHERE id = ?`, "SELECT", "orders"},
		{"INSERT INTO counters (name, value) VALUES (?, ?)", "INSERT", "counters"},
		{"UPDATE counters SET value = value + 1 WHERE name = ?", "UPDATE", "counters"},
		{"", "UNKNOWN", ""},
	}
	for _, tc := range cases {
		op, table := describeSQL(tc.sql)
		assert.Equal(t, tc.operation, op, tc.sql)
		assert.Equal(t, tc.table, table, tc.sql)
	}
}

func TestWithContextAddsCorrelationFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := zap.New(core)

	ctx := obscontext.WithRequestID(context.Background(), "req-1")
	ctx = obscontext.WithActor(ctx, "admin", "42")
	WithContext(ctx, base).Info("hello")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "admin", fields["actor_role"])
	assert.Equal(t, "42", fields["actor_id"])
	assert.Equal(t, "", fields["trace_id"])
}

func TestGormLoggerLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), DefaultGormLoggerConfig())

	fc := func() (string, int64) { return "SELECT * FROM skus", 1 }

	gl.Trace(context.Background(), time.Now(), fc, gormlogger.ErrRecordNotFound)
	assert.Equal(t, 0, logs.Len(), "record-not-found is ignored by default")

	gl.Trace(context.Background(), time.Now(), fc, errors.New("boom"))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.ErrorLevel, logs.All()[0].Level)

	gl.Trace(context.Background(), time.Now().Add(-time.Second), fc, nil)
	require.Equal(t, 2, logs.Len())
	assert.Equal(t, zapcore.WarnLevel, logs.All()[1].Level)
	assert.Equal(t, true, logs.All()[1].ContextMap()["slow"])

	silent := gl.LogMode(gormlogger.Silent)
	silent.Trace(context.Background(), time.Now(), fc, errors.New("ignored"))
	assert.Equal(t, 2, logs.Len())
}
