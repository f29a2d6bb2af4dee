package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/erp/shopcore/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type tracedRate struct {
	ID   int64 `gorm:"primaryKey"`
	Rate string
}

func openTracingDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tracedRate{}))
	return db
}

func TestGormTracer_Disabled(t *testing.T) {
	db := openTracingDB(t)
	tracer := telemetry.NewGormTracer(telemetry.DBTracingConfig{Enabled: false}, zap.NewNop())

	require.NoError(t, tracer.Attach(db))
	assert.Nil(t, db.Callback().Query().Get("otel_slow_query:query"))
}

func TestGormTracer_RecordsStatementSpans(t *testing.T) {
	sr := setupTestTracer(t)
	db := openTracingDB(t)
	tracer := telemetry.NewGormTracer(telemetry.DBTracingConfig{
		Enabled:  true,
		DBSystem: "sqlite",
	}, nil)

	require.NoError(t, tracer.Attach(db))
	assert.NotNil(t, db.Callback().Query().Get("otel_slow_query:query"))

	ctx, span := telemetry.StartSpan(context.Background(), "rate.set")
	require.NoError(t, db.WithContext(ctx).Create(&tracedRate{ID: 1, Rate: "70"}).Error)
	var got tracedRate
	require.NoError(t, db.WithContext(ctx).First(&got, 1).Error)
	span.End()

	assert.Equal(t, "70", got.Rate)
	assert.GreaterOrEqual(t, len(sr.Ended()), 3, "create, select and the parent span")
}

func TestGormTracer_MarksSlowQueries(t *testing.T) {
	sr := setupTestTracer(t)
	db := openTracingDB(t)
	tracer := telemetry.NewGormTracer(telemetry.DBTracingConfig{
		Enabled:         true,
		DBSystem:        "sqlite",
		SlowQueryThresh: time.Nanosecond,
	}, nil)
	require.NoError(t, tracer.Attach(db))

	ctx, span := telemetry.StartSpan(context.Background(), "rate.lookup")
	var rates []tracedRate
	require.NoError(t, db.WithContext(ctx).Find(&rates).Error)
	span.End()

	slow := false
	for _, s := range sr.Ended() {
		for _, ev := range s.Events() {
			if ev.Name == "slow_query_warning" {
				slow = true
			}
		}
	}
	assert.True(t, slow)
}
