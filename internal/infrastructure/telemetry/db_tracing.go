package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultSlowQuery = 200 * time.Millisecond

// DBTracingConfig controls statement spans. LogFullSQL puts bound values into
// spans and is refused in production.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool
	SlowQueryThresh time.Duration
	DBSystem        string
}

// GormTracer installs otelgorm and annotates each statement span with rows
// affected, table, row locks and slow-query marks.
type GormTracer struct {
	cfg DBTracingConfig
	log *zap.Logger
}

func NewGormTracer(cfg DBTracingConfig, log *zap.Logger) *GormTracer {
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = defaultSlowQuery
	}
	if cfg.DBSystem == "" {
		cfg.DBSystem = "postgresql"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &GormTracer{cfg: cfg, log: log}
}

// Attach is a no-op when tracing is disabled.
func (g *GormTracer) Attach(db *gorm.DB) error {
	if !g.cfg.Enabled {
		g.log.Debug("Database tracing disabled")
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(g.cfg.DBSystem)}
	if !g.cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return fmt.Errorf("install otelgorm: %w", err)
	}
	if err := g.hook(db); err != nil {
		return err
	}

	g.log.Info("Database tracing enabled",
		zap.Bool("log_full_sql", g.cfg.LogFullSQL),
		zap.Duration("slow_query_threshold", g.cfg.SlowQueryThresh),
		zap.String("db_system", g.cfg.DBSystem),
	)
	return nil
}

// register adds a named callback at one point of a gorm processor.
type register func(name string, fn func(*gorm.DB)) error

type gormOp struct {
	name          string
	before, after register
}

func gormOps(db *gorm.DB) []gormOp {
	cb := db.Callback()
	return []gormOp{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}
}

func (g *GormTracer) hook(db *gorm.DB) error {
	for _, op := range gormOps(db) {
		if err := op.before("otel_timing:before_"+op.name, markQueryStart); err != nil {
			return fmt.Errorf("register %s timing: %w", op.name, err)
		}
		if err := op.after("otel_slow_query:"+op.name, g.annotate); err != nil {
			return fmt.Errorf("register %s annotation: %w", op.name, err)
		}
	}
	return nil
}

type queryStartKey struct{}

func markQueryStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartKey{}, time.Now())
	}
}

func (g *GormTracer) annotate(db *gorm.DB) {
	st := db.Statement
	if st.Context == nil {
		return
	}
	span := trace.SpanFromContext(st.Context)
	if !span.IsRecording() {
		return
	}

	attrs := []attribute.KeyValue{attribute.Int64("db.rows_affected", max(st.RowsAffected, 0))}
	if st.Table != "" {
		attrs = append(attrs, attribute.String("db.sql.table", st.Table))
	}
	if _, locked := st.Clauses["FOR"]; locked {
		attrs = append(attrs, attribute.Bool("db.row_lock", true))
	}
	span.SetAttributes(attrs...)

	// a missing row is an answer, not a failure
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	start, ok := st.Context.Value(queryStartKey{}).(time.Time)
	if !ok {
		return
	}
	if elapsed := time.Since(start); elapsed > g.cfg.SlowQueryThresh {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
		span.AddEvent("slow_query_warning", trace.WithAttributes(
			attribute.Int64("duration_ms", elapsed.Milliseconds()),
			attribute.Int64("threshold_ms", g.cfg.SlowQueryThresh.Milliseconds()),
		))
	}
}
