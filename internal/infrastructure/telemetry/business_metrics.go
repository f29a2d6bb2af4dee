package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BusinessMetrics provides business metrics for the shop.
// It tracks ledger postings, sales, returns and the receivables position.
// A nil *BusinessMetrics is valid and records nothing.
type BusinessMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	postingsTotal          *Counter
	postingRejectionsTotal *Counter
	salesCreatedTotal      *Counter
	saleRejectionsTotal    *Counter
	returnsTotal           *Counter

	// Gauge metrics (point-in-time values)
	receivableCustomers *Gauge
	receivableRemaining *FloatGauge
	availableProducts   *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	provider ShopMetricsProvider
}

// ReceivableTotals is the outstanding position in one currency
type ReceivableTotals struct {
	Currency  string
	Customers int64
	Remaining decimal.Decimal
}

// ShopMetricsProvider provides shop state for periodic metrics collection
// without the telemetry layer depending on the sales domain.
type ShopMetricsProvider interface {
	// OutstandingReceivables returns the receivable position per currency
	OutstandingReceivables(ctx context.Context) ([]ReceivableTotals, error)

	// AvailableProducts returns the number of products that can still be sold
	AvailableProducts(ctx context.Context) (int64, error)
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // Default: 5 minutes
	Provider        ShopMetricsProvider
}

// NewBusinessMetrics creates a new BusinessMetrics instance.
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{
		meter:    cfg.Meter,
		logger:   logger,
		stopChan: make(chan struct{}),
		provider: cfg.Provider,
	}

	var err error

	// Ledger metrics
	bm.postingsTotal, err = NewCounter(
		cfg.Meter,
		"shop_ledger_postings_total",
		"Total number of ledger postings committed",
		"{postings}",
	)
	if err != nil {
		return nil, err
	}

	bm.postingRejectionsTotal, err = NewCounter(
		cfg.Meter,
		"shop_ledger_posting_rejections_total",
		"Total number of rejected ledger postings",
		"{postings}",
	)
	if err != nil {
		return nil, err
	}

	// Sales metrics
	bm.salesCreatedTotal, err = NewCounter(
		cfg.Meter,
		"shop_sales_created_total",
		"Total number of sales created",
		"{sales}",
	)
	if err != nil {
		return nil, err
	}

	bm.saleRejectionsTotal, err = NewCounter(
		cfg.Meter,
		"shop_sales_rejections_total",
		"Total number of rejected sales",
		"{sales}",
	)
	if err != nil {
		return nil, err
	}

	bm.returnsTotal, err = NewCounter(
		cfg.Meter,
		"shop_sales_returns_total",
		"Total number of returned line items",
		"{returns}",
	)
	if err != nil {
		return nil, err
	}

	// Receivables and stock gauges
	bm.receivableCustomers, err = NewGauge(
		cfg.Meter,
		"shop_receivables_customers",
		"Number of customers with an outstanding balance",
		"{customers}",
	)
	if err != nil {
		return nil, err
	}

	bm.receivableRemaining, err = NewFloatGauge(
		cfg.Meter,
		"shop_receivables_remaining",
		"Total outstanding balance across all customers",
		"{currency}",
	)
	if err != nil {
		return nil, err
	}

	bm.availableProducts, err = NewGauge(
		cfg.Meter,
		"shop_products_available",
		"Number of products available for sale",
		"{products}",
	)
	if err != nil {
		return nil, err
	}

	return bm, nil
}

// =============================================================================
// Ledger Metrics
// =============================================================================

// RecordPosting increments the committed postings counter
func (bm *BusinessMetrics) RecordPosting(ctx context.Context, postingType string) {
	if bm == nil {
		return
	}
	bm.postingsTotal.Inc(ctx, AttrPostingType.String(postingType))
}

// RecordPostingRejected counts a posting refused with the given error kind
func (bm *BusinessMetrics) RecordPostingRejected(ctx context.Context, kind string) {
	if bm == nil {
		return
	}
	bm.postingRejectionsTotal.Inc(ctx, AttrErrorKind.String(kind))
}

// =============================================================================
// Sales Metrics
// =============================================================================

// RecordSaleCreated counts a committed sale. converted is true when the sale
// was priced in the foreign currency.
func (bm *BusinessMetrics) RecordSaleCreated(ctx context.Context, converted bool) {
	if bm == nil {
		return
	}
	bm.salesCreatedTotal.Inc(ctx, AttrConverted.Bool(converted))
}

// RecordSaleRejected counts a sale refused with the given error kind
func (bm *BusinessMetrics) RecordSaleRejected(ctx context.Context, kind string) {
	if bm == nil {
		return
	}
	bm.saleRejectionsTotal.Inc(ctx, AttrErrorKind.String(kind))
}

// RecordReturn counts a returned line item
func (bm *BusinessMetrics) RecordReturn(ctx context.Context, returnStatus string, refunded bool) {
	if bm == nil {
		return
	}
	bm.returnsTotal.Inc(ctx,
		AttrReturnStatus.String(returnStatus),
		AttrRefunded.Bool(refunded),
	)
}

// =============================================================================
// Receivables Metrics
// =============================================================================

// RecordReceivables sets the receivables gauges for one currency
func (bm *BusinessMetrics) RecordReceivables(ctx context.Context, totals ReceivableTotals) {
	if bm == nil {
		return
	}
	currency := AttrCurrency.String(totals.Currency)
	bm.receivableCustomers.Record(ctx, totals.Customers, currency)
	bm.receivableRemaining.Record(ctx, totals.Remaining.InexactFloat64(), currency)
}

// RecordAvailableProducts sets the available products gauge
func (bm *BusinessMetrics) RecordAvailableProducts(ctx context.Context, count int64) {
	if bm == nil {
		return
	}
	bm.availableProducts.Record(ctx, count)
}

// =============================================================================
// Periodic Collection
// =============================================================================

// StartPeriodicCollection starts periodic collection of gauge metrics.
// It collects receivables and stock every interval (default: 5 minutes).
// This is non-blocking - use Stop() to stop collection.
func (bm *BusinessMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	if bm == nil {
		return
	}
	bm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go bm.runPeriodicCollection(ctx, interval)
	})
}

func (bm *BusinessMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	bm.collect(ctx)

	for {
		select {
		case <-bm.stopChan:
			bm.logger.Info("Stopping periodic business metrics collection")
			return
		case <-ctx.Done():
			bm.logger.Info("Context cancelled, stopping periodic business metrics collection")
			return
		case <-ticker.C:
			bm.collect(ctx)
		}
	}
}

func (bm *BusinessMetrics) collect(ctx context.Context) {
	if bm.provider == nil {
		bm.logger.Debug("No shop metrics provider configured, skipping collection")
		return
	}

	totals, err := bm.provider.OutstandingReceivables(ctx)
	if err != nil {
		bm.logger.Warn("Failed to collect receivables metrics", zap.Error(err))
	} else {
		for _, t := range totals {
			bm.RecordReceivables(ctx, t)
		}
	}

	available, err := bm.provider.AvailableProducts(ctx)
	if err != nil {
		bm.logger.Warn("Failed to collect available products", zap.Error(err))
	} else {
		bm.RecordAvailableProducts(ctx, available)
	}
}

// Stop stops the periodic collection.
func (bm *BusinessMetrics) Stop() {
	if bm == nil {
		return
	}
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBusinessMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
