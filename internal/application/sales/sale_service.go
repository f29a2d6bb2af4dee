package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	ledgerapp "github.com/erp/shopcore/internal/application/ledger"
	"github.com/erp/shopcore/internal/domain/ledger"
	"github.com/erp/shopcore/internal/domain/sales"
	"github.com/erp/shopcore/internal/domain/shared"
	"github.com/erp/shopcore/internal/domain/shared/valueobject"
	"github.com/erp/shopcore/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Config holds the orchestrator settings
type Config struct {
	SettlementCurrency valueobject.Currency
	// Location decides which calendar day "today's rate" refers to
	Location *time.Location
}

// SaleService orchestrates sale creation and line item returns. Each
// operation is one transaction covering product marks, the sale row, the
// optional ledger posting and the outbox events.
type SaleService struct {
	scope   TransactionScope
	sales   sales.SaleRepository
	returns sales.ReturnRepository
	rates   sales.RateProvider
	cfg     Config
	now     func() time.Time
	logger  *zap.Logger
	metrics *telemetry.BusinessMetrics
}

// NewSaleService creates a new SaleService
func NewSaleService(
	scope TransactionScope,
	saleRepo sales.SaleRepository,
	returnRepo sales.ReturnRepository,
	rates sales.RateProvider,
	cfg Config,
	logger *zap.Logger,
) *SaleService {
	if cfg.SettlementCurrency == "" {
		cfg.SettlementCurrency = valueobject.DefaultCurrency
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SaleService{
		scope:   scope,
		sales:   saleRepo,
		returns: returnRepo,
		rates:   rates,
		cfg:     cfg,
		now:     time.Now,
		logger:  logger,
	}
}

// SetMetrics sets the business metrics recorder (optional)
func (s *SaleService) SetMetrics(m *telemetry.BusinessMetrics) {
	s.metrics = m
}

// SetClock overrides the clock used to pick the day's rate
func (s *SaleService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *SaleService) today() time.Time {
	return sales.DateOnly(s.now().In(s.cfg.Location))
}

// CreateSale validates the customer and cart, converts foreign prices with
// today's rate, reserves every product, writes the sale and, when a deposit
// account is given and something was paid, credits it. Either all of that
// commits or none of it does.
func (s *SaleService) CreateSale(ctx context.Context, req CreateSaleRequest) (*SaleResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "sale", "create")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrCustomerID, req.CustomerID.String(),
		telemetry.SpanAttrItemsCount, len(req.LineItems),
		telemetry.SpanAttrBellNumber, req.BellNumber,
	)

	var resp *SaleResponse
	var err error
	telemetry.WithProfilingLabels(ctx, telemetry.SalesOperationLabels(telemetry.OperationCreateSale), func(c context.Context) {
		resp, err = s.createSale(c, req)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.metrics.RecordSaleRejected(ctx, string(shared.KindOf(err)))
		s.logFailure("create sale", err,
			zap.String("customer_id", req.CustomerID.String()),
			zap.Int64("bell_number", req.BellNumber),
			zap.Int("items", len(req.LineItems)))
		return nil, err
	}

	s.metrics.RecordSaleCreated(ctx, resp.ExchangeRate != nil)
	telemetry.SetAttributes(span,
		telemetry.SpanAttrSaleID, resp.ID.String(),
		telemetry.SpanAttrBellNumber, resp.BellNumber,
	)
	s.logger.Info("Sale created",
		zap.String("sale_id", resp.ID.String()),
		zap.Int64("bell_number", resp.BellNumber),
		zap.String("customer_id", resp.CustomerID.String()),
		zap.String("total", resp.Receipt.Total.String()),
		zap.String("paid", resp.Receipt.Paid.String()),
		zap.String("remaining", resp.Receipt.Remaining.String()),
		zap.String("currency", resp.Receipt.Currency))
	return resp, nil
}

func (s *SaleService) createSale(ctx context.Context, req CreateSaleRequest) (*SaleResponse, error) {
	drafts, err := s.toDrafts(req)
	if err != nil {
		return nil, err
	}
	receiptDraft := sales.ReceiptDraft{
		Total:     req.Receipt.Total,
		Paid:      req.Receipt.Paid,
		Discount:  req.Receipt.Discount,
		Remaining: req.Receipt.Remaining,
	}

	// The rate is read once, before the transaction, and applied exactly once in BuildCart
	var rate *sales.CurrencyRate
	if sales.NeedsConversion(drafts, s.cfg.SettlementCurrency) {
		day := s.today()
		rate, err = s.rates.RateForDate(ctx, day)
		if err != nil {
			if errors.Is(err, shared.ErrRateUnavailable) {
				return nil, shared.ErrRateUnavailable.WithMessage(
					"No exchange rate recorded for %s; record today's rate before selling in a foreign currency",
					day.Format(time.DateOnly))
			}
			return nil, err
		}
	}

	var sale *sales.Sale
	var deposit *ledgerapp.PostResult
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		contact, err := repos.Customers().Contact(ctx, req.CustomerID)
		if err != nil {
			return err
		}

		products := make(map[uuid.UUID]*sales.ProductSnapshot, len(drafts))
		for _, d := range drafts {
			if _, seen := products[d.ProductID]; seen {
				continue
			}
			available, err := repos.Inventory().IsAvailable(ctx, d.ProductID)
			if err != nil {
				return err
			}
			if !available {
				return shared.ErrProductUnavailable.WithMessage("product %s is already sold or withdrawn", d.ProductID)
			}
			snap, err := repos.Inventory().Snapshot(ctx, d.ProductID)
			if err != nil {
				return err
			}
			products[d.ProductID] = snap
		}

		cart, err := sales.BuildCart(s.cfg.SettlementCurrency, drafts, products, receiptDraft, rate)
		if err != nil {
			return err
		}

		bell, err := s.allocateBellNumber(ctx, repos.Sales(), req.BellNumber)
		if err != nil {
			return err
		}

		// Conditional update: the loser of a concurrent race sees zero rows and fails here
		for _, li := range cart.LineItems {
			if err := repos.Inventory().MarkSold(ctx, li.ProductID); err != nil {
				return err
			}
		}

		sale, err = sales.NewSale(contact, bell, cart, req.DepositAccountID, req.Note)
		if err != nil {
			return err
		}
		if err := repos.Sales().Create(ctx, sale); err != nil {
			return err
		}

		if req.DepositAccountID != nil {
			deposit, err = s.creditDeposit(ctx, repos, sale)
			if err != nil {
				return err
			}
		}

		events := sale.PendingEvents()
		if len(events) > 0 {
			if err := repos.Events().Publish(ctx, events...); err != nil {
				return err
			}
			sale.ClearEvents()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp := ToSaleResponse(sale)
	if deposit != nil {
		p := ledgerapp.ToPostingResponse(deposit.Posting, deposit.Account.Currency.String())
		resp.DepositPosting = &p
	}
	return &resp, nil
}

func (s *SaleService) toDrafts(req CreateSaleRequest) ([]sales.LineItemDraft, error) {
	if req.CustomerID == uuid.Nil {
		return nil, shared.ErrInvalidInput.WithMessage("customer is required")
	}
	if len(req.LineItems) == 0 {
		return nil, shared.ErrInvalidInput.WithMessage("a sale needs at least one line item")
	}
	if req.BellNumber < 0 {
		return nil, shared.ErrInvalidInput.WithMessage("bell number cannot be negative")
	}
	drafts := make([]sales.LineItemDraft, 0, len(req.LineItems))
	for _, in := range req.LineItems {
		currency, err := valueobject.ParseCurrency(in.Currency)
		if err != nil {
			return nil, shared.ErrInvalidInput.WithMessage("line item %s: %v", in.ProductID, err)
		}
		drafts = append(drafts, sales.LineItemDraft{
			ProductID: in.ProductID,
			Price:     in.Price,
			Currency:  currency,
		})
	}
	return drafts, nil
}

// allocateBellNumber validates a caller-supplied bell number or allocates the next one.
// The unique index still backs this up if two transactions race for the same number.
func (s *SaleService) allocateBellNumber(ctx context.Context, repo sales.SaleRepository, requested int64) (int64, error) {
	if requested == 0 {
		return repo.NextBellNumber(ctx)
	}
	exists, err := repo.ExistsByBellNumber(ctx, requested)
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, shared.ErrBellNumberConflict.WithMessage("bell number %d is already used by another sale", requested)
	}
	return requested, nil
}

// creditDeposit credits the paid amount to the deposit account. With nothing
// paid the account is only checked to exist.
func (s *SaleService) creditDeposit(ctx context.Context, repos TransactionalRepositories, sale *sales.Sale) (*ledgerapp.PostResult, error) {
	paid := sale.Receipt.Paid
	if !paid.IsPositive() {
		if _, err := repos.Accounts().FindByID(ctx, *sale.DepositAccountID); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return ledgerapp.PostWithin(ctx, repos, ledgerapp.PostCommand{
		AccountID:   *sale.DepositAccountID,
		Type:        ledger.PostingTypeCredit,
		Amount:      paid,
		Description: fmt.Sprintf("sale - bell %d", sale.BellNumber),
		Currency:    sale.Receipt.Currency,
	})
}

// GetSale returns a sale by ID
func (s *SaleService) GetSale(ctx context.Context, id uuid.UUID) (*SaleResponse, error) {
	sale, err := s.sales.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToSaleResponse(sale)
	return &resp, nil
}

// ListSales lists sales, newest first unless a sort key is given
func (s *SaleService) ListSales(ctx context.Context, filter SaleListFilter) (*shared.Paginated[SaleResponse], error) {
	f := sales.SaleFilter{
		CustomerID:  filter.CustomerID,
		From:        filter.From,
		To:          filter.To,
		Outstanding: filter.Outstanding,
		SortBy:      filter.SortBy,
		SortOrder:   filter.SortOrder,
	}
	if filter.ReturnStatus != "" {
		status := sales.ReturnStatus(filter.ReturnStatus)
		if !status.IsValid() {
			return nil, shared.ErrInvalidInput.WithMessage("unknown return status %q", filter.ReturnStatus)
		}
		f.ReturnStatus = &status
	}
	page := shared.NewPage(filter.Limit, filter.Offset)
	list, total, err := s.sales.List(ctx, f, page)
	if err != nil {
		return nil, err
	}
	items := make([]SaleResponse, 0, len(list))
	for _, sale := range list {
		items = append(items, ToSaleResponse(sale))
	}
	result := shared.NewPaginated(items, total, page)
	return &result, nil
}

func (s *SaleService) logFailure(op string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))
	if shared.KindOf(err) == shared.KindStorageFailure {
		s.logger.Error("Sales "+op+" failed", fields...)
		return
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		fields = append(fields, zap.String("code", de.Code))
	}
	s.logger.Warn("Sales "+op+" rejected", fields...)
}
