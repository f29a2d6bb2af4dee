package sales

import (
	"context"
	"fmt"

	ledgerapp "github.com/erp/shopcore/internal/application/ledger"
	"github.com/erp/shopcore/internal/domain/ledger"
	"github.com/erp/shopcore/internal/domain/sales"
	"github.com/erp/shopcore/internal/domain/shared"
	"github.com/erp/shopcore/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReturnLineItem returns one product of a sale. The product is released, the
// line flagged and the receipt recomputed, then the Return record is written.
// With a settlement account and a positive refund the debit is posted in the
// same transaction; without one the caller settles RefundDue itself.
func (s *SaleService) ReturnLineItem(ctx context.Context, req ReturnLineItemRequest) (*ReturnResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "sale", "return_line_item")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrSaleID, req.SaleID.String(),
		telemetry.SpanAttrProductID, req.ProductID.String(),
	)

	var result *ReturnResult
	var err error
	telemetry.WithProfilingLabels(ctx, telemetry.SalesOperationLabels(telemetry.OperationReturnLineItem), func(c context.Context) {
		result, err = s.returnLineItem(c, req)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.logFailure("return line item", err,
			zap.String("sale_id", req.SaleID.String()),
			zap.String("product_id", req.ProductID.String()))
		return nil, err
	}

	s.metrics.RecordReturn(ctx, result.Sale.ReturnStatus, result.RefundPosting != nil)
	telemetry.AddEvent(span, "line_item_returned",
		"refund_due", result.RefundDue.String(),
		"return_status", result.Sale.ReturnStatus,
	)
	s.logger.Info("Line item returned",
		zap.String("sale_id", req.SaleID.String()),
		zap.String("product_id", req.ProductID.String()),
		zap.String("line_total", result.LineTotal.String()),
		zap.String("refund_due", result.RefundDue.String()),
		zap.String("return_status", result.Sale.ReturnStatus))
	return result, nil
}

func (s *SaleService) returnLineItem(ctx context.Context, req ReturnLineItemRequest) (*ReturnResult, error) {
	if req.SaleID == uuid.Nil || req.ProductID == uuid.Nil {
		return nil, shared.ErrInvalidInput.WithMessage("sale id and product id are required")
	}

	var (
		sale    *sales.Sale
		record  *sales.Return
		outcome *sales.ReturnOutcome
		refund  *ledgerapp.PostResult
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		sale, err = repos.Sales().FindByIDForUpdate(ctx, req.SaleID)
		if err != nil {
			return err
		}
		outcome, err = sale.ReturnLineItem(req.ProductID)
		if err != nil {
			return err
		}
		if err := repos.Inventory().Release(ctx, req.ProductID); err != nil {
			return err
		}
		if err := repos.Sales().UpdateReturnState(ctx, sale); err != nil {
			return err
		}

		record, err = sales.NewReturn(sale, outcome, req.Note)
		if err != nil {
			return err
		}
		if req.SettlementAccountID != nil && record.HasRefund() {
			refund, err = ledgerapp.PostWithin(ctx, repos, ledgerapp.PostCommand{
				AccountID:   *req.SettlementAccountID,
				Type:        ledger.PostingTypeDebit,
				Amount:      record.RefundDue,
				Description: fmt.Sprintf("return - bell %d", sale.BellNumber),
				Currency:    record.Currency,
			})
			if err != nil {
				return err
			}
			record.AttachRefundPosting(refund.Account.ID, refund.Posting.ID)
		}
		if err := repos.Returns().Create(ctx, record); err != nil {
			return err
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

	result := &ReturnResult{
		Sale:           ToSaleResponse(sale),
		Return:         ToReturnResponse(record),
		LineTotal:      outcome.LineTotal.Amount(),
		RefundDue:      outcome.RefundDue.Amount(),
		Currency:       outcome.RefundDue.Currency().String(),
		PreviousTotals: ToReceiptResponse(outcome.PreviousReceipt),
	}
	if refund != nil {
		p := ledgerapp.ToPostingResponse(refund.Posting, refund.Account.Currency.String())
		result.RefundPosting = &p
	}
	return result, nil
}

// ListReturns lists the returns recorded against a sale, oldest first
func (s *SaleService) ListReturns(ctx context.Context, saleID uuid.UUID) ([]ReturnResponse, error) {
	if _, err := s.sales.FindByID(ctx, saleID); err != nil {
		return nil, err
	}
	records, err := s.returns.ListBySale(ctx, saleID)
	if err != nil {
		return nil, err
	}
	out := make([]ReturnResponse, 0, len(records))
	for _, r := range records {
		out = append(out, ToReturnResponse(r))
	}
	return out, nil
}
