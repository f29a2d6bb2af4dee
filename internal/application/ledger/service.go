package ledger

import (
	"context"
	"errors"

	"github.com/erp/shopcore/internal/domain/ledger"
	"github.com/erp/shopcore/internal/domain/shared"
	"github.com/erp/shopcore/internal/domain/shared/valueobject"
	"github.com/erp/shopcore/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service is the account ledger engine. Every balance change goes through
// PostWithin under the account row lock.
type Service struct {
	scope    TransactionScope
	accounts ledger.AccountRepository
	postings ledger.PostingRepository
	logger   *zap.Logger
	metrics  *telemetry.BusinessMetrics
}

// NewService creates a new ledger Service. accounts and postings are used for
// reads outside a transaction.
func NewService(
	scope TransactionScope,
	accounts ledger.AccountRepository,
	postings ledger.PostingRepository,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		scope:    scope,
		accounts: accounts,
		postings: postings,
		logger:   logger,
	}
}

// SetMetrics sets the business metrics recorder (optional)
func (s *Service) SetMetrics(m *telemetry.BusinessMetrics) {
	s.metrics = m
}

// OpenAccount creates an active account
func (s *Service) OpenAccount(ctx context.Context, req OpenAccountRequest) (*AccountResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "open_account")
	defer span.End()

	currency, err := valueobject.ParseCurrency(req.Currency)
	if err != nil {
		err = shared.ErrInvalidInput.WithMessage("%v", err)
		telemetry.RecordError(span, err)
		return nil, err
	}
	account, err := ledger.NewAccount(req.AccountNumber, req.Name, currency, req.OpeningBalance)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		exists, err := repos.Accounts().ExistsByNumber(ctx, account.AccountNumber)
		if err != nil {
			return err
		}
		if exists {
			return shared.ErrAlreadyExists.WithMessage("account number %s is already in use", account.AccountNumber)
		}
		if err := repos.Accounts().Create(ctx, account); err != nil {
			return err
		}
		return publishEvents(ctx, repos.Events(), account)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.logFailure("open account", err, zap.String("account_number", account.AccountNumber))
		return nil, err
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrAccountID, account.ID.String())
	s.logger.Info("Account opened",
		zap.String("account_id", account.ID.String()),
		zap.String("account_number", account.AccountNumber),
		zap.String("opening_balance", account.BalanceMoney().String()))

	resp := ToAccountResponse(account)
	return &resp, nil
}

// Post applies one credit or debit. Concurrent posts against the same account
// serialize on the account row lock; different accounts do not contend.
func (s *Service) Post(ctx context.Context, req PostRequest) (*PostingResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "post")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrAccountID, req.AccountID.String(),
		telemetry.SpanAttrPostingType, req.Type,
		telemetry.SpanAttrAmount, req.Amount.String(),
	)

	postingType, err := ledger.ParsePostingType(req.Type)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	cmd := PostCommand{
		AccountID:   req.AccountID,
		Type:        postingType,
		Amount:      req.Amount,
		Description: req.Description,
	}

	var result *PostResult
	telemetry.WithProfilingLabels(ctx, telemetry.LedgerOperationLabels(telemetry.OperationPost, postingType.String()), func(c context.Context) {
		err = s.scope.Execute(c, func(repos TransactionalRepositories) error {
			var postErr error
			result, postErr = PostWithin(c, repos, cmd)
			return postErr
		})
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.metrics.RecordPostingRejected(ctx, string(shared.KindOf(err)))
		s.logFailure("post", err,
			zap.String("account_id", req.AccountID.String()),
			zap.String("type", req.Type),
			zap.String("amount", req.Amount.String()))
		return nil, err
	}

	s.metrics.RecordPosting(ctx, postingType.String())
	telemetry.AddEvent(span, "posting_recorded",
		"posting_id", result.Posting.ID.String(),
		"balance_after", result.Posting.BalanceAfter.String(),
	)
	s.logger.Info("Posting recorded",
		zap.String("posting_id", result.Posting.ID.String()),
		zap.String("account_id", req.AccountID.String()),
		zap.Int64("sequence", result.Posting.Sequence),
		zap.String("type", postingType.String()),
		zap.String("amount", req.Amount.String()),
		zap.String("balance_before", result.Posting.BalanceBefore.String()),
		zap.String("balance_after", result.Posting.BalanceAfter.String()))

	resp := ToPostingResponse(result.Posting, result.Account.Currency.String())
	return &resp, nil
}

// GetAccount returns an account by ID
func (s *Service) GetAccount(ctx context.Context, id uuid.UUID) (*AccountResponse, error) {
	account, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToAccountResponse(account)
	return &resp, nil
}

// ListPostings returns the account's postings most recent first.
// limit defaults to 20 and is capped at 100.
func (s *Service) ListPostings(ctx context.Context, accountID uuid.UUID, limit, offset int) (*shared.Paginated[PostingResponse], error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	page := shared.NewPage(limit, offset)
	postings, err := s.postings.ListByAccount(ctx, accountID, page)
	if err != nil {
		return nil, err
	}
	total, err := s.postings.CountByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	items := make([]PostingResponse, 0, len(postings))
	for i := range postings {
		items = append(items, ToPostingResponse(&postings[i], account.Currency.String()))
	}
	result := shared.NewPaginated(items, total, page)
	return &result, nil
}

// FreezeAccount stops an account from accepting postings
func (s *Service) FreezeAccount(ctx context.Context, id uuid.UUID) (*AccountResponse, error) {
	return s.changeStatus(ctx, id, "freeze", (*ledger.Account).Freeze)
}

// ActivateAccount re-opens a frozen account
func (s *Service) ActivateAccount(ctx context.Context, id uuid.UUID) (*AccountResponse, error) {
	return s.changeStatus(ctx, id, "activate", (*ledger.Account).Activate)
}

func (s *Service) changeStatus(ctx context.Context, id uuid.UUID, op string, transition func(*ledger.Account) error) (*AccountResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", op)
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrAccountID, id.String())

	var account *ledger.Account
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		account, err = repos.Accounts().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := transition(account); err != nil {
			return err
		}
		if err := repos.Accounts().Update(ctx, account); err != nil {
			return err
		}
		return publishEvents(ctx, repos.Events(), account)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.logFailure(op+" account", err, zap.String("account_id", id.String()))
		return nil, err
	}

	s.logger.Info("Account status changed",
		zap.String("account_id", id.String()),
		zap.String("status", string(account.Status)))
	resp := ToAccountResponse(account)
	return &resp, nil
}

// VerifyBalance replays every posting of the account in commit order from the
// opening balance and compares the result with the stored balance.
func (s *Service) VerifyBalance(ctx context.Context, id uuid.UUID) (*BalanceVerification, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "verify_balance")
	defer span.End()

	account, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	postings, err := s.postings.ListAllByAccountAscending(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	result := &BalanceVerification{
		AccountID:      account.ID,
		OpeningBalance: account.OpeningBalance,
		StoredBalance:  account.Balance,
		PostingCount:   len(postings),
	}
	replayed, replayErr := ledger.ReplayBalance(account.OpeningBalance, postings)
	result.ReplayBalance = replayed
	switch {
	case replayErr != nil:
		result.Problem = replayErr.Error()
	case !replayed.Equal(account.Balance):
		result.Problem = "replayed balance differs from stored balance"
	case int64(len(postings)) != account.LastSequence:
		result.Problem = "posting count differs from the account sequence"
	default:
		result.Consistent = true
	}

	if !result.Consistent {
		s.logger.Error("Ledger replay mismatch",
			zap.String("account_id", id.String()),
			zap.String("stored", account.Balance.String()),
			zap.String("replayed", replayed.String()),
			zap.String("problem", result.Problem))
	}
	telemetry.SetAttributes(span, "consistent", result.Consistent, "posting_count", len(postings))
	return result, nil
}

// logFailure logs business rejections at Warn and storage failures at Error
func (s *Service) logFailure(op string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))
	if shared.KindOf(err) == shared.KindStorageFailure {
		s.logger.Error("Ledger "+op+" failed", fields...)
		return
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		fields = append(fields, zap.String("code", de.Code))
	}
	s.logger.Warn("Ledger "+op+" rejected", fields...)
}
