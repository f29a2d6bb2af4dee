package ledger

import (
	"context"

	"github.com/erp/shopcore/internal/domain/ledger"
	"github.com/erp/shopcore/internal/domain/shared"
)

// PostResult is the outcome of PostWithin
type PostResult struct {
	Account *ledger.Account
	Posting *ledger.Posting
}

// PostWithin applies cmd inside an already open transaction: it locks the
// account row, checks status and funds, writes the new balance, appends the
// posting and queues the events. Any error leaves the transaction to be rolled
// back by the caller's scope; nothing here commits on its own.
//
// The sale orchestrator calls this directly so that a sale and its deposit
// credit share one transaction.
func PostWithin(ctx context.Context, repos TransactionalRepositories, cmd PostCommand) (*PostResult, error) {
	account, err := repos.Accounts().FindByIDForUpdate(ctx, cmd.AccountID)
	if err != nil {
		return nil, err
	}
	if cmd.Currency != "" && account.Currency != cmd.Currency {
		return nil, shared.ErrInvalidInput.WithMessage("account %s holds %s, cannot post %s",
			account.AccountNumber, account.Currency, cmd.Currency)
	}
	posting, err := account.Post(cmd.Type, cmd.Amount, cmd.Description)
	if err != nil {
		return nil, err
	}
	if err := repos.Accounts().Update(ctx, account); err != nil {
		return nil, err
	}
	if err := repos.Postings().Create(ctx, posting); err != nil {
		return nil, err
	}
	if err := publishEvents(ctx, repos.Events(), account); err != nil {
		return nil, err
	}
	return &PostResult{Account: account, Posting: posting}, nil
}

// publishEvents hands the aggregate's pending events to the publisher and clears them
func publishEvents(ctx context.Context, publisher shared.EventPublisher, agg shared.EventRecorder) error {
	events := agg.PendingEvents()
	if len(events) == 0 {
		return nil
	}
	if publisher != nil {
		if err := publisher.Publish(ctx, events...); err != nil {
			return err
		}
	}
	agg.ClearEvents()
	return nil
}
