package ledger

import (
	"context"

	"github.com/erp/shopcore/internal/domain/ledger"
	"github.com/erp/shopcore/internal/domain/shared"
)

// TransactionScope provides transactional access to ledger repositories.
// Everything done through the repositories handed to fn commits or rolls back together.
type TransactionScope interface {
	// Execute runs fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to ledger repositories within a transaction.
// All repositories returned share the same underlying database transaction.
//
// Events publishes into the transactional outbox, so an event is only ever
// relayed if the state change that raised it committed.
type TransactionalRepositories interface {
	Accounts() ledger.AccountRepository
	Postings() ledger.PostingRepository
	Events() shared.EventPublisher
}

// NoOpTransactionScope runs fn directly against the given repositories without a transaction.
// Useful for tests.
type NoOpTransactionScope struct {
	accounts ledger.AccountRepository
	postings ledger.PostingRepository
	events   shared.EventPublisher
}

// NewNoOpTransactionScope creates a NoOpTransactionScope
func NewNoOpTransactionScope(
	accounts ledger.AccountRepository,
	postings ledger.PostingRepository,
	events shared.EventPublisher,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{accounts: accounts, postings: postings, events: events}
}

// Execute runs the function without a real transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// Accounts returns the account repository
func (s *NoOpTransactionScope) Accounts() ledger.AccountRepository {
	return s.accounts
}

// Postings returns the posting repository
func (s *NoOpTransactionScope) Postings() ledger.PostingRepository {
	return s.postings
}

// Events returns the event publisher
func (s *NoOpTransactionScope) Events() shared.EventPublisher {
	return s.events
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
