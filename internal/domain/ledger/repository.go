package ledger

import (
	"context"

	"github.com/erp/shopcore/internal/domain/shared"
	"github.com/google/uuid"
)

// AccountRepository persists accounts
type AccountRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)
	// FindByIDForUpdate loads the account holding an exclusive lock on it until
	// the surrounding transaction ends. Outside a transaction the lock is
	// released immediately, so callers must use it inside a TransactionScope.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Account, error)
	ExistsByNumber(ctx context.Context, accountNumber string) (bool, error)
	Create(ctx context.Context, account *Account) error
	// Update writes balance, status and sequence back
	Update(ctx context.Context, account *Account) error
}

// PostingRepository persists postings. It is append-only: there is no update or delete.
type PostingRepository interface {
	Create(ctx context.Context, posting *Posting) error
	// ListByAccount returns postings most recent first
	ListByAccount(ctx context.Context, accountID uuid.UUID, page shared.Page) ([]Posting, error)
	CountByAccount(ctx context.Context, accountID uuid.UUID) (int64, error)
	// ListAllByAccountAscending returns every posting in commit order, for replay
	ListAllByAccountAscending(ctx context.Context, accountID uuid.UUID) ([]Posting, error)
}
