package persistence

import (
	"context"

	"github.com/erp/shopcore/internal/domain/ledger"
	"github.com/erp/shopcore/internal/domain/shared"
	"github.com/erp/shopcore/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormAccountRepository implements ledger.AccountRepository using GORM
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// FindByID finds an account by its ID
func (r *GormAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Account, error) {
	var model models.AccountModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFoundOr("find account", err, shared.ErrAccountNotFound)
	}
	return model.ToDomain(), nil
}

// FindByIDForUpdate reads the account with SELECT ... FOR UPDATE. Concurrent
// postings to the same account queue on this row lock; postings to other
// accounts are not affected.
func (r *GormAccountRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*ledger.Account, error) {
	var model models.AccountModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&model, "id = ?", id).Error; err != nil {
		return nil, notFoundOr("lock account", err, shared.ErrAccountNotFound)
	}
	return model.ToDomain(), nil
}

// ExistsByNumber reports whether an account number is taken
func (r *GormAccountRepository) ExistsByNumber(ctx context.Context, accountNumber string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.AccountModel{}).
		Where("account_number = ?", accountNumber).
		Count(&count).Error; err != nil {
		return false, storageError("check account number", err)
	}
	return count > 0, nil
}

// Create inserts a new account
func (r *GormAccountRepository) Create(ctx context.Context, account *ledger.Account) error {
	model := models.AccountModelFromDomain(account)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isDuplicateKey(err) {
			return shared.ErrAlreadyExists.WithMessage("account number %s is already in use", account.AccountNumber)
		}
		return storageError("create account", err)
	}
	return nil
}

// Update writes balance, status and sequence back. The domain has already
// bumped the version, so the row must still carry the previous one.
func (r *GormAccountRepository) Update(ctx context.Context, account *ledger.Account) error {
	result := r.db.WithContext(ctx).Model(&models.AccountModel{}).
		Where("id = ? AND version = ?", account.ID, account.Version-1).
		Updates(map[string]any{
			"name":          account.Name,
			"balance":       account.Balance,
			"status":        account.Status,
			"last_sequence": account.LastSequence,
			"version":       account.Version,
			"updated_at":    account.UpdatedAt,
		})
	if result.Error != nil {
		return storageError("update account", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.NewStorageError("update account", ErrConcurrentUpdate)
	}
	return nil
}

var _ ledger.AccountRepository = (*GormAccountRepository)(nil)
