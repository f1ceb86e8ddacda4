package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/horizonbank/backend/internal/domain/ledger"
	"github.com/horizonbank/backend/internal/domain/shared"
	"github.com/horizonbank/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormAccountRepository implements ledger.AccountRepository using GORM
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// FindByOwnerID finds the account for one identity
func (r *GormAccountRepository) FindByOwnerID(ctx context.Context, ownerID uuid.UUID) (*ledger.Account, error) {
	var model models.AccountModel
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Create inserts a newly provisioned account
func (r *GormAccountRepository) Create(ctx context.Context, account *ledger.Account) error {
	model := models.AccountModelFromDomain(account)
	return r.db.WithContext(ctx).Create(model).Error
}

// Save persists balance and pending-slot mutations guarded by an
// optimistic version check. The update only matches the row at the
// version the aggregate was loaded with; zero rows affected means a
// concurrent writer got there first. The version bump happens here, not
// in the domain mutators, so one logical operation costs one version
// step regardless of how many mutations it makes.
func (r *GormAccountRepository) Save(ctx context.Context, account *ledger.Account) error {
	model := models.AccountModelFromDomain(account)

	result := r.db.WithContext(ctx).
		Model(&models.AccountModel{}).
		Where("owner_id = ? AND version = ?", account.OwnerID, account.Version).
		Updates(map[string]interface{}{
			"version":                account.Version + 1,
			"updated_at":             time.Now(),
			"verification_enabled":   model.VerificationEnabled,
			"checking":               model.Checking,
			"savings":                model.Savings,
			"crypto":                 model.Crypto,
			"pending_kind":           model.PendingKind,
			"pending_from_kind":      model.PendingFromKind,
			"pending_to_kind":        model.PendingToKind,
			"pending_amount":         model.PendingAmount,
			"pending_memo":           model.PendingMemo,
			"pending_recipient_id":   model.PendingRecipientID,
			"pending_recipient_name": model.PendingRecipientName,
			"pending_bank_name":      model.PendingBankName,
			"pending_account_number": model.PendingAccountNumber,
			"pending_code_hash":      model.PendingCodeHash,
			"pending_created_at":     model.PendingCreatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	account.IncrementVersion()
	return nil
}
