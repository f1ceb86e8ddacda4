package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/horizonbank/backend/internal/domain/ledger"
	"github.com/horizonbank/backend/internal/domain/shared"
	"github.com/horizonbank/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormTransactionRepository implements ledger.TransactionRepository using GORM
type GormTransactionRepository struct {
	db *gorm.DB
}

// NewGormTransactionRepository creates a new GormTransactionRepository
func NewGormTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

// Create inserts a new ledger row
func (r *GormTransactionRepository) Create(ctx context.Context, tx *ledger.Transaction) error {
	model := models.TransactionModelFromDomain(tx)
	return r.db.WithContext(ctx).Create(model).Error
}

// CreateBatch inserts all rows in one statement
func (r *GormTransactionRepository) CreateBatch(ctx context.Context, txs []*ledger.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	txModels := make([]*models.TransactionModel, len(txs))
	for i, tx := range txs {
		txModels[i] = models.TransactionModelFromDomain(tx)
	}
	return r.db.WithContext(ctx).Create(&txModels).Error
}

// FindByID finds a ledger row by ID
func (r *GormTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	var model models.TransactionModel
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByTransferID finds all legs sharing a transfer identifier
func (r *GormTransactionRepository) FindByTransferID(ctx context.Context, transferID uuid.UUID) ([]*ledger.Transaction, error) {
	var txModels []models.TransactionModel
	if err := r.db.WithContext(ctx).
		Where("transfer_id = ?", transferID).
		Order("timestamp ASC, id ASC").
		Find(&txModels).Error; err != nil {
		return nil, err
	}
	txs := make([]*ledger.Transaction, len(txModels))
	for i := range txModels {
		txs[i] = txModels[i].ToDomain()
	}
	return txs, nil
}

// FindRefundOf returns the refund row referencing originalID, or
// (nil, nil) when the original has not been refunded
func (r *GormTransactionRepository) FindRefundOf(ctx context.Context, originalID uuid.UUID) (*ledger.Transaction, error) {
	var model models.TransactionModel
	if err := r.db.WithContext(ctx).
		Where("type = ? AND related_transaction_id = ?", ledger.TransactionTypeRefund, originalID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// List lists ledger rows with filtering and pagination
func (r *GormTransactionRepository) List(ctx context.Context, filter ledger.TransactionFilter) ([]*ledger.Transaction, int64, error) {
	var txModels []models.TransactionModel
	var total int64

	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.TransactionModel{}), filter)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}
	// Most recent first
	query = query.Order("timestamp DESC, id DESC")

	if err := query.Find(&txModels).Error; err != nil {
		return nil, 0, err
	}

	txs := make([]*ledger.Transaction, len(txModels))
	for i := range txModels {
		txs[i] = txModels[i].ToDomain()
	}
	return txs, total, nil
}

// UpdateStatus performs the administrative pending -> completed/failed
// transition. Completed rows never change again, enforced by the status
// predicate in the update.
func (r *GormTransactionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status ledger.TransactionStatus) error {
	result := r.db.WithContext(ctx).
		Model(&models.TransactionModel{}).
		Where("id = ? AND status = ?", id, ledger.TransactionStatusPending).
		Update("status", status.String())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("INVALID_STATE", "Transaction is not pending")
	}
	return nil
}

func (r *GormTransactionRepository) applyFilter(query *gorm.DB, filter ledger.TransactionFilter) *gorm.DB {
	if filter.OwnerID != nil {
		query = query.Where("owner_id = ?", *filter.OwnerID)
	}
	if filter.AccountKind != nil {
		query = query.Where("account_kind = ?", filter.AccountKind.String())
	}
	if filter.Type != nil {
		query = query.Where("type = ?", filter.Type.String())
	}
	if filter.Status != nil {
		query = query.Where("status = ?", filter.Status.String())
	}
	if filter.From != nil {
		query = query.Where("timestamp >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("timestamp < ?", *filter.To)
	}
	return query
}
