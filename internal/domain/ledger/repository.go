package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AccountRepository persists Account aggregates
type AccountRepository interface {
	// FindByOwnerID loads the account for one identity, or shared.ErrNotFound
	FindByOwnerID(ctx context.Context, ownerID uuid.UUID) (*Account, error)

	// Create inserts a newly provisioned account
	Create(ctx context.Context, account *Account) error

	// Save persists balance/pending mutations with an optimistic version
	// check; returns shared.ErrConcurrencyConflict when the stored version
	// no longer matches the aggregate's
	Save(ctx context.Context, account *Account) error
}

// TransactionFilter narrows transaction listings
type TransactionFilter struct {
	OwnerID     *uuid.UUID
	AccountKind *AccountKind
	Type        *TransactionType
	Status      *TransactionStatus
	From        *time.Time
	To          *time.Time
	Page        int
	PageSize    int
}

// TransactionRepository persists ledger rows
type TransactionRepository interface {
	Create(ctx context.Context, tx *Transaction) error

	// CreateBatch inserts all rows or none
	CreateBatch(ctx context.Context, txs []*Transaction) error

	// FindByID loads one row, or shared.ErrNotFound
	FindByID(ctx context.Context, id uuid.UUID) (*Transaction, error)

	// FindByTransferID loads all legs sharing a transfer identifier
	FindByTransferID(ctx context.Context, transferID uuid.UUID) ([]*Transaction, error)

	// FindRefundOf returns the refund row referencing originalID, or
	// (nil, nil) when the original has not been refunded
	FindRefundOf(ctx context.Context, originalID uuid.UUID) (*Transaction, error)

	// List returns rows matching the filter plus the unpaginated total
	List(ctx context.Context, filter TransactionFilter) ([]*Transaction, int64, error)

	// UpdateStatus performs the administrative pending -> completed/failed
	// transition; completed rows are never updated
	UpdateStatus(ctx context.Context, id uuid.UUID, status TransactionStatus) error
}

// Repositories bundles the stores participating in one atomic unit
type Repositories struct {
	Accounts     AccountRepository
	Transactions TransactionRepository
}

// UnitOfWork executes fn against transactional views of the stores.
// Either every write inside fn commits or none do; partial application
// of a settlement is never observable.
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(repos Repositories) error) error
}
