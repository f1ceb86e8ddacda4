package persistence

import (
	"context"

	"github.com/horizonbank/backend/internal/domain/ledger"
	"gorm.io/gorm"
)

// GormUnitOfWork implements ledger.UnitOfWork over a database
// transaction: the repositories handed to fn all share one gorm
// transaction, so every write inside fn commits or rolls back together.
type GormUnitOfWork struct {
	db *Database
}

// NewGormUnitOfWork creates a new GormUnitOfWork
func NewGormUnitOfWork(db *Database) *GormUnitOfWork {
	return &GormUnitOfWork{db: db}
}

// Execute runs fn inside a database transaction
func (u *GormUnitOfWork) Execute(ctx context.Context, fn func(repos ledger.Repositories) error) error {
	return u.db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ledger.Repositories{
			Accounts:     NewGormAccountRepository(tx),
			Transactions: NewGormTransactionRepository(tx),
		})
	})
}
