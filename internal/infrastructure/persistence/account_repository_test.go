package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/horizonbank/backend/internal/domain/ledger"
	"github.com/horizonbank/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})
	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return gormDB, mock, mockDB
}

func TestGormAccountRepository_FindByOwnerID(t *testing.T) {
	t.Run("finds existing account", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormAccountRepository(gormDB)

		ownerID := uuid.New()
		rows := sqlmock.NewRows([]string{"id", "version", "owner_id", "display_name", "verification_enabled", "checking", "savings", "crypto"}).
			AddRow(uuid.New(), 3, ownerID, "Avery Chen", true, decimal.NewFromInt(100), decimal.Zero, decimal.Zero)

		mock.ExpectQuery(`SELECT \* FROM "accounts" WHERE owner_id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(ownerID, 1).
			WillReturnRows(rows)

		account, err := repo.FindByOwnerID(context.Background(), ownerID)
		require.NoError(t, err)
		assert.Equal(t, ownerID, account.OwnerID)
		assert.Equal(t, 3, account.Version)
		assert.True(t, account.Checking.Equal(decimal.NewFromInt(100)))
		assert.Nil(t, account.Pending)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("hydrates pending movement columns", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormAccountRepository(gormDB)

		ownerID := uuid.New()
		rows := sqlmock.NewRows([]string{"id", "owner_id", "display_name", "pending_kind", "pending_from_kind", "pending_to_kind", "pending_amount", "pending_code_hash"}).
			AddRow(uuid.New(), ownerID, "Avery Chen", "internal", "checking", "savings", decimal.NewFromInt(50), []byte("hash"))

		mock.ExpectQuery(`SELECT \* FROM "accounts" WHERE owner_id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(ownerID, 1).
			WillReturnRows(rows)

		account, err := repo.FindByOwnerID(context.Background(), ownerID)
		require.NoError(t, err)
		require.NotNil(t, account.Pending)
		assert.Equal(t, ledger.MovementKindInternal, account.Pending.Kind)
		assert.Equal(t, ledger.AccountKindChecking, account.Pending.FromKind)
		assert.True(t, account.Pending.Amount.Equal(decimal.NewFromInt(50)))
		assert.Equal(t, []byte("hash"), account.Pending.CodeHash)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrNotFound for missing account", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormAccountRepository(gormDB)

		ownerID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "accounts" WHERE owner_id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(ownerID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		account, err := repo.FindByOwnerID(context.Background(), ownerID)
		assert.Nil(t, account)
		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormAccountRepository_Save(t *testing.T) {
	newAccount := func(t *testing.T) *ledger.Account {
		account, err := ledger.NewAccount(uuid.New(), "Avery Chen", "avery@example.com", "")
		require.NoError(t, err)
		return account
	}

	t.Run("bumps version on success", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormAccountRepository(gormDB)

		account := newAccount(t)
		require.Equal(t, 1, account.Version)

		mock.ExpectExec(`UPDATE "accounts" SET .* WHERE owner_id = \$\d+ AND version = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Save(context.Background(), account))
		assert.Equal(t, 2, account.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports conflict when no row matches the loaded version", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormAccountRepository(gormDB)

		account := newAccount(t)

		mock.ExpectExec(`UPDATE "accounts" SET .* WHERE owner_id = \$\d+ AND version = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Save(context.Background(), account)
		assert.Equal(t, shared.ErrConcurrencyConflict, err)
		assert.Equal(t, 1, account.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormTransactionRepository_FindRefundOf(t *testing.T) {
	t.Run("returns nil when no refund exists", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormTransactionRepository(gormDB)

		originalID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "transactions" WHERE type = \$1 AND related_transaction_id = \$2 ORDER BY .* LIMIT .*`).
			WithArgs("refund", originalID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		refund, err := repo.FindRefundOf(context.Background(), originalID)
		require.NoError(t, err)
		assert.Nil(t, refund)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns the refund row", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormTransactionRepository(gormDB)

		originalID := uuid.New()
		refundID := uuid.New()
		rows := sqlmock.NewRows([]string{"id", "owner_id", "amount", "type", "account_kind", "status", "related_transaction_id"}).
			AddRow(refundID, uuid.New(), decimal.NewFromInt(100), "refund", "checking", "completed", originalID)

		mock.ExpectQuery(`SELECT \* FROM "transactions" WHERE type = \$1 AND related_transaction_id = \$2 ORDER BY .* LIMIT .*`).
			WithArgs("refund", originalID, 1).
			WillReturnRows(rows)

		refund, err := repo.FindRefundOf(context.Background(), originalID)
		require.NoError(t, err)
		require.NotNil(t, refund)
		assert.Equal(t, refundID, refund.ID)
		require.NotNil(t, refund.RelatedTransactionID)
		assert.Equal(t, originalID, *refund.RelatedTransactionID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormTransactionRepository_UpdateStatus(t *testing.T) {
	t.Run("rejects non-pending rows", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormTransactionRepository(gormDB)

		id := uuid.New()
		mock.ExpectExec(`UPDATE "transactions" SET .* WHERE id = \$\d+ AND status = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateStatus(context.Background(), id, ledger.TransactionStatusFailed)
		require.Error(t, err)
		assert.True(t, shared.IsDomainError(err, "INVALID_STATE"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
