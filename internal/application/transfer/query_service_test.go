package transfer_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/horizonbank/backend/internal/application/transfer"
	"github.com/horizonbank/backend/internal/domain/ledger"
	"github.com/horizonbank/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newQueryFixture(t *testing.T) (*memStore, *transfer.LedgerQueryService) {
	t.Helper()
	store := newMemStore()
	svc := transfer.NewLedgerQueryService(
		&fakeTransactionRepo{store: store},
		&fakeAccountRepo{store: store},
		&fakeUnitOfWork{store: store},
	)
	return store, svc
}

func seedRow(t *testing.T, store *memStore, ownerID uuid.UUID, amount float64, ts time.Time) *ledger.Transaction {
	t.Helper()
	tx, err := ledger.NewTransaction(ownerID, ledger.TransactionTypeTransfer,
		ledger.AccountKindChecking, decimal.NewFromFloat(amount), ts, "wire")
	require.NoError(t, err)
	require.NoError(t, (&fakeTransactionRepo{store: store}).Create(context.Background(), tx))
	return tx
}

func TestListTransactions_FiltersByOwner(t *testing.T) {
	store, svc := newQueryFixture(t)
	a := seedAccount(t, store, 0, 0, 0, false)
	b, err := ledger.NewAccount(uuid.New(), "Sam Rivera", "sam@example.com", "")
	require.NoError(t, err)
	store.addAccount(b)

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	seedRow(t, store, a.OwnerID, -10, now)
	seedRow(t, store, a.OwnerID, 20, now)
	seedRow(t, store, b.OwnerID, 30, now)

	rows, total, err := svc.ListTransactions(context.Background(),
		ledger.TransactionFilter{OwnerID: &a.OwnerID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, rows, 2)
}

func TestListTransferGroups_ResolvesNamesInDescriptions(t *testing.T) {
	store, svc := newQueryFixture(t)
	a := seedAccount(t, store, 0, 0, 0, false)
	b, err := ledger.NewAccount(uuid.New(), "Sam Rivera", "sam@example.com", "")
	require.NoError(t, err)
	store.addAccount(b)

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	// A legacy cross-identity pair without transfer ids.
	seedRow(t, store, a.OwnerID, -40, now)
	seedRow(t, store, b.OwnerID, 40, now.Add(3*time.Second))

	groups, err := svc.ListTransferGroups(context.Background(), ledger.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Contains(t, groups[0].Description, "Avery Chen")
	assert.Contains(t, groups[0].Description, "Sam Rivera")
	assert.True(t, groups[0].Amount.Equal(decimal.NewFromInt(40)))
}

func TestSetTransactionStatus_PendingToFailed(t *testing.T) {
	store, svc := newQueryFixture(t)
	owner := seedAccount(t, store, 0, 0, 0, false)

	tx, err := ledger.NewTransaction(owner.OwnerID, ledger.TransactionTypeDeposit,
		ledger.AccountKindChecking, decimal.NewFromInt(100), time.Now(), "ach credit")
	require.NoError(t, err)
	tx.WithStatus(ledger.TransactionStatusPending)
	require.NoError(t, (&fakeTransactionRepo{store: store}).Create(context.Background(), tx))

	err = svc.SetTransactionStatus(context.Background(), tx.ID, ledger.TransactionStatusFailed)
	require.NoError(t, err)

	stored, err := (&fakeTransactionRepo{store: store}).FindByID(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.TransactionStatusFailed, stored.Status)
}

func TestSetTransactionStatus_CompletedRowsAreImmutable(t *testing.T) {
	store, svc := newQueryFixture(t)
	owner := seedAccount(t, store, 0, 0, 0, false)
	tx := seedRow(t, store, owner.OwnerID, 100, time.Now())

	err := svc.SetTransactionStatus(context.Background(), tx.ID, ledger.TransactionStatusFailed)
	require.Error(t, err)
	assert.True(t, shared.IsDomainError(err, "INVALID_STATE"))
}

func TestSetTransactionStatus_RejectsNonTerminal(t *testing.T) {
	_, svc := newQueryFixture(t)
	err := svc.SetTransactionStatus(context.Background(), uuid.New(), ledger.TransactionStatusPending)
	require.Error(t, err)
	assert.True(t, shared.IsDomainError(err, "INVALID_INPUT"))
}
