package transfer_test

import (
	"context"
	"testing"
	"time"

	"github.com/horizonbank/backend/internal/application/transfer"
	"github.com/horizonbank/backend/internal/domain/ledger"
	"github.com/horizonbank/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCryptoFixture(t *testing.T) (*memStore, *transfer.CryptoService) {
	t.Helper()
	store := newMemStore()
	clock := newFixedClock(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	svc := transfer.NewCryptoService(&fakeUnitOfWork{store: store}, transfer.WithCryptoClock(clock))
	return store, svc
}

func TestCryptoBuy(t *testing.T) {
	store, svc := newCryptoFixture(t)
	owner := seedAccount(t, store, 10000, 0, 0, false)

	row, err := svc.Buy(context.Background(), owner.OwnerID,
		decimal.NewFromFloat(0.1), decimal.NewFromInt(65000))
	require.NoError(t, err)

	assert.Equal(t, ledger.TransactionTypeCryptoBuy, row.Type)
	assert.Equal(t, ledger.AccountKindChecking, row.AccountKind)
	assert.True(t, row.Amount.Equal(decimal.NewFromInt(-6500)))
	require.NotNil(t, row.CryptoQuantity)
	require.NotNil(t, row.CryptoPrice)
	assert.True(t, row.CryptoQuantity.Equal(decimal.NewFromFloat(0.1)))
	assert.True(t, row.CryptoPrice.Equal(decimal.NewFromInt(65000)))

	saved := store.account(owner.OwnerID)
	assert.True(t, saved.Checking.Equal(decimal.NewFromInt(3500)))
	assert.True(t, saved.Crypto.Equal(decimal.NewFromFloat(0.1)))
}

func TestCryptoBuy_InsufficientFunds(t *testing.T) {
	store, svc := newCryptoFixture(t)
	owner := seedAccount(t, store, 100, 0, 0, false)

	_, err := svc.Buy(context.Background(), owner.OwnerID,
		decimal.NewFromFloat(0.1), decimal.NewFromInt(65000))
	require.Error(t, err)
	assert.True(t, shared.IsDomainError(err, "INSUFFICIENT_FUNDS"))

	saved := store.account(owner.OwnerID)
	assert.True(t, saved.Checking.Equal(decimal.NewFromInt(100)))
	assert.True(t, saved.Crypto.IsZero())
}

func TestCryptoSell(t *testing.T) {
	store, svc := newCryptoFixture(t)
	owner := seedAccount(t, store, 0, 0, 2, false)

	row, err := svc.Sell(context.Background(), owner.OwnerID,
		decimal.NewFromFloat(0.5), decimal.NewFromInt(60000))
	require.NoError(t, err)

	assert.Equal(t, ledger.TransactionTypeCryptoSell, row.Type)
	assert.True(t, row.Amount.Equal(decimal.NewFromInt(30000)))

	saved := store.account(owner.OwnerID)
	assert.True(t, saved.Checking.Equal(decimal.NewFromInt(30000)))
	assert.True(t, saved.Crypto.Equal(decimal.NewFromFloat(1.5)))
}

func TestCryptoSell_InsufficientHoldings(t *testing.T) {
	store, svc := newCryptoFixture(t)
	owner := seedAccount(t, store, 0, 0, 0.2, false)

	_, err := svc.Sell(context.Background(), owner.OwnerID,
		decimal.NewFromFloat(0.5), decimal.NewFromInt(60000))
	require.Error(t, err)
	assert.True(t, shared.IsDomainError(err, "INSUFFICIENT_FUNDS"))
}

func TestCryptoTrade_Validation(t *testing.T) {
	store, svc := newCryptoFixture(t)
	owner := seedAccount(t, store, 1000, 0, 1, false)
	ctx := context.Background()

	_, err := svc.Buy(ctx, owner.OwnerID, decimal.Zero, decimal.NewFromInt(100))
	assert.True(t, shared.IsDomainError(err, "INVALID_INPUT"))

	_, err = svc.Buy(ctx, owner.OwnerID, decimal.NewFromInt(1), decimal.NewFromInt(-3))
	assert.True(t, shared.IsDomainError(err, "INVALID_INPUT"))

	_, err = svc.Sell(ctx, owner.OwnerID, decimal.NewFromFloat(-0.5), decimal.NewFromInt(100))
	assert.True(t, shared.IsDomainError(err, "INVALID_INPUT"))
}
