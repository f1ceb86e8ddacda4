package ledger_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/horizonbank/backend/internal/domain/ledger"
	"github.com/horizonbank/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAccount(t *testing.T, checking, savings, crypto float64) *ledger.Account {
	t.Helper()
	account, err := ledger.NewAccount(uuid.New(), "Test User", "test@example.com", "+15550100")
	require.NoError(t, err)
	account.Checking = decimal.NewFromFloat(checking)
	account.Savings = decimal.NewFromFloat(savings)
	account.Crypto = decimal.NewFromFloat(crypto)
	return account
}

func TestNewAccount(t *testing.T) {
	account, err := ledger.NewAccount(uuid.New(), "Jordan Park", "jordan@example.com", "+15550100")
	require.NoError(t, err)
	assert.True(t, account.Checking.IsZero())
	assert.True(t, account.Savings.IsZero())
	assert.True(t, account.Crypto.IsZero())
	assert.Nil(t, account.Pending)
	assert.Equal(t, 1, account.GetVersion())
}

func TestNewAccount_NilOwner(t *testing.T) {
	_, err := ledger.NewAccount(uuid.Nil, "X", "", "")
	require.Error(t, err)
	assert.True(t, shared.IsDomainError(err, "INVALID_INPUT"))
}

func TestAccount_BalanceOf(t *testing.T) {
	account := newTestAccount(t, 100, 50, 0.25)

	tests := []struct {
		name     string
		kind     ledger.AccountKind
		expected string
		wantErr  bool
	}{
		{name: "checking", kind: ledger.AccountKindChecking, expected: "100"},
		{name: "savings", kind: ledger.AccountKindSavings, expected: "50"},
		{name: "crypto", kind: ledger.AccountKindCrypto, expected: "0.25"},
		{name: "unknown kind", kind: ledger.AccountKind("money_market"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			balance, err := account.BalanceOf(tt.kind)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, shared.IsDomainError(err, "INVALID_INPUT"))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, balance.String())
		})
	}
}

func TestAccount_DebitCredit(t *testing.T) {
	account := newTestAccount(t, 100, 0, 0)

	require.NoError(t, account.Debit(ledger.AccountKindChecking, decimal.NewFromInt(40), "transfer"))
	require.NoError(t, account.Credit(ledger.AccountKindSavings, decimal.NewFromInt(40), "transfer"))

	assert.Equal(t, "60", account.Checking.String())
	assert.Equal(t, "40", account.Savings.String())
	assert.Len(t, account.GetDomainEvents(), 2)
}

func TestAccount_Debit_InsufficientFunds(t *testing.T) {
	account := newTestAccount(t, 10, 0, 0)

	err := account.Debit(ledger.AccountKindChecking, decimal.NewFromInt(20), "transfer")
	require.Error(t, err)
	assert.True(t, shared.IsDomainError(err, "INSUFFICIENT_FUNDS"))
	assert.Equal(t, "10", account.Checking.String())
}

func TestAccount_Debit_RejectsNonPositive(t *testing.T) {
	account := newTestAccount(t, 10, 0, 0)

	assert.Error(t, account.Debit(ledger.AccountKindChecking, decimal.Zero, "transfer"))
	assert.Error(t, account.Debit(ledger.AccountKindChecking, decimal.NewFromInt(-5), "transfer"))
	assert.Equal(t, "10", account.Checking.String())
}

func TestAccount_ApplyDeltas_AllOrNothing(t *testing.T) {
	account := newTestAccount(t, 100, 5, 0)

	// The savings debit would go negative, so the checking credit must
	// not be applied either.
	err := account.ApplyDeltas([]ledger.BalanceDelta{
		{OwnerID: account.OwnerID, Kind: ledger.AccountKindChecking, Amount: decimal.NewFromInt(10)},
		{OwnerID: account.OwnerID, Kind: ledger.AccountKindSavings, Amount: decimal.NewFromInt(-10)},
	}, "transfer")

	require.Error(t, err)
	assert.True(t, shared.IsDomainError(err, "INSUFFICIENT_FUNDS"))
	assert.Equal(t, "100", account.Checking.String())
	assert.Equal(t, "5", account.Savings.String())
	assert.Empty(t, account.GetDomainEvents())
}

func TestAccount_ApplyDeltas_CumulativeOverdrawRejected(t *testing.T) {
	account := newTestAccount(t, 100, 0, 0)

	// Each debit alone fits the starting balance, but together they
	// overdraw checking; the set must be rejected whole.
	err := account.ApplyDeltas([]ledger.BalanceDelta{
		{OwnerID: account.OwnerID, Kind: ledger.AccountKindChecking, Amount: decimal.NewFromInt(-50)},
		{OwnerID: account.OwnerID, Kind: ledger.AccountKindChecking, Amount: decimal.NewFromInt(-60)},
	}, "refund")

	require.Error(t, err)
	assert.True(t, shared.IsDomainError(err, "INSUFFICIENT_FUNDS"))
	assert.Equal(t, "100", account.Checking.String())
	assert.Empty(t, account.GetDomainEvents())
}

func TestAccount_ApplyDeltas_CumulativeWithinBalance(t *testing.T) {
	account := newTestAccount(t, 100, 0, 0)

	err := account.ApplyDeltas([]ledger.BalanceDelta{
		{OwnerID: account.OwnerID, Kind: ledger.AccountKindChecking, Amount: decimal.NewFromInt(-50)},
		{OwnerID: account.OwnerID, Kind: ledger.AccountKindChecking, Amount: decimal.NewFromInt(-40)},
		{OwnerID: account.OwnerID, Kind: ledger.AccountKindSavings, Amount: decimal.NewFromInt(30)},
	}, "refund")

	require.NoError(t, err)
	assert.Equal(t, "10", account.Checking.String())
	assert.Equal(t, "30", account.Savings.String())
}

func TestAccount_PendingMovement_Overwrite(t *testing.T) {
	account := newTestAccount(t, 100, 0, 0)

	first := ledger.PendingMovement{
		Kind:      ledger.MovementKindInternal,
		FromKind:  ledger.AccountKindChecking,
		ToKind:    ledger.AccountKindSavings,
		Amount:    decimal.NewFromInt(25),
		CreatedAt: time.Now(),
	}
	second := first
	second.Amount = decimal.NewFromInt(75)

	account.SetPendingMovement(first)
	account.SetPendingMovement(second)

	require.NotNil(t, account.Pending)
	assert.Equal(t, "75", account.Pending.Amount.String())

	account.ClearPendingMovement()
	assert.Nil(t, account.Pending)
}

func TestPendingMovement_Expiry(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	movement := ledger.PendingMovement{CreatedAt: created}

	assert.False(t, movement.IsExpired(created.Add(14*time.Minute)))
	assert.False(t, movement.IsExpired(created.Add(15*time.Minute)))
	assert.True(t, movement.IsExpired(created.Add(15*time.Minute+time.Second)))
	assert.Equal(t, created.Add(15*time.Minute), movement.ExpiresAt())
}
