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
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type movementFixture struct {
	store    *memStore
	notifier *captureNotifier
	dir      *MockDirectory
	clock    *fixedClock
	svc      *transfer.MovementService
}

func newMovementFixture(t *testing.T) *movementFixture {
	t.Helper()
	store := newMemStore()
	notifier := newCaptureNotifier()
	dir := &MockDirectory{}
	clock := newFixedClock(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	svc := transfer.NewMovementService(
		&fakeUnitOfWork{store: store},
		&fakeAccountRepo{store: store},
		notifier,
		dir,
		transfer.WithClock(clock),
	)
	return &movementFixture{store: store, notifier: notifier, dir: dir, clock: clock, svc: svc}
}

func TestRequestInternal_ImmediateSettleWithoutVerification(t *testing.T) {
	f := newMovementFixture(t)
	owner := seedAccount(t, f.store, 1000, 50, 0, false)

	receipt, err := f.svc.RequestInternal(context.Background(), owner.OwnerID,
		ledger.AccountKindChecking, ledger.AccountKindSavings, decimal.NewFromInt(300), "")
	require.NoError(t, err)

	assert.False(t, receipt.VerificationRequired)
	require.NotNil(t, receipt.TransferID)
	require.Len(t, receipt.Transactions, 2)

	saved := f.store.account(owner.OwnerID)
	assert.True(t, saved.Checking.Equal(decimal.NewFromInt(700)))
	assert.True(t, saved.Savings.Equal(decimal.NewFromInt(350)))
	assert.Nil(t, saved.Pending)

	debit, credit := receipt.Transactions[0], receipt.Transactions[1]
	assert.True(t, debit.Amount.Equal(decimal.NewFromInt(-300)))
	assert.True(t, credit.Amount.Equal(decimal.NewFromInt(300)))
	assert.Equal(t, *debit.TransferID, *credit.TransferID)
	assert.Equal(t, ledger.TransactionTypeTransfer, debit.Type)
	assert.Equal(t, ledger.TransactionTypeTransfer, credit.Type)
}

func TestRequestInternal_StagesPendingWhenVerificationEnabled(t *testing.T) {
	f := newMovementFixture(t)
	owner := seedAccount(t, f.store, 1000, 0, 0, true)

	receipt, err := f.svc.RequestInternal(context.Background(), owner.OwnerID,
		ledger.AccountKindChecking, ledger.AccountKindSavings, decimal.NewFromInt(200), "rainy day")
	require.NoError(t, err)

	assert.True(t, receipt.VerificationRequired)
	require.NotNil(t, receipt.ExpiresAt)
	assert.Empty(t, receipt.Transactions)

	saved := f.store.account(owner.OwnerID)
	require.NotNil(t, saved.Pending)
	assert.Equal(t, ledger.MovementKindInternal, saved.Pending.Kind)
	// Balances untouched until verification.
	assert.True(t, saved.Checking.Equal(decimal.NewFromInt(1000)))
	assert.NotEmpty(t, f.notifier.codeFor(owner.OwnerID))
	// The plaintext code never lands in the store.
	assert.NotEqual(t, f.notifier.codeFor(owner.OwnerID), string(saved.Pending.CodeHash))
}

func TestVerifyInternal_SettlesStagedMovement(t *testing.T) {
	f := newMovementFixture(t)
	owner := seedAccount(t, f.store, 500, 0, 0, true)

	_, err := f.svc.RequestInternal(context.Background(), owner.OwnerID,
		ledger.AccountKindChecking, ledger.AccountKindSavings, decimal.NewFromInt(120), "")
	require.NoError(t, err)

	receipt, err := f.svc.VerifyInternal(context.Background(), owner.OwnerID, f.notifier.codeFor(owner.OwnerID))
	require.NoError(t, err)
	require.Len(t, receipt.Transactions, 2)

	saved := f.store.account(owner.OwnerID)
	assert.True(t, saved.Checking.Equal(decimal.NewFromInt(380)))
	assert.True(t, saved.Savings.Equal(decimal.NewFromInt(120)))
	assert.Nil(t, saved.Pending)
}

func TestVerifyInternal_WrongCodeKeepsPending(t *testing.T) {
	f := newMovementFixture(t)
	owner := seedAccount(t, f.store, 500, 0, 0, true)

	_, err := f.svc.RequestInternal(context.Background(), owner.OwnerID,
		ledger.AccountKindChecking, ledger.AccountKindSavings, decimal.NewFromInt(120), "")
	require.NoError(t, err)

	_, err = f.svc.VerifyInternal(context.Background(), owner.OwnerID, "not-the-code")
	require.Error(t, err)
	assert.True(t, shared.IsDomainError(err, "INVALID_CODE"))

	saved := f.store.account(owner.OwnerID)
	require.NotNil(t, saved.Pending)
	assert.True(t, saved.Checking.Equal(decimal.NewFromInt(500)))
}

func TestVerifyInternal_NoPendingMovement(t *testing.T) {
	f := newMovementFixture(t)
	owner := seedAccount(t, f.store, 500, 0, 0, true)

	_, err := f.svc.VerifyInternal(context.Background(), owner.OwnerID, "123456abcdef")
	require.Error(t, err)
	assert.True(t, shared.IsDomainError(err, "NO_PENDING_MOVEMENT"))
}

func TestVerifyInternal_KindMismatchIsNoPending(t *testing.T) {
	f := newMovementFixture(t)
	owner := seedAccount(t, f.store, 500, 0, 0, true)

	_, err := f.svc.RequestExternal(context.Background(), owner.OwnerID,
		ledger.AccountKindChecking, decimal.NewFromInt(50), "First National", "998877665544", "")
	require.NoError(t, err)

	_, err = f.svc.VerifyInternal(context.Background(), owner.OwnerID, f.notifier.codeFor(owner.OwnerID))
	require.Error(t, err)
	assert.True(t, shared.IsDomainError(err, "NO_PENDING_MOVEMENT"))
}

func TestVerifyInternal_ExpiredCodeClearsPending(t *testing.T) {
	f := newMovementFixture(t)
	owner := seedAccount(t, f.store, 500, 0, 0, true)

	_, err := f.svc.RequestInternal(context.Background(), owner.OwnerID,
		ledger.AccountKindChecking, ledger.AccountKindSavings, decimal.NewFromInt(120), "")
	require.NoError(t, err)

	f.clock.Advance(ledger.PendingMovementTTL + time.Second)

	_, err = f.svc.VerifyInternal(context.Background(), owner.OwnerID, f.notifier.codeFor(owner.OwnerID))
	require.Error(t, err)
	assert.True(t, shared.IsDomainError(err, "EXPIRED_CODE"))

	// The slot is cleared despite the failed verify.
	saved := f.store.account(owner.OwnerID)
	assert.Nil(t, saved.Pending)
	assert.True(t, saved.Checking.Equal(decimal.NewFromInt(500)))
}

func TestVerifyInternal_SucceedsAtExactExpiry(t *testing.T) {
	f := newMovementFixture(t)
	owner := seedAccount(t, f.store, 500, 0, 0, true)

	_, err := f.svc.RequestInternal(context.Background(), owner.OwnerID,
		ledger.AccountKindChecking, ledger.AccountKindSavings, decimal.NewFromInt(120), "")
	require.NoError(t, err)

	f.clock.Advance(ledger.PendingMovementTTL)

	_, err = f.svc.VerifyInternal(context.Background(), owner.OwnerID, f.notifier.codeFor(owner.OwnerID))
	require.NoError(t, err)
}

func TestVerifyInternal_StaleCodeCannotSettleOverwrittenSlot(t *testing.T) {
	store := newMemStore()
	notifier := newCaptureNotifier()
	uow := &fakeUnitOfWork{store: store}
	svc := transfer.NewMovementService(uow, &fakeAccountRepo{store: store}, notifier, &MockDirectory{})
	owner := seedAccount(t, store, 500, 0, 0, true)
	ctx := context.Background()

	_, err := svc.RequestInternal(ctx, owner.OwnerID,
		ledger.AccountKindChecking, ledger.AccountKindSavings, decimal.NewFromInt(10), "")
	require.NoError(t, err)
	firstCode := notifier.codeFor(owner.OwnerID)

	// A second request lands between the verify's read and its
	// transaction, overwriting the slot with a larger movement.
	uow.beforeExecute = func() {
		_, err := svc.RequestInternal(ctx, owner.OwnerID,
			ledger.AccountKindChecking, ledger.AccountKindSavings, decimal.NewFromInt(90), "")
		require.NoError(t, err)
	}

	_, err = svc.VerifyInternal(ctx, owner.OwnerID, firstCode)
	require.Error(t, err)
	assert.True(t, shared.IsDomainError(err, "INVALID_CODE"))

	// The overwritten movement stays staged and no balances moved.
	saved := store.account(owner.OwnerID)
	require.NotNil(t, saved.Pending)
	assert.True(t, saved.Pending.Amount.Equal(decimal.NewFromInt(90)))
	assert.True(t, saved.Checking.Equal(decimal.NewFromInt(500)))
	assert.True(t, saved.Savings.Equal(decimal.Zero))

	// The fresh code settles the movement it was issued for.
	_, err = svc.VerifyInternal(ctx, owner.OwnerID, notifier.codeFor(owner.OwnerID))
	require.NoError(t, err)
	assert.True(t, store.account(owner.OwnerID).Savings.Equal(decimal.NewFromInt(90)))
}

func TestRequestInternal_OverwritesPreviousPending(t *testing.T) {
	f := newMovementFixture(t)
	owner := seedAccount(t, f.store, 1000, 0, 0, true)
	ctx := context.Background()

	_, err := f.svc.RequestInternal(ctx, owner.OwnerID,
		ledger.AccountKindChecking, ledger.AccountKindSavings, decimal.NewFromInt(100), "")
	require.NoError(t, err)
	firstCode := f.notifier.codeFor(owner.OwnerID)

	_, err = f.svc.RequestInternal(ctx, owner.OwnerID,
		ledger.AccountKindChecking, ledger.AccountKindSavings, decimal.NewFromInt(250), "")
	require.NoError(t, err)
	secondCode := f.notifier.codeFor(owner.OwnerID)
	require.NotEqual(t, firstCode, secondCode)

	// First code no longer verifies, second settles the second request.
	_, err = f.svc.VerifyInternal(ctx, owner.OwnerID, firstCode)
	assert.True(t, shared.IsDomainError(err, "INVALID_CODE"))

	_, err = f.svc.VerifyInternal(ctx, owner.OwnerID, secondCode)
	require.NoError(t, err)

	saved := f.store.account(owner.OwnerID)
	assert.True(t, saved.Savings.Equal(decimal.NewFromInt(250)))
}

func TestRequestInternal_Validation(t *testing.T) {
	f := newMovementFixture(t)
	owner := seedAccount(t, f.store, 100, 0, 0, false)
	ctx := context.Background()

	tests := []struct {
		name   string
		from   ledger.AccountKind
		to     ledger.AccountKind
		amount decimal.Decimal
		code   string
	}{
		{"same account", ledger.AccountKindChecking, ledger.AccountKindChecking, decimal.NewFromInt(10), "INVALID_INPUT"},
		{"crypto source", ledger.AccountKindCrypto, ledger.AccountKindSavings, decimal.NewFromInt(10), "INVALID_INPUT"},
		{"zero amount", ledger.AccountKindChecking, ledger.AccountKindSavings, decimal.Zero, "INVALID_INPUT"},
		{"negative amount", ledger.AccountKindChecking, ledger.AccountKindSavings, decimal.NewFromInt(-5), "INVALID_INPUT"},
		{"insufficient funds", ledger.AccountKindChecking, ledger.AccountKindSavings, decimal.NewFromInt(101), "INSUFFICIENT_FUNDS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.RequestInternal(ctx, owner.OwnerID, tt.from, tt.to, tt.amount, "")
			require.Error(t, err)
			assert.True(t, shared.IsDomainError(err, tt.code))
		})
	}

	saved := f.store.account(owner.OwnerID)
	assert.True(t, saved.Checking.Equal(decimal.NewFromInt(100)))
	assert.Nil(t, saved.Pending)
}

func TestExternalTransfer_SingleDebitLeg(t *testing.T) {
	f := newMovementFixture(t)
	owner := seedAccount(t, f.store, 800, 0, 0, true)
	ctx := context.Background()

	_, err := f.svc.RequestExternal(ctx, owner.OwnerID,
		ledger.AccountKindChecking, decimal.NewFromInt(250), "First National", "998877665544", "rent")
	require.NoError(t, err)

	receipt, err := f.svc.VerifyExternal(ctx, owner.OwnerID, f.notifier.codeFor(owner.OwnerID))
	require.NoError(t, err)
	require.Len(t, receipt.Transactions, 1)
	assert.Nil(t, receipt.TransferID)

	row := receipt.Transactions[0]
	assert.Equal(t, ledger.TransactionTypePayment, row.Type)
	assert.True(t, row.Amount.Equal(decimal.NewFromInt(-250)))
	assert.Contains(t, row.Description, "First National")
	assert.Contains(t, row.Description, "****5544")
	assert.NotContains(t, row.Description, "998877665544")

	saved := f.store.account(owner.OwnerID)
	assert.True(t, saved.Checking.Equal(decimal.NewFromInt(550)))
}

func TestP2PTransfer_AsymmetricLegs(t *testing.T) {
	f := newMovementFixture(t)
	sender := seedAccount(t, f.store, 600, 0, 0, false)

	recipient, err := ledger.NewAccount(uuid.New(), "Sam Rivera", "sam@example.com", "+15550102")
	require.NoError(t, err)
	f.store.addAccount(recipient)

	f.dir.On("Resolve", mock.Anything, "sam@example.com").Return(recipient.OwnerID, nil)

	receipt, err := f.svc.RequestP2P(context.Background(), sender.OwnerID,
		"sam@example.com", ledger.AccountKindChecking, decimal.NewFromInt(75), "")
	require.NoError(t, err)
	require.Len(t, receipt.Transactions, 2)

	debit, credit := receipt.Transactions[0], receipt.Transactions[1]
	assert.Equal(t, ledger.TransactionTypeTransfer, debit.Type)
	assert.Equal(t, ledger.TransactionTypeDeposit, credit.Type)
	assert.Equal(t, sender.OwnerID, debit.OwnerID)
	assert.Equal(t, recipient.OwnerID, credit.OwnerID)
	assert.Equal(t, *debit.TransferID, *credit.TransferID)
	assert.Contains(t, debit.Description, "Sam Rivera")
	assert.Contains(t, credit.Description, "Avery Chen")

	assert.True(t, f.store.account(sender.OwnerID).Checking.Equal(decimal.NewFromInt(525)))
	assert.True(t, f.store.account(recipient.OwnerID).Checking.Equal(decimal.NewFromInt(75)))
	f.dir.AssertExpectations(t)
}

func TestP2PTransfer_SelfTransferRejected(t *testing.T) {
	f := newMovementFixture(t)
	owner := seedAccount(t, f.store, 600, 0, 0, false)

	f.dir.On("Resolve", mock.Anything, "avery@example.com").Return(owner.OwnerID, nil)

	_, err := f.svc.RequestP2P(context.Background(), owner.OwnerID,
		"avery@example.com", ledger.AccountKindChecking, decimal.NewFromInt(10), "")
	require.Error(t, err)
	assert.True(t, shared.IsDomainError(err, "SELF_TRANSFER_NOT_ALLOWED"))
}

func TestP2PTransfer_RecipientNotFound(t *testing.T) {
	f := newMovementFixture(t)
	owner := seedAccount(t, f.store, 600, 0, 0, false)

	f.dir.On("Resolve", mock.Anything, "ghost@example.com").Return(uuid.Nil, shared.ErrRecipientNotFound)

	_, err := f.svc.RequestP2P(context.Background(), owner.OwnerID,
		"ghost@example.com", ledger.AccountKindChecking, decimal.NewFromInt(10), "")
	require.Error(t, err)
	assert.True(t, shared.IsDomainError(err, "RECIPIENT_NOT_FOUND"))
}

func TestSettle_RetriesOnceOnConflict(t *testing.T) {
	f := newMovementFixture(t)
	owner := seedAccount(t, f.store, 400, 0, 0, false)
	f.store.failNextSave = true

	receipt, err := f.svc.RequestInternal(context.Background(), owner.OwnerID,
		ledger.AccountKindChecking, ledger.AccountKindSavings, decimal.NewFromInt(100), "")
	require.NoError(t, err)
	require.Len(t, receipt.Transactions, 2)

	saved := f.store.account(owner.OwnerID)
	assert.True(t, saved.Checking.Equal(decimal.NewFromInt(300)))
	assert.True(t, saved.Savings.Equal(decimal.NewFromInt(100)))
}

type denyLimiter struct{}

func (denyLimiter) Allow(context.Context, uuid.UUID) (bool, error) { return false, nil }
func (denyLimiter) Reset(context.Context, uuid.UUID) error         { return nil }

func TestVerify_TooManyAttempts(t *testing.T) {
	store := newMemStore()
	notifier := newCaptureNotifier()
	svc := transfer.NewMovementService(
		&fakeUnitOfWork{store: store},
		&fakeAccountRepo{store: store},
		notifier,
		&MockDirectory{},
		transfer.WithVerifyAttemptLimiter(denyLimiter{}),
	)
	owner := seedAccount(t, store, 500, 0, 0, true)

	_, err := svc.RequestInternal(context.Background(), owner.OwnerID,
		ledger.AccountKindChecking, ledger.AccountKindSavings, decimal.NewFromInt(50), "")
	require.NoError(t, err)

	_, err = svc.VerifyInternal(context.Background(), owner.OwnerID, notifier.codeFor(owner.OwnerID))
	require.Error(t, err)
	assert.True(t, shared.IsDomainError(err, "TOO_MANY_ATTEMPTS"))
}
