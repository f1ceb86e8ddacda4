package ledger

import (
	"github.com/google/uuid"
	"github.com/horizonbank/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Event types for the ledger domain
const (
	EventTypeAccountBalanceChanged = "ledger.account.balance_changed"
	EventTypePendingMovementSet    = "ledger.account.pending_movement_set"
	EventTypeTransferSettled       = "ledger.transfer.settled"
	EventTypeTransactionRefunded   = "ledger.transaction.refunded"
)

// Aggregate types for the ledger domain
const (
	AggregateTypeAccount     = "Account"
	AggregateTypeTransaction = "Transaction"
)

// AccountBalanceChangedEvent is published when one balance of an account changes
type AccountBalanceChangedEvent struct {
	shared.BaseDomainEvent
	OwnerID    uuid.UUID       `json:"owner_id"`
	Kind       AccountKind     `json:"account_kind"`
	OldBalance decimal.Decimal `json:"old_balance"`
	NewBalance decimal.Decimal `json:"new_balance"`
	Reason     string          `json:"reason"` // "transfer", "refund", "crypto_buy", ...
}

// NewAccountBalanceChangedEvent creates a new AccountBalanceChangedEvent
func NewAccountBalanceChangedEvent(account *Account, kind AccountKind, oldBalance, newBalance decimal.Decimal, reason string) *AccountBalanceChangedEvent {
	return &AccountBalanceChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAccountBalanceChanged, AggregateTypeAccount, account.ID),
		OwnerID:         account.OwnerID,
		Kind:            kind,
		OldBalance:      oldBalance,
		NewBalance:      newBalance,
		Reason:          reason,
	}
}

// TransferSettledEvent is published when a movement commits its ledger rows
type TransferSettledEvent struct {
	shared.BaseDomainEvent
	TransferID uuid.UUID       `json:"transfer_id"`
	Movement   MovementKind    `json:"movement"`
	OwnerID    uuid.UUID       `json:"owner_id"`
	Amount     decimal.Decimal `json:"amount"`
	LegCount   int             `json:"leg_count"`
}

// NewTransferSettledEvent creates a new TransferSettledEvent
func NewTransferSettledEvent(account *Account, transferID uuid.UUID, movement MovementKind, amount decimal.Decimal, legCount int) *TransferSettledEvent {
	return &TransferSettledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTransferSettled, AggregateTypeAccount, account.ID),
		TransferID:      transferID,
		Movement:        movement,
		OwnerID:         account.OwnerID,
		Amount:          amount,
		LegCount:        legCount,
	}
}

// TransactionRefundedEvent is published when a ledger row is reversed
type TransactionRefundedEvent struct {
	shared.BaseDomainEvent
	OriginalID uuid.UUID       `json:"original_id"`
	RefundID   uuid.UUID       `json:"refund_id"`
	OwnerID    uuid.UUID       `json:"owner_id"`
	Amount     decimal.Decimal `json:"amount"`
}

// NewTransactionRefundedEvent creates a new TransactionRefundedEvent
func NewTransactionRefundedEvent(original, refund *Transaction) *TransactionRefundedEvent {
	return &TransactionRefundedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTransactionRefunded, AggregateTypeTransaction, original.ID),
		OriginalID:      original.ID,
		RefundID:        refund.ID,
		OwnerID:         original.OwnerID,
		Amount:          refund.Amount,
	}
}
