package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/horizonbank/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Transaction is an immutable ledger row: one signed leg of a movement.
// Negative amounts are debits, positive amounts are credits; which balance
// was touched is recorded by AccountKind. Once Completed a row never
// changes, except the narrow Pending -> Completed/Failed administrative
// transition handled by the repository.
type Transaction struct {
	shared.BaseEntity

	OwnerID     uuid.UUID         `json:"owner_id"`
	Amount      decimal.Decimal   `json:"amount"`
	Timestamp   time.Time         `json:"timestamp"`
	Type        TransactionType   `json:"type"`
	AccountKind AccountKind       `json:"account_kind"`
	Status      TransactionStatus `json:"status"`
	Description string            `json:"description"`

	// Frozen crypto snapshot: quantity moved and the unit price actually
	// used. Refunds reuse this price, never a live quote.
	CryptoQuantity *decimal.Decimal `json:"crypto_quantity,omitempty"`
	CryptoPrice    *decimal.Decimal `json:"crypto_price,omitempty"`

	// RelatedTransactionID is set on refund rows and points at the row
	// this one reverses. At most one refund row references any original.
	RelatedTransactionID *uuid.UUID `json:"related_transaction_id,omitempty"`

	// TransferID is shared by the legs of one logical transfer
	TransferID *uuid.UUID `json:"transfer_id,omitempty"`
}

// NewTransaction creates a completed ledger row
func NewTransaction(
	ownerID uuid.UUID,
	txType TransactionType,
	kind AccountKind,
	amount decimal.Decimal,
	timestamp time.Time,
	description string,
) (*Transaction, error) {
	if ownerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Owner ID cannot be nil")
	}
	if !txType.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Invalid transaction type")
	}
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Invalid account kind")
	}
	if amount.IsZero() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Amount cannot be zero")
	}
	return &Transaction{
		BaseEntity:  shared.NewBaseEntity(),
		OwnerID:     ownerID,
		Amount:      amount,
		Timestamp:   timestamp,
		Type:        txType,
		AccountKind: kind,
		Status:      TransactionStatusCompleted,
		Description: description,
	}, nil
}

// WithTransferID links the row into a logical transfer group
func (t *Transaction) WithTransferID(transferID uuid.UUID) *Transaction {
	t.TransferID = &transferID
	return t
}

// WithCryptoSnapshot freezes the quantity and unit price of a crypto movement
func (t *Transaction) WithCryptoSnapshot(quantity, price decimal.Decimal) *Transaction {
	t.CryptoQuantity = &quantity
	t.CryptoPrice = &price
	return t
}

// WithStatus overrides the settlement status
func (t *Transaction) WithStatus(status TransactionStatus) *Transaction {
	t.Status = status
	return t
}

// IsRefund reports whether this row reverses another row
func (t *Transaction) IsRefund() bool {
	return t.Type == TransactionTypeRefund
}

// IsDebit reports whether the row removed funds
func (t *Transaction) IsDebit() bool {
	return t.Amount.IsNegative()
}

// IsCredit reports whether the row added funds
func (t *Transaction) IsCredit() bool {
	return t.Amount.IsPositive()
}

// MarkCompleted transitions a pending row to completed
func (t *Transaction) MarkCompleted() error {
	if t.Status != TransactionStatusPending {
		return shared.NewDomainError("INVALID_STATE", "Only pending transactions can be completed")
	}
	t.Status = TransactionStatusCompleted
	t.Touch()
	return nil
}

// MarkFailed transitions a pending row to failed
func (t *Transaction) MarkFailed() error {
	if t.Status != TransactionStatusPending {
		return shared.NewDomainError("INVALID_STATE", "Only pending transactions can fail")
	}
	t.Status = TransactionStatusFailed
	t.Touch()
	return nil
}

// ReversalDeltas computes the balance adjustments that undo this row's
// original effect. Fiat rows invert their single signed amount; crypto
// rows also unwind the crypto units recorded in the frozen snapshot.
func (t *Transaction) ReversalDeltas() ([]BalanceDelta, error) {
	switch t.Type {
	case TransactionTypeRefund:
		return nil, shared.ErrCannotRefundRefund
	case TransactionTypeCryptoBuy, TransactionTypeCryptoSell:
		if t.CryptoQuantity == nil || t.CryptoPrice == nil {
			return nil, shared.NewDomainError("INVALID_STATE", "Crypto transaction is missing its price snapshot")
		}
		quantityDelta := t.CryptoQuantity.Neg()
		if t.Type == TransactionTypeCryptoSell {
			quantityDelta = *t.CryptoQuantity
		}
		return []BalanceDelta{
			{OwnerID: t.OwnerID, Kind: t.AccountKind, Amount: t.Amount.Neg()},
			{OwnerID: t.OwnerID, Kind: AccountKindCrypto, Amount: quantityDelta},
		}, nil
	default:
		return []BalanceDelta{
			{OwnerID: t.OwnerID, Kind: t.AccountKind, Amount: t.Amount.Neg()},
		}, nil
	}
}

// NewRefundTransaction creates the ledger row that reverses original.
// The refund carries the negated amount on the same account kind, keeps
// the frozen crypto snapshot, and links back via RelatedTransactionID.
func NewRefundTransaction(original *Transaction, timestamp time.Time) (*Transaction, error) {
	if original.IsRefund() {
		return nil, shared.ErrCannotRefundRefund
	}
	refund, err := NewTransaction(
		original.OwnerID,
		TransactionTypeRefund,
		original.AccountKind,
		original.Amount.Neg(),
		timestamp,
		fmt.Sprintf("Refund: %s", original.Description),
	)
	if err != nil {
		return nil, err
	}
	refund.RelatedTransactionID = &original.ID
	if original.CryptoQuantity != nil && original.CryptoPrice != nil {
		refund.WithCryptoSnapshot(*original.CryptoQuantity, *original.CryptoPrice)
	}
	return refund, nil
}
