package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/horizonbank/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PendingMovementTTL is how long a requested movement stays verifiable.
// A verify attempt after expiry clears the slot and fails.
const PendingMovementTTL = 15 * time.Minute

// PendingMovement is the single in-flight, code-gated movement request
// awaiting verification for one account. At most one exists per account;
// a new request overwrites it (last request wins).
type PendingMovement struct {
	Kind     MovementKind    `json:"kind"`
	FromKind AccountKind     `json:"from_kind"`
	ToKind   AccountKind     `json:"to_kind,omitempty"`
	Amount   decimal.Decimal `json:"amount"`
	Memo     string          `json:"memo,omitempty"`

	// P2P leg parameters
	RecipientID   uuid.UUID `json:"recipient_id,omitempty"`
	RecipientName string    `json:"recipient_name,omitempty"`

	// External leg parameters, copied verbatim into the debit row's
	// description on commit and never mutated afterward
	BankName      string `json:"bank_name,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`

	// CodeHash is the bcrypt hash of the one-time verification code.
	// The plaintext code only ever travels through the Notifier.
	CodeHash  []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// IsExpired reports whether the movement can no longer be verified
func (m *PendingMovement) IsExpired(now time.Time) bool {
	return now.Sub(m.CreatedAt) > PendingMovementTTL
}

// ExpiresAt returns the instant after which verification fails
func (m *PendingMovement) ExpiresAt() time.Time {
	return m.CreatedAt.Add(PendingMovementTTL)
}

// Account is the aggregate root holding one identity's balances and the
// single pending-movement slot. Accounts are provisioned externally and
// never deleted by this core; only balances, the pending slot, and the
// version change here.
type Account struct {
	shared.BaseAggregateRoot

	OwnerID     uuid.UUID `json:"owner_id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`

	// VerificationEnabled gates movements behind a one-time code.
	// When false, requests commit immediately.
	VerificationEnabled bool `json:"verification_enabled"`

	Checking decimal.Decimal `json:"checking"`
	Savings  decimal.Decimal `json:"savings"`
	Crypto   decimal.Decimal `json:"crypto"`

	Pending *PendingMovement `json:"pending,omitempty"`
}

// NewAccount creates an account with zero balances
func NewAccount(ownerID uuid.UUID, displayName, email, phone string) (*Account, error) {
	if ownerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Owner ID cannot be nil")
	}
	return &Account{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OwnerID:           ownerID,
		DisplayName:       displayName,
		Email:             email,
		Phone:             phone,
		Checking:          decimal.Zero,
		Savings:           decimal.Zero,
		Crypto:            decimal.Zero,
	}, nil
}

// balanceRef returns a pointer to the balance field selected by kind
func (a *Account) balanceRef(kind AccountKind) *decimal.Decimal {
	switch kind {
	case AccountKindChecking:
		return &a.Checking
	case AccountKindSavings:
		return &a.Savings
	case AccountKindCrypto:
		return &a.Crypto
	}
	return nil
}

// BalanceOf returns the balance held under the given kind
func (a *Account) BalanceOf(kind AccountKind) (decimal.Decimal, error) {
	ref := a.balanceRef(kind)
	if ref == nil {
		return decimal.Zero, shared.NewDomainError("INVALID_INPUT", "Unknown account kind")
	}
	return *ref, nil
}

// HasSufficientBalance reports whether kind holds at least amount
func (a *Account) HasSufficientBalance(kind AccountKind, amount decimal.Decimal) bool {
	ref := a.balanceRef(kind)
	return ref != nil && ref.GreaterThanOrEqual(amount)
}

// BalanceDelta is one signed balance adjustment against one account kind
type BalanceDelta struct {
	OwnerID uuid.UUID
	Kind    AccountKind
	Amount  decimal.Decimal
}

// ApplyDeltas atomically adds signed deltas to the account's balances.
// Every delta is validated before any is applied; if any resulting
// balance would be negative the account is left untouched.
func (a *Account) ApplyDeltas(deltas []BalanceDelta, reason string) error {
	// Deltas are validated against the running result, not the starting
	// balance, so two debits that jointly overdraw a kind are rejected.
	running := make(map[AccountKind]decimal.Decimal, len(deltas))
	for _, d := range deltas {
		ref := a.balanceRef(d.Kind)
		if ref == nil {
			return shared.NewDomainError("INVALID_INPUT", "Unknown account kind")
		}
		balance, ok := running[d.Kind]
		if !ok {
			balance = *ref
		}
		balance = balance.Add(d.Amount)
		if balance.IsNegative() {
			return shared.NewDomainError("INSUFFICIENT_FUNDS", "Insufficient funds in "+d.Kind.String())
		}
		running[d.Kind] = balance
	}
	for _, d := range deltas {
		ref := a.balanceRef(d.Kind)
		oldBalance := *ref
		*ref = ref.Add(d.Amount)
		a.AddDomainEvent(NewAccountBalanceChangedEvent(a, d.Kind, oldBalance, *ref, reason))
	}
	a.Touch()
	return nil
}

// Credit adds a positive amount to the balance selected by kind
func (a *Account) Credit(kind AccountKind, amount decimal.Decimal, reason string) error {
	if amount.IsNegative() || amount.IsZero() {
		return shared.NewDomainError("INVALID_INPUT", "Amount must be positive")
	}
	return a.ApplyDeltas([]BalanceDelta{{OwnerID: a.OwnerID, Kind: kind, Amount: amount}}, reason)
}

// Debit removes a positive amount from the balance selected by kind,
// failing with INSUFFICIENT_FUNDS if the result would be negative
func (a *Account) Debit(kind AccountKind, amount decimal.Decimal, reason string) error {
	if amount.IsNegative() || amount.IsZero() {
		return shared.NewDomainError("INVALID_INPUT", "Amount must be positive")
	}
	return a.ApplyDeltas([]BalanceDelta{{OwnerID: a.OwnerID, Kind: kind, Amount: amount.Neg()}}, reason)
}

// SetPendingMovement installs a movement into the single pending slot,
// overwriting any movement already there. Last request wins.
func (a *Account) SetPendingMovement(m PendingMovement) {
	a.Pending = &m
	a.Touch()
}

// ClearPendingMovement empties the pending slot
func (a *Account) ClearPendingMovement() {
	if a.Pending == nil {
		return
	}
	a.Pending = nil
	a.Touch()
}
