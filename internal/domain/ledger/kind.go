package ledger

// AccountKind identifies which balance of an account a movement touches.
// It replaces free-form string tags with an explicit enumeration so that
// balance selection is always a typed dispatch, never string branching.
type AccountKind string

const (
	// AccountKindChecking is the primary spending balance
	AccountKindChecking AccountKind = "checking"
	// AccountKindSavings is the secondary balance
	AccountKindSavings AccountKind = "savings"
	// AccountKindCrypto is the crypto balance, held in fractional units
	AccountKindCrypto AccountKind = "crypto"
)

// IsValid checks if the kind is a valid AccountKind
func (k AccountKind) IsValid() bool {
	switch k {
	case AccountKindChecking, AccountKindSavings, AccountKindCrypto:
		return true
	}
	return false
}

// IsFiat reports whether the kind holds currency rather than crypto units
func (k AccountKind) IsFiat() bool {
	return k == AccountKindChecking || k == AccountKindSavings
}

// String returns the string representation of AccountKind
func (k AccountKind) String() string {
	return string(k)
}

// MovementKind identifies the flavor of a two-phase money movement
type MovementKind string

const (
	// MovementKindInternal moves funds between two balances of one account
	MovementKindInternal MovementKind = "internal"
	// MovementKindExternal sends funds to an outside bank
	MovementKindExternal MovementKind = "external"
	// MovementKindP2P sends funds to another account holder
	MovementKindP2P MovementKind = "p2p"
)

// IsValid checks if the kind is a valid MovementKind
func (k MovementKind) IsValid() bool {
	switch k {
	case MovementKindInternal, MovementKindExternal, MovementKindP2P:
		return true
	}
	return false
}

// String returns the string representation of MovementKind
func (k MovementKind) String() string {
	return string(k)
}

// TransactionType classifies a ledger row
type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
	TransactionTypeTransfer   TransactionType = "transfer"
	TransactionTypePayment    TransactionType = "payment"
	TransactionTypeFee        TransactionType = "fee"
	TransactionTypeInterest   TransactionType = "interest"
	TransactionTypeCryptoBuy  TransactionType = "crypto_buy"
	TransactionTypeCryptoSell TransactionType = "crypto_sell"
	TransactionTypeRefund     TransactionType = "refund"
)

// IsValid checks if the type is a valid TransactionType
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeDeposit, TransactionTypeWithdrawal, TransactionTypeTransfer,
		TransactionTypePayment, TransactionTypeFee, TransactionTypeInterest,
		TransactionTypeCryptoBuy, TransactionTypeCryptoSell, TransactionTypeRefund:
		return true
	}
	return false
}

// IsCrypto reports whether the type carries a crypto quantity/price snapshot
func (t TransactionType) IsCrypto() bool {
	return t == TransactionTypeCryptoBuy || t == TransactionTypeCryptoSell
}

// String returns the string representation of TransactionType
func (t TransactionType) String() string {
	return string(t)
}

// TransactionStatus tracks the settlement state of a ledger row
type TransactionStatus string

const (
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// IsValid checks if the status is a valid TransactionStatus
func (s TransactionStatus) IsValid() bool {
	switch s {
	case TransactionStatusCompleted, TransactionStatusPending, TransactionStatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether the status can no longer change
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusCompleted || s == TransactionStatusFailed
}

// String returns the string representation of TransactionStatus
func (s TransactionStatus) String() string {
	return string(s)
}
