package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/horizonbank/backend/internal/domain/ledger"
	"github.com/horizonbank/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AccountModel is the persistence model for the Account aggregate. The
// pending-movement slot is flattened into nullable pending_* columns;
// a non-null pending_kind marks the slot as occupied.
type AccountModel struct {
	AggregateModel
	OwnerID             uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	DisplayName         string          `gorm:"type:varchar(200);not null"`
	Email               string          `gorm:"type:varchar(200);index"`
	Phone               string          `gorm:"type:varchar(50);index"`
	VerificationEnabled bool            `gorm:"not null;default:true"`
	Checking            decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Savings             decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Crypto              decimal.Decimal `gorm:"type:decimal(24,8);not null;default:0"`

	PendingKind          *string          `gorm:"type:varchar(20)"`
	PendingFromKind      *string          `gorm:"type:varchar(20)"`
	PendingToKind        *string          `gorm:"type:varchar(20)"`
	PendingAmount        *decimal.Decimal `gorm:"type:decimal(18,4)"`
	PendingMemo          *string          `gorm:"type:text"`
	PendingRecipientID   *uuid.UUID       `gorm:"type:uuid"`
	PendingRecipientName *string          `gorm:"type:varchar(200)"`
	PendingBankName      *string          `gorm:"type:varchar(200)"`
	PendingAccountNumber *string          `gorm:"type:varchar(50)"`
	PendingCodeHash      []byte           `gorm:"type:bytea"`
	PendingCreatedAt     *time.Time
}

// TableName returns the table name for GORM
func (AccountModel) TableName() string {
	return "accounts"
}

// ToDomain converts the persistence model to a domain Account aggregate
func (m *AccountModel) ToDomain() *ledger.Account {
	account := &ledger.Account{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		OwnerID:             m.OwnerID,
		DisplayName:         m.DisplayName,
		Email:               m.Email,
		Phone:               m.Phone,
		VerificationEnabled: m.VerificationEnabled,
		Checking:            m.Checking,
		Savings:             m.Savings,
		Crypto:              m.Crypto,
	}
	if m.PendingKind != nil {
		pending := &ledger.PendingMovement{
			Kind:     ledger.MovementKind(*m.PendingKind),
			CodeHash: m.PendingCodeHash,
		}
		if m.PendingFromKind != nil {
			pending.FromKind = ledger.AccountKind(*m.PendingFromKind)
		}
		if m.PendingToKind != nil {
			pending.ToKind = ledger.AccountKind(*m.PendingToKind)
		}
		if m.PendingAmount != nil {
			pending.Amount = *m.PendingAmount
		}
		if m.PendingMemo != nil {
			pending.Memo = *m.PendingMemo
		}
		if m.PendingRecipientID != nil {
			pending.RecipientID = *m.PendingRecipientID
		}
		if m.PendingRecipientName != nil {
			pending.RecipientName = *m.PendingRecipientName
		}
		if m.PendingBankName != nil {
			pending.BankName = *m.PendingBankName
		}
		if m.PendingAccountNumber != nil {
			pending.AccountNumber = *m.PendingAccountNumber
		}
		if m.PendingCreatedAt != nil {
			pending.CreatedAt = *m.PendingCreatedAt
		}
		account.Pending = pending
	}
	return account
}

// FromDomain populates the persistence model from a domain Account
func (m *AccountModel) FromDomain(a *ledger.Account) {
	m.FromDomainAggregateRoot(a.BaseAggregateRoot)
	m.OwnerID = a.OwnerID
	m.DisplayName = a.DisplayName
	m.Email = a.Email
	m.Phone = a.Phone
	m.VerificationEnabled = a.VerificationEnabled
	m.Checking = a.Checking
	m.Savings = a.Savings
	m.Crypto = a.Crypto

	if a.Pending == nil {
		m.PendingKind = nil
		m.PendingFromKind = nil
		m.PendingToKind = nil
		m.PendingAmount = nil
		m.PendingMemo = nil
		m.PendingRecipientID = nil
		m.PendingRecipientName = nil
		m.PendingBankName = nil
		m.PendingAccountNumber = nil
		m.PendingCodeHash = nil
		m.PendingCreatedAt = nil
		return
	}

	kind := a.Pending.Kind.String()
	fromKind := a.Pending.FromKind.String()
	toKind := a.Pending.ToKind.String()
	amount := a.Pending.Amount
	memo := a.Pending.Memo
	recipientName := a.Pending.RecipientName
	bankName := a.Pending.BankName
	accountNumber := a.Pending.AccountNumber
	createdAt := a.Pending.CreatedAt

	m.PendingKind = &kind
	m.PendingFromKind = &fromKind
	m.PendingToKind = &toKind
	m.PendingAmount = &amount
	m.PendingMemo = &memo
	m.PendingRecipientName = &recipientName
	m.PendingBankName = &bankName
	m.PendingAccountNumber = &accountNumber
	m.PendingCodeHash = a.Pending.CodeHash
	m.PendingCreatedAt = &createdAt
	if a.Pending.RecipientID != uuid.Nil {
		recipientID := a.Pending.RecipientID
		m.PendingRecipientID = &recipientID
	} else {
		m.PendingRecipientID = nil
	}
}

// AccountModelFromDomain creates a new persistence model from a domain Account
func AccountModelFromDomain(a *ledger.Account) *AccountModel {
	m := &AccountModel{}
	m.FromDomain(a)
	return m
}

// TransactionModel is the persistence model for the Transaction entity
type TransactionModel struct {
	BaseModel
	OwnerID              uuid.UUID        `gorm:"type:uuid;not null;index:idx_transactions_owner_ts,priority:1"`
	Amount               decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	Timestamp            time.Time        `gorm:"not null;index:idx_transactions_owner_ts,priority:2"`
	Type                 string           `gorm:"type:varchar(20);not null"`
	AccountKind          string           `gorm:"type:varchar(20);not null"`
	Status               string           `gorm:"type:varchar(20);not null;default:'completed'"`
	Description          string           `gorm:"type:text"`
	CryptoQuantity       *decimal.Decimal `gorm:"type:decimal(24,8)"`
	CryptoPrice          *decimal.Decimal `gorm:"type:decimal(18,4)"`
	RelatedTransactionID *uuid.UUID       `gorm:"type:uuid;uniqueIndex"`
	TransferID           *uuid.UUID       `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (TransactionModel) TableName() string {
	return "transactions"
}

// ToDomain converts the persistence model to a domain Transaction
func (m *TransactionModel) ToDomain() *ledger.Transaction {
	return &ledger.Transaction{
		BaseEntity:           m.BaseModel.ToDomain(),
		OwnerID:              m.OwnerID,
		Amount:               m.Amount,
		Timestamp:            m.Timestamp,
		Type:                 ledger.TransactionType(m.Type),
		AccountKind:          ledger.AccountKind(m.AccountKind),
		Status:               ledger.TransactionStatus(m.Status),
		Description:          m.Description,
		CryptoQuantity:       m.CryptoQuantity,
		CryptoPrice:          m.CryptoPrice,
		RelatedTransactionID: m.RelatedTransactionID,
		TransferID:           m.TransferID,
	}
}

// FromDomain populates the persistence model from a domain Transaction
func (m *TransactionModel) FromDomain(t *ledger.Transaction) {
	m.FromDomainBaseEntity(t.BaseEntity)
	m.OwnerID = t.OwnerID
	m.Amount = t.Amount
	m.Timestamp = t.Timestamp
	m.Type = t.Type.String()
	m.AccountKind = t.AccountKind.String()
	m.Status = t.Status.String()
	m.Description = t.Description
	m.CryptoQuantity = t.CryptoQuantity
	m.CryptoPrice = t.CryptoPrice
	m.RelatedTransactionID = t.RelatedTransactionID
	m.TransferID = t.TransferID
}

// TransactionModelFromDomain creates a new persistence model from a
// domain Transaction
func TransactionModelFromDomain(t *ledger.Transaction) *TransactionModel {
	m := &TransactionModel{}
	m.FromDomain(t)
	return m
}
