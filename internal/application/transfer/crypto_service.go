package transfer

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/horizonbank/backend/internal/domain/ledger"
	"github.com/horizonbank/backend/internal/domain/shared"
	"github.com/horizonbank/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
)

// CryptoService handles the single-phase buy/sell path. Unlike the
// verification-gated movements it only touches one identity's own
// balances, so there is no request/verify split: the trade settles
// immediately in one atomic unit of work.
type CryptoService struct {
	uow     ledger.UnitOfWork
	clock   Clock
	metrics *telemetry.LedgerMetrics
}

// NewCryptoService creates a new CryptoService
func NewCryptoService(uow ledger.UnitOfWork, opts ...CryptoServiceOption) *CryptoService {
	s := &CryptoService{uow: uow, clock: SystemClock{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CryptoServiceOption is a functional option for configuring CryptoService
type CryptoServiceOption func(*CryptoService)

// WithCryptoClock overrides the wall clock
func WithCryptoClock(clock Clock) CryptoServiceOption {
	return func(s *CryptoService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithCryptoMetrics enables trade metrics
func WithCryptoMetrics(metrics *telemetry.LedgerMetrics) CryptoServiceOption {
	return func(s *CryptoService) {
		s.metrics = metrics
	}
}

// Buy debits checking by quantity * price and credits the crypto balance
// by quantity. The price actually charged is frozen into the row so a
// later refund unwinds at the traded price, never a live quote.
func (s *CryptoService) Buy(
	ctx context.Context,
	ownerID uuid.UUID,
	quantity, price decimal.Decimal,
) (*ledger.Transaction, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "crypto", "buy")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrOwnerID, ownerID.String())

	if err := validateTrade(quantity, price); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	cost := quantity.Mul(price).Round(2)
	var row *ledger.Transaction
	err := s.withConflictRetry(ctx, func(repos ledger.Repositories) error {
		account, err := repos.Accounts.FindByOwnerID(ctx, ownerID)
		if err != nil {
			return err
		}
		err = account.ApplyDeltas([]ledger.BalanceDelta{
			{OwnerID: ownerID, Kind: ledger.AccountKindChecking, Amount: cost.Neg()},
			{OwnerID: ownerID, Kind: ledger.AccountKindCrypto, Amount: quantity},
		}, "crypto_buy")
		if err != nil {
			return err
		}

		tx, err := ledger.NewTransaction(ownerID, ledger.TransactionTypeCryptoBuy,
			ledger.AccountKindChecking, cost.Neg(), s.clock.Now(),
			fmt.Sprintf("Bought %s crypto @ $%s", quantity.String(), price.StringFixed(2)))
		if err != nil {
			return err
		}
		tx.WithCryptoSnapshot(quantity, price)

		if err := repos.Accounts.Save(ctx, account); err != nil {
			return err
		}
		if err := repos.Transactions.Create(ctx, tx); err != nil {
			return err
		}
		row = tx
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.metrics.RecordCryptoTrade(ctx, "buy")
	telemetry.SetAttribute(span, telemetry.SpanAttrTxID, row.ID.String())
	return row, nil
}

// Sell is the inverse of Buy: it debits the crypto balance by quantity
// and credits checking by quantity * price
func (s *CryptoService) Sell(
	ctx context.Context,
	ownerID uuid.UUID,
	quantity, price decimal.Decimal,
) (*ledger.Transaction, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "crypto", "sell")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrOwnerID, ownerID.String())

	if err := validateTrade(quantity, price); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	proceeds := quantity.Mul(price).Round(2)
	var row *ledger.Transaction
	err := s.withConflictRetry(ctx, func(repos ledger.Repositories) error {
		account, err := repos.Accounts.FindByOwnerID(ctx, ownerID)
		if err != nil {
			return err
		}
		err = account.ApplyDeltas([]ledger.BalanceDelta{
			{OwnerID: ownerID, Kind: ledger.AccountKindCrypto, Amount: quantity.Neg()},
			{OwnerID: ownerID, Kind: ledger.AccountKindChecking, Amount: proceeds},
		}, "crypto_sell")
		if err != nil {
			return err
		}

		tx, err := ledger.NewTransaction(ownerID, ledger.TransactionTypeCryptoSell,
			ledger.AccountKindChecking, proceeds, s.clock.Now(),
			fmt.Sprintf("Sold %s crypto @ $%s", quantity.String(), price.StringFixed(2)))
		if err != nil {
			return err
		}
		tx.WithCryptoSnapshot(quantity, price)

		if err := repos.Accounts.Save(ctx, account); err != nil {
			return err
		}
		if err := repos.Transactions.Create(ctx, tx); err != nil {
			return err
		}
		row = tx
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.metrics.RecordCryptoTrade(ctx, "sell")
	telemetry.SetAttribute(span, telemetry.SpanAttrTxID, row.ID.String())
	return row, nil
}

func (s *CryptoService) withConflictRetry(ctx context.Context, fn func(ledger.Repositories) error) error {
	err := s.uow.Execute(ctx, fn)
	if shared.IsDomainError(err, "CONCURRENCY_CONFLICT") {
		err = s.uow.Execute(ctx, fn)
		if shared.IsDomainError(err, "CONCURRENCY_CONFLICT") {
			return shared.ErrAtomicityFailure
		}
	}
	return err
}

func validateTrade(quantity, price decimal.Decimal) error {
	if quantity.IsNegative() || quantity.IsZero() {
		return shared.NewDomainError("INVALID_INPUT", "Quantity must be positive")
	}
	if price.IsNegative() || price.IsZero() {
		return shared.NewDomainError("INVALID_INPUT", "Price must be positive")
	}
	return nil
}
