package transfer

import (
	"context"

	"github.com/google/uuid"
	"github.com/horizonbank/backend/internal/domain/ledger"
	"github.com/horizonbank/backend/internal/domain/shared"
	"github.com/horizonbank/backend/internal/infrastructure/telemetry"
)

// RefundService reverses committed movements exactly once. A refund of a
// two-leg transfer reverses both legs together; every reversal is
// pre-flight validated across all affected accounts before anything is
// written, so a failing leg leaves every balance untouched.
type RefundService struct {
	uow     ledger.UnitOfWork
	clock   Clock
	metrics *telemetry.LedgerMetrics
}

// NewRefundService creates a new RefundService
func NewRefundService(uow ledger.UnitOfWork, opts ...RefundServiceOption) *RefundService {
	s := &RefundService{uow: uow, clock: SystemClock{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RefundServiceOption is a functional option for configuring RefundService
type RefundServiceOption func(*RefundService)

// WithRefundClock overrides the wall clock
func WithRefundClock(clock Clock) RefundServiceOption {
	return func(s *RefundService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithRefundMetrics enables refund metrics
func WithRefundMetrics(metrics *telemetry.LedgerMetrics) RefundServiceOption {
	return func(s *RefundService) {
		s.metrics = metrics
	}
}

// RefundTransaction reverses the row with the given id. When the row
// carries a transferId and exactly one sibling shares it, both legs are
// reversed in the same atomic unit.
func (s *RefundService) RefundTransaction(ctx context.Context, transactionID uuid.UUID) ([]*ledger.Transaction, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "refund", "refund_transaction")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrTxID, transactionID.String())

	var refunds []*ledger.Transaction
	err := s.withConflictRetry(ctx, func(repos ledger.Repositories) error {
		target, err := repos.Transactions.FindByID(ctx, transactionID)
		if err != nil {
			return err
		}

		legs := []*ledger.Transaction{target}
		if target.TransferID != nil {
			siblings, err := repos.Transactions.FindByTransferID(ctx, *target.TransferID)
			if err != nil {
				return err
			}
			if len(siblings) == 2 {
				legs = siblings
			}
		}

		rows, err := s.reverseLegs(ctx, repos, legs)
		if err != nil {
			return err
		}
		refunds = rows
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.metrics.RecordRefund(ctx, "single")
	return refunds, nil
}

// RefundTransferGroup reverses every leg of the logical transfer
// identified by transferID
func (s *RefundService) RefundTransferGroup(ctx context.Context, transferID uuid.UUID) ([]*ledger.Transaction, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "refund", "refund_transfer_group")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrTransferID, transferID.String())

	var refunds []*ledger.Transaction
	err := s.withConflictRetry(ctx, func(repos ledger.Repositories) error {
		legs, err := repos.Transactions.FindByTransferID(ctx, transferID)
		if err != nil {
			return err
		}
		if len(legs) == 0 {
			return shared.ErrNotFound
		}

		rows, err := s.reverseLegs(ctx, repos, legs)
		if err != nil {
			return err
		}
		refunds = rows
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.metrics.RecordRefund(ctx, "group")
	return refunds, nil
}

// reverseLegs performs the shared reversal path inside the caller's unit
// of work: eligibility checks on every leg, cross-account pre-flight of
// all deltas, then refund rows and balance updates together.
func (s *RefundService) reverseLegs(
	ctx context.Context,
	repos ledger.Repositories,
	legs []*ledger.Transaction,
) ([]*ledger.Transaction, error) {
	for _, leg := range legs {
		if leg.IsRefund() {
			return nil, shared.ErrCannotRefundRefund
		}
		if leg.Status != ledger.TransactionStatusCompleted {
			return nil, shared.NewDomainError("INVALID_INPUT", "Only completed transactions can be refunded")
		}
		existing, err := repos.Transactions.FindRefundOf(ctx, leg.ID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, shared.ErrAlreadyRefunded
		}
	}

	// Collect reversal deltas grouped by owner so each account is loaded
	// and validated once for all of its legs.
	deltasByOwner := make(map[uuid.UUID][]ledger.BalanceDelta)
	ownerOrder := make([]uuid.UUID, 0, len(legs))
	for _, leg := range legs {
		deltas, err := leg.ReversalDeltas()
		if err != nil {
			return nil, err
		}
		if _, seen := deltasByOwner[leg.OwnerID]; !seen {
			ownerOrder = append(ownerOrder, leg.OwnerID)
		}
		deltasByOwner[leg.OwnerID] = append(deltasByOwner[leg.OwnerID], deltas...)
	}

	accounts := make(map[uuid.UUID]*ledger.Account, len(ownerOrder))
	for _, ownerID := range ownerOrder {
		account, err := repos.Accounts.FindByOwnerID(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		if err := account.ApplyDeltas(deltasByOwner[ownerID], "refund"); err != nil {
			return nil, err
		}
		accounts[ownerID] = account
	}

	now := s.clock.Now()
	refunds := make([]*ledger.Transaction, 0, len(legs))
	var groupID *uuid.UUID
	if len(legs) > 1 {
		id := uuid.New()
		groupID = &id
	}
	for _, leg := range legs {
		refund, err := ledger.NewRefundTransaction(leg, now)
		if err != nil {
			return nil, err
		}
		if groupID != nil {
			refund.WithTransferID(*groupID)
		}
		accounts[leg.OwnerID].AddDomainEvent(ledger.NewTransactionRefundedEvent(leg, refund))
		refunds = append(refunds, refund)
	}

	for _, ownerID := range ownerOrder {
		if err := repos.Accounts.Save(ctx, accounts[ownerID]); err != nil {
			return nil, err
		}
	}
	if err := repos.Transactions.CreateBatch(ctx, refunds); err != nil {
		return nil, err
	}
	return refunds, nil
}

func (s *RefundService) withConflictRetry(ctx context.Context, fn func(ledger.Repositories) error) error {
	err := s.uow.Execute(ctx, fn)
	if shared.IsDomainError(err, "CONCURRENCY_CONFLICT") {
		err = s.uow.Execute(ctx, fn)
		if shared.IsDomainError(err, "CONCURRENCY_CONFLICT") {
			return shared.ErrAtomicityFailure
		}
	}
	return err
}
