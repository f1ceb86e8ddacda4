package transfer

import (
	"context"

	"github.com/google/uuid"
	"github.com/horizonbank/backend/internal/domain/ledger"
	"github.com/horizonbank/backend/internal/domain/shared"
	"github.com/horizonbank/backend/internal/infrastructure/telemetry"
)

// LedgerQueryService serves the read side: raw row listings and the
// reconciliation view that folds one-sided rows back into logical
// transfers for display and audit.
type LedgerQueryService struct {
	transactions ledger.TransactionRepository
	accounts     ledger.AccountRepository
	uow          ledger.UnitOfWork
}

// NewLedgerQueryService creates a new LedgerQueryService
func NewLedgerQueryService(
	transactions ledger.TransactionRepository,
	accounts ledger.AccountRepository,
	uow ledger.UnitOfWork,
) *LedgerQueryService {
	return &LedgerQueryService{
		transactions: transactions,
		accounts:     accounts,
		uow:          uow,
	}
}

// ListTransactions returns ledger rows matching the filter plus the
// unpaginated total
func (s *LedgerQueryService) ListTransactions(
	ctx context.Context,
	filter ledger.TransactionFilter,
) ([]*ledger.Transaction, int64, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger_query", "list_transactions")
	defer span.End()

	rows, total, err := s.transactions.List(ctx, filter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, 0, err
	}
	return rows, total, nil
}

// GetBalances returns the three committed balances for one identity
func (s *LedgerQueryService) GetBalances(ctx context.Context, ownerID uuid.UUID) (*ledger.Account, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger_query", "get_balances")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrOwnerID, ownerID.String())

	account, err := s.accounts.FindByOwnerID(ctx, ownerID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return account, nil
}

// ResolveTransferGroups folds an arbitrary row set into logical transfer
// groups using the pairing resolver
func (s *LedgerQueryService) ResolveTransferGroups(
	ctx context.Context,
	rows []*ledger.Transaction,
) ([]ledger.TransferGroup, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger_query", "resolve_transfer_groups")
	defer span.End()

	resolver, err := s.newResolver(ctx, rows)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return resolver.Resolve(rows), nil
}

// ListTransferGroups lists an identity's rows for a window and resolves
// them into transfer groups in one call
func (s *LedgerQueryService) ListTransferGroups(
	ctx context.Context,
	filter ledger.TransactionFilter,
) ([]ledger.TransferGroup, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger_query", "list_transfer_groups")
	defer span.End()

	rows, _, err := s.transactions.List(ctx, filter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return s.ResolveTransferGroups(ctx, rows)
}

// SetTransactionStatus is the narrow administrative interface for the
// pending -> completed/failed transition
func (s *LedgerQueryService) SetTransactionStatus(
	ctx context.Context,
	id uuid.UUID,
	status ledger.TransactionStatus,
) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger_query", "set_transaction_status")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrTxID, id.String())

	if !status.IsTerminal() {
		err := shared.NewDomainError("INVALID_INPUT", "Status must be completed or failed")
		telemetry.RecordError(span, err)
		return err
	}

	err := s.uow.Execute(ctx, func(repos ledger.Repositories) error {
		row, err := repos.Transactions.FindByID(ctx, id)
		if err != nil {
			return err
		}
		switch status {
		case ledger.TransactionStatusCompleted:
			if err := row.MarkCompleted(); err != nil {
				return err
			}
		case ledger.TransactionStatusFailed:
			if err := row.MarkFailed(); err != nil {
				return err
			}
		}
		return repos.Transactions.UpdateStatus(ctx, id, status)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	return nil
}

// newResolver prefetches display names for every owner appearing in the
// row set so group descriptions carry names instead of identifiers
func (s *LedgerQueryService) newResolver(
	ctx context.Context,
	rows []*ledger.Transaction,
) (*ledger.TransferResolver, error) {
	names := make(map[uuid.UUID]string)
	for _, row := range rows {
		if _, ok := names[row.OwnerID]; ok {
			continue
		}
		account, err := s.accounts.FindByOwnerID(ctx, row.OwnerID)
		if err != nil {
			if shared.IsDomainError(err, "NOT_FOUND") {
				continue
			}
			return nil, err
		}
		names[row.OwnerID] = account.DisplayName
	}
	return ledger.NewTransferResolver(
		ledger.WithNameResolver(func(ownerID uuid.UUID) string {
			if name, ok := names[ownerID]; ok {
				return name
			}
			return ownerID.String()[:8]
		}),
	), nil
}
