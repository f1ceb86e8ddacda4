package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultPairingTolerance is the widest timestamp gap between two legacy
// rows that can still be paired into one transfer.
const DefaultPairingTolerance = 10 * time.Second

// TransferGroup is a derived, reportable view of one logical transfer:
// one or more ledger rows collapsed into a single unit. It is never
// persisted.
type TransferGroup struct {
	TransferID   *uuid.UUID      `json:"transfer_id,omitempty"`
	Transactions []*Transaction  `json:"transactions"`
	Description  string          `json:"description"`
	Amount       decimal.Decimal `json:"amount"` // magnitude of either leg
	Participants []uuid.UUID     `json:"participants"`
}

// NameResolver maps an identity to a display name for derived descriptions
type NameResolver func(ownerID uuid.UUID) string

// TransferResolver reconstructs logical transfer groups from raw
// one-sided ledger rows. Rows carrying a TransferID are grouped by it;
// that is the authoritative path for everything this core writes. Rows
// without one (legacy data) fall back to a greedy first-match pairing
// heuristic, kept only for backward compatibility and deliberately not
// extended: it can mis-pair when more than two same-amount candidates
// share one time window.
type TransferResolver struct {
	tolerance time.Duration
	nameFor   NameResolver
}

// TransferResolverOption configures a TransferResolver
type TransferResolverOption func(*TransferResolver)

// WithPairingTolerance overrides the legacy pairing time window
func WithPairingTolerance(d time.Duration) TransferResolverOption {
	return func(r *TransferResolver) {
		if d > 0 {
			r.tolerance = d
		}
	}
}

// WithNameResolver supplies display names for derived descriptions
func WithNameResolver(fn NameResolver) TransferResolverOption {
	return func(r *TransferResolver) {
		if fn != nil {
			r.nameFor = fn
		}
	}
}

// NewTransferResolver creates a resolver with the default tolerance
func NewTransferResolver(opts ...TransferResolverOption) *TransferResolver {
	r := &TransferResolver{
		tolerance: DefaultPairingTolerance,
		nameFor: func(ownerID uuid.UUID) string {
			return shortOwnerRef(ownerID)
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve groups the given rows into transfer groups. Row order within a
// group follows timestamp order; group order follows the earliest row of
// each group.
func (r *TransferResolver) Resolve(rows []*Transaction) []TransferGroup {
	sorted := make([]*Transaction, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	groups := make([]TransferGroup, 0, len(sorted))

	// Authoritative path: explicit transfer identifiers.
	byTransfer := make(map[uuid.UUID][]*Transaction)
	order := make([]uuid.UUID, 0)
	legacy := make([]*Transaction, 0)
	for _, row := range sorted {
		if row.TransferID == nil {
			legacy = append(legacy, row)
			continue
		}
		id := *row.TransferID
		if _, seen := byTransfer[id]; !seen {
			order = append(order, id)
		}
		byTransfer[id] = append(byTransfer[id], row)
	}
	for _, id := range order {
		groups = append(groups, r.buildGroup(byTransfer[id]))
	}

	// Legacy path: greedy first-match pairing per date bucket.
	groups = append(groups, r.pairLegacy(legacy)...)
	return groups
}

// pairLegacy pairs unlinked rows whose amounts are exact negatives and
// whose timestamps fall within the tolerance window, scanning each date
// bucket in timestamp order and consuming the first match found.
func (r *TransferResolver) pairLegacy(rows []*Transaction) []TransferGroup {
	consumed := make([]bool, len(rows))
	groups := make([]TransferGroup, 0, len(rows))

	for i, row := range rows {
		if consumed[i] {
			continue
		}
		matched := -1
		for j := i + 1; j < len(rows); j++ {
			if consumed[j] {
				continue
			}
			other := rows[j]
			if !sameDay(row.Timestamp, other.Timestamp) {
				continue
			}
			if !row.Amount.Equal(other.Amount.Neg()) {
				continue
			}
			if other.Timestamp.Sub(row.Timestamp) > r.tolerance {
				continue
			}
			matched = j
			break
		}
		if matched >= 0 {
			consumed[i], consumed[matched] = true, true
			groups = append(groups, r.buildGroup([]*Transaction{row, rows[matched]}))
			continue
		}
		consumed[i] = true
		groups = append(groups, r.buildGroup([]*Transaction{row}))
	}
	return groups
}

// buildGroup renders one resolved group with its derived description
func (r *TransferResolver) buildGroup(rows []*Transaction) TransferGroup {
	group := TransferGroup{
		TransferID:   rows[0].TransferID,
		Transactions: rows,
		Amount:       rows[0].Amount.Abs(),
		Participants: participantsOf(rows),
	}
	group.Description = r.describe(rows)
	return group
}

func (r *TransferResolver) describe(rows []*Transaction) string {
	if len(rows) != 2 {
		if rows[0].Description != "" {
			return rows[0].Description
		}
		return fmt.Sprintf("%s of %s", rows[0].Type, rows[0].Amount.Abs().StringFixed(2))
	}

	debit, credit := rows[0], rows[1]
	if debit.Amount.IsPositive() {
		debit, credit = credit, debit
	}

	if debit.OwnerID == credit.OwnerID {
		name := r.nameFor(debit.OwnerID)
		return fmt.Sprintf("Transfer from %s (%s) to %s (%s)",
			name, debit.AccountKind, name, credit.AccountKind)
	}
	return fmt.Sprintf("Transfer from %s to %s",
		r.nameFor(debit.OwnerID), r.nameFor(credit.OwnerID))
}

func participantsOf(rows []*Transaction) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, 2)
	out := make([]uuid.UUID, 0, 2)
	for _, row := range rows {
		if _, ok := seen[row.OwnerID]; ok {
			continue
		}
		seen[row.OwnerID] = struct{}{}
		out = append(out, row.OwnerID)
	}
	return out
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

func shortOwnerRef(ownerID uuid.UUID) string {
	s := ownerID.String()
	return "account " + s[:8]
}
