package transfer_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/horizonbank/backend/internal/domain/ledger"
	"github.com/horizonbank/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// memStore is a shared in-memory backing for the fake repositories.
// Finds return copies and Saves write copies back, so service code only
// changes observable state through an explicit Save, matching the real
// persistence behavior closely enough for flow tests.
type memStore struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*ledger.Account
	txs      []*ledger.Transaction

	// failNextSave injects one concurrency conflict to exercise retries
	failNextSave bool
	saveCount    int
}

func newMemStore() *memStore {
	return &memStore{accounts: make(map[uuid.UUID]*ledger.Account)}
}

func (s *memStore) addAccount(account *ledger.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.OwnerID] = cloneAccount(account)
}

func (s *memStore) account(ownerID uuid.UUID) *ledger.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAccount(s.accounts[ownerID])
}

func cloneAccount(a *ledger.Account) *ledger.Account {
	if a == nil {
		return nil
	}
	clone := *a
	if a.Pending != nil {
		pending := *a.Pending
		clone.Pending = &pending
	}
	return &clone
}

type fakeAccountRepo struct {
	store *memStore
}

func (r *fakeAccountRepo) FindByOwnerID(_ context.Context, ownerID uuid.UUID) (*ledger.Account, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	account, ok := r.store.accounts[ownerID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return cloneAccount(account), nil
}

func (r *fakeAccountRepo) Create(_ context.Context, account *ledger.Account) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.accounts[account.OwnerID] = cloneAccount(account)
	return nil
}

func (r *fakeAccountRepo) Save(_ context.Context, account *ledger.Account) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.saveCount++
	if r.store.failNextSave {
		r.store.failNextSave = false
		return shared.ErrConcurrencyConflict
	}
	r.store.accounts[account.OwnerID] = cloneAccount(account)
	return nil
}

type fakeTransactionRepo struct {
	store *memStore
}

func (r *fakeTransactionRepo) Create(_ context.Context, tx *ledger.Transaction) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.txs = append(r.store.txs, tx)
	return nil
}

func (r *fakeTransactionRepo) CreateBatch(_ context.Context, txs []*ledger.Transaction) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.txs = append(r.store.txs, txs...)
	return nil
}

func (r *fakeTransactionRepo) FindByID(_ context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, tx := range r.store.txs {
		if tx.ID == id {
			return tx, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeTransactionRepo) FindByTransferID(_ context.Context, transferID uuid.UUID) ([]*ledger.Transaction, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*ledger.Transaction
	for _, tx := range r.store.txs {
		if tx.TransferID != nil && *tx.TransferID == transferID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (r *fakeTransactionRepo) FindRefundOf(_ context.Context, originalID uuid.UUID) (*ledger.Transaction, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, tx := range r.store.txs {
		if tx.IsRefund() && tx.RelatedTransactionID != nil && *tx.RelatedTransactionID == originalID {
			return tx, nil
		}
	}
	return nil, nil
}

func (r *fakeTransactionRepo) List(_ context.Context, filter ledger.TransactionFilter) ([]*ledger.Transaction, int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*ledger.Transaction
	for _, tx := range r.store.txs {
		if filter.OwnerID != nil && tx.OwnerID != *filter.OwnerID {
			continue
		}
		if filter.Type != nil && tx.Type != *filter.Type {
			continue
		}
		if filter.From != nil && tx.Timestamp.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !tx.Timestamp.Before(*filter.To) {
			continue
		}
		out = append(out, tx)
	}
	return out, int64(len(out)), nil
}

func (r *fakeTransactionRepo) UpdateStatus(_ context.Context, id uuid.UUID, status ledger.TransactionStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, tx := range r.store.txs {
		if tx.ID == id {
			tx.Status = status
			return nil
		}
	}
	return shared.ErrNotFound
}

// fakeUnitOfWork runs fn against the shared store directly. Rollback is
// not simulated; tests that need failure isolation inject errors before
// the first write. beforeExecute, when set, runs ahead of fn so a test
// can interleave a concurrent writer.
type fakeUnitOfWork struct {
	store         *memStore
	beforeExecute func()
}

func (u *fakeUnitOfWork) Execute(_ context.Context, fn func(ledger.Repositories) error) error {
	if hook := u.beforeExecute; hook != nil {
		u.beforeExecute = nil
		hook()
	}
	return fn(ledger.Repositories{
		Accounts:     &fakeAccountRepo{store: u.store},
		Transactions: &fakeTransactionRepo{store: u.store},
	})
}

// captureNotifier records delivered codes so tests can replay them
type captureNotifier struct {
	mu    sync.Mutex
	codes map[uuid.UUID]string
	err   error
}

func newCaptureNotifier() *captureNotifier {
	return &captureNotifier{codes: make(map[uuid.UUID]string)}
}

func (n *captureNotifier) Send(_ context.Context, ownerID uuid.UUID, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.codes[ownerID] = code
	return nil
}

func (n *captureNotifier) codeFor(ownerID uuid.UUID) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.codes[ownerID]
}

// MockDirectory is a mock implementation of the Directory port
type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) Resolve(ctx context.Context, publicIdentifier string) (uuid.UUID, error) {
	args := m.Called(ctx, publicIdentifier)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock(now time.Time) *fixedClock {
	return &fixedClock{now: now}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func seedAccount(t *testing.T, store *memStore, checking, savings, crypto float64, verification bool) *ledger.Account {
	t.Helper()
	account, err := ledger.NewAccount(uuid.New(), "Avery Chen", "avery@example.com", "+15550101")
	require.NoError(t, err)
	account.Checking = decimal.NewFromFloat(checking)
	account.Savings = decimal.NewFromFloat(savings)
	account.Crypto = decimal.NewFromFloat(crypto)
	account.VerificationEnabled = verification
	store.addAccount(account)
	return account
}
