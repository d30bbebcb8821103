package integration

import (
	"context"
	"sort"
	"sync"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// ledgerState is the shared backing store for the in-memory repositories.
// Wallet rows carry their own mutex so GetByIDForUpdate blocks like
// SELECT ... FOR UPDATE does against PostgreSQL, and lockingTx stages all
// writes until Commit so rolled-back units of work leave no trace.
type ledgerState struct {
	mu      sync.Mutex
	wallets map[uuid.UUID]*domain.Wallet
	users   map[uuid.UUID]*domain.User
	txns    []*domain.Transaction
	audits  []*domain.AuditEntry
	idemps  map[string]*domain.IdempotencyRecord
	locks   map[uuid.UUID]*sync.Mutex
}

func newLedgerState() *ledgerState {
	return &ledgerState{
		wallets: make(map[uuid.UUID]*domain.Wallet),
		users:   make(map[uuid.UUID]*domain.User),
		idemps:  make(map[string]*domain.IdempotencyRecord),
		locks:   make(map[uuid.UUID]*sync.Mutex),
	}
}

func (s *ledgerState) lockFor(id uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

func (s *ledgerState) balance(id uuid.UUID) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wallets[id].Balance
}

// lockingTx implements pgx.Tx over ledgerState.
type lockingTx struct {
	state  *ledgerState
	local  map[uuid.UUID]*domain.Wallet
	order  []uuid.UUID
	txns   []*domain.Transaction
	audits []*domain.AuditEntry
	idemps []*domain.IdempotencyRecord
	done   bool
}

func newLockingTx(state *ledgerState) *lockingTx {
	return &lockingTx{
		state: state,
		local: make(map[uuid.UUID]*domain.Wallet),
	}
}

func (t *lockingTx) lockWallet(id uuid.UUID) *domain.Wallet {
	if w, ok := t.local[id]; ok {
		return w
	}

	t.state.mu.Lock()
	_, exists := t.state.wallets[id]
	t.state.mu.Unlock()
	if !exists {
		return nil
	}

	t.state.lockFor(id).Lock()
	t.order = append(t.order, id)

	t.state.mu.Lock()
	cp := *t.state.wallets[id]
	t.state.mu.Unlock()
	t.local[id] = &cp
	return &cp
}

func (t *lockingTx) Commit(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true

	s := t.state
	s.mu.Lock()
	for id, w := range t.local {
		if cur, ok := s.wallets[id]; ok {
			cur.Balance = w.Balance
			cur.UpdatedAt = w.UpdatedAt
		}
	}
	s.txns = append(s.txns, t.txns...)
	s.audits = append(s.audits, t.audits...)
	for _, rec := range t.idemps {
		s.idemps[rec.Key] = rec
	}
	s.mu.Unlock()

	t.release()
	return nil
}

func (t *lockingTx) Rollback(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.release()
	return nil
}

func (t *lockingTx) release() {
	for i := len(t.order) - 1; i >= 0; i-- {
		t.state.lockFor(t.order[i]).Unlock()
	}
	t.order = nil
}

func (t *lockingTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *lockingTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *lockingTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *lockingTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *lockingTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *lockingTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *lockingTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *lockingTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (t *lockingTx) Conn() *pgx.Conn                                               { return nil }

// --- In-Memory Transactor ---

type inMemoryTransactor struct {
	state *ledgerState
}

func newInMemoryTransactor(state *ledgerState) *inMemoryTransactor {
	return &inMemoryTransactor{state: state}
}

func (tr *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return newLockingTx(tr.state), nil
}

// --- In-Memory User Repo ---

type inMemoryUserRepo struct {
	state *ledgerState
}

func newInMemoryUserRepo(state *ledgerState) *inMemoryUserRepo {
	return &inMemoryUserRepo{state: state}
}

func (r *inMemoryUserRepo) Create(ctx context.Context, u *domain.User) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	cp := *u
	r.state.users[u.ID] = &cp
	return nil
}

func (r *inMemoryUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	u, ok := r.state.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

// --- In-Memory Wallet Repo ---

type inMemoryWalletRepo struct {
	state *ledgerState
}

func newInMemoryWalletRepo(state *ledgerState) *inMemoryWalletRepo {
	return &inMemoryWalletRepo{state: state}
}

func (r *inMemoryWalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	cp := *w
	r.state.wallets[w.ID] = &cp
	r.state.locks[w.ID] = &sync.Mutex{}
	return nil
}

func (r *inMemoryWalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	w, ok := r.state.wallets[id]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (r *inMemoryWalletRepo) GetBalance(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	w, ok := r.state.wallets[id]
	if !ok {
		return decimal.Zero, apperror.ErrWalletNotFound("wallet")
	}
	return w.Balance, nil
}

func (r *inMemoryWalletRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	return tx.(*lockingTx).lockWallet(id), nil
}

func (r *inMemoryWalletRepo) AdjustBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	w := tx.(*lockingTx).lockWallet(id)
	if w == nil {
		return decimal.Zero, apperror.ErrWalletNotFound("wallet")
	}
	newBalance := w.Balance.Add(delta)
	if newBalance.IsNegative() {
		return decimal.Zero, apperror.ErrInsufficientFunds()
	}
	w.Balance = newBalance
	w.UpdatedAt = time.Now().UTC()
	return newBalance, nil
}

func (r *inMemoryWalletRepo) ListOverview(ctx context.Context) ([]domain.WalletOverview, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	var overview []domain.WalletOverview
	for _, w := range r.state.wallets {
		username := ""
		if u, ok := r.state.users[w.UserID]; ok {
			username = u.Username
		}
		overview = append(overview, domain.WalletOverview{
			WalletID:      w.ID,
			Address:       w.Address,
			OwnerUsername: username,
			Balance:       w.Balance,
		})
	}
	sort.Slice(overview, func(i, j int) bool {
		return overview[i].Address < overview[j].Address
	})
	return overview, nil
}

// --- In-Memory Transaction Repo ---

type inMemoryTransactionRepo struct {
	state *ledgerState
}

func newInMemoryTransactionRepo(state *ledgerState) *inMemoryTransactionRepo {
	return &inMemoryTransactionRepo{state: state}
}

func (r *inMemoryTransactionRepo) Append(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	ltx := tx.(*lockingTx)
	cp := *t
	ltx.txns = append(ltx.txns, &cp)
	return nil
}

func (r *inMemoryTransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	for _, t := range r.state.txns {
		if t.ID == id {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryTransactionRepo) LatestPerWallet(ctx context.Context) ([]domain.WalletTransactionSummary, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	latest := make(map[uuid.UUID]*domain.Transaction)
	for _, t := range r.state.txns {
		for id := range r.state.wallets {
			if !t.Touches(id) {
				continue
			}
			cur, ok := latest[id]
			// Later insertion wins on equal timestamps.
			if !ok || !t.CreatedAt.Before(cur.CreatedAt) {
				latest[id] = t
			}
		}
	}
	var summaries []domain.WalletTransactionSummary
	for id, t := range latest {
		summaries = append(summaries, domain.WalletTransactionSummary{WalletID: id, Transaction: *t})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].WalletID.String() < summaries[j].WalletID.String()
	})
	return summaries, nil
}

// --- In-Memory Audit Repo ---

type inMemoryAuditRepo struct {
	state *ledgerState
}

func newInMemoryAuditRepo(state *ledgerState) *inMemoryAuditRepo {
	return &inMemoryAuditRepo{state: state}
}

func (r *inMemoryAuditRepo) Create(ctx context.Context, tx pgx.Tx, e *domain.AuditEntry) error {
	ltx := tx.(*lockingTx)
	cp := *e
	ltx.audits = append(ltx.audits, &cp)
	return nil
}

func (r *inMemoryAuditRepo) List(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	var entries []domain.AuditEntry
	for i := len(r.state.audits) - 1; i >= 0 && len(entries) < limit; i-- {
		entries = append(entries, *r.state.audits[i])
	}
	return entries, nil
}

// --- In-Memory Idempotency Repo ---

type inMemoryIdempotencyRepo struct {
	state *ledgerState
}

func newInMemoryIdempotencyRepo(state *ledgerState) *inMemoryIdempotencyRepo {
	return &inMemoryIdempotencyRepo{state: state}
}

func (r *inMemoryIdempotencyRepo) Create(ctx context.Context, tx pgx.Tx, rec *domain.IdempotencyRecord) error {
	ltx := tx.(*lockingTx)
	cp := *rec
	ltx.idemps = append(ltx.idemps, &cp)
	return nil
}

func (r *inMemoryIdempotencyRepo) Get(ctx context.Context, key string) (*domain.IdempotencyRecord, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	rec, ok := r.state.idemps[key]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}
