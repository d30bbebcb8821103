package service

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

// memStore is the shared state behind the in-memory repositories. Each wallet
// row has its own mutex so GetByIDForUpdate blocks like SELECT ... FOR UPDATE,
// and memTx stages every write until Commit, so rollbacks leave no trace.
type memStore struct {
	mu      sync.Mutex
	wallets map[uuid.UUID]*domain.Wallet
	users   map[uuid.UUID]*domain.User
	txns    []*domain.Transaction
	audits  []*domain.AuditEntry
	idemps  map[string]*domain.IdempotencyRecord
	locks   map[uuid.UUID]*sync.Mutex
}

func newMemStore() *memStore {
	return &memStore{
		wallets: make(map[uuid.UUID]*domain.Wallet),
		users:   make(map[uuid.UUID]*domain.User),
		idemps:  make(map[string]*domain.IdempotencyRecord),
		locks:   make(map[uuid.UUID]*sync.Mutex),
	}
}

func (s *memStore) addUser(username string) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &domain.User{
		ID:        uuid.New(),
		Username:  username,
		Email:     username + "@example.com",
		Status:    domain.UserStatusActive,
		CreatedAt: time.Now().UTC(),
	}
	s.users[u.ID] = u
	return u.ID
}

func (s *memStore) addWallet(userID uuid.UUID, balance string) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := &domain.Wallet{
		ID:        uuid.New(),
		UserID:    userID,
		Address:   "WAL-" + uuid.NewString()[:8],
		Balance:   decimal.RequireFromString(balance),
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	s.wallets[w.ID] = w
	s.locks[w.ID] = &sync.Mutex{}
	return w.ID
}

func (s *memStore) balance(id uuid.UUID) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wallets[id].Balance
}

func (s *memStore) transactionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.txns)
}

func (s *memStore) auditCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.audits)
}

func (s *memStore) auditActions() []domain.AuditAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	actions := make([]domain.AuditAction, 0, len(s.audits))
	for _, e := range s.audits {
		actions = append(actions, e.Action)
	}
	return actions
}

func (s *memStore) lockFor(id uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// memTx implements pgx.Tx over memStore. Wallet rows are locked on first
// access and a tx-local copy is mutated; Commit writes the copies back and
// appends the staged rows, Rollback discards everything.
type memTx struct {
	store  *memStore
	local  map[uuid.UUID]*domain.Wallet
	order  []uuid.UUID
	txns   []*domain.Transaction
	audits []*domain.AuditEntry
	idemps []*domain.IdempotencyRecord
	done   bool
}

func newMemTx(store *memStore) *memTx {
	return &memTx{
		store: store,
		local: make(map[uuid.UUID]*domain.Wallet),
	}
}

// lockWallet acquires the wallet's row lock (blocking) and returns a tx-local
// copy. Returns nil when the wallet does not exist.
func (t *memTx) lockWallet(id uuid.UUID) *domain.Wallet {
	if w, ok := t.local[id]; ok {
		return w
	}

	t.store.mu.Lock()
	_, exists := t.store.wallets[id]
	t.store.mu.Unlock()
	if !exists {
		return nil
	}

	t.store.lockFor(id).Lock()
	t.order = append(t.order, id)

	t.store.mu.Lock()
	cp := *t.store.wallets[id]
	t.store.mu.Unlock()
	t.local[id] = &cp
	return &cp
}

func (t *memTx) Commit(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true

	s := t.store
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

func (t *memTx) Rollback(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.release()
	return nil
}

func (t *memTx) release() {
	for i := len(t.order) - 1; i >= 0; i-- {
		t.store.lockFor(t.order[i]).Unlock()
	}
	t.order = nil
}

func (t *memTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *memTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *memTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *memTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *memTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *memTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *memTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *memTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (t *memTx) Conn() *pgx.Conn                                               { return nil }

// --- Transactor ---

type memTransactor struct {
	store     *memStore
	failBegin error
}

func (tr *memTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	if tr.failBegin != nil {
		return nil, tr.failBegin
	}
	return newMemTx(tr.store), nil
}

// --- Wallet repo ---

type memWalletRepo struct {
	store *memStore
}

func (r *memWalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *w
	r.store.wallets[w.ID] = &cp
	r.store.locks[w.ID] = &sync.Mutex{}
	return nil
}

func (r *memWalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	w, ok := r.store.wallets[id]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (r *memWalletRepo) GetBalance(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	w, ok := r.store.wallets[id]
	if !ok {
		return decimal.Zero, apperror.ErrWalletNotFound("wallet")
	}
	return w.Balance, nil
}

func (r *memWalletRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	return tx.(*memTx).lockWallet(id), nil
}

func (r *memWalletRepo) AdjustBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	w := tx.(*memTx).lockWallet(id)
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

func (r *memWalletRepo) ListOverview(ctx context.Context) ([]domain.WalletOverview, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var overview []domain.WalletOverview
	for _, w := range r.store.wallets {
		username := ""
		if u, ok := r.store.users[w.UserID]; ok {
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

// --- Transaction repo ---

type memTransactionRepo struct {
	store      *memStore
	failAppend error
}

func (r *memTransactionRepo) Append(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	if r.failAppend != nil {
		return r.failAppend
	}
	mtx := tx.(*memTx)
	cp := *t
	mtx.txns = append(mtx.txns, &cp)
	return nil
}

func (r *memTransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, t := range r.store.txns {
		if t.ID == id {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memTransactionRepo) LatestPerWallet(ctx context.Context) ([]domain.WalletTransactionSummary, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	latest := make(map[uuid.UUID]*domain.Transaction)
	for _, t := range r.store.txns {
		for id := range r.store.wallets {
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

// --- Audit repo ---

type memAuditRepo struct {
	store  *memStore
	failOn domain.AuditAction // inject a failure for entries of this action
	errOn  error
}

func (r *memAuditRepo) Create(ctx context.Context, tx pgx.Tx, e *domain.AuditEntry) error {
	if r.failOn != "" && e.Action == r.failOn {
		return r.errOn
	}
	mtx := tx.(*memTx)
	cp := *e
	mtx.audits = append(mtx.audits, &cp)
	return nil
}

func (r *memAuditRepo) List(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var entries []domain.AuditEntry
	for i := len(r.store.audits) - 1; i >= 0 && len(entries) < limit; i-- {
		entries = append(entries, *r.store.audits[i])
	}
	return entries, nil
}

// --- Idempotency repo ---

type memIdempotencyRepo struct {
	store *memStore
}

func (r *memIdempotencyRepo) Create(ctx context.Context, tx pgx.Tx, rec *domain.IdempotencyRecord) error {
	mtx := tx.(*memTx)
	cp := *rec
	mtx.idemps = append(mtx.idemps, &cp)
	return nil
}

func (r *memIdempotencyRepo) Get(ctx context.Context, key string) (*domain.IdempotencyRecord, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	rec, ok := r.store.idemps[key]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

// --- Idempotency cache ---

type memIdempotencyCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	failGet error
}

func newMemIdempotencyCache() *memIdempotencyCache {
	return &memIdempotencyCache{entries: make(map[string][]byte)}
}

func (c *memIdempotencyCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGet != nil {
		return nil, c.failGet
	}
	return c.entries[key], nil
}

func (c *memIdempotencyCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}
