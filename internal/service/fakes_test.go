package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"jvc-ledger/internal/core/domain"
	"jvc-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// memStore is an in-memory stand-in for the postgres adapters. Mutations
// performed through a fakeTx register undo closures, so a rolled-back
// transaction restores the exact prior state. That makes the rollback
// paths of the services observable in unit tests.
type memStore struct {
	mu sync.Mutex

	wallets      map[uuid.UUID]*domain.Wallet
	treasury     domain.Treasury
	transactions map[uuid.UUID]*domain.Transaction
	entries      []domain.LedgerEntry
	audits       []domain.MintBurnAudit
	withdrawals  map[uuid.UUID]*domain.WithdrawalRecord
	deposits     map[uuid.UUID]*domain.DepositRecord

	// failUpdateBalances makes the next UpdateBalances call for the given
	// wallet fail, simulating a transient storage error mid-transaction.
	// Consumed on first use.
	failUpdateBalances map[uuid.UUID]error
}

func newMemStore() *memStore {
	return &memStore{
		wallets:            make(map[uuid.UUID]*domain.Wallet),
		transactions:       make(map[uuid.UUID]*domain.Transaction),
		withdrawals:        make(map[uuid.UUID]*domain.WithdrawalRecord),
		deposits:           make(map[uuid.UUID]*domain.DepositRecord),
		failUpdateBalances: make(map[uuid.UUID]error),
	}
}

func (s *memStore) addWallet(ownerType domain.OwnerType, available string) *domain.Wallet {
	w := domain.NewWallet(uuid.New(), ownerType)
	w.BalanceAvailable = decimal.RequireFromString(available)
	s.wallets[w.ID] = w
	s.treasury.TotalSupply = s.treasury.TotalSupply.Add(w.BalanceAvailable)
	s.treasury.TotalUSDBacking = s.treasury.TotalUSDBacking.Add(w.BalanceAvailable)
	return w
}

// conservedTotal is sum(wallet balances) + collected fees, the quantity
// transfers must never change.
func (s *memStore) conservedTotal() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := s.treasury.CollectedFees
	for _, w := range s.wallets {
		total = total.Add(w.TotalBalance())
	}
	return total
}

func (s *memStore) walletSum() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum := decimal.Zero
	for _, w := range s.wallets {
		sum = sum.Add(w.TotalBalance())
	}
	return sum
}

// Begin implements ports.DBTransactor.
func (s *memStore) Begin(ctx context.Context) (pgx.Tx, error) {
	return &fakeTx{store: s}, nil
}

// fakeTx satisfies pgx.Tx through embedding; only Commit and Rollback are
// implemented. Repo fakes append undo closures as they mutate.
type fakeTx struct {
	pgx.Tx
	store    *memStore
	undo     []func()
	finished bool
}

func (t *fakeTx) Commit(ctx context.Context) error {
	if t.finished {
		return pgx.ErrTxClosed
	}
	t.finished = true
	t.undo = nil
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	if t.finished {
		return pgx.ErrTxClosed
	}
	t.finished = true
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
	return nil
}

func onRollback(tx pgx.Tx, fn func()) {
	if f, ok := tx.(*fakeTx); ok {
		f.undo = append(f.undo, fn)
	}
}

func cloneWallet(w *domain.Wallet) *domain.Wallet {
	c := *w
	return &c
}

// --- wallet repository ---

type memWalletRepo struct{ store *memStore }

func (r *memWalletRepo) Create(ctx context.Context, tx pgx.Tx, wallet *domain.Wallet) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	// Mirrors the conflict-tolerant insert: an existing wallet for the same
	// owner wins and the new row is silently dropped.
	for _, w := range s.wallets {
		if w.OwnerID == wallet.OwnerID && w.OwnerType == wallet.OwnerType {
			return nil
		}
	}
	s.wallets[wallet.ID] = cloneWallet(wallet)
	id := wallet.ID
	onRollback(tx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.wallets, id)
	})
	return nil
}

func (r *memWalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	w, ok := r.store.wallets[id]
	if !ok {
		return nil, nil
	}
	return cloneWallet(w), nil
}

func (r *memWalletRepo) GetByOwner(ctx context.Context, ownerID uuid.UUID, ownerType domain.OwnerType) (*domain.Wallet, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, w := range r.store.wallets {
		if w.OwnerID == ownerID && w.OwnerType == ownerType {
			return cloneWallet(w), nil
		}
	}
	return nil, nil
}

func (r *memWalletRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	return r.GetByID(ctx, id)
}

func (r *memWalletRepo) GetByOwnerForUpdate(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID, ownerType domain.OwnerType) (*domain.Wallet, error) {
	return r.GetByOwner(ctx, ownerID, ownerType)
}

func (r *memWalletRepo) UpdateBalances(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, available, locked decimal.Decimal) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failUpdateBalances[walletID]; ok {
		delete(s.failUpdateBalances, walletID)
		return err
	}
	w, ok := s.wallets[walletID]
	if !ok {
		return pgx.ErrNoRows
	}
	prev := cloneWallet(w)
	w.BalanceAvailable = available
	w.BalanceLocked = locked
	w.UpdatedAt = time.Now().UTC()
	onRollback(tx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.wallets[walletID] = prev
	})
	return nil
}

func (r *memWalletRepo) StampDeposit(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, at time.Time) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[walletID]
	if !ok {
		return pgx.ErrNoRows
	}
	prev := cloneWallet(w)
	t := at
	w.LastDepositAt = &t
	if w.FirstActivityAt == nil {
		w.FirstActivityAt = &t
	}
	onRollback(tx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.wallets[walletID] = prev
	})
	return nil
}

func (r *memWalletRepo) StampSpend(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, at time.Time) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[walletID]
	if !ok {
		return pgx.ErrNoRows
	}
	prev := cloneWallet(w)
	t := at
	w.LastSpendAt = &t
	if w.FirstActivityAt == nil {
		w.FirstActivityAt = &t
	}
	onRollback(tx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.wallets[walletID] = prev
	})
	return nil
}

func (r *memWalletRepo) SumBalances(ctx context.Context) (decimal.Decimal, error) {
	return r.store.walletSum(), nil
}

// --- treasury repository ---

type memTreasuryRepo struct{ store *memStore }

func (r *memTreasuryRepo) Get(ctx context.Context) (*domain.Treasury, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t := r.store.treasury
	return &t, nil
}

func (r *memTreasuryRepo) GetTx(ctx context.Context, tx pgx.Tx) (*domain.Treasury, error) {
	return r.Get(ctx)
}

func (r *memTreasuryRepo) ApplyDelta(ctx context.Context, tx pgx.Tx, delta ports.TreasuryDelta) (*domain.Treasury, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.treasury
	s.treasury.TotalSupply = s.treasury.TotalSupply.Add(delta.TotalSupply)
	s.treasury.TotalUSDBacking = s.treasury.TotalUSDBacking.Add(delta.TotalUSDBacking)
	s.treasury.CollectedFees = s.treasury.CollectedFees.Add(delta.CollectedFees)
	s.treasury.PendingDeposits = s.treasury.PendingDeposits.Add(delta.PendingDeposits)
	s.treasury.PendingWithdrawals = s.treasury.PendingWithdrawals.Add(delta.PendingWithdrawals)
	s.treasury.UpdatedAt = time.Now().UTC()
	snapshot := s.treasury
	onRollback(tx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.treasury = prev
	})
	return &snapshot, nil
}

// --- transaction repository ---

type memTransactionRepo struct{ store *memStore }

func (r *memTransactionRepo) Create(ctx context.Context, tx pgx.Tx, transaction *domain.Transaction) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *transaction
	s.transactions[transaction.ID] = &c
	id := transaction.ID
	onRollback(tx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.transactions, id)
	})
	return nil
}

func (r *memTransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.transactions[id]
	if !ok {
		return nil, nil
	}
	c := *t
	return &c, nil
}

func (r *memTransactionRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.TransactionStatus, processedAt time.Time) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transactions[id]
	if !ok {
		return pgx.ErrNoRows
	}
	prev := *t
	t.Status = status
	at := processedAt
	t.ProcessedAt = &at
	onRollback(tx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		restored := prev
		s.transactions[id] = &restored
	})
	return nil
}

func (r *memTransactionRepo) CreateEntries(ctx context.Context, tx pgx.Tx, entries []domain.LedgerEntry) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.entries)
	s.entries = append(s.entries, entries...)
	onRollback(tx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.entries = s.entries[:before]
	})
	return nil
}

// --- audit repository ---

type memAuditRepo struct{ store *memStore }

func (r *memAuditRepo) Create(ctx context.Context, tx pgx.Tx, audit *domain.MintBurnAudit) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.audits)
	s.audits = append(s.audits, *audit)
	onRollback(tx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.audits = s.audits[:before]
	})
	return nil
}

func (r *memAuditRepo) ListByWallet(ctx context.Context, walletID uuid.UUID, limit int) ([]domain.MintBurnAudit, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []domain.MintBurnAudit
	for i := len(r.store.audits) - 1; i >= 0 && len(out) < limit; i-- {
		if r.store.audits[i].WalletID == walletID {
			out = append(out, r.store.audits[i])
		}
	}
	return out, nil
}

// --- withdrawal repository ---

type memWithdrawalRepo struct{ store *memStore }

func (r *memWithdrawalRepo) Create(ctx context.Context, tx pgx.Tx, rec *domain.WithdrawalRecord) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *rec
	s.withdrawals[rec.ID] = &c
	id := rec.ID
	onRollback(tx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.withdrawals, id)
	})
	return nil
}

func (r *memWithdrawalRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.WithdrawalRecord, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	rec, ok := r.store.withdrawals[id]
	if !ok {
		return nil, nil
	}
	c := *rec
	return &c, nil
}

func (r *memWithdrawalRepo) transition(tx pgx.Tx, id uuid.UUID, from []domain.WithdrawalStatus, mutate func(*domain.WithdrawalRecord)) (bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.withdrawals[id]
	if !ok {
		return false, nil
	}
	legal := false
	for _, f := range from {
		if rec.Status == f {
			legal = true
			break
		}
	}
	if !legal {
		return false, nil
	}
	prev := *rec
	mutate(rec)
	onRollback(tx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		restored := prev
		s.withdrawals[id] = &restored
	})
	return true, nil
}

func (r *memWithdrawalRepo) MarkApproved(ctx context.Context, tx pgx.Tx, id uuid.UUID, actor string, at time.Time) (bool, error) {
	return r.transition(tx, id, []domain.WithdrawalStatus{domain.WithdrawalStatusPending}, func(rec *domain.WithdrawalRecord) {
		rec.Status = domain.WithdrawalStatusApproved
		a := actor
		rec.ApprovedBy = &a
		t := at
		rec.ApprovedAt = &t
	})
}

func (r *memWithdrawalRepo) MarkRejected(ctx context.Context, tx pgx.Tx, id uuid.UUID, reason string, at time.Time) (bool, error) {
	return r.transition(tx, id, []domain.WithdrawalStatus{domain.WithdrawalStatusPending, domain.WithdrawalStatusApproved}, func(rec *domain.WithdrawalRecord) {
		rec.Status = domain.WithdrawalStatusRejected
		rs := reason
		rec.RejectReason = &rs
		t := at
		rec.RejectedAt = &t
	})
}

func (r *memWithdrawalRepo) MarkCompleted(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) (bool, error) {
	return r.transition(tx, id, []domain.WithdrawalStatus{domain.WithdrawalStatusApproved}, func(rec *domain.WithdrawalRecord) {
		rec.Status = domain.WithdrawalStatusCompleted
		t := at
		rec.CompletedAt = &t
	})
}

func (r *memWithdrawalRepo) MarkFailed(ctx context.Context, tx pgx.Tx, id uuid.UUID, reason string, at time.Time) (bool, error) {
	return r.transition(tx, id, []domain.WithdrawalStatus{domain.WithdrawalStatusApproved}, func(rec *domain.WithdrawalRecord) {
		rec.Status = domain.WithdrawalStatusFailed
		rs := reason
		rec.FailureReason = &rs
	})
}

func (r *memWithdrawalRepo) ListApproved(ctx context.Context, limit int) ([]domain.WithdrawalRecord, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []domain.WithdrawalRecord
	for _, rec := range r.store.withdrawals {
		if rec.Status == domain.WithdrawalStatusApproved {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.Before(out[j].RequestedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- deposit repository ---

type memDepositRepo struct{ store *memStore }

func (r *memDepositRepo) Create(ctx context.Context, tx pgx.Tx, rec *domain.DepositRecord) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *rec
	s.deposits[rec.ID] = &c
	id := rec.ID
	onRollback(tx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.deposits, id)
	})
	return nil
}

func (r *memDepositRepo) GetByIntentID(ctx context.Context, paymentIntentID string) (*domain.DepositRecord, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, rec := range r.store.deposits {
		if rec.PaymentIntentID == paymentIntentID {
			c := *rec
			return &c, nil
		}
	}
	return nil, nil
}

func (r *memDepositRepo) MarkCompleted(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) (bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.deposits[id]
	if !ok || rec.Status != domain.DepositStatusPending {
		return false, nil
	}
	prev := *rec
	rec.Status = domain.DepositStatusCompleted
	t := at
	rec.CompletedAt = &t
	onRollback(tx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		restored := prev
		s.deposits[id] = &restored
	})
	return true, nil
}

// --- outbound ports ---

type fakeProcessor struct {
	mu      sync.Mutex
	calls   int
	err     error
	lastReq ports.IntentRequest
}

func (p *fakeProcessor) CreateIntent(ctx context.Context, req ports.IntentRequest) (*ports.IntentResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.lastReq = req
	if p.err != nil {
		return nil, p.err
	}
	return &ports.IntentResult{
		IntentID:    "pi_" + req.ReferenceID,
		RedirectURL: "https://pay.example.com/" + req.ReferenceID,
	}, nil
}

type fakeDedupe struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func newFakeDedupe() *fakeDedupe {
	return &fakeDedupe{seen: make(map[string]bool)}
}

func (d *fakeDedupe) Seen(ctx context.Context, eventID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return false, d.err
	}
	return d.seen[eventID], nil
}

func (d *fakeDedupe) Mark(ctx context.Context, eventID string, ttl time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.seen[eventID] = true
	return nil
}

type fakeOrderCallback struct {
	mu     sync.Mutex
	orders []string
	err    error
}

func (c *fakeOrderCallback) MarkOrderPaid(ctx context.Context, orderID string, transactionID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.orders = append(c.orders, orderID)
	return nil
}

// --- harness ---

// env bundles a fully wired service stack over one memStore.
type env struct {
	store       *memStore
	wallets     *memWalletRepo
	treasury    *memTreasuryRepo
	txRepo      *memTransactionRepo
	audits      *memAuditRepo
	withdrawals *memWithdrawalRepo
	deposits    *memDepositRepo
	processor   *fakeProcessor
	dedupe      *fakeDedupe
	orders      *fakeOrderCallback

	ledger      *LedgerService
	depositSvc  *DepositServiceImpl
	transferSvc *TransferServiceImpl
	payoutSvc   *WithdrawalServiceImpl
	settleSvc   *SettlementServiceImpl
}

const (
	testTransferFee   = "0.10"
	testWithdrawalFee = "1.00"
	testVenueMin      = "50.00"
)

func newEnv() *env {
	store := newMemStore()
	e := &env{
		store:       store,
		wallets:     &memWalletRepo{store: store},
		treasury:    &memTreasuryRepo{store: store},
		txRepo:      &memTransactionRepo{store: store},
		audits:      &memAuditRepo{store: store},
		withdrawals: &memWithdrawalRepo{store: store},
		deposits:    &memDepositRepo{store: store},
		processor:   &fakeProcessor{},
		dedupe:      newFakeDedupe(),
		orders:      &fakeOrderCallback{},
	}
	log := zerolog.Nop()
	e.ledger = NewLedgerService(e.wallets, e.treasury, e.audits, store, log)
	e.depositSvc = NewDepositService(e.ledger, e.deposits, e.wallets, e.treasury, e.txRepo, e.dedupe, e.processor, store, log)
	e.transferSvc = NewTransferService(e.ledger, e.wallets, e.txRepo, store, e.orders, decimal.RequireFromString(testTransferFee), log)
	e.payoutSvc = NewWithdrawalService(e.ledger, e.wallets, e.withdrawals, e.treasury, e.txRepo, store,
		decimal.RequireFromString(testWithdrawalFee), 7*24*time.Hour, decimal.RequireFromString(testVenueMin), log)
	e.settleSvc = NewSettlementService(e.withdrawals, e.payoutSvc, log)
	return e
}
