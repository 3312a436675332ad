package ports

import (
	"context"
	"time"

	"jvc-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=repositories.go -destination=mocks/repositories_mock.go -package=mocks

// WalletRepository defines persistence operations for wallets.
// Methods accepting pgx.Tx are used inside transaction blocks for
// pessimistic row locking.
type WalletRepository interface {
	Create(ctx context.Context, tx pgx.Tx, wallet *domain.Wallet) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	GetByOwner(ctx context.Context, ownerID uuid.UUID, ownerType domain.OwnerType) (*domain.Wallet, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error)
	GetByOwnerForUpdate(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID, ownerType domain.OwnerType) (*domain.Wallet, error)
	// UpdateBalances overwrites both balance columns for a locked wallet row.
	UpdateBalances(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, available, locked decimal.Decimal) error
	// StampDeposit sets last_deposit_at, and first_activity_at if still unset.
	StampDeposit(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, at time.Time) error
	// StampSpend sets last_spend_at, and first_activity_at if still unset.
	StampSpend(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, at time.Time) error
	// SumBalances returns the sum of available+locked over all wallets,
	// the reconciliation counterpart of treasury total_supply.
	SumBalances(ctx context.Context) (decimal.Decimal, error)
}

// TreasuryDelta holds relative increments applied to the treasury singleton.
// Zero fields leave their column untouched.
type TreasuryDelta struct {
	TotalSupply        decimal.Decimal
	TotalUSDBacking    decimal.Decimal
	CollectedFees      decimal.Decimal
	PendingDeposits    decimal.Decimal
	PendingWithdrawals decimal.Decimal
}

// IsZero reports whether the delta changes nothing.
func (d TreasuryDelta) IsZero() bool {
	return d.TotalSupply.IsZero() &&
		d.TotalUSDBacking.IsZero() &&
		d.CollectedFees.IsZero() &&
		d.PendingDeposits.IsZero() &&
		d.PendingWithdrawals.IsZero()
}

// TreasuryRepository guards the singleton supply row. All mutations are
// relative SQL increments so the row never goes through read-modify-write.
type TreasuryRepository interface {
	Get(ctx context.Context) (*domain.Treasury, error)
	GetTx(ctx context.Context, tx pgx.Tx) (*domain.Treasury, error)
	// ApplyDelta increments the treasury columns and returns the post-update
	// snapshot, so callers can record supply before/after in audit rows.
	ApplyDelta(ctx context.Context, tx pgx.Tx, delta TreasuryDelta) (*domain.Treasury, error)
}

// TransactionRepository defines persistence for transactions and their
// paired ledger entries.
type TransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, transaction *domain.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.TransactionStatus, processedAt time.Time) error
	CreateEntries(ctx context.Context, tx pgx.Tx, entries []domain.LedgerEntry) error
}

// AuditRepository is append-only: no update or delete operations exist.
type AuditRepository interface {
	Create(ctx context.Context, tx pgx.Tx, audit *domain.MintBurnAudit) error
	ListByWallet(ctx context.Context, walletID uuid.UUID, limit int) ([]domain.MintBurnAudit, error)
}

// WithdrawalRepository persists withdrawal records. The Mark* methods are
// conditional status transitions: they return false when the record was not
// in the required source state, which is the idempotency and legality gate.
type WithdrawalRepository interface {
	Create(ctx context.Context, tx pgx.Tx, rec *domain.WithdrawalRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.WithdrawalRecord, error)
	MarkApproved(ctx context.Context, tx pgx.Tx, id uuid.UUID, actor string, at time.Time) (bool, error)
	MarkRejected(ctx context.Context, tx pgx.Tx, id uuid.UUID, reason string, at time.Time) (bool, error)
	MarkCompleted(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) (bool, error)
	MarkFailed(ctx context.Context, tx pgx.Tx, id uuid.UUID, reason string, at time.Time) (bool, error)
	// ListApproved returns approved withdrawals oldest-first (FIFO).
	ListApproved(ctx context.Context, limit int) ([]domain.WithdrawalRecord, error)
}

// DepositRepository persists deposit records keyed by the external
// payment-intent identifier.
type DepositRepository interface {
	Create(ctx context.Context, tx pgx.Tx, rec *domain.DepositRecord) error
	GetByIntentID(ctx context.Context, paymentIntentID string) (*domain.DepositRecord, error)
	// MarkCompleted flips pending -> completed; false means the record was
	// already completed (or failed) and the caller must not re-credit.
	MarkCompleted(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) (bool, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
