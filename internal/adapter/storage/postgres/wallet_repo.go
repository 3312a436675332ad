package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"jvc-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// walletColumns selects every wallet field. Balances come back as text and
// are parsed into decimals, so no numeric precision is lost in transit.
const walletColumns = `id, owner_id, owner_type, balance_available::text, balance_locked::text,
	is_frozen, first_activity_at, last_deposit_at, last_spend_at, created_at, updated_at`

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	var available, locked string
	err := row.Scan(
		&w.ID, &w.OwnerID, &w.OwnerType, &available, &locked,
		&w.IsFrozen, &w.FirstActivityAt, &w.LastDepositAt, &w.LastSpendAt,
		&w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if w.BalanceAvailable, err = decimal.NewFromString(available); err != nil {
		return nil, fmt.Errorf("parse balance_available: %w", err)
	}
	if w.BalanceLocked, err = decimal.NewFromString(locked); err != nil {
		return nil, fmt.Errorf("parse balance_locked: %w", err)
	}
	return w, nil
}

// Create inserts a new wallet within a transaction. Concurrent creates for
// the same owner are allowed to lose quietly: callers re-fetch with
// GetByOwnerForUpdate to pick up whichever row won.
func (r *WalletRepo) Create(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	query := `INSERT INTO wallets (id, owner_id, owner_type, balance_available, balance_locked,
		is_frozen, first_activity_at, last_deposit_at, last_spend_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (owner_id, owner_type) DO NOTHING`

	_, err := tx.Exec(ctx, query,
		w.ID, w.OwnerID, w.OwnerType, w.BalanceAvailable.String(), w.BalanceLocked.String(),
		w.IsFrozen, w.FirstActivityAt, w.LastDepositAt, w.LastSpendAt, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// GetByID fetches a wallet by its UUID (without locking).
func (r *WalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1`

	w, err := scanWallet(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet by id: %w", err)
	}
	return w, nil
}

// GetByOwner fetches a wallet by owner identity (non-locking read).
func (r *WalletRepo) GetByOwner(ctx context.Context, ownerID uuid.UUID, ownerType domain.OwnerType) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE owner_id = $1 AND owner_type = $2`

	w, err := scanWallet(r.pool.QueryRow(ctx, query, ownerID, ownerType))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet by owner: %w", err)
	}
	return w, nil
}

// GetByIDForUpdate fetches a wallet by ID with pessimistic locking.
// This MUST be called within a transaction.
func (r *WalletRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1 FOR UPDATE`

	w, err := scanWallet(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet for update by id: %w", err)
	}
	return w, nil
}

// GetByOwnerForUpdate fetches a wallet by owner identity with pessimistic
// locking. This MUST be called within a transaction.
func (r *WalletRepo) GetByOwnerForUpdate(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID, ownerType domain.OwnerType) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE owner_id = $1 AND owner_type = $2 FOR UPDATE`

	w, err := scanWallet(tx.QueryRow(ctx, query, ownerID, ownerType))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet for update by owner: %w", err)
	}
	return w, nil
}

// UpdateBalances overwrites both balance columns for a locked wallet row.
func (r *WalletRepo) UpdateBalances(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, available, locked decimal.Decimal) error {
	query := `UPDATE wallets SET balance_available = $1::numeric, balance_locked = $2::numeric, updated_at = NOW()
		WHERE id = $3`

	tag, err := tx.Exec(ctx, query, available.String(), locked.String(), walletID)
	if err != nil {
		return fmt.Errorf("update wallet balances: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wallet not found: %s", walletID)
	}
	return nil
}

// StampDeposit records a completed deposit on the wallet's activity clock.
func (r *WalletRepo) StampDeposit(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, at time.Time) error {
	query := `UPDATE wallets SET last_deposit_at = $1,
		first_activity_at = COALESCE(first_activity_at, $1), updated_at = NOW()
		WHERE id = $2`

	tag, err := tx.Exec(ctx, query, at, walletID)
	if err != nil {
		return fmt.Errorf("stamp deposit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wallet not found: %s", walletID)
	}
	return nil
}

// StampSpend records a completed outgoing transfer on the activity clock.
func (r *WalletRepo) StampSpend(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, at time.Time) error {
	query := `UPDATE wallets SET last_spend_at = $1,
		first_activity_at = COALESCE(first_activity_at, $1), updated_at = NOW()
		WHERE id = $2`

	tag, err := tx.Exec(ctx, query, at, walletID)
	if err != nil {
		return fmt.Errorf("stamp spend: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wallet not found: %s", walletID)
	}
	return nil
}

// SumBalances totals available+locked across all wallets, for reconciling
// against treasury total_supply.
func (r *WalletRepo) SumBalances(ctx context.Context) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(balance_available + balance_locked), 0)::text FROM wallets`

	var sum string
	if err := r.pool.QueryRow(ctx, query).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("sum wallet balances: %w", err)
	}
	total, err := decimal.NewFromString(sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse balance sum: %w", err)
	}
	return total, nil
}
