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

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Create inserts a transaction within a transaction block.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `INSERT INTO transactions (id, from_wallet_id, to_wallet_id, amount, fee, type, status,
		reference, order_id, created_at, processed_at)
		VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6, $7, $8, $9, $10, $11)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.FromWalletID, t.ToWalletID, t.Amount.String(), t.Fee.String(),
		t.Type, t.Status, t.Reference, t.OrderID, t.CreatedAt, t.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByID fetches a transaction by its UUID.
func (r *TransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT id, from_wallet_id, to_wallet_id, amount::text, fee::text, type, status,
		reference, order_id, created_at, processed_at
		FROM transactions WHERE id = $1`

	t := &domain.Transaction{}
	var amount, fee string
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.FromWalletID, &t.ToWalletID, &amount, &fee, &t.Type, &t.Status,
		&t.Reference, &t.OrderID, &t.CreatedAt, &t.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transaction by id: %w", err)
	}
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse amount: %w", err)
	}
	if t.Fee, err = decimal.NewFromString(fee); err != nil {
		return nil, fmt.Errorf("parse fee: %w", err)
	}
	return t, nil
}

// UpdateStatus moves a transaction to a new status, stamping processed_at.
func (r *TransactionRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.TransactionStatus, processedAt time.Time) error {
	query := `UPDATE transactions SET status = $1, processed_at = $2 WHERE id = $3`

	tag, err := tx.Exec(ctx, query, status, processedAt, id)
	if err != nil {
		return fmt.Errorf("update transaction status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction not found: %s", id)
	}
	return nil
}

// CreateEntries inserts the debit/credit rows paired with a transaction.
func (r *TransactionRepo) CreateEntries(ctx context.Context, tx pgx.Tx, entries []domain.LedgerEntry) error {
	query := `INSERT INTO ledger_entries (id, transaction_id, wallet_id, direction, amount, created_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6)`

	for _, e := range entries {
		if _, err := tx.Exec(ctx, query,
			e.ID, e.TransactionID, e.WalletID, e.Direction, e.Amount.String(), e.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert ledger entry: %w", err)
		}
	}
	return nil
}
